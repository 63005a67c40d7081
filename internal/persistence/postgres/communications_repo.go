package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/dealscore/internal/persistence"
)

type communicationsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewCommunicationsRepo creates a new PostgreSQL communications repository.
func NewCommunicationsRepo(db *sqlx.DB, timeout time.Duration) persistence.CommunicationsRepo {
	return &communicationsRepo{db: db, timeout: timeout}
}

func (r *communicationsRepo) ListByDeal(ctx context.Context, dealID int64) ([]persistence.Communication, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, deal_id, direction, occurred_at
		FROM communications
		WHERE deal_id = $1
		ORDER BY occurred_at ASC`

	var comms []persistence.Communication
	if err := r.db.SelectContext(ctx, &comms, query, dealID); err != nil {
		return nil, fmt.Errorf("failed to list communications for deal %d: %w", dealID, err)
	}

	return comms, nil
}
