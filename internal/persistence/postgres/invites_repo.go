package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/dealscore/internal/persistence"
)

type invitesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewInvitesRepo creates a new PostgreSQL invites repository.
func NewInvitesRepo(db *sqlx.DB, timeout time.Duration) persistence.InvitesRepo {
	return &invitesRepo{db: db, timeout: timeout}
}

func (r *invitesRepo) ListByDeal(ctx context.Context, dealID int64) ([]persistence.Invite, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, deal_id, email_opened_at, account_created_at, viewed_at, created_at
		FROM invites
		WHERE deal_id = $1
		ORDER BY created_at ASC`

	var invites []persistence.Invite
	if err := r.db.SelectContext(ctx, &invites, query, dealID); err != nil {
		return nil, fmt.Errorf("failed to list invites for deal %d: %w", dealID, err)
	}

	return invites, nil
}
