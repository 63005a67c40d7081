package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/dealscore/internal/persistence"
)

type queueRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewQueueRepo creates a new PostgreSQL event-queue repository.
func NewQueueRepo(db *sqlx.DB, timeout time.Duration) persistence.QueueRepo {
	return &queueRepo{db: db, timeout: timeout}
}

func (r *queueRepo) Enqueue(ctx context.Context, dealID int64, triggerSource string, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO score_event_queue (deal_id, trigger_source, enqueued_at)
		VALUES ($1, $2, $3)`

	if _, err := r.db.ExecContext(ctx, query, dealID, triggerSource, now); err != nil {
		return fmt.Errorf("failed to enqueue recalculation for deal %d: %w", dealID, err)
	}

	return nil
}

// PendingDealIDs returns each deal with at least one unprocessed queue
// row, ordered by deal id. A deal enqueued by several triggers before a
// drain appears once.
func (r *queueRepo) PendingDealIDs(ctx context.Context) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT DISTINCT deal_id
		FROM score_event_queue
		WHERE processed_at IS NULL
		ORDER BY deal_id ASC`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list pending queue deal ids: %w", err)
	}

	return ids, nil
}

// MarkProcessed stamps every unprocessed row. Idempotent, so concurrent
// drainers stepping on each other only re-stamp rows that are already
// done.
func (r *queueRepo) MarkProcessed(ctx context.Context, now time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		UPDATE score_event_queue
		SET processed_at = $1
		WHERE processed_at IS NULL`

	if _, err := r.db.ExecContext(ctx, query, now); err != nil {
		return fmt.Errorf("failed to mark queue rows processed: %w", err)
	}

	return nil
}
