package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/dealscore/internal/persistence"
	"github.com/sawpanic/dealscore/internal/scoring"
)

const configKey = "pipeline_scoring_config"

type configRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewConfigRepo creates a new PostgreSQL scoring-config repository. Load
// never returns an error to the engine path: a missing row or malformed
// document falls back to scoring.DefaultConfig, logged at warn level.
func NewConfigRepo(db *sqlx.DB, timeout time.Duration) persistence.ConfigRepo {
	return &configRepo{db: db, timeout: timeout}
}

func (r *configRepo) Load(ctx context.Context) (scoring.ScoringConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var raw []byte
	err := r.db.GetContext(ctx, &raw, `SELECT value FROM settings WHERE key = $1`, configKey)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Warn().Msg("no scoring config row found, falling back to default config")
			return scoring.DefaultConfig(), nil
		}
		log.Warn().Err(err).Msg("failed to load scoring config, falling back to default config")
		return scoring.DefaultConfig(), nil
	}

	cfg, err := scoring.ParseConfig(raw)
	if err != nil {
		log.Warn().Err(err).Msg("failed to parse scoring config, falling back to default config")
		return scoring.DefaultConfig(), nil
	}

	return cfg, nil
}
