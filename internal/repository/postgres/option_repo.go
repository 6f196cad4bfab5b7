package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/guilamu/gravity-extract/internal/port"
)

// optionRepo persists settings documents (custom profiles, saved field
// configurations) as JSONB rows keyed by option name.
type optionRepo struct {
	db *sqlx.DB
}

// NewOptionRepo creates a PostgreSQL-backed OptionStore.
func NewOptionRepo(db *sqlx.DB) port.OptionStore {
	return &optionRepo{db: db}
}

func (r *optionRepo) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.GetContext(ctx, &value,
		`SELECT value FROM app_options WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading option %s: %w", key, err)
	}
	return value, nil
}

func (r *optionRepo) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO app_options (key, value, updated_at)
		 VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing option %s: %w", key, err)
	}
	return nil
}

func (r *optionRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM app_options WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting option %s: %w", key, err)
	}
	return nil
}
