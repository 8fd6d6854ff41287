package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/classsync/classsync-api/internal/models"
)

const configurationColumns = `key, value, type, description, updated_by, updated_at`

// ConfigurationRepository stores class-wide settings keyed by name.
type ConfigurationRepository struct {
	db *sqlx.DB
}

// NewConfigurationRepository constructs the repository.
func NewConfigurationRepository(db *sqlx.DB) *ConfigurationRepository {
	return &ConfigurationRepository{db: db}
}

// ListByKeys returns the stored rows among keys. Keys never written are absent.
func (r *ConfigurationRepository) ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var out []models.Configuration
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+configurationColumns+` FROM configurations WHERE key = ANY($1) ORDER BY key`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("list configurations: %w", err)
	}
	return out, nil
}

// Get fetches one setting or sql.ErrNoRows.
func (r *ConfigurationRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	var cfg models.Configuration
	if err := r.db.GetContext(ctx, &cfg, `SELECT `+configurationColumns+` FROM configurations WHERE key = $1`, key); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes every entry in one transaction, stamping them with at.
func (r *ConfigurationRepository) Save(ctx context.Context, entries []models.Configuration, at time.Time) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin configuration tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO configurations (`+configurationColumns+`)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, type = EXCLUDED.type,
    description = COALESCE(EXCLUDED.description, configurations.description),
    updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare configuration upsert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		entries[i].UpdatedAt = at
		e := entries[i]
		if _, err := stmt.ExecContext(ctx, e.Key, e.Value, e.Type, e.Description, e.UpdatedBy, e.UpdatedAt); err != nil {
			return fmt.Errorf("save configuration %s: %w", e.Key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit configuration tx: %w", err)
	}
	return nil
}

// Delete removes a stored setting so readers fall back to its default.
// It reports whether a row existed.
func (r *ConfigurationRepository) Delete(ctx context.Context, key string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM configurations WHERE key = $1`, key)
	if err != nil {
		return false, fmt.Errorf("delete configuration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete configuration: %w", err)
	}
	return n > 0, nil
}
