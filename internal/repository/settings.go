package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// SettingsRepository reads runtime flags maintained by operators outside the
// monitor process. The monitor only ever reads them.
type SettingsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSettingsRepository(sqlDB *sql.DB, logger zerolog.Logger) *SettingsRepository {
	return &SettingsRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *SettingsRepository) Get(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		"SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return fallback, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}
