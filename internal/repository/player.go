package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"coh3-monitor/internal/domain"

	"github.com/rs/zerolog"
)

// PlayerRepository reads the registered roster. The roster is owned by the
// registration process; the only write this service performs is a display
// name refresh.
type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *PlayerRepository) List(ctx context.Context) ([]domain.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT player_id, player_name, added_at
		FROM players
		ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.PlayerID, &p.PlayerName, &p.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}

	r.logger.Debug().Int("count", len(players)).Msg("loaded registered players")
	return players, nil
}

func (r *PlayerRepository) Get(ctx context.Context, playerID string) (*domain.Player, error) {
	var p domain.Player
	err := r.db.QueryRowContext(ctx, `
		SELECT player_id, player_name, added_at
		FROM players
		WHERE player_id = ?`, playerID).
		Scan(&p.PlayerID, &p.PlayerName, &p.AddedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RefreshName updates a player's display name when a fetched payload shows
// it changed on the source side.
func (r *PlayerRepository) RefreshName(ctx context.Context, playerID, playerName string) error {
	if playerName == "" {
		return nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE players SET player_name = ?
		WHERE player_id = ? AND player_name != ?`, playerName, playerID, playerName)
	if err != nil {
		return fmt.Errorf("failed to refresh player name: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		r.logger.Info().
			Str("player_id", playerID).
			Str("player_name", playerName).
			Msg("player name refreshed")
	}
	return nil
}

// Add registers a player. Used by seeding and tests; the monitor itself
// never calls it.
func (r *PlayerRepository) Add(ctx context.Context, p domain.Player) error {
	if p.AddedAt.IsZero() {
		p.AddedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO players (player_id, player_name, added_at)
		VALUES (?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET player_name = excluded.player_name`,
		p.PlayerID, p.PlayerName, p.AddedAt)
	if err != nil {
		return fmt.Errorf("failed to add player %s: %w", p.PlayerID, err)
	}
	return nil
}
