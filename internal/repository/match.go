package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coh3-monitor/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// ErrAlreadyExists reports that a record with the same unique match id was
// inserted first by a concurrent or earlier writer. Callers treat it as a
// successful no-op.
var ErrAlreadyExists = errors.New("match already exists")

// MatchStore is the deduplicating gateway over the two destination tables.
// It is the sole authority on whether a match is new: Insert relies on the
// UNIQUE constraint on unique_match_id, so concurrent duplicate inserts
// collapse to one stored row. Rows are never updated or deleted.
type MatchStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchStore(sqlDB *sql.DB, logger zerolog.Logger) *MatchStore {
	return &MatchStore{
		db:     sqlDB,
		logger: logger,
	}
}

func tableFor(collection domain.Collection) (string, error) {
	switch collection {
	case domain.CollectionCustomGames:
		return "custom_games", nil
	case domain.CollectionAutomatches:
		return "automatches", nil
	default:
		return "", fmt.Errorf("unknown collection %q", collection)
	}
}

func (s *MatchStore) Exists(ctx context.Context, collection domain.Collection, uniqueMatchID string) (bool, error) {
	table, err := tableFor(collection)
	if err != nil {
		return false, err
	}

	var one int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE unique_match_id = ?", table),
		uniqueMatchID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s for %s: %w", table, uniqueMatchID, err)
	}
	return true, nil
}

// Insert stores a record and stamps discovered_at with the current time.
// A uniqueness violation on unique_match_id returns ErrAlreadyExists; the
// stored row keeps the discovered_at of the winning write.
func (s *MatchStore) Insert(ctx context.Context, collection domain.Collection, record *domain.MatchRecord) error {
	table, err := tableFor(collection)
	if err != nil {
		return err
	}

	axis, err := json.Marshal(record.AxisPlayers)
	if err != nil {
		return fmt.Errorf("failed to encode axis players: %w", err)
	}
	allies, err := json.Marshal(record.AlliesPlayers)
	if err != nil {
		return fmt.Errorf("failed to encode allies players: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate record id: %w", err)
	}

	discoveredAt := time.Now()
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (
			id, unique_match_id, match_id, player_id, player_name,
			match_date, match_type, match_result, map_name,
			axis_players, allies_players,
			is_simulated, is_scraped, scraped_at, discovered_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table),
		id, record.UniqueMatchID, record.MatchID, record.PlayerID, record.PlayerName,
		record.MatchDate, record.MatchType, record.MatchResult, record.MapName,
		string(axis), string(allies),
		record.IsSimulated, record.IsScraped, record.ScrapedAt, discoveredAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	record.DiscoveredAt = discoveredAt
	s.logger.Debug().
		Str("collection", string(collection)).
		Str("unique_match_id", record.UniqueMatchID).
		Msg("match record inserted")
	return nil
}

func (s *MatchStore) GetByUniqueID(ctx context.Context, collection domain.Collection, uniqueMatchID string) (*domain.MatchRecord, error) {
	table, err := tableFor(collection)
	if err != nil {
		return nil, err
	}

	var (
		record       domain.MatchRecord
		axis, allies string
	)
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT unique_match_id, match_id, player_id, player_name,
		       match_date, match_type, match_result, map_name,
		       axis_players, allies_players,
		       is_simulated, is_scraped, scraped_at, discovered_at
		FROM %s WHERE unique_match_id = ?`, table), uniqueMatchID).
		Scan(&record.UniqueMatchID, &record.MatchID, &record.PlayerID, &record.PlayerName,
			&record.MatchDate, &record.MatchType, &record.MatchResult, &record.MapName,
			&axis, &allies,
			&record.IsSimulated, &record.IsScraped, &record.ScrapedAt, &record.DiscoveredAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(axis), &record.AxisPlayers); err != nil {
		return nil, fmt.Errorf("failed to decode axis players: %w", err)
	}
	if err := json.Unmarshal([]byte(allies), &record.AlliesPlayers); err != nil {
		return nil, fmt.Errorf("failed to decode allies players: %w", err)
	}
	return &record, nil
}

func (s *MatchStore) Count(ctx context.Context, collection domain.Collection) (int, error) {
	table, err := tableFor(collection)
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return count, nil
}
