package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"coh3-monitor/internal/config"
	"coh3-monitor/internal/database"
	"coh3-monitor/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *MatchStore {
	t.Helper()

	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewMatchStore(db, zerolog.Nop())
}

func fixtureRecord() *domain.MatchRecord {
	return &domain.MatchRecord{
		MatchID:       "9001",
		UniqueMatchID: "a3f8c2d14e9b7f06a1c5d8e2b4f7a9c1",
		PlayerID:      "100",
		PlayerName:    "alpha",
		MatchDate:     "2025-08-01 20:00:00",
		MatchType:     "Custom Game",
		MatchResult:   "Victory",
		MapName:       "cherbourg",
		AxisPlayers: []domain.Participant{
			{PlayerID: "100", PlayerName: "alpha"},
			{PlayerID: "200", PlayerName: "bravo"},
		},
		AlliesPlayers: []domain.Participant{
			{PlayerName: "stranger"},
			{PlayerName: "other"},
		},
		IsScraped: true,
		ScrapedAt: time.Date(2025, 8, 1, 21, 0, 0, 0, time.UTC),
	}
}

func TestInsertIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := fixtureRecord()
	require.NoError(t, store.Insert(ctx, domain.CollectionCustomGames, record))
	assert.False(t, record.DiscoveredAt.IsZero())
	firstDiscovered := record.DiscoveredAt

	// A later cycle seeing the same match through another participant's
	// page must collapse to the first stored row.
	duplicate := fixtureRecord()
	duplicate.PlayerID = "200"
	duplicate.PlayerName = "bravo"
	err := store.Insert(ctx, domain.CollectionCustomGames, duplicate)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	count, err := store.Count(ctx, domain.CollectionCustomGames)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := store.GetByUniqueID(ctx, domain.CollectionCustomGames, record.UniqueMatchID)
	require.NoError(t, err)
	assert.Equal(t, "100", stored.PlayerID)
	assert.WithinDuration(t, firstDiscovered, stored.DiscoveredAt, time.Second)
}

func TestInsertSameKeyDifferentCollections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, domain.CollectionCustomGames, fixtureRecord()))
	require.NoError(t, store.Insert(ctx, domain.CollectionAutomatches, fixtureRecord()))
}

func TestExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := fixtureRecord()

	exists, err := store.Exists(ctx, domain.CollectionCustomGames, record.UniqueMatchID)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Insert(ctx, domain.CollectionCustomGames, record))

	exists, err = store.Exists(ctx, domain.CollectionCustomGames, record.UniqueMatchID)
	require.NoError(t, err)
	assert.True(t, exists)

	// Presence in one collection says nothing about the other.
	exists, err = store.Exists(ctx, domain.CollectionAutomatches, record.UniqueMatchID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := fixtureRecord()
	require.NoError(t, store.Insert(ctx, domain.CollectionAutomatches, record))

	stored, err := store.GetByUniqueID(ctx, domain.CollectionAutomatches, record.UniqueMatchID)
	require.NoError(t, err)

	// Everything except discovered_at must survive the store unchanged.
	stored.DiscoveredAt = record.DiscoveredAt
	stored.ScrapedAt = stored.ScrapedAt.UTC()
	assert.Equal(t, record, stored)
}

func TestUnknownCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Exists(ctx, domain.Collection("nope"), "x")
	assert.Error(t, err)

	err = store.Insert(ctx, domain.Collection("nope"), fixtureRecord())
	assert.Error(t, err)
}

func TestPlayerRepository(t *testing.T) {
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewPlayerRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, domain.Player{PlayerID: "100", PlayerName: "alpha"}))
	require.NoError(t, repo.Add(ctx, domain.Player{PlayerID: "200", PlayerName: "bravo"}))

	players, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 2)

	require.NoError(t, repo.RefreshName(ctx, "100", "alpha-renamed"))

	player, err := repo.Get(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "alpha-renamed", player.PlayerName)
}

func TestSettingsRepository(t *testing.T) {
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewSettingsRepository(db, zerolog.Nop())
	ctx := context.Background()

	// seeded by the initial migration
	level, err := repo.Get(ctx, "log_level", "debug")
	require.NoError(t, err)
	assert.Equal(t, "info", level)

	missing, err := repo.Get(ctx, "does_not_exist", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", missing)
}
