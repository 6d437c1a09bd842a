package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"coh3-monitor/internal/classify"
	"coh3-monitor/internal/config"
	"coh3-monitor/internal/constants"
	"coh3-monitor/internal/domain"
	"coh3-monitor/internal/fetch"
	"coh3-monitor/internal/logger"
	"coh3-monitor/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Fetcher yields one raw payload per player or fails after exhausting every
// strategy.
type Fetcher interface {
	FetchPlayer(ctx context.Context, player domain.Player) (*fetch.Payload, error)
}

// Normalizer maps a raw payload to canonical match records.
type Normalizer interface {
	Normalize(payload *fetch.Payload) []domain.MatchRecord
}

// Roster reads the registered player list.
type Roster interface {
	List(ctx context.Context) ([]domain.Player, error)
	RefreshName(ctx context.Context, playerID, playerName string) error
}

// MatchStore is the deduplicating persistence gateway.
type MatchStore interface {
	Exists(ctx context.Context, collection domain.Collection, uniqueMatchID string) (bool, error)
	Insert(ctx context.Context, collection domain.Collection, record *domain.MatchRecord) error
}

// Settings reads operator-maintained runtime flags.
type Settings interface {
	Get(ctx context.Context, key, fallback string) (string, error)
}

// Exporter receives newly discovered custom games.
type Exporter interface {
	ExportCustomGame(ctx context.Context, record *domain.MatchRecord) error
}

// Monitor is the periodic driver of the discovery pipeline. Players are
// processed strictly sequentially so exactly one renderer is alive at a
// time; batches pace the roster, they are not a concurrency construct.
type Monitor struct {
	cfg        *config.Config
	roster     Roster
	store      MatchStore
	settings   Settings
	fetcher    Fetcher
	normalizer Normalizer
	exporter   Exporter
	logger     zerolog.Logger

	// lastChecked orders the roster least-recently-checked-first across
	// cycles. Never-checked players go first.
	lastChecked map[string]time.Time
}

func NewMonitor(
	cfg *config.Config,
	roster Roster,
	store MatchStore,
	settings Settings,
	fetcher Fetcher,
	normalizer Normalizer,
	exporter Exporter,
	log zerolog.Logger,
) *Monitor {
	return &Monitor{
		cfg:         cfg,
		roster:      roster,
		store:       store,
		settings:    settings,
		fetcher:     fetcher,
		normalizer:  normalizer,
		exporter:    exporter,
		logger:      log,
		lastChecked: make(map[string]time.Time),
	}
}

// Run loops until ctx is cancelled. A cycle failure never stops the loop;
// the shutdown signal is honored between cycles and between players.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info().
		Dur("check_interval", m.cfg.CheckInterval).
		Int("batch_size", m.cfg.BatchSize).
		Msg("starting game monitor")

	for {
		start := time.Now()
		m.RunCycle(ctx)
		elapsed := time.Since(start)

		sleep := m.cfg.CheckInterval - elapsed
		if sleep < constants.MinCycleSleep {
			sleep = constants.MinCycleSleep
		}
		m.logger.Info().
			Dur("elapsed", elapsed).
			Dur("sleep", sleep).
			Msg("cycle finished, waiting for next")

		select {
		case <-ctx.Done():
			m.logger.Info().Msg("game monitor stopped")
			return
		case <-time.After(sleep):
		}
	}
}

// RunCycle processes the whole roster once, in batches.
func (m *Monitor) RunCycle(ctx context.Context) {
	cycleID := uuid.New().String()
	log := m.logger.With().Str("cycle_id", cycleID).Logger()

	m.applyLogLevel(ctx, log)

	players, err := m.roster.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load roster, skipping cycle")
		return
	}
	if len(players) == 0 {
		log.Warn().Msg("no players registered")
		return
	}

	m.sortByLastChecked(players)

	batches := partition(players, m.cfg.BatchSize)
	log.Info().
		Int("players", len(players)).
		Int("batches", len(batches)).
		Msg("checking for new games")

	for i, batch := range batches {
		for _, player := range batch {
			select {
			case <-ctx.Done():
				log.Info().Msg("shutdown requested, stopping cycle at player boundary")
				return
			default:
			}

			playerCtx, cancel := context.WithTimeout(ctx, constants.PlayerTimeout)
			stats, err := m.processPlayer(playerCtx, log, player)
			cancel()

			m.lastChecked[player.PlayerID] = time.Now()

			if err != nil {
				// One player failing never aborts the cycle.
				log.Error().
					Err(err).
					Str("player_id", player.PlayerID).
					Str("player_name", player.PlayerName).
					Msg("player check failed, skipping")
				continue
			}

			log.Info().
				Str("player_id", player.PlayerID).
				Int("matches", stats.Matches).
				Int("new_custom_games", stats.NewCustomGames).
				Int("new_automatches", stats.NewAutomatches).
				Int("discarded", stats.Discarded).
				Msg("player checked")
		}
		log.Debug().Int("batch", i+1).Int("of", len(batches)).Msg("batch completed")
	}
}

// CycleStats summarizes one player's pipeline run.
type CycleStats struct {
	Matches        int
	NewCustomGames int
	NewAutomatches int
	Discarded      int
}

func (m *Monitor) processPlayer(ctx context.Context, log zerolog.Logger, player domain.Player) (CycleStats, error) {
	var stats CycleStats

	payload, err := m.fetcher.FetchPlayer(ctx, player)
	if err != nil {
		return stats, err
	}

	if payload.API != nil && payload.API.Alias != "" && payload.API.Alias != player.PlayerName {
		if err := m.roster.RefreshName(ctx, player.PlayerID, payload.API.Alias); err != nil {
			log.Warn().Err(err).Str("player_id", player.PlayerID).Msg("failed to refresh player name")
		}
	}

	records := m.normalizer.Normalize(payload)
	stats.Matches = len(records)

	players, err := m.roster.List(ctx)
	if err != nil {
		return stats, err
	}
	roster := classify.NewRoster(players)

	for i := range records {
		record := &records[i]

		label := classify.Classify(record, roster)
		collection, ok := label.Collection()
		if !ok {
			stats.Discarded++
			log.Debug().
				Str("unique_match_id", record.UniqueMatchID).
				Msg("discarding match with no registered participants")
			continue
		}

		inserted, err := m.persist(ctx, collection, record)
		if err != nil {
			// Not marked discovered; the source still reports the match,
			// so the next cycle re-attempts it.
			log.Error().
				Err(err).
				Str("collection", string(collection)).
				Str("unique_match_id", record.UniqueMatchID).
				Msg("failed to persist match, will retry next cycle")
			continue
		}
		if !inserted {
			continue
		}

		switch label {
		case classify.CustomGame:
			stats.NewCustomGames++
			log.Info().
				Str("unique_match_id", record.UniqueMatchID).
				Str("map_name", record.MapName).
				Msg("new custom game discovered")
			if err := m.exporter.ExportCustomGame(ctx, record); err != nil {
				log.Error().
					Err(err).
					Str("unique_match_id", record.UniqueMatchID).
					Msg("failed to export custom game")
			}
		case classify.AutoMatch:
			stats.NewAutomatches++
			log.Info().
				Str("unique_match_id", record.UniqueMatchID).
				Msg("new automatch discovered")
		}
	}

	return stats, nil
}

// persist runs the lookup-then-insert path. The two steps are not atomic;
// the unique constraint inside Insert is what makes concurrent duplicates
// collapse, so ErrAlreadyExists is a successful no-op here.
func (m *Monitor) persist(ctx context.Context, collection domain.Collection, record *domain.MatchRecord) (bool, error) {
	exists, err := m.store.Exists(ctx, collection, record.UniqueMatchID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	err = m.store.Insert(ctx, collection, record)
	if errors.Is(err, repository.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// applyLogLevel picks up the operator-set level once per cycle. The flag is
// maintained externally; the monitor only reads it.
func (m *Monitor) applyLogLevel(ctx context.Context, log zerolog.Logger) {
	level, err := m.settings.Get(ctx, constants.LogLevelSetting, m.cfg.LogLevel)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read log level setting")
		return
	}

	parsed := logger.ParseLevel(level)
	if zerolog.GlobalLevel() != parsed {
		log.Info().Str("level", parsed.String()).Msg("log level changed")
		zerolog.SetGlobalLevel(parsed)
	}
}

func (m *Monitor) sortByLastChecked(players []domain.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		ti, iChecked := m.lastChecked[players[i].PlayerID]
		tj, jChecked := m.lastChecked[players[j].PlayerID]
		if iChecked != jChecked {
			return !iChecked
		}
		return ti.Before(tj)
	})
}

func partition(players []domain.Player, size int) [][]domain.Player {
	var batches [][]domain.Player
	for start := 0; start < len(players); start += size {
		end := start + size
		if end > len(players) {
			end = len(players)
		}
		batches = append(batches, players[start:end])
	}
	return batches
}
