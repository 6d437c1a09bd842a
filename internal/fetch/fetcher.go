package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coh3-monitor/internal/config"
	"coh3-monitor/internal/domain"
	"coh3-monitor/internal/scrape"
	"coh3-monitor/internal/source"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ErrFetchExhausted reports that every strategy ran out of attempts for a
// player. The player is skipped for the cycle; nothing partial is emitted.
var ErrFetchExhausted = errors.New("all fetch strategies exhausted")

// Payload is the raw result of one successful strategy run. Exactly one of
// API and Scrape is set, indicated by Scraped.
type Payload struct {
	Player    domain.Player
	Scraped   bool
	ScrapedAt time.Time
	API       *source.PlayerData
	Scrape    *scrape.Result
}

// Strategy fetches one player's raw match listing. Strategies are tried in
// order by the Fetcher; each is free to fail without policy of its own.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, player domain.Player) (*Payload, error)
}

// Fetcher applies the dual-strategy policy: the structured client first,
// the scrape fallback second, each retried with capped exponential backoff.
type Fetcher struct {
	strategies      []Strategy
	attempts        int
	backoffBase     time.Duration
	renderThreshold int
	logger          zerolog.Logger
}

func NewFetcher(cfg *config.Config, client *source.Client, engine *scrape.Engine, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		strategies: []Strategy{
			&apiStrategy{client: client},
			&scrapeStrategy{engine: engine},
		},
		attempts:        cfg.FetchAttempts,
		backoffBase:     cfg.BackoffBase,
		renderThreshold: cfg.RenderFailThreshold,
		logger:          logger,
	}
}

// NewFetcherWithStrategies wires an explicit strategy list. Tests use it.
func NewFetcherWithStrategies(strategies []Strategy, attempts int, backoffBase time.Duration, renderThreshold int, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		strategies:      strategies,
		attempts:        attempts,
		backoffBase:     backoffBase,
		renderThreshold: renderThreshold,
		logger:          logger,
	}
}

// FetchPlayer tries each strategy in order until one yields a payload.
func (f *Fetcher) FetchPlayer(ctx context.Context, player domain.Player) (*Payload, error) {
	var lastErr error
	for _, strategy := range f.strategies {
		payload, err := f.runStrategy(ctx, strategy, player)
		if err == nil {
			return payload, nil
		}
		lastErr = err
		f.logger.Warn().
			Err(err).
			Str("strategy", strategy.Name()).
			Str("player_id", player.PlayerID).
			Msg("fetch strategy exhausted, trying next")
	}
	return nil, fmt.Errorf("%w for player %s: %v", ErrFetchExhausted, player.PlayerID, lastErr)
}

func (f *Fetcher) runStrategy(ctx context.Context, strategy Strategy, player domain.Player) (*Payload, error) {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = f.backoffBase
	expo.MaxInterval = f.backoffBase * 8
	expo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(f.attempts-1)), ctx)

	renderFailures := 0
	var payload *Payload

	op := func() error {
		p, err := strategy.Fetch(ctx, player)
		if err == nil {
			payload = p
			return nil
		}

		if errors.Is(err, scrape.ErrRender) {
			renderFailures++
			f.logger.Warn().
				Err(err).
				Int("render_failures", renderFailures).
				Str("player_id", player.PlayerID).
				Msg("renderer failed")

			if renderFailures >= f.renderThreshold {
				return backoff.Permanent(err)
			}
			// Never retry on a known-bad renderer.
			if restarter, ok := strategy.(interface{ Restart() error }); ok {
				if rerr := restarter.Restart(); rerr != nil {
					return backoff.Permanent(fmt.Errorf("failed to recreate renderer: %w", rerr))
				}
			}
		}
		return err
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return payload, nil
}

type apiStrategy struct {
	client *source.Client
}

func (s *apiStrategy) Name() string { return "api" }

func (s *apiStrategy) Fetch(ctx context.Context, player domain.Player) (*Payload, error) {
	data, err := s.client.FetchPlayer(ctx, player.PlayerID)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Player:    player,
		Scraped:   false,
		ScrapedAt: time.Now(),
		API:       data,
	}, nil
}

type scrapeStrategy struct {
	engine *scrape.Engine
}

func (s *scrapeStrategy) Name() string { return "scrape" }

func (s *scrapeStrategy) Restart() error { return s.engine.Restart() }

func (s *scrapeStrategy) Fetch(ctx context.Context, player domain.Player) (*Payload, error) {
	result, err := s.engine.FetchPlayer(ctx, player)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Player:    player,
		Scraped:   true,
		ScrapedAt: time.Now(),
		Scrape:    result,
	}, nil
}
