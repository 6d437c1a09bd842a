package fetch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"coh3-monitor/internal/domain"
	"coh3-monitor/internal/scrape"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStrategy struct {
	name     string
	calls    int
	restarts int
	fetch    func(calls int) (*Payload, error)
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) Fetch(_ context.Context, _ domain.Player) (*Payload, error) {
	s.calls++
	return s.fetch(s.calls)
}

func (s *fakeStrategy) Restart() error {
	s.restarts++
	return nil
}

func alwaysFailing(name string, err error) *fakeStrategy {
	return &fakeStrategy{
		name:  name,
		fetch: func(int) (*Payload, error) { return nil, err },
	}
}

func succeeding(name string) *fakeStrategy {
	return &fakeStrategy{
		name:  name,
		fetch: func(int) (*Payload, error) { return &Payload{Scraped: name == "scrape"}, nil },
	}
}

func newTestFetcher(attempts int, strategies ...Strategy) *Fetcher {
	return NewFetcherWithStrategies(strategies, attempts, time.Millisecond, 3, zerolog.Nop())
}

var testPlayer = domain.Player{PlayerID: "100", PlayerName: "alpha"}

func TestFirstStrategySuccess(t *testing.T) {
	primary := succeeding("api")
	fallback := succeeding("scrape")
	f := newTestFetcher(3, primary, fallback)

	payload, err := f.FetchPlayer(context.Background(), testPlayer)
	require.NoError(t, err)
	assert.False(t, payload.Scraped)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestRetryBoundBeforeFallback(t *testing.T) {
	// A permanently failing strategy is attempted exactly N times before
	// the fetcher moves on.
	primary := alwaysFailing("api", errors.New("connection refused"))
	fallback := succeeding("scrape")
	f := newTestFetcher(3, primary, fallback)

	payload, err := f.FetchPlayer(context.Background(), testPlayer)
	require.NoError(t, err)
	assert.True(t, payload.Scraped)
	assert.Equal(t, 3, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestTransientFailureRecovers(t *testing.T) {
	primary := &fakeStrategy{
		name: "api",
		fetch: func(calls int) (*Payload, error) {
			if calls < 3 {
				return nil, fmt.Errorf("attempt %d: timeout", calls)
			}
			return &Payload{}, nil
		},
	}
	f := newTestFetcher(3, primary)

	_, err := f.FetchPlayer(context.Background(), testPlayer)
	require.NoError(t, err)
	assert.Equal(t, 3, primary.calls)
}

func TestAllStrategiesExhausted(t *testing.T) {
	primary := alwaysFailing("api", errors.New("down"))
	fallback := alwaysFailing("scrape", errors.New("also down"))
	f := newTestFetcher(2, primary, fallback)

	_, err := f.FetchPlayer(context.Background(), testPlayer)
	assert.ErrorIs(t, err, ErrFetchExhausted)
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 2, fallback.calls)
}

func TestRenderFailureRecreatesRenderer(t *testing.T) {
	fallback := &fakeStrategy{
		name: "scrape",
		fetch: func(calls int) (*Payload, error) {
			if calls == 1 {
				return nil, fmt.Errorf("%w: browser crashed", scrape.ErrRender)
			}
			return &Payload{Scraped: true}, nil
		},
	}
	f := newTestFetcher(3, alwaysFailing("api", errors.New("down")), fallback)

	payload, err := f.FetchPlayer(context.Background(), testPlayer)
	require.NoError(t, err)
	assert.True(t, payload.Scraped)
	// a known-bad renderer is never reused
	assert.Equal(t, 1, fallback.restarts)
}

func TestRenderFailureThreshold(t *testing.T) {
	renderErr := fmt.Errorf("%w: browser crashed", scrape.ErrRender)
	fallback := alwaysFailing("scrape", renderErr)
	f := NewFetcherWithStrategies([]Strategy{fallback}, 10, time.Millisecond, 3, zerolog.Nop())

	_, err := f.FetchPlayer(context.Background(), testPlayer)
	assert.ErrorIs(t, err, ErrFetchExhausted)
	// permanent after the threshold, despite the higher attempt budget
	assert.Equal(t, 3, fallback.calls)
	assert.Equal(t, 2, fallback.restarts)
}

func TestContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &fakeStrategy{
		name: "api",
		fetch: func(int) (*Payload, error) {
			cancel()
			return nil, errors.New("slow")
		},
	}
	f := newTestFetcher(5, primary)

	_, err := f.FetchPlayer(ctx, testPlayer)
	assert.Error(t, err)
	assert.LessOrEqual(t, primary.calls, 2)
}
