package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"coh3-monitor/internal/config"
	"coh3-monitor/internal/constants"
	"coh3-monitor/internal/domain"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ErrRender reports a renderer-level failure (navigation, crash, timeout).
// The fetcher recreates the engine before retrying after one of these.
var ErrRender = errors.New("render failed")

const nextDataJS = `(() => {
	const el = document.getElementById('__NEXT_DATA__');
	return el ? el.textContent : "";
})()`

// Engine drives a headless browser against the rendered per-player match
// page. It owns exactly one browser at a time; the owner must call Close,
// and Restart after any ErrRender.
type Engine struct {
	baseURL string
	logger  zerolog.Logger

	mu          sync.Mutex
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	browserStop context.CancelFunc
}

func NewEngine(cfg *config.Config, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		baseURL: cfg.CoH3StatsURL,
		logger:  logger,
	}
	if err := e.start(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0.0.0"),
	)

	e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	e.browserCtx, e.browserStop = chromedp.NewContext(e.allocCtx)

	// Starts the browser process; failing here is an environment problem,
	// not a per-player one.
	if err := chromedp.Run(e.browserCtx); err != nil {
		e.release()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	e.logger.Debug().Msg("headless browser started")
	return nil
}

func (e *Engine) release() {
	if e.browserStop != nil {
		e.browserStop()
		e.browserStop = nil
	}
	if e.allocCancel != nil {
		e.allocCancel()
		e.allocCancel = nil
	}
}

// Restart discards the current browser, responsive or not, and launches a
// fresh one. A known-bad renderer is never reused.
func (e *Engine) Restart() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Warn().Msg("restarting headless browser")
	e.release()
	return e.start()
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.release()
	e.logger.Debug().Msg("headless browser released")
}

// FetchPlayer renders the player's recent-matches page and extracts the
// match listing, preferring the embedded __NEXT_DATA__ blob over the
// rendered table.
func (e *Engine) FetchPlayer(ctx context.Context, player domain.Player) (*Result, error) {
	e.mu.Lock()
	browserCtx := e.browserCtx
	e.mu.Unlock()

	pageURL := fmt.Sprintf("%s/players/%s/%s/matches?view=recentMatches",
		e.baseURL, player.PlayerID, url.PathEscape(player.PlayerName))

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, constants.RenderTimeout)
	defer cancelTimeout()

	// Honor caller cancellation at the tab level too.
	go func() {
		select {
		case <-ctx.Done():
			cancelTab()
		case <-tabCtx.Done():
		}
	}()

	var rawNextData, pageHTML string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible("table", chromedp.ByQuery),
		chromedp.Evaluate(nextDataJS, &rawNextData),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRender, pageURL, err)
	}

	result := &Result{}
	if rawNextData != "" {
		matches, err := ParseNextData(json.RawMessage(rawNextData))
		if err != nil {
			e.logger.Debug().Err(err).Str("player_id", player.PlayerID).
				Msg("no usable __NEXT_DATA__, falling back to table extraction")
		} else {
			result.Matches = matches
		}
	}

	if len(result.Matches) == 0 {
		rows, err := ParseMatchTable(pageHTML)
		if err != nil {
			return nil, fmt.Errorf("failed to extract match table: %w", err)
		}
		result.Rows = rows
	}

	if len(result.Matches) == 0 && len(result.Rows) == 0 {
		e.logger.Warn().Str("player_id", player.PlayerID).Msg("rendered page yielded no matches")
	}
	return result, nil
}
