package main

import (
	"context"
	"database/sql"
	"time"

	"coh3-monitor/internal/constants"
	fxmodules "coh3-monitor/internal/fx"
	"coh3-monitor/internal/scrape"
	"coh3-monitor/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.Invoke(runMonitor),
	).Run()
}

func runMonitor(
	lc fx.Lifecycle,
	monitor *service.Monitor,
	engine *scrape.Engine,
	db *sql.DB,
	logger zerolog.Logger,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer close(done)
				monitor.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down monitor")
			cancel()

			// In-flight work for the current player finishes or times out
			// before the browser and database are released.
			select {
			case <-done:
			case <-time.After(constants.ShutdownTimeout):
				logger.Warn().Msg("monitor did not stop in time")
			}

			engine.Close()

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}

			logger.Info().Msg("monitor stopped gracefully")
			return nil
		},
	})
}
