package fx

import (
	"coh3-monitor/internal/config"
	"coh3-monitor/internal/database"
	"coh3-monitor/internal/export"
	"coh3-monitor/internal/fetch"
	"coh3-monitor/internal/logger"
	"coh3-monitor/internal/normalize"
	"coh3-monitor/internal/repository"
	"coh3-monitor/internal/scrape"
	"coh3-monitor/internal/service"
	"coh3-monitor/internal/source"

	"go.uber.org/fx"
)

func ProvideRoster(repo *repository.PlayerRepository) service.Roster { return repo }

func ProvideMatchStore(store *repository.MatchStore) service.MatchStore { return store }

func ProvideSettings(repo *repository.SettingsRepository) service.Settings { return repo }

func ProvideFetcher(fetcher *fetch.Fetcher) service.Fetcher { return fetcher }

func ProvideNormalizer(normalizer *normalize.Normalizer) service.Normalizer { return normalizer }

func ProvideExporter(exporter export.Exporter) service.Exporter { return exporter }

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchStore),
	fx.Provide(repository.NewSettingsRepository),
	// fetch pipeline
	fx.Provide(source.NewClient),
	fx.Provide(scrape.NewEngine),
	fx.Provide(fetch.NewFetcher),
	fx.Provide(normalize.NewNormalizer),
	fx.Provide(export.New),
	// svc
	fx.Provide(ProvideRoster),
	fx.Provide(ProvideMatchStore),
	fx.Provide(ProvideSettings),
	fx.Provide(ProvideFetcher),
	fx.Provide(ProvideNormalizer),
	fx.Provide(ProvideExporter),
	fx.Provide(service.NewMonitor),
)
