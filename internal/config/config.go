package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath   string
	LogLevel string

	CheckInterval       time.Duration
	BatchSize           int
	FetchAttempts       int
	BackoffBase         time.Duration
	RenderFailThreshold int

	RelicAPIURL  string
	CoH3StatsURL string

	SheetsCredentialsFile string
	SheetsSpreadsheetID   string
	SheetsWorksheet       string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:                getEnv("DB_PATH", "coh3stats.db"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		CheckInterval:         time.Duration(getEnvInt("CHECK_INTERVAL", 900)) * time.Second,
		BatchSize:             getEnvInt("BATCH_SIZE", 5),
		FetchAttempts:         getEnvInt("FETCH_ATTEMPTS", 3),
		BackoffBase:           time.Duration(getEnvInt("BACKOFF_BASE_MS", 2000)) * time.Millisecond,
		RenderFailThreshold:   getEnvInt("RENDER_FAIL_THRESHOLD", 3),
		RelicAPIURL:           getEnv("RELIC_API_URL", "https://coh3-api.reliclink.com"),
		CoH3StatsURL:          getEnv("COH3STATS_URL", "https://coh3stats.com"),
		SheetsCredentialsFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SheetsSpreadsheetID:   getEnv("GOOGLE_SHEETS_ID", ""),
		SheetsWorksheet:       getEnv("GOOGLE_SHEETS_WORKSHEET", "Auto Registro"),
	}

	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("BATCH_SIZE must be positive, got %d", cfg.BatchSize)
	}
	if cfg.FetchAttempts <= 0 {
		return nil, fmt.Errorf("FETCH_ATTEMPTS must be positive, got %d", cfg.FetchAttempts)
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("log_level", cfg.LogLevel).
		Dur("check_interval", cfg.CheckInterval).
		Int("batch_size", cfg.BatchSize).
		Int("fetch_attempts", cfg.FetchAttempts).
		Bool("sheets_export", cfg.SheetsSpreadsheetID != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
