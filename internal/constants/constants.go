package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	RenderTimeout      = 45 * time.Second
	DatabaseTimeout    = 5 * time.Second
	PlayerTimeout      = 3 * time.Minute
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
	MinCycleSleep   = 1 * time.Minute
)

const (
	LogLevelSetting = "log_level"
)
