package config // package config loads application configuration from environment variables

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds the core runtime configuration.  Each field corresponds to an
// environment variable.  Values that the service cannot start without are
// read through must(); everything else has a default.
type Config struct {
	Env      string // application environment (dev, test, prod)
	Port     string // HTTP port to listen on
	LogLevel string // debug, info, warn, error
	LogJSON  bool   // emit JSON logs instead of text

	DBDriver string // mysql, postgres or sqlite
	DBUser   string
	DBPass   string // empty allowed
	DBHost   string
	DBPort   string
	DBName   string // database name, or file path for sqlite

	JWTSecret         string
	AccessTTLMin      int // access token time-to-live in minutes
	RefreshTTLDays    int // refresh token time-to-live in days
	VerifyTTLHours    int // email verification token lifetime
	BcryptCost        int
	VerifyRedirectURL string // link base sent in verification emails

	RequestTimeout time.Duration // per-request budget for backend calls
}

// Load reads configuration values from the environment.  Missing required
// variables terminate the process with a logged error.
func Load() Config {
	driver := strings.ToLower(envStr("DB_DRIVER", "mysql"))
	cfg := Config{
		Env:               must("APP_ENV"),
		Port:              envStr("APP_PORT", "8080"),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		LogJSON:           strings.EqualFold(envStr("LOG_FORMAT", "text"), "json"),
		DBDriver:          driver,
		DBPass:            os.Getenv("DB_PASS"),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 15),
		RefreshTTLDays:    envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		VerifyTTLHours:    envInt("VERIFY_TOKEN_TTL_HOURS", 48),
		BcryptCost:        envInt("BCRYPT_COST", 12),
		VerifyRedirectURL: envStr("VERIFY_REDIRECT_URL", "http://localhost:5173/auth/confirm"),
		RequestTimeout:    envDur("REQUEST_TIMEOUT", 5*time.Second),
	}
	if driver == "sqlite" {
		// sqlite only needs a file path
		cfg.DBName = envStr("DB_NAME", "travel.db")
		return cfg
	}
	cfg.DBUser = must("DB_USER")
	cfg.DBHost = must("DB_HOST")
	cfg.DBPort = must("DB_PORT")
	cfg.DBName = must("DB_NAME")
	return cfg
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty the application exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		slog.Error("missing required env var", "key", key)
		os.Exit(1)
	}
	return v
}
