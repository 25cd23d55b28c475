package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the wiki server.
type Config struct {
	DB            DB
	ServerPort    int
	LogLevel      string
	LogFile       string
	TemplateDir   string
	SentryDSN     string
	Environment   string
	RateLimit     RateLimit
	ShutdownGrace time.Duration
}

// DB selects the database driver and bounds its connection pool.
type DB struct {
	Driver         string
	Path           string
	DSN            string
	MaxOpenConns   int
	AcquireTimeout time.Duration
	QueryTimeout   time.Duration
}

// RateLimit configures the per-client token bucket.
type RateLimit struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

const (
	defaultDBDriver       = "sqlite"
	defaultDBPath         = "./data/wiki.db"
	defaultMaxOpenConns   = 30
	defaultAcquireTimeout = 5 * time.Second
	defaultQueryTimeout   = 5 * time.Second
	defaultServerPort     = 8090
	defaultLogLevel       = "info"
	defaultEnvironment    = "development"
	defaultRateBurst      = 20
	defaultRatePerSecond  = 10
	defaultClientTTL      = 5 * time.Minute
	defaultShutdownGrace  = 10 * time.Second
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DB: DB{
			Driver: strings.ToLower(getEnv("DB_DRIVER", defaultDBDriver)),
			Path:   getEnv("DB_PATH", defaultDBPath),
			DSN:    os.Getenv("DB_DSN"),
		},
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		LogFile:       os.Getenv("LOG_FILE"),
		TemplateDir:   os.Getenv("TEMPLATE_DIR"),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		ShutdownGrace: defaultShutdownGrace,
	}

	var err error
	if cfg.ServerPort, err = intEnv("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.ServerPort < 0 || cfg.ServerPort > 65535 {
		return nil, eris.Errorf("invalid SERVER_PORT value: %d", cfg.ServerPort)
	}

	if cfg.DB.MaxOpenConns, err = intEnv("DB_MAX_OPEN_CONNS", defaultMaxOpenConns); err != nil {
		return nil, err
	}
	if cfg.DB.AcquireTimeout, err = durationEnv("DB_ACQUIRE_TIMEOUT", defaultAcquireTimeout); err != nil {
		return nil, err
	}
	if cfg.DB.QueryTimeout, err = durationEnv("DB_QUERY_TIMEOUT", defaultQueryTimeout); err != nil {
		return nil, err
	}

	if cfg.RateLimit.Burst, err = intEnv("RATE_LIMIT_BURST", defaultRateBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RequestsPerSecond, err = floatEnv("RATE_LIMIT_RPS", defaultRatePerSecond); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = durationEnv("RATE_LIMIT_CLIENT_TTL", defaultClientTTL); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := getEnv(key, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := getEnv(key, strconv.FormatFloat(fallback, 'f', -1, 64))
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := getEnv(key, fallback.String())
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}
