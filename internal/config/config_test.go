package config

import (
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"DB_DRIVER", "DB_PATH", "DB_DSN", "DB_MAX_OPEN_CONNS", "DB_ACQUIRE_TIMEOUT", "DB_QUERY_TIMEOUT",
	"SERVER_PORT", "LOG_LEVEL", "LOG_FILE", "TEMPLATE_DIR", "SENTRY_DSN", "ENV",
	"RATE_LIMIT_BURST", "RATE_LIMIT_RPS", "RATE_LIMIT_CLIENT_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DB.Driver != defaultDBDriver {
		t.Errorf("expected default driver %q, got %q", defaultDBDriver, cfg.DB.Driver)
	}

	if cfg.DB.Path != defaultDBPath {
		t.Errorf("expected default DB path %q, got %q", defaultDBPath, cfg.DB.Path)
	}

	if cfg.DB.MaxOpenConns != 30 {
		t.Errorf("expected 30 max open connections, got %d", cfg.DB.MaxOpenConns)
	}

	if cfg.DB.AcquireTimeout != defaultAcquireTimeout || cfg.DB.QueryTimeout != defaultQueryTimeout {
		t.Errorf("expected default timeouts, got %s and %s", cfg.DB.AcquireTimeout, cfg.DB.QueryTimeout)
	}

	if cfg.ServerPort != 8090 {
		t.Errorf("expected default server port 8090, got %d", cfg.ServerPort)
	}

	if cfg.LogLevel != defaultLogLevel {
		t.Errorf("expected default log level %q, got %q", defaultLogLevel, cfg.LogLevel)
	}

	if cfg.Environment != defaultEnvironment {
		t.Errorf("expected default environment %q, got %q", defaultEnvironment, cfg.Environment)
	}

	if cfg.ShutdownGrace != defaultShutdownGrace {
		t.Errorf("expected shutdown grace %s, got %s", defaultShutdownGrace, cfg.ShutdownGrace)
	}

	if cfg.RateLimit.Burst != defaultRateBurst || cfg.RateLimit.RequestsPerSecond != defaultRatePerSecond {
		t.Errorf("unexpected rate limit defaults %+v", cfg.RateLimit)
	}

	if cfg.RateLimit.ClientTTL != defaultClientTTL {
		t.Errorf("expected client TTL %s, got %s", defaultClientTTL, cfg.RateLimit.ClientTTL)
	}

	if cfg.SentryDSN != "" || cfg.LogFile != "" || cfg.TemplateDir != "" || cfg.DB.DSN != "" {
		t.Errorf("expected optional values to be empty, got %+v", cfg)
	}
}

func TestLoadWithExplicitValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DB_DSN", "host=db user=wiki")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DB_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("DB_QUERY_TIMEOUT", "2s")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/var/log/wiki.log")
	t.Setenv("TEMPLATE_DIR", "/srv/views")
	t.Setenv("SENTRY_DSN", "dsn")
	t.Setenv("ENV", "production")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("RATE_LIMIT_CLIENT_TTL", "1m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DB.Driver != "postgres" {
		t.Errorf("expected lower-cased driver postgres, got %q", cfg.DB.Driver)
	}

	if cfg.DB.DSN != "host=db user=wiki" {
		t.Errorf("expected DSN to be read, got %q", cfg.DB.DSN)
	}

	if cfg.DB.MaxOpenConns != 4 {
		t.Errorf("expected 4 max open connections, got %d", cfg.DB.MaxOpenConns)
	}

	if cfg.DB.AcquireTimeout != 250*time.Millisecond || cfg.DB.QueryTimeout != 2*time.Second {
		t.Errorf("unexpected timeouts %s and %s", cfg.DB.AcquireTimeout, cfg.DB.QueryTimeout)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("expected server port 9090, got %d", cfg.ServerPort)
	}

	if cfg.LogLevel != "debug" || cfg.LogFile != "/var/log/wiki.log" {
		t.Errorf("unexpected log settings %q %q", cfg.LogLevel, cfg.LogFile)
	}

	if cfg.TemplateDir != "/srv/views" {
		t.Errorf("expected template dir, got %q", cfg.TemplateDir)
	}

	if cfg.SentryDSN != "dsn" {
		t.Errorf("expected Sentry DSN dsn, got %q", cfg.SentryDSN)
	}

	if cfg.Environment != "production" {
		t.Errorf("expected environment production, got %q", cfg.Environment)
	}

	if cfg.RateLimit.Burst != 5 || cfg.RateLimit.RequestsPerSecond != 0.5 || cfg.RateLimit.ClientTTL != time.Minute {
		t.Errorf("unexpected rate limit settings %+v", cfg.RateLimit)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SERVER_PORT":           "not-a-number",
		"DB_MAX_OPEN_CONNS":     "many",
		"DB_ACQUIRE_TIMEOUT":    "5",
		"DB_QUERY_TIMEOUT":      "soon",
		"RATE_LIMIT_RPS":        "fast",
		"RATE_LIMIT_CLIENT_TTL": "forever",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error for invalid %s", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error to name %s, got %v", key, err)
			}
		})
	}
}

func TestLoadRejectsOutOfRangePort(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out of range port")
	}
}
