package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("BOT_TOKEN_2", "legacy-token")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "postgres://localhost/menu")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("HISTORY_BACKEND", "")
	t.Setenv("HISTORY_IDLE_TTL", "")
	t.Setenv("TIMEZONE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BotToken != "legacy-token" {
		t.Fatalf("expected BOT_TOKEN_2 fallback, got %q", cfg.BotToken)
	}
	if cfg.DatabaseURL != "postgres://localhost/menu" {
		t.Fatalf("expected DB_URL fallback, got %q", cfg.DatabaseURL)
	}
	if cfg.DatabaseDriver != "postgres" || cfg.HistoryBackend != "memory" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.OpenAITimeout != 60*time.Second || cfg.HistoryIdleTTL != 0 {
		t.Fatalf("unexpected durations %v %v", cfg.OpenAITimeout, cfg.HistoryIdleTTL)
	}
	if loc, err := cfg.Location(); err != nil || loc != time.Local {
		t.Fatalf("expected local time zone, got %v, %v", loc, err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "tok")
	t.Setenv("DB_DRIVER", "PGX")
	t.Setenv("HISTORY_BACKEND", "redis")
	t.Setenv("HISTORY_MAX_TURNS", "40")
	t.Setenv("HISTORY_IDLE_TTL", "2h")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("HTTP_ENABLED", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseDriver != "pgx" || cfg.HistoryBackend != "redis" || cfg.HistoryMaxTurns != 40 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.HistoryIdleTTL != 2*time.Hour || cfg.HTTPEnabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if loc, err := cfg.Location(); err != nil || loc.String() != "UTC" {
		t.Fatalf("unexpected location %v, %v", loc, err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("BOT_TOKEN", "tok")
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("HISTORY_BACKEND", "disk")
	t.Setenv("HISTORY_IDLE_TTL", "soon")
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	if err == nil {
		t.Fatal("expected configuration error")
	}
	for _, want := range []string{"DB_DRIVER", "HISTORY_BACKEND", "HISTORY_IDLE_TTL", "TIMEZONE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadNeedsATransport(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("BOT_TOKEN_2", "")
	t.Setenv("HTTP_ENABLED", "false")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("HISTORY_BACKEND", "")
	t.Setenv("HISTORY_IDLE_TTL", "")
	t.Setenv("TIMEZONE", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when no transport is enabled")
	}
}
