package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram
	BotToken string
	BotName  string
	// OpenAI
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	Model             string
	OpenAITimeout     time.Duration
	OpenAITemperature float32
	OpenAIMaxTokens   int
	// Database
	DatabaseURL     string
	DatabaseDriver  string
	MigrationsDir   string
	MenuFixtureFile string
	// Response catalog
	ResponsesFile string
	RulesFile     string
	Timezone      string
	// Conversation history
	HistoryBackend  string
	HistoryMaxTurns int
	HistoryIdleTTL  time.Duration
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	// HTTP
	HTTPEnabled   bool
	Port          string
	AllowedOrigin string
	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the process environment, after merging a .env file when one is
// present.
func Load() (Config, error) {
	_ = godotenv.Load()

	var errs []string
	duration := func(key string, def time.Duration) time.Duration {
		d, err := getEnvDurationDefault(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return d
	}

	cfg := Config{
		BotToken:          firstEnv("BOT_TOKEN", "BOT_TOKEN_2"),
		BotName:           getEnvDefault("BOT_NAME", "BotMesero"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		Model:             getEnvDefault("OPENAI_MODEL", "gpt-3.5-turbo"),
		OpenAITimeout:     duration("OPENAI_TIMEOUT", 60*time.Second),
		OpenAITemperature: float32(getEnvFloatDefault("OPENAI_TEMPERATURE", 0)),
		OpenAIMaxTokens:   getEnvIntDefault("OPENAI_MAX_TOKENS", 0),
		DatabaseURL:       firstEnv("DATABASE_URL", "DB_URL"),
		DatabaseDriver:    strings.ToLower(getEnvDefault("DB_DRIVER", "postgres")),
		MigrationsDir:     os.Getenv("MIGRATIONS_DIR"),
		MenuFixtureFile:   os.Getenv("MENU_FIXTURE_FILE"),
		ResponsesFile:     getEnvDefault("RESPONSES_FILE", "text/responses.json"),
		RulesFile:         getEnvDefault("RULES_FILE", "text/rulesGPT.json"),
		Timezone:          getEnvDefault("TIMEZONE", "Local"),
		HistoryBackend:    strings.ToLower(getEnvDefault("HISTORY_BACKEND", "memory")),
		HistoryMaxTurns:   getEnvIntDefault("HISTORY_MAX_TURNS", 0),
		HistoryIdleTTL:    duration("HISTORY_IDLE_TTL", 0),
		RedisURL:          getEnvDefault("REDIS_URL", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvIntDefault("REDIS_DB", 0),
		HTTPEnabled:       getEnvBoolDefault("HTTP_ENABLED", true),
		Port:              getEnvDefault("PORT", "8080"),
		AllowedOrigin:     getEnvDefault("ALLOWED_ORIGIN", "*"),
		LogLevel:          getEnvDefault("LOG_LEVEL", "info"),
		LogFormat:         getEnvDefault("LOG_FORMAT", "text"),
	}

	switch cfg.DatabaseDriver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Sprintf("DB_DRIVER must be postgres or pgx, got %q", cfg.DatabaseDriver))
	}
	switch cfg.HistoryBackend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("HISTORY_BACKEND must be memory or redis, got %q", cfg.HistoryBackend))
	}
	if cfg.HistoryMaxTurns < 0 {
		errs = append(errs, "HISTORY_MAX_TURNS cannot be negative")
	}
	if _, err := cfg.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid TIMEZONE %q: %v", cfg.Timezone, err))
	}
	if len(errs) > 0 {
		return cfg, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set; free-text replies will fail until provided")
	}
	if cfg.BotToken == "" && !cfg.HTTPEnabled {
		return cfg, fmt.Errorf("invalid configuration: BOT_TOKEN is empty and HTTP_ENABLED is false, nothing to serve")
	}
	return cfg, nil
}

// Location resolves Timezone for the greeting clock.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 32); err == nil {
			return f
		}
	}
	return def
}

func getEnvDurationDefault(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %v", key, err)
	}
	return d, nil
}

func getEnvBoolDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}
