package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botmesero-backend/internal/catalog"
	"botmesero-backend/internal/config"
	"botmesero-backend/internal/db"
	"botmesero-backend/internal/dialogue"
	"botmesero-backend/internal/llm"
	"botmesero-backend/internal/logging"
	"botmesero-backend/internal/server"
	"botmesero-backend/internal/store"
	"botmesero-backend/internal/telegram"
)

type historyStore interface {
	dialogue.HistoryStore
	server.HistoryStore
}

func main() {
	if err := run(); err != nil {
		slog.Error("botmesero stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.ResponsesFile, cfg.RulesFile)
	if err != nil {
		return err
	}
	logger.Info("response catalog loaded", "responses", cfg.ResponsesFile, "rules", len(cat.Rules()))
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	var (
		menu   dialogue.MenuRepository
		health server.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		logger.Info("database connection established", "driver", database.Driver())
		if cfg.MigrationsDir != "" {
			if err := database.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
				return err
			}
		}
		menu = store.NewMenuStore(database)
		health = database
	} else {
		logger.Warn("DATABASE_URL not provided, serving the in-memory menu", "fixture", cfg.MenuFixtureFile)
		m, err := store.LoadMenuFixture(cfg.MenuFixtureFile)
		if err != nil {
			return err
		}
		menu = m
	}

	var history historyStore
	switch cfg.HistoryBackend {
	case "redis":
		rdb, err := store.ConnectRedis(ctx, store.RedisConfig{Addr: cfg.RedisURL, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		history = store.NewRedisHistory(rdb, cfg.HistoryMaxTurns, cfg.HistoryIdleTTL)
	default:
		mh := store.NewMemoryHistory(cfg.HistoryMaxTurns, cfg.HistoryIdleTTL)
		go mh.RunJanitor(ctx, time.Minute)
		history = mh
	}

	completer := llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.Model,
		Temperature: cfg.OpenAITemperature,
		MaxTokens:   cfg.OpenAIMaxTokens,
		Timeout:     cfg.OpenAITimeout,
	}, cat.SystemPrompt())

	ctrl := dialogue.NewController(cat, menu, history, completer, dialogue.Options{
		BotName:  cfg.BotName,
		Location: loc,
		Logger:   logger,
	})

	errCh := make(chan error, 2)

	var httpSrv *http.Server
	if cfg.HTTPEnabled {
		s := server.NewServer(cfg, ctrl, history, health, logger)
		httpSrv = &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           s.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http server listening", "addr", httpSrv.Addr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	if cfg.BotToken != "" {
		api, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			return err
		}
		logger.Info("starting the bot", "username", api.Self.UserName)
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)
		defer api.StopReceivingUpdates()
		go telegram.NewBot(api, ctrl, logger).Run(ctx, updates)
	} else {
		logger.Warn("BOT_TOKEN not set, Telegram polling disabled")
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		return err
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
