package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"genstudio/internal/gallery"
	"genstudio/internal/history"
	"genstudio/internal/http/handlers"
	"genstudio/internal/http/httpapi"
	"genstudio/internal/infra"
	"genstudio/internal/provider"
	"genstudio/internal/provider/gemini"
	"genstudio/internal/provider/prompt"
	"genstudio/internal/provider/xai"
	"genstudio/internal/queue"
	"genstudio/internal/settings"
	"genstudio/internal/storage"
	"genstudio/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var blobs store.BlobStore = store.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer pool.Close()
		blobs = store.NewSQLStore(infra.NewSQLRunner(pool, logger))
		logger.Info().Msg("state persisted to database")
	} else {
		logger.Warn().Msg("DATABASE_URL not set, state will not survive restarts")
	}

	files, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("storage setup failed")
	}

	settingsSvc := settings.NewService(blobs, &logger)
	gallerySvc := gallery.NewService(blobs, settingsSvc.AutoSaveEnabled, &logger)
	historySvc := history.NewService(blobs, &logger)
	jobs := queue.New(blobs, &logger)
	if err := settingsSvc.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("settings restore failed, using defaults")
	}
	if err := gallerySvc.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("gallery restore failed, starting empty")
	}
	if err := historySvc.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("history restore failed, starting empty")
	}
	if err := jobs.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("queue restore failed, starting empty")
	}

	httpClient := &http.Client{Timeout: 120 * time.Second}
	registry := provider.NewRegistry()
	registry.Register(provider.NameXAI, xai.NewClient(xai.Options{
		Keys:       settingsSvc.XAIKeySource(),
		BaseURL:    cfg.XAIBaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	}))
	registry.Register(provider.NameGemini, gemini.NewClient(gemini.Options{
		Keys:       settingsSvc.GeminiKeySource(),
		BaseURL:    cfg.GeminiBaseURL,
		HTTPClient: httpClient,
		Logger:     &logger,
	}))

	enhancers := map[string]prompt.Enhancer{
		provider.NameXAI: prompt.NewXAIEnhancer(prompt.XAIOptions{
			Keys:    settingsSvc.XAIKeySource(),
			BaseURL: cfg.XAIBaseURL,
		}),
		provider.NameGemini: prompt.NewGeminiEnhancer(prompt.GeminiOptions{
			Keys:    settingsSvc.GeminiKeySource(),
			BaseURL: cfg.GeminiBaseURL,
		}),
	}

	coordinator := queue.NewCoordinator(queue.CoordinatorOptions{
		Queue:    jobs,
		Registry: registry,
		Sink:     gallerySvc,
		Logger:   &logger,
		Interval: cfg.PollInterval,
	})
	coordinator.Resume(ctx)

	app := &handlers.App{
		Logger:            &logger,
		Registry:          registry,
		Queue:             jobs,
		Coordinator:       coordinator,
		Gallery:           gallerySvc,
		History:           historySvc,
		Settings:          settingsSvc,
		Enhancers:         enhancers,
		Files:             files,
		FailOnEmptyResult: true,
	}

	router := httpapi.NewRouter(app, httpapi.RouterOptions{
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
	})
	server := infra.NewHTTPServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("api listening")
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	coordinator.Close()
	logger.Info().Msg("api stopped")
}
