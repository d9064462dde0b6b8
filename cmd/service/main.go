package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giannis84/character-browser/internal"
	"github.com/giannis84/character-browser/internal/browser"
	"github.com/giannis84/character-browser/internal/characters"
	"github.com/giannis84/character-browser/internal/config"
	"github.com/giannis84/character-browser/internal/database"
	"github.com/giannis84/character-browser/internal/logging"
	"github.com/giannis84/character-browser/internal/routes"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Bootstrap logger until the configured one is available
	logger := logging.NewLogger(logging.Options{})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String(logging.ErrorKey, err.Error()))
		os.Exit(1)
	}
	logger = logging.NewLogger(cfg.LoggingOptions())
	logger.Info("configuration loaded",
		slog.String("api_addr", cfg.APIAddr()),
		slog.String("health_addr", cfg.HealthAddr()),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("character_api", cfg.CharacterAPIURL),
	)
	if cfg.JWTSecret == "" && cfg.AllowUnsignedTokens {
		logger.Warn("accepting unsigned identity tokens; do not use in production")
	}

	// Open the favourites store and bring its schema to the configured version
	openCtx, cancelOpen := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := database.Open(openCtx, cfg.StoreConfig())
	cancelOpen()
	if err != nil {
		logger.Error("failed to open favourites store", slog.String(logging.ErrorKey, err.Error()))
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("favourites store ready",
		slog.String("name", cfg.StoreName),
		slog.Int("version", cfg.StoreVersion),
	)

	registry := browser.NewRegistry(characters.NewClient(cfg.ClientConfig()), store)

	// Create health check and character browser http services
	healthService := internal.NewService(internal.ServiceConfig{
		Name:   "health check api",
		Addr:   cfg.HealthAddr(),
		Logger: logger,
		Routes: routes.RegisterHealthRoutes(store),
	})
	apiService := internal.NewService(internal.ServiceConfig{
		Name:   "character browser",
		Addr:   cfg.APIAddr(),
		Logger: logger,
		Routes: func(r chi.Router) {
			r.Group(routes.RegisterBrowserRoutes(registry, cfg.AuthConfig(), cfg.RateLimitConfig(), cfg.CORSAllowedOrigins))
			r.Group(routes.RegisterPageRoutes(registry, cfg.AuthConfig()))
		},
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	})

	// Start http service threads
	errs := make(chan error, 2)
	for _, svc := range []*internal.Service{healthService, apiService} {
		go func() {
			if err := svc.ListenAndServe(); err != nil {
				logger.Error("http service failed", slog.String("service", svc.Name), slog.String(logging.ErrorKey, err.Error()))
				errs <- err
			}
		}()
	}

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case receivedSignal := <-quit:
		logger.Info("shutting down service", slog.String("signal", receivedSignal.String()))
	case <-errs:
		exitCode = 1
	}

	// Shutdown http service threads gracefully
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := apiService.Shutdown(ctx); err != nil {
		logger.Error("API service shutdown error", slog.String(logging.ErrorKey, err.Error()))
	}
	if err := healthService.Shutdown(ctx); err != nil {
		logger.Error("health service shutdown error", slog.String(logging.ErrorKey, err.Error()))
	}
	logger.Info("exiting...")

	if exitCode != 0 {
		cancel()
		store.Close()
		os.Exit(exitCode)
	}
}
