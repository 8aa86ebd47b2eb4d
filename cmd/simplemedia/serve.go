package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/tendant/chi-demo/app"
	"github.com/urfave/cli/v3"

	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/api"
	"github.com/tendant/simple-media/pkg/simplemedia/config"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cmd *cli.Command) error {
	var extra []config.Option
	if port := cmd.String("port"); port != "" {
		extra = append(extra, config.WithPort(port))
	}
	cfg, err := loadConfig(cmd, extra...)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Environment)
	slog.SetDefault(logger)

	svc, cleanup, err := cfg.BuildService(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to build service: %w", err)
	}
	defer cleanup()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Simple Media Server starting", "port", cfg.Port, "env", cfg.Environment)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exiting")
	return nil
}

// newRouter mounts the API behind the standard middleware stack
func newRouter(cfg *config.ServerConfig, svc simplemedia.Service, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(logger.Handler(), slog.LevelInfo),
		NoColor: cfg.Environment == "production",
	}))
	r.Use(middleware.Recoverer)

	if cfg.Environment == "development" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "HEAD", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"ETag", "Content-Length"},
			MaxAge:         300,
		}))
	}

	app.RoutesHealthz(r)
	app.RoutesHealthzReady(r)

	handler := api.NewHandler(svc,
		api.WithLogger(logger),
		api.WithBaseURL(cfg.BaseURL),
		api.WithPool(cfg.StreamPool()),
		api.WithChunkSize(cfg.ChunkSize),
	)
	r.Mount("/", handler.Routes())

	return r
}
