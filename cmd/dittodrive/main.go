package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/marmos91/dittodrive/internal/api"
	"github.com/marmos91/dittodrive/internal/auth"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/ratelimiter"
	"github.com/marmos91/dittodrive/pkg/config"
	"github.com/marmos91/dittodrive/pkg/hierarchy"
	"github.com/marmos91/dittodrive/pkg/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dittodrive: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	meta, err := config.CreateMetadataStore(ctx, &cfg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to create metadata store: %w", err)
	}
	defer func() { _ = meta.Close() }()

	phys, err := config.CreatePhysicalStore(ctx, &cfg.Physical)
	if err != nil {
		return fmt.Errorf("failed to create physical store: %w", err)
	}
	defer func() { _ = phys.Close() }()

	log.Info("stores initialized",
		zap.String("metadata", cfg.Metadata.Type),
		zap.String("physical", cfg.Physical.Type))

	users := make([]auth.User, len(cfg.Auth.Users))
	for i, u := range cfg.Auth.Users {
		users[i] = auth.User{ID: u.ID, Username: u.Username, PasswordHash: u.PasswordHash}
	}
	if len(users) == 0 {
		log.Warn("no users configured, logins will fail")
	}

	if cfg.Logging.Level != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := api.SetupRouter(api.RouterConfig{
		Service:   hierarchy.NewService(meta, phys, log),
		Registry:  auth.NewRegistry(users),
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		TokenTTL:  cfg.Auth.TokenTTL,
		Logger:    log,
		Metrics:   metrics.New(),
		// 1 sustained attempt/s with a burst of 5 per client IP
		LoginLimiter: ratelimiter.New(1, 5),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("listen", cfg.Server.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server", zap.Duration("timeout", cfg.Server.ShutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	log.Info("server exited")
	return nil
}
