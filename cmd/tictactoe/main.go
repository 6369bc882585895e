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

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jaminalder/time-travel-tic-tac-toe/internal/app"
	"github.com/jaminalder/time-travel-tic-tac-toe/internal/config"
	"github.com/jaminalder/time-travel-tic-tac-toe/internal/web"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger, cfg); err != nil {
		logger.Error("app run failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func run(logger *zap.Logger, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := app.NewService(store, logger)
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: web.NewServer(svc, logger, cfg.HTTP.Heartbeat),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", cfg.HTTP.Addr), zap.String("store", cfg.Store.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}

func newStore(ctx context.Context, logger *zap.Logger, cfg *config.Config) (app.Store, func(), error) {
	if cfg.Store.Kind != config.StoreRedis {
		return app.NewMemoryStore(cfg.Store.TTL), func() {}, nil
	}
	client, err := app.ConnectRedis(ctx, &redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error("could not close redis storage", zap.Error(err))
		}
	}
	return app.NewRedisStore(client, cfg.Store.TTL), closeFn, nil
}
