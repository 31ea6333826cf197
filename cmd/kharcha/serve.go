package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"kharcha/internal/cache"
	"kharcha/internal/cli"
	apphttp "kharcha/internal/http"
	"kharcha/internal/log"
	"kharcha/internal/session"
)

const (
	maxMemorySessions = 10000
	sessionSweep      = time.Minute
	shutdownTimeout   = 30 * time.Second
)

func newServeCmd(get func() *app) *cobra.Command {
	var dev bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), get(), dev)
		},
	}
	cmd.Flags().BoolVar(&dev, "dev", false, "Relax security headers for local development")
	return cmd
}

func serve(parent context.Context, a *app, dev bool) error {
	ctx, stop := cli.SignalContext(parent)
	defer stop()

	cfg, logger := a.cfg, a.logger

	checks := map[string]apphttp.CheckFunc{}
	if a.ping != nil {
		checks["ledger"] = apphttp.CheckFunc(a.ping)
	}

	var (
		sessions session.Store
		hooks    []func()
	)
	switch cfg.SessionBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store := session.NewRedisStore(client, cfg.SessionTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", "error", err)
			}
		}()
		checks["sessions"] = store.Ping
		sessions = store
		logger.Info("Using redis sessions", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
	default:
		store := session.NewMemoryStore(maxMemorySessions, cfg.SessionTTL)
		manager := cache.NewManager(logger)
		manager.Register(store.Cleaner())
		manager.StartCleanup(sessionSweep)
		hooks = append(hooks, manager.Stop)
		sessions = store
		logger.Info("Using in-memory sessions", "ttl", cfg.SessionTTL)
	}

	srv := apphttp.NewServer(apphttp.ServerConfig{
		Addr:               cfg.Addr(),
		Service:            a.svc,
		Sessions:           sessions,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		ReadyChecks:        checks,
		OnShutdown:         hooks,
		IsDevelopment:      dev,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting kharcha server", "addr", cfg.Addr(), "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")
		return nil
	})

	err := g.Wait()
	if err != nil {
		logger.Error("Server exited", log.FieldError, err)
	}
	return err
}
