package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/jstrand/taskgate/internal/api"
	"github.com/jstrand/taskgate/internal/auth"
	"github.com/jstrand/taskgate/internal/config"
	"github.com/jstrand/taskgate/internal/metrics"
	"github.com/jstrand/taskgate/internal/ratelimit"
	"github.com/jstrand/taskgate/internal/task"
	"github.com/jstrand/taskgate/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Taskgate API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	userStore := user.NewStore(pool)
	taskStore := task.NewStore(pool)
	tokens := auth.NewTokens(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	limiter := ratelimit.New(cfg.RateLimit.Default, cfg.RateLimit.Window)

	m := metrics.New()
	m.RegisterDBPool(func() (total, idle, acquired int32) {
		stat := pool.Stat()
		return stat.TotalConns(), stat.IdleConns(), stat.AcquiredConns()
	})

	router := api.NewRouter(api.RouterDeps{
		Users:          userStore,
		Tasks:          taskStore,
		Tokens:         tokens,
		Limiter:        limiter,
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Cookie: api.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Path:   cfg.Auth.CookiePath,
			Secure: cfg.Auth.CookieSecure,
			MaxAge: cfg.Auth.RefreshTTL,
		},
		DB: pool,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
