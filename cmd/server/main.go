package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lalith-99/unionline/internal/access"
	"github.com/lalith-99/unionline/internal/api"
	"github.com/lalith-99/unionline/internal/auth"
	"github.com/lalith-99/unionline/internal/config"
	"github.com/lalith-99/unionline/internal/db"
	"github.com/lalith-99/unionline/internal/notify"
	"github.com/lalith-99/unionline/internal/observ"
	"github.com/lalith-99/unionline/internal/repository/postgres"
	"github.com/lalith-99/unionline/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Load config
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// ---------------------------------------------------------------
	// 2. Create logger
	// ---------------------------------------------------------------
	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------------------------------------------------------
	// 3. Connect to Postgres and apply the schema
	// ---------------------------------------------------------------
	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.ApplySchema(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	// ---------------------------------------------------------------
	// 4. Redis: token revocation and notification hand-off.
	//
	// Without REDIS_URL both fall back to in-process versions, which
	// only make sense for a single local instance.
	// ---------------------------------------------------------------
	var (
		revoked    auth.RevocationList = auth.NewMemoryRevocationList()
		dispatcher notify.Dispatcher   = notify.Nop{}
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		revoked = auth.NewRedisRevocationList(rdb)
		dispatcher = notify.NewRedisPublisher(rdb, cfg.NotificationChannel, logger)
	} else {
		logger.Warn("REDIS_URL not set; token revocation and notifications stay in process")
	}

	// ---------------------------------------------------------------
	// 5. Wire the service
	// ---------------------------------------------------------------
	metrics := observ.NewMetrics()
	store := postgres.NewStore(database.Pool())
	svc := service.New(store, access.NewEngine(metrics.Denied), logger,
		service.WithDispatcher(dispatcher),
		service.WithRecorder(metrics),
	)

	router := api.NewRouter(api.RouterDeps{
		Service:    svc,
		Principals: store.Principals(),
		Issuer:     auth.NewIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL),
		Revoked:    revoked,
		Metrics:    metrics,
		Health:     database,
		Logger:     logger,
	})

	// ---------------------------------------------------------------
	// 6. Serve until SIGINT/SIGTERM, then drain
	// ---------------------------------------------------------------
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting unionline",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
