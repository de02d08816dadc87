// cmd/askdb-server/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"warehouse-askdb/internal/common/config"
	"warehouse-askdb/internal/common/database"
	"warehouse-askdb/internal/common/logger"
	"warehouse-askdb/internal/common/observability"
	"warehouse-askdb/internal/engine"
	"warehouse-askdb/internal/engine/cache"
	"warehouse-askdb/internal/engine/executor"
	"warehouse-askdb/internal/engine/knowledge"
	"warehouse-askdb/internal/engine/templates"
	"warehouse-askdb/internal/engine/timeframe"
	"warehouse-askdb/internal/server"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting ask-database server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("askdb-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Build the engine ---
	resolver, err := timeframe.NewResolver(cfg.Engine.Timezone, cfg.Engine.WeekStart)
	if err != nil {
		zapLog.Fatal("timeframe resolver init failed", zap.Error(err))
	}

	kb := knowledge.NewBase()
	registry := templates.NewRegistry()

	exec := executor.New(pg.GetDB(), config.GetDuration(cfg.Engine.QueryTimeout), log)
	qcache := cache.New(rdb.GetClient(), cache.Options{
		TTL:         time.Duration(cfg.Engine.Cache.TTL) * time.Second,
		HistoryTTL:  time.Duration(cfg.Engine.Cache.HistoryTTL) * time.Second,
		HistorySize: cfg.Engine.Cache.HistorySize,
		KeyPrefix:   cfg.Engine.Cache.KeyPrefix,
	}, log)
	recorder := engine.NewRecorder(pg.GetDB(), log)

	eng := engine.New(cfg.Engine, kb, registry, resolver, exec, qcache, recorder, log).
		WithObservability(obs)

	zapLog.Info("Engine ready", zap.Int("templates", registry.Count()))

	// --- Run HTTP server until shutdown signal ---
	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, eng, exec, qcache, log)
	if err := srv.Run(runCtx); err != nil {
		zapLog.Fatal("server exited", zap.Error(err))
	}

	zapLog.Info("Shutdown complete")
}
