package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/michaelmgp/obs/internal/adapter/handler"
	"github.com/michaelmgp/obs/internal/adapter/storage"
	"github.com/michaelmgp/obs/internal/config"
	"github.com/michaelmgp/obs/internal/core/service"
	"github.com/michaelmgp/obs/internal/port"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is harmless

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer closeStore()

	cache, closeCache := buildCache(ctx, cfg, logger)
	defer closeCache()

	items := service.NewItemService(store)
	inventories := service.NewInventoryService(store)
	transactions := service.NewTransactionService(store, logger)
	orders := service.NewOrderService(store, cache, logger)

	httpHandler := handler.NewHTTPHandler(items, inventories, transactions, orders, logger)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogging(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("HTTP server stopped")
}

func buildStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (port.Store, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Info("using in-memory storage")
		return storage.NewMemoryStore(), func() {}, nil
	}

	db, err := sqlx.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("connected to mysql")

	return storage.NewMySQLStore(db), func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close mysql", zap.Error(err))
		}
	}, nil
}

// buildCache connects the optional Redis idempotency cache. An unreachable
// Redis only disables duplicate-request suppression, it never blocks startup.
func buildCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (port.Cache, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, duplicate-request suppression disabled", zap.Error(err))
		rdb.Close()
		return nil, func() {}
	}
	logger.Info("connected to redis")

	return storage.NewRedisCache(rdb), func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}

func requestLogging(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
