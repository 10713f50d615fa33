package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/athallaarl66/crazwash-api/internal/cache"
	"github.com/athallaarl66/crazwash-api/internal/config"
	"github.com/athallaarl66/crazwash-api/internal/database"
	"github.com/athallaarl66/crazwash-api/internal/logging"
	"github.com/athallaarl66/crazwash-api/internal/migrate"
	"github.com/athallaarl66/crazwash-api/internal/router"
	"github.com/athallaarl66/crazwash-api/internal/ws"
)

const cacheTTL = 5 * time.Minute

func main() {
	cfg := config.Load()

	logger, err := logging.Init(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		zap.L().Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		zap.L().Fatal("apply migrations", zap.Error(err))
	}

	// Redis is optional. A nil cache disables caching but keeps every
	// endpoint working.
	var c *cache.Cache
	if cfg.RedisAddr != "" {
		c, err = cache.New(cfg.RedisAddr, cacheTTL)
		if err != nil {
			zap.L().Warn("redis unavailable, caching disabled", zap.Error(err))
			c = nil
		}
	}
	if c != nil {
		defer c.Close()
	}

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	r := router.New(cfg, queries, pool, c, hub)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("shutdown", zap.Error(err))
	}
}
