package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/commercive/commerce-sync/api/routes"
	"github.com/commercive/commerce-sync/internal/engine"
	"github.com/commercive/commerce-sync/pkg/config"
	"github.com/commercive/commerce-sync/pkg/db"
	"github.com/commercive/commerce-sync/pkg/env"
	"github.com/commercive/commerce-sync/pkg/instance"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/migrate"
	"github.com/commercive/commerce-sync/pkg/redis"
	"github.com/commercive/commerce-sync/pkg/shopify"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	eng, err := engine.New(engine.Deps{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		KV:         redisClient,
		Platform:   shopify.NewClient(cfg.Shopify, nil),
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to wire sync engine", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Gatherer:   prometheus.DefaultGatherer,
			Stores:     eng.Stores,
			WebhookLog: eng.WebhookLog,
			Backfill:   eng.Backfill,
			Webhooks:   eng.Webhooks,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		logg.Info(ctx, "shutting down api server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
