// Command backfill walks the orders, inventory and fulfillments of one shop
// and upserts them, printing the per resource report as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/commercive/commerce-sync/internal/backfill"
	"github.com/commercive/commerce-sync/internal/engine"
	"github.com/commercive/commerce-sync/pkg/config"
	"github.com/commercive/commerce-sync/pkg/db"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/redis"
	"github.com/commercive/commerce-sync/pkg/shopify"
)

func main() {
	shop := flag.String("shop", "", "shop domain, e.g. demo.myshopify.com")
	force := flag.Bool("force", false, "walk inventory even when the store already has it")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "backfill"})
	if *shop == "" {
		fmt.Fprintln(os.Stderr, "missing -shop")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "backfill",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.Sync.BackfillTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Sync.BackfillTimeout)
		defer cancel()
	}
	ctx = logg.WithShopDomain(ctx, *shop)

	if err := run(ctx, cfg, logg, backfill.Request{ShopDomain: *shop, Force: *force}); err != nil {
		logg.Error(ctx, "backfill failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, req backfill.Request) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer redisClient.Close()

	eng, err := engine.New(engine.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		KV:       redisClient,
		Platform: shopify.NewClient(cfg.Shopify, nil),
	})
	if err != nil {
		return fmt.Errorf("wire sync engine: %w", err)
	}

	report, err := eng.Backfill.Run(ctx, req)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
