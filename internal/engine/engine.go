// Package engine assembles the sync services from opened infrastructure.
package engine

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/commercive/commerce-sync/internal/backfill"
	"github.com/commercive/commerce-sync/internal/backorders"
	"github.com/commercive/commerce-sync/internal/inventory"
	"github.com/commercive/commerce-sync/internal/normalize"
	"github.com/commercive/commerce-sync/internal/orders"
	"github.com/commercive/commerce-sync/internal/stores"
	"github.com/commercive/commerce-sync/internal/trackings"
	"github.com/commercive/commerce-sync/internal/webhooklog"
	shopifywebhook "github.com/commercive/commerce-sync/internal/webhooks/shopify"
	"github.com/commercive/commerce-sync/pkg/config"
	"github.com/commercive/commerce-sync/pkg/currency"
	"github.com/commercive/commerce-sync/pkg/db"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/metrics"
	"github.com/commercive/commerce-sync/pkg/redis"
	"github.com/commercive/commerce-sync/pkg/shopify"
)

const webhookScope = "shopify-webhook"

// KeyValue is the Redis surface shared by the rate cache, the delivery guard
// and the backorder lock.
type KeyValue interface {
	currency.RateCache
	redis.IdempotencyStore
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	LockKey(scope string, ids ...string) string
}

// Deps are the opened infrastructure handles.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	KV       KeyValue
	Platform *shopify.Client
	// Registerer receives the sync metrics. Nil uses the default registry.
	Registerer prometheus.Registerer
}

// Engine holds the wired services.
type Engine struct {
	Stores     stores.Service
	WebhookLog webhooklog.Service
	Backfill   *backfill.Service
	Webhooks   *shopifywebhook.Service
	Metrics    *metrics.SyncMetrics
}

// New wires repositories, normalizer, reconciler, router and backfill.
func New(d Deps) (*Engine, error) {
	switch {
	case d.Config == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "config required")
	case d.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	case d.DB == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database required")
	case d.KV == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redis required")
	case d.Platform == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "shopify client required")
	}
	cfg := d.Config
	conn := d.DB.DB()

	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := metrics.NewSyncMetrics(reg)

	storeSvc, err := stores.NewService(stores.NewRepository(conn))
	if err != nil {
		return nil, err
	}
	logRepo := webhooklog.NewRepository(conn)
	logSvc, err := webhooklog.NewService(logRepo)
	if err != nil {
		return nil, err
	}

	ordersRepo := orders.NewRepository(conn)
	inventoryRepo := inventory.NewRepository(conn)
	trackingsRepo := trackings.NewRepository(conn)
	normalizer := normalize.New(currency.NewConverter(cfg.Currency, d.KV, nil), d.Logger, m)

	reconciler, err := backorders.NewReconciler(backorders.ReconcilerParams{
		DB:        d.DB,
		Inventory: inventoryRepo,
		Ledger:    backorders.NewLedger(conn),
		Locks:     d.KV,
		LockTTL:   cfg.Sync.BackorderLockTTL,
		Logger:    d.Logger,
		Metrics:   m,
	})
	if err != nil {
		return nil, err
	}

	guard, err := shopifywebhook.NewIdempotencyGuard(d.KV, cfg.Sync.WebhookIdempotencyTTL, webhookScope)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build delivery guard")
	}

	router, err := shopifywebhook.NewService(shopifywebhook.ServiceParams{
		Platform:   d.Platform,
		Orders:     ordersRepo,
		Inventory:  inventoryRepo,
		Trackings:  trackingsRepo,
		AuditLog:   logRepo,
		Stores:     storeSvc,
		Reconciler: reconciler,
		Normalizer: normalizer,
		Guard:      guard,
		Logger:     d.Logger,
		Metrics:    m,
	})
	if err != nil {
		return nil, err
	}

	bf, err := backfill.NewService(backfill.ServiceParams{
		Platform:          d.Platform,
		Stores:            storeSvc,
		Orders:            ordersRepo,
		Inventory:         inventoryRepo,
		Trackings:         trackingsRepo,
		Normalizer:        normalizer,
		Logger:            d.Logger,
		Metrics:           m,
		ForceFullBackfill: cfg.Sync.ForceFullBackfill,
	})
	if err != nil {
		return nil, err
	}

	return &Engine{
		Stores:     storeSvc,
		WebhookLog: logSvc,
		Backfill:   bf,
		Webhooks:   router,
		Metrics:    m,
	}, nil
}
