package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commercive/commerce-sync/api/controllers"
	webhookcontrollers "github.com/commercive/commerce-sync/api/controllers/webhooks"
	"github.com/commercive/commerce-sync/api/middleware"
	"github.com/commercive/commerce-sync/internal/stores"
	"github.com/commercive/commerce-sync/internal/webhooklog"
	"github.com/commercive/commerce-sync/pkg/config"
	"github.com/commercive/commerce-sync/pkg/logger"
)

// Params carries everything the HTTP surface is built from.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         controllers.Pinger
	Redis      controllers.Pinger
	Gatherer   prometheus.Gatherer
	Stores     stores.Service
	WebhookLog webhooklog.Service
	Backfill   controllers.BackfillRunner
	Webhooks   webhookcontrollers.ShopifyRouter
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, map[string]controllers.Pinger{
			"database": p.DB,
			"redis":    p.Redis,
		}))
	})

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/shopify", webhookcontrollers.ShopifyWebhook(p.Webhooks, p.Stores, webhookcontrollers.ShopifyOptions{
			Secret:          cfg.Shopify.WebhookSecret,
			MaxPayloadBytes: cfg.Sync.WebhookMaxPayloadBytes,
			Timeout:         cfg.Sync.WebhookTimeout,
		}, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.App.AdminToken, logg))

		r.Route("/stores/{shopDomain}", func(r chi.Router) {
			r.Get("/", controllers.AdminStoreGet(p.Stores, logg))
			r.Put("/", controllers.AdminStoreInstall(p.Stores, logg))
			r.Post("/backfill", controllers.AdminBackfill(p.Backfill, backfillTimeout(cfg), logg))
			r.Get("/webhooks", controllers.AdminWebhookLog(p.Stores, p.WebhookLog, logg))
		})
	})

	return r
}

func backfillTimeout(cfg *config.Config) time.Duration {
	if cfg.Sync.BackfillTimeout > 0 {
		return cfg.Sync.BackfillTimeout
	}
	return 30 * time.Minute
}
