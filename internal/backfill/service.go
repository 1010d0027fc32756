package backfill

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/commercive/commerce-sync/internal/inventory"
	"github.com/commercive/commerce-sync/internal/normalize"
	"github.com/commercive/commerce-sync/internal/orders"
	"github.com/commercive/commerce-sync/internal/stores"
	"github.com/commercive/commerce-sync/internal/trackings"
	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/enums"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/metrics"
	"github.com/commercive/commerce-sync/pkg/pagination"
	"github.com/commercive/commerce-sync/pkg/shopify"
	"github.com/commercive/commerce-sync/pkg/types"
)

// ErrMalformedPage marks a page whose envelope could not be read.
var ErrMalformedPage = pagination.ErrMalformedPage

// Platform is the part of the Admin API client the backfill walks.
type Platform interface {
	OrdersPage(ctx context.Context, s shopify.Session, cursor *string) (*pagination.Page[shopify.OrderNode], error)
	FulfillmentsPage(ctx context.Context, s shopify.Session, cursor *string) (*pagination.Page[shopify.FulfilledOrderNode], error)
	InventoryItemsPage(ctx context.Context, s shopify.Session, cursor *string) (*pagination.Page[shopify.InventoryItemNode], error)
	Shop(ctx context.Context, s shopify.Session) (*shopify.Shop, error)
}

// Request starts a backfill for one shop. Force walks inventory even when the
// store already has it.
type Request struct {
	ShopDomain string
	Force      bool
}

// ResourceReport summarizes the walk and persistence of one resource.
type ResourceReport struct {
	Walked    bool   `json:"walked"`
	Calls     int    `json:"calls"`
	Fetched   int    `json:"fetched"`
	Persisted int    `json:"persisted"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Stop      string `json:"stop,omitempty"`
	Complete  bool   `json:"complete"`
	Error     string `json:"error,omitempty"`
}

// Report is the outcome of one backfill run.
type Report struct {
	ShopDomain   string         `json:"shop_domain"`
	Orders       ResourceReport `json:"orders"`
	Inventory    ResourceReport `json:"inventory"`
	Fulfillments ResourceReport `json:"fulfillments"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

// ServiceParams wires the backfill dependencies.
type ServiceParams struct {
	Platform          Platform
	Stores            stores.Service
	Orders            orders.Repository
	Inventory         inventory.Repository
	Trackings         trackings.Repository
	Normalizer        *normalize.Normalizer
	Logger            *logger.Logger
	Metrics           *metrics.SyncMetrics
	ForceFullBackfill bool
}

// Service walks every paginated collection of a store and upserts each page
// as soon as it arrives. Pages are written in arrival order, so an event
// applied after a page was written overwrites it.
type Service struct {
	platform   Platform
	stores     stores.Service
	orders     orders.Repository
	inventory  inventory.Repository
	trackings  trackings.Repository
	normalizer *normalize.Normalizer
	logg       *logger.Logger
	metrics    *metrics.SyncMetrics
	forceAll   bool
	now        func() time.Time
}

// NewService validates the dependencies and builds a backfill Service.
func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Platform == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backfill requires the platform client")
	case p.Stores == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backfill requires the store service")
	case p.Orders == nil || p.Inventory == nil || p.Trackings == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backfill requires the order, inventory and tracking repositories")
	case p.Normalizer == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backfill requires a normalizer")
	case p.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backfill requires a logger")
	}
	return &Service{
		platform:   p.Platform,
		stores:     p.Stores,
		orders:     p.Orders,
		inventory:  p.Inventory,
		trackings:  p.Trackings,
		normalizer: p.Normalizer,
		logg:       p.Logger,
		metrics:    p.Metrics,
		forceAll:   p.ForceFullBackfill,
		now:        time.Now,
	}, nil
}

// Run backfills one store. Only a store lookup failure is returned as an
// error; walk and persistence failures are logged and reported per resource.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	store, err := s.stores.Resolve(ctx, req.ShopDomain)
	if err != nil {
		return nil, err
	}
	if !store.Installed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "store is not installed")
	}

	ctx = s.logg.WithShopDomain(ctx, store.ShopDomain)
	ctx = s.logg.WithStoreID(ctx, store.ID.String())
	report := &Report{ShopDomain: store.ShopDomain, StartedAt: s.now().UTC()}
	session := shopify.Session{ShopDomain: store.ShopDomain, AccessToken: store.AccessToken}

	origin := s.refreshProfile(ctx, store, session)
	walkInventory := req.Force || s.forceAll || !store.InventoryFetched

	g, gctx := errgroup.WithContext(ctx)
	if walkInventory {
		g.Go(func() error {
			report.Inventory = s.backfillInventory(gctx, store, session)
			return nil
		})
	} else {
		s.logg.Info(ctx, "inventory already fetched, skipping inventory walk")
	}
	g.Go(func() error {
		report.Orders = s.backfillOrders(gctx, store, session)
		return nil
	})
	g.Go(func() error {
		report.Fulfillments = s.backfillFulfillments(gctx, store, session, origin)
		return nil
	})
	_ = g.Wait()

	if walkInventory && report.Inventory.Complete && report.Inventory.Failed == 0 {
		if err := s.stores.MarkInventoryFetched(ctx, store.ID); err != nil {
			s.logg.Error(ctx, "failed to mark inventory fetched", err)
		}
	}

	report.FinishedAt = s.now().UTC()
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"orders":       report.Orders.Persisted,
		"inventory":    report.Inventory.Persisted,
		"fulfillments": report.Fulfillments.Persisted,
		"duration_ms":  report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	}), "backfill finished")
	return report, nil
}

// refreshProfile updates the store from the shop profile and returns the
// shipment origin. A failed lookup keeps the stored profile.
func (s *Service) refreshProfile(ctx context.Context, store *models.Store, session shopify.Session) *types.Address {
	shop, err := s.platform.Shop(ctx, session)
	if err != nil {
		s.metrics.IncFailure(metrics.FailureTransport)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"failure_class": metrics.FailureTransport,
			"error":         err.Error(),
		}), "shop profile unavailable, keeping stored profile")
		return store.BillingAddress
	}
	origin := normalize.ShopAddress(shop.BillingAddress)
	profile := stores.Profile{Name: shop.Name, Currency: shop.CurrencyCode, BillingAddress: origin}
	if err := s.stores.RefreshProfile(ctx, store.ID, profile); err != nil {
		s.logg.Error(ctx, "failed to refresh store profile", err)
	}
	if origin == nil {
		return store.BillingAddress
	}
	return origin
}

func (s *Service) backfillInventory(ctx context.Context, store *models.Store, session shopify.Session) ResourceReport {
	var rep ResourceReport
	fetch := observed(s, enums.ResourceKindInventoryItems, func(ctx context.Context, cursor *string) (*pagination.Page[shopify.InventoryItemNode], error) {
		return s.platform.InventoryItemsPage(ctx, session, cursor)
	}, func(ctx context.Context, items []shopify.InventoryItemNode) {
		records := make([]models.InventoryRecord, 0, len(items))
		for i := range items {
			rec := normalize.Inventory(&items[i], store.ID)
			if rec == nil {
				rep.Skipped++
				continue
			}
			records = append(records, *rec)
		}
		failed := s.persistFailures(ctx, enums.ResourceKindInventoryItems, s.inventory.UpsertAll(ctx, records))
		rep.Failed += failed
		rep.Persisted += len(records) - failed
	})
	res := pagination.Walk(ctx, fetch)
	return finish(s, ctx, enums.ResourceKindInventoryItems, rep, res)
}

func (s *Service) backfillOrders(ctx context.Context, store *models.Store, session shopify.Session) ResourceReport {
	var rep ResourceReport
	fetch := observed(s, enums.ResourceKindOrders, func(ctx context.Context, cursor *string) (*pagination.Page[shopify.OrderNode], error) {
		return s.platform.OrdersPage(ctx, session, cursor)
	}, func(ctx context.Context, nodes []shopify.OrderNode) {
		batch := make([]models.Order, 0, len(nodes))
		var lines []models.LineItem
		for i := range nodes {
			rec := s.normalizer.Order(ctx, normalize.BulkOrder{Node: &nodes[i]}, store.ID)
			if rec == nil {
				rep.Skipped++
				continue
			}
			batch = append(batch, rec.Order)
			lines = append(lines, rec.LineItems...)
		}
		failed := s.persistFailures(ctx, enums.ResourceKindOrders, s.orders.UpsertOrders(ctx, batch))
		rep.Failed += failed
		rep.Persisted += len(batch) - failed
		s.persistFailures(ctx, enums.ResourceKindOrders, s.orders.UpsertLineItems(ctx, lines))
	})
	res := pagination.Walk(ctx, fetch)
	return finish(s, ctx, enums.ResourceKindOrders, rep, res)
}

func (s *Service) backfillFulfillments(ctx context.Context, store *models.Store, session shopify.Session, origin *types.Address) ResourceReport {
	var rep ResourceReport
	fetch := observed(s, enums.ResourceKindFulfillments, func(ctx context.Context, cursor *string) (*pagination.Page[shopify.FulfilledOrderNode], error) {
		return s.platform.FulfillmentsPage(ctx, session, cursor)
	}, func(ctx context.Context, nodes []shopify.FulfilledOrderNode) {
		records := make([]models.TrackingRecord, 0, len(nodes))
		for i := range nodes {
			rec := normalize.Fulfillment(normalize.BulkFulfillment{Node: &nodes[i]}, store.ID, origin)
			if rec == nil {
				rep.Skipped++
				continue
			}
			records = append(records, *rec)
		}
		failed := s.persistFailures(ctx, enums.ResourceKindFulfillments, s.trackings.UpsertAll(ctx, records))
		rep.Failed += failed
		rep.Persisted += len(records) - failed
	})
	res := pagination.Walk(ctx, fetch)
	return finish(s, ctx, enums.ResourceKindFulfillments, rep, res)
}

// observed wraps a page fetcher so every page is counted and handed to
// persist before the walk asks for the next one.
func observed[T any](
	s *Service,
	resource enums.ResourceKind,
	fetch func(ctx context.Context, cursor *string) (*pagination.Page[T], error),
	persist func(ctx context.Context, items []T),
) pagination.PageFunc[T] {
	return func(ctx context.Context, cursor *string) (*pagination.Page[T], error) {
		page, err := fetch(ctx, cursor)
		if err != nil || page == nil {
			return page, err
		}
		s.metrics.ObservePage(string(resource), len(page.Items))
		if len(page.Items) > 0 {
			persist(ctx, page.Items)
		}
		return page, nil
	}
}

// persistFailures logs a batch error and returns how many records failed.
func (s *Service) persistFailures(ctx context.Context, resource enums.ResourceKind, err error) int {
	if err == nil {
		return 0
	}
	errs := multierr.Errors(err)
	for range errs {
		s.metrics.IncFailure(metrics.FailurePersistence)
	}
	s.logg.Error(s.logg.WithFields(ctx, map[string]any{
		"resource":      string(resource),
		"failure_class": metrics.FailurePersistence,
		"failed":        len(errs),
	}), "backfill upsert failed", err)
	return len(errs)
}

// finish folds the walk result into the report. A truncated walk keeps
// whatever was already persisted.
func finish[T any](s *Service, ctx context.Context, resource enums.ResourceKind, rep ResourceReport, res pagination.Result[T]) ResourceReport {
	rep.Walked = true
	rep.Calls = res.Calls
	rep.Fetched = len(res.Items)
	rep.Stop = string(res.Stop)
	rep.Complete = res.Complete()
	if res.Err == nil {
		return rep
	}

	rep.Error = res.Err.Error()
	class := metrics.FailureTransport
	if errors.Is(res.Err, ErrMalformedPage) {
		class = metrics.FailureMalformedPayload
	}
	s.metrics.IncFailure(class)
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"resource":      string(resource),
		"failure_class": class,
		"stop":          string(res.Stop),
		"calls":         res.Calls,
		"fetched":       len(res.Items),
		"error":         res.Err.Error(),
	}), "backfill walk truncated, keeping partial results")
	return rep
}
