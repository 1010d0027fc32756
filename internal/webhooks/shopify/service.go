package shopifywebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/commercive/commerce-sync/internal/backorders"
	"github.com/commercive/commerce-sync/internal/inventory"
	"github.com/commercive/commerce-sync/internal/normalize"
	"github.com/commercive/commerce-sync/internal/orders"
	"github.com/commercive/commerce-sync/internal/trackings"
	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/enums"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/metrics"
	"github.com/commercive/commerce-sync/pkg/shopify"
	"github.com/commercive/commerce-sync/pkg/types"
)

// Platform is the single item lookup used to complete partial payloads.
type Platform interface {
	InventoryItem(ctx context.Context, s shopify.Session, id int64) (*shopify.InventoryItemNode, error)
}

type auditLog interface {
	Append(ctx context.Context, entry *models.WebhookLogEntry) error
}

type storeService interface {
	MarkUninstalled(ctx context.Context, id uuid.UUID) error
}

type reconciler interface {
	Reconcile(ctx context.Context, storeID uuid.UUID, orderID int64, lines []types.LineItemSnapshot) (backorders.Outcome, error)
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// Event is one webhook delivery resolved to its store.
type Event struct {
	Store      *models.Store
	Topic      enums.WebhookTopic
	DeliveryID string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Result is the terminal state of a delivery.
type Result struct {
	Outcome enums.WebhookOutcome
	Reason  string
}

// ServiceParams wires the router dependencies. Guard and Metrics may be nil.
type ServiceParams struct {
	Platform   Platform
	Orders     orders.Repository
	Inventory  inventory.Repository
	Trackings  trackings.Repository
	AuditLog   auditLog
	Stores     storeService
	Reconciler reconciler
	Normalizer *normalize.Normalizer
	Guard      deliveryGuard
	Logger     *logger.Logger
	Metrics    *metrics.SyncMetrics
}

// Service routes deliveries to the topic families. Handle never returns an
// error: every failure is logged, counted and folded into the Result.
type Service struct {
	platform   Platform
	orders     orders.Repository
	inventory  inventory.Repository
	trackings  trackings.Repository
	audit      auditLog
	stores     storeService
	reconciler reconciler
	normalizer *normalize.Normalizer
	guard      deliveryGuard
	logg       *logger.Logger
	metrics    *metrics.SyncMetrics
	now        func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Platform == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform client required")
	case params.Orders == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	case params.Inventory == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "inventory repo required")
	case params.Trackings == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "trackings repo required")
	case params.AuditLog == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook log repo required")
	case params.Stores == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store service required")
	case params.Reconciler == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "backorder reconciler required")
	case params.Normalizer == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "normalizer required")
	case params.Logger == nil:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		platform:   params.Platform,
		orders:     params.Orders,
		inventory:  params.Inventory,
		trackings:  params.Trackings,
		audit:      params.AuditLog,
		stores:     params.Stores,
		reconciler: params.Reconciler,
		normalizer: params.Normalizer,
		guard:      params.Guard,
		logg:       params.Logger,
		metrics:    params.Metrics,
		now:        time.Now,
	}, nil
}

// Handle records the delivery in the audit log, then applies its effect.
func (s *Service) Handle(ctx context.Context, evt Event) (res Result) {
	start := s.now()
	if evt.ReceivedAt.IsZero() {
		evt.ReceivedAt = start.UTC()
	}
	ctx = s.logg.WithTopic(ctx, string(evt.Topic))
	if evt.DeliveryID != "" {
		ctx = s.logg.WithField(ctx, "webhook_id", evt.DeliveryID)
	}
	if evt.Store == nil {
		s.metrics.ObserveWebhook(string(evt.Topic), string(enums.WebhookOutcomeSkipped), 0)
		s.logg.Warn(ctx, "webhook without a store, skipping")
		return Result{Outcome: enums.WebhookOutcomeSkipped, Reason: "store missing"}
	}
	ctx = s.logg.WithStoreID(ctx, evt.Store.ID.String())
	ctx = s.logg.WithShopDomain(ctx, evt.Store.ShopDomain)

	s.record(ctx, evt)

	marked := false
	defer func() {
		if r := recover(); r != nil {
			s.metrics.IncFailure(metrics.FailurePersistence)
			s.logg.Error(ctx, "webhook handler panicked", fmt.Errorf("panic: %v", r))
			res = Result{Outcome: enums.WebhookOutcomeFailed, Reason: "panic"}
		}
		if marked && res.Outcome == enums.WebhookOutcomeFailed {
			if err := s.guard.Delete(context.WithoutCancel(ctx), evt.DeliveryID); err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "failed to clear delivery mark")
			}
		}
		s.metrics.ObserveWebhook(string(evt.Topic), string(res.Outcome), s.now().Sub(start))
	}()

	if s.guard != nil && evt.DeliveryID != "" {
		seen, err := s.guard.CheckAndMark(ctx, evt.DeliveryID)
		switch {
		case err != nil:
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "delivery dedupe unavailable, applying anyway")
		case seen:
			s.logg.Info(ctx, "duplicate webhook delivery, skipping")
			return Result{Outcome: enums.WebhookOutcomeSkipped, Reason: "duplicate delivery"}
		default:
			marked = true
		}
	}

	res = s.dispatch(ctx, evt)
	if res.Outcome == enums.WebhookOutcomeApplied {
		s.logg.Debug(ctx, "webhook applied")
	}
	return res
}

// record writes the audit row. Failures are counted and swallowed.
func (s *Service) record(ctx context.Context, evt Event) {
	entry := &models.WebhookLogEntry{
		StoreID:    evt.Store.ID,
		ShopDomain: evt.Store.ShopDomain,
		Topic:      string(evt.Topic),
		WebhookID:  evt.DeliveryID,
		Payload:    types.JSONBlob(evt.Payload),
		ReceivedAt: evt.ReceivedAt,
	}
	if !json.Valid(evt.Payload) {
		entry.Payload = nil
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.metrics.IncFailure(metrics.FailureAuditLog)
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"failure_class": metrics.FailureAuditLog,
			"error":         err.Error(),
		}), "failed to write webhook audit log")
	}
}

func (s *Service) dispatch(ctx context.Context, evt Event) Result {
	var err error
	switch evt.Topic {
	case enums.WebhookTopicFulfillmentsCreate, enums.WebhookTopicFulfillmentsUpdate:
		err = s.applyFulfillment(ctx, evt)
	case enums.WebhookTopicOrdersCreate, enums.WebhookTopicOrdersUpdated:
		err = s.applyOrder(ctx, evt)
	case enums.WebhookTopicInventoryLevelsUpdate, enums.WebhookTopicInventoryLevelsConnect:
		err = s.applyInventoryLevel(ctx, evt)
	case enums.WebhookTopicInventoryLevelsDisconnect:
		s.logg.Info(ctx, "inventory level disconnected, audit only")
		return Result{Outcome: enums.WebhookOutcomeSkipped, Reason: "disconnect is recorded only"}
	case enums.WebhookTopicInventoryItemsCreate, enums.WebhookTopicInventoryItemsUpdate:
		err = s.applyInventoryItem(ctx, evt)
	case enums.WebhookTopicInventoryItemsDelete:
		err = s.deleteInventoryItem(ctx, evt)
	case enums.WebhookTopicProductsCreate, enums.WebhookTopicProductsUpdate:
		err = s.applyProduct(ctx, evt)
	case enums.WebhookTopicProductsDelete:
		err = s.deleteProduct(ctx, evt)
	case enums.WebhookTopicAppUninstalled:
		err = s.uninstall(ctx, evt)
	default:
		s.logg.Info(ctx, "unhandled webhook topic, skipping")
		return Result{Outcome: enums.WebhookOutcomeSkipped, Reason: "unhandled topic"}
	}
	return s.resolve(ctx, err)
}

// resolve turns a family error into the delivery result.
func (s *Service) resolve(ctx context.Context, err error) Result {
	if err == nil {
		return Result{Outcome: enums.WebhookOutcomeApplied}
	}
	var ae *applyError
	if !errors.As(err, &ae) {
		ae = &applyError{class: metrics.FailurePersistence, outcome: enums.WebhookOutcomeFailed, err: err}
	}
	s.metrics.IncFailure(ae.class)
	fields := s.logg.WithFields(ctx, map[string]any{
		"failure_class": ae.class,
		"outcome":       string(ae.outcome),
	})
	if ae.outcome == enums.WebhookOutcomeFailed {
		s.logg.Error(fields, "webhook effect failed", ae.err)
	} else {
		s.logg.Warn(s.logg.WithField(fields, "error", ae.err.Error()), "webhook effect skipped")
	}
	return Result{Outcome: ae.outcome, Reason: ae.err.Error()}
}
