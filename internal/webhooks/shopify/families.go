package shopifywebhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/commercive/commerce-sync/internal/normalize"
	"github.com/commercive/commerce-sync/internal/orders"
	"github.com/commercive/commerce-sync/pkg/enums"
	"github.com/commercive/commerce-sync/pkg/metrics"
	"github.com/commercive/commerce-sync/pkg/pagination"
	"github.com/commercive/commerce-sync/pkg/shopify"
)

// applyError carries the failure class and the outcome it maps to.
type applyError struct {
	class   string
	outcome enums.WebhookOutcome
	err     error
}

func (e *applyError) Error() string { return e.err.Error() }
func (e *applyError) Unwrap() error { return e.err }

func malformed(err error) error {
	return &applyError{class: metrics.FailureMalformedPayload, outcome: enums.WebhookOutcomeSkipped, err: err}
}

func persistence(err error) error {
	return &applyError{class: metrics.FailurePersistence, outcome: enums.WebhookOutcomeFailed, err: err}
}

// lookupFailed maps a platform lookup error. Nothing is written, so the
// delivery is skipped rather than failed. A lookup that answered without the
// resource is missing data, not a transport problem.
func lookupFailed(err error) error {
	class := metrics.FailureTransport
	if errors.Is(err, pagination.ErrMalformedPage) || errors.Is(err, shopify.ErrNotFound) {
		class = metrics.FailureMalformedPayload
	}
	return &applyError{class: class, outcome: enums.WebhookOutcomeSkipped, err: err}
}

func decode[T any](raw json.RawMessage) (*T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, malformed(fmt.Errorf("decode payload: %w", err))
	}
	return &out, nil
}

func session(evt Event) shopify.Session {
	return shopify.Session{ShopDomain: evt.Store.ShopDomain, AccessToken: evt.Store.AccessToken}
}

func (s *Service) applyFulfillment(ctx context.Context, evt Event) error {
	payload, err := decode[shopify.FulfillmentPayload](evt.Payload)
	if err != nil {
		return err
	}
	rec := normalize.Fulfillment(normalize.WebhookFulfillment{Payload: payload}, evt.Store.ID, evt.Store.BillingAddress)
	if rec == nil {
		return malformed(errors.New("fulfillment without order id"))
	}
	if err := s.trackings.Upsert(ctx, rec); err != nil {
		return persistence(err)
	}
	return nil
}

func (s *Service) applyOrder(ctx context.Context, evt Event) error {
	payload, err := decode[shopify.OrderPayload](evt.Payload)
	if err != nil {
		return err
	}
	records := s.normalizer.Order(ctx, normalize.WebhookOrder{Payload: payload}, evt.Store.ID)
	if records == nil {
		return malformed(errors.New("order without id"))
	}
	if err := orders.Save(ctx, s.orders, &records.Order, records.LineItems); err != nil {
		return persistence(err)
	}
	if len(records.Order.LineItems) == 0 {
		return nil
	}
	outcome, err := s.reconciler.Reconcile(ctx, evt.Store.ID, records.Order.OrderID, records.Order.LineItems)
	if err != nil {
		return persistence(fmt.Errorf("reconcile backorders: %w", err))
	}
	s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
		"order_id":        records.Order.OrderID,
		"incremented":     outcome.Incremented,
		"already_applied": outcome.AlreadyApplied,
		"skipped":         outcome.Skipped,
		"lock_busy":       outcome.LockBusy,
	}), "backorders reconciled")
	return nil
}

func (s *Service) applyInventoryLevel(ctx context.Context, evt Event) error {
	payload, err := decode[shopify.InventoryLevelPayload](evt.Payload)
	if err != nil {
		return err
	}
	if payload.InventoryItemID <= 0 {
		return malformed(errors.New("inventory level without inventory_item_id"))
	}
	return s.refreshItem(ctx, evt, payload.InventoryItemID)
}

func (s *Service) applyInventoryItem(ctx context.Context, evt Event) error {
	payload, err := decode[shopify.InventoryItemPayload](evt.Payload)
	if err != nil {
		return err
	}
	if payload.ID <= 0 {
		return malformed(errors.New("inventory item without id"))
	}
	return s.refreshItem(ctx, evt, payload.ID)
}

// applyProduct refreshes every variant's inventory item. A failing variant
// does not stop its siblings; the failures are reported once all were tried.
func (s *Service) applyProduct(ctx context.Context, evt Event) error {
	payload, err := decode[shopify.ProductPayload](evt.Payload)
	if err != nil {
		return err
	}
	seen := make(map[int64]struct{}, len(payload.Variants))
	var errs error
	for _, v := range payload.Variants {
		if v.InventoryItemID <= 0 {
			continue
		}
		if _, dup := seen[v.InventoryItemID]; dup {
			continue
		}
		seen[v.InventoryItemID] = struct{}{}
		if err := s.refreshItem(ctx, evt, v.InventoryItemID); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"product_id":        payload.ID,
				"inventory_item_id": v.InventoryItemID,
				"error":             err.Error(),
			}), "variant inventory refresh failed")
			errs = multierr.Append(errs, err)
		}
	}
	if len(seen) == 0 {
		return malformed(errors.New("product without variant inventory items"))
	}
	return combine(errs)
}

// combine folds per-item failures into one applyError. Any persistence
// failure fails the delivery; otherwise the first failure's class is kept.
func combine(errs error) error {
	if errs == nil {
		return nil
	}
	var first *applyError
	for _, err := range multierr.Errors(errs) {
		var ae *applyError
		if !errors.As(err, &ae) {
			return persistence(errs)
		}
		if ae.outcome == enums.WebhookOutcomeFailed {
			return &applyError{class: ae.class, outcome: ae.outcome, err: errs}
		}
		if first == nil {
			first = ae
		}
	}
	return &applyError{class: first.class, outcome: first.outcome, err: errs}
}

// refreshItem re-reads an inventory item from the platform and upserts it.
func (s *Service) refreshItem(ctx context.Context, evt Event, itemID int64) error {
	node, err := s.platform.InventoryItem(ctx, session(evt), itemID)
	if err != nil {
		return lookupFailed(fmt.Errorf("fetch inventory item %d: %w", itemID, err))
	}
	rec := normalize.Inventory(node, evt.Store.ID)
	if rec == nil {
		return malformed(fmt.Errorf("inventory item %d without id", itemID))
	}
	if err := s.inventory.Upsert(ctx, rec); err != nil {
		return persistence(err)
	}
	return nil
}

func (s *Service) deleteInventoryItem(ctx context.Context, evt Event) error {
	payload, err := decode[shopify.DeletePayload](evt.Payload)
	if err != nil {
		return err
	}
	if payload.ID <= 0 {
		return malformed(errors.New("delete without id"))
	}
	removed, err := s.inventory.DeleteByItem(ctx, evt.Store.ID, payload.ID)
	if err != nil {
		return persistence(err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"inventory_item_id": payload.ID, "removed": removed}), "inventory item deleted")
	return nil
}

func (s *Service) deleteProduct(ctx context.Context, evt Event) error {
	payload, err := decode[shopify.DeletePayload](evt.Payload)
	if err != nil {
		return err
	}
	if payload.ID <= 0 {
		return malformed(errors.New("delete without id"))
	}
	removed, err := s.inventory.DeleteByProduct(ctx, evt.Store.ID, payload.ID)
	if err != nil {
		return persistence(err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"product_id": payload.ID, "removed": removed}), "product inventory deleted")
	return nil
}

func (s *Service) uninstall(ctx context.Context, evt Event) error {
	if err := s.stores.MarkUninstalled(ctx, evt.Store.ID); err != nil {
		return persistence(err)
	}
	s.logg.Info(ctx, "store uninstalled")
	return nil
}
