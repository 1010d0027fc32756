package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/internal/repo"
	"github.com/commercive/commerce-sync/pkg/db/models"
)

// Repository persists canonical orders and their analytics line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertOrder(ctx context.Context, order *models.Order) error
	UpsertOrders(ctx context.Context, orders []models.Order) error
	UpsertLineItems(ctx context.Context, items []models.LineItem) error
	FindOrder(ctx context.Context, storeID uuid.UUID, orderID int64) (*models.Order, error)
	ListLineItems(ctx context.Context, orderID int64) ([]models.LineItem, error)
}

var orderConflict = repo.Conflict{
	Columns: []string{"order_id", "store_id"},
	Updates: []string{
		"order_number", "currency", "reference_currency",
		"subtotal", "subtotal_ref", "tax", "tax_ref",
		"discounts", "discounts_ref", "shipping", "shipping_ref", "total",
		"financial_status", "fulfillment_status", "line_items", "shipping_address",
		"tags", "customer_email", "placed_at", "source_updated_at", "updated_at",
	},
}

var lineItemConflict = repo.Conflict{
	Columns: []string{"order_id", "product_id"},
	Updates: []string{
		"store_id", "line_item_id", "variant_id", "sku", "title", "vendor",
		"quantity", "price", "discount_allocations", "updated_at",
	},
}

type repository struct {
	base repo.Base
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) UpsertOrder(ctx context.Context, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	return r.base.Upsert(ctx, order, orderConflict)
}

func (r *repository) UpsertOrders(ctx context.Context, orders []models.Order) error {
	return repo.UpsertAll(ctx, r.base, dedupeOrders(orders), orderConflict, func(o models.Order) string {
		return fmt.Sprintf("order %d", o.OrderID)
	})
}

// UpsertLineItems writes one row per (order, product). When an order carries
// the same product twice the later line wins.
func (r *repository) UpsertLineItems(ctx context.Context, items []models.LineItem) error {
	return repo.UpsertAll(ctx, r.base, dedupeLineItems(items), lineItemConflict, func(l models.LineItem) string {
		return fmt.Sprintf("line item %d of order %d", l.LineItemID, l.OrderID)
	})
}

func (r *repository) FindOrder(ctx context.Context, storeID uuid.UUID, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := r.base.DB(ctx).
		Where("store_id = ? AND order_id = ?", storeID, orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListLineItems(ctx context.Context, orderID int64) ([]models.LineItem, error) {
	var items []models.LineItem
	if err := r.base.DB(ctx).
		Where("order_id = ?", orderID).
		Order("line_item_id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// dedupeOrders keeps the last sighting of each (order, store). A single
// statement cannot update the same row twice.
func dedupeOrders(orders []models.Order) []models.Order {
	type key struct {
		order int64
		store uuid.UUID
	}
	index := make(map[key]int, len(orders))
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		k := key{o.OrderID, o.StoreID}
		if i, ok := index[k]; ok {
			out[i] = o
			continue
		}
		index[k] = len(out)
		out = append(out, o)
	}
	return out
}

func dedupeLineItems(items []models.LineItem) []models.LineItem {
	type key struct{ order, product int64 }
	index := make(map[key]int, len(items))
	out := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		k := key{item.OrderID, item.ProductID}
		if i, ok := index[k]; ok {
			out[i] = item
			continue
		}
		index[k] = len(out)
		out = append(out, item)
	}
	return out
}

// Save upserts an order, then its line items. A line item failure does not
// undo the order.
func Save(ctx context.Context, r Repository, order *models.Order, items []models.LineItem) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	if err := r.UpsertOrder(ctx, order); err != nil {
		return fmt.Errorf("upsert order %d: %w", order.OrderID, err)
	}
	if err := r.UpsertLineItems(ctx, items); err != nil {
		return fmt.Errorf("upsert line items of order %d: %w", order.OrderID, err)
	}
	return nil
}
