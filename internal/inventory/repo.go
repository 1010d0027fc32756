package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/internal/repo"
	"github.com/commercive/commerce-sync/pkg/db/models"
)

// Repository persists inventory records. The back_orders column is only ever
// changed through IncrementBackorders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, record *models.InventoryRecord) error
	UpsertAll(ctx context.Context, records []models.InventoryRecord) error
	DeleteByItem(ctx context.Context, storeID uuid.UUID, inventoryItemID int64) (int64, error)
	DeleteByProduct(ctx context.Context, storeID uuid.UUID, productID int64) (int64, error)
	FindByItem(ctx context.Context, storeID uuid.UUID, inventoryItemID int64) (*models.InventoryRecord, error)
	FindByVariant(ctx context.Context, storeID uuid.UUID, variantID int64) (*models.InventoryRecord, error)
	IncrementBackorders(ctx context.Context, id uuid.UUID) error
}

var recordConflict = repo.Conflict{
	Columns: []string{"inventory_item_id", "store_id"},
	Updates: []string{
		"sku", "tracked", "inventory_levels", "product_id", "variant_id",
		"product_name", "variant_name", "product_image", "updated_at",
	},
}

type repository struct {
	base repo.Base
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

func (r *repository) Upsert(ctx context.Context, record *models.InventoryRecord) error {
	if record == nil {
		return fmt.Errorf("inventory record is required")
	}
	return r.base.Upsert(ctx, record, recordConflict)
}

func (r *repository) UpsertAll(ctx context.Context, records []models.InventoryRecord) error {
	return repo.UpsertAll(ctx, r.base, dedupe(records), recordConflict, func(rec models.InventoryRecord) string {
		return fmt.Sprintf("inventory item %d", rec.InventoryItemID)
	})
}

func (r *repository) DeleteByItem(ctx context.Context, storeID uuid.UUID, inventoryItemID int64) (int64, error) {
	res := r.base.DB(ctx).
		Where("store_id = ? AND inventory_item_id = ?", storeID, inventoryItemID).
		Delete(&models.InventoryRecord{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteByProduct(ctx context.Context, storeID uuid.UUID, productID int64) (int64, error) {
	res := r.base.DB(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		Delete(&models.InventoryRecord{})
	return res.RowsAffected, res.Error
}

func (r *repository) FindByItem(ctx context.Context, storeID uuid.UUID, inventoryItemID int64) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.base.DB(ctx).
		Where("store_id = ? AND inventory_item_id = ?", storeID, inventoryItemID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// FindByVariant returns the most recently synced record of the variant.
func (r *repository) FindByVariant(ctx context.Context, storeID uuid.UUID, variantID int64) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.base.DB(ctx).
		Where("store_id = ? AND variant_id = ?", storeID, variantID).
		Order("updated_at DESC").
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// IncrementBackorders adds one to the counter in a single statement so
// concurrent writers cannot lose an update.
func (r *repository) IncrementBackorders(ctx context.Context, id uuid.UUID) error {
	res := r.base.DB(ctx).
		Model(&models.InventoryRecord{}).
		Where("id = ?", id).
		UpdateColumn("back_orders", gorm.Expr("back_orders + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func dedupe(records []models.InventoryRecord) []models.InventoryRecord {
	type key struct {
		item  int64
		store uuid.UUID
	}
	index := make(map[key]int, len(records))
	out := make([]models.InventoryRecord, 0, len(records))
	for _, rec := range records {
		k := key{rec.InventoryItemID, rec.StoreID}
		if i, ok := index[k]; ok {
			out[i] = rec
			continue
		}
		index[k] = len(out)
		out = append(out, rec)
	}
	return out
}
