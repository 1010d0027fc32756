package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/pkg/types"
)

// InventoryRecord is one inventory item of one store with its per-location
// quantities. BackOrders is owned by the backorder reconciler and is never
// overwritten by a sync upsert.
type InventoryRecord struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	InventoryItemID int64                 `gorm:"column:inventory_item_id;not null;uniqueIndex:ux_inventory_item_store,priority:1"`
	StoreID         uuid.UUID             `gorm:"column:store_id;type:uuid;not null;uniqueIndex:ux_inventory_item_store,priority:2"`
	SKU             string                `gorm:"column:sku;not null"`
	Tracked         bool                  `gorm:"column:tracked;not null"`
	Levels          types.InventoryLevels `gorm:"column:inventory_levels;type:jsonb;not null"`
	ProductID       int64                 `gorm:"column:product_id;not null;index"`
	VariantID       int64                 `gorm:"column:variant_id;not null;index"`
	ProductName     string                `gorm:"column:product_name;not null"`
	VariantName     string                `gorm:"column:variant_name;not null"`
	ProductImage    string                `gorm:"column:product_image;not null"`
	BackOrders      int                   `gorm:"column:back_orders;not null;default:0"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (InventoryRecord) TableName() string { return "inventory" }

func (r *InventoryRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
