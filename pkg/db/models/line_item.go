package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/pkg/types"
)

// LineItem is the analytics copy of an order line, one row per (order, product).
type LineItem struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID             int64           `gorm:"column:order_id;not null;uniqueIndex:ux_line_items_order_product,priority:1"`
	ProductID           int64           `gorm:"column:product_id;not null;uniqueIndex:ux_line_items_order_product,priority:2"`
	StoreID             uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	LineItemID          int64           `gorm:"column:line_item_id;not null"`
	VariantID           int64           `gorm:"column:variant_id;not null"`
	SKU                 string          `gorm:"column:sku;not null"`
	Title               string          `gorm:"column:title;not null"`
	Vendor              string          `gorm:"column:vendor;not null"`
	Quantity            int             `gorm:"column:quantity;not null"`
	Price               decimal.Decimal `gorm:"column:price;type:numeric(20,4);not null"`
	DiscountAllocations types.JSONBlob  `gorm:"column:discount_allocations;type:jsonb"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (LineItem) TableName() string { return "line_items" }

func (l *LineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
