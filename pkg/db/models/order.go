package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/pkg/types"
)

// Order is the canonical order row. Amounts are kept in the store currency and
// in the reference currency (the *Ref columns).
type Order struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           int64                   `gorm:"column:order_id;not null;uniqueIndex:ux_orders_order_store,priority:1"`
	StoreID           uuid.UUID               `gorm:"column:store_id;type:uuid;not null;uniqueIndex:ux_orders_order_store,priority:2"`
	OrderNumber       string                  `gorm:"column:order_number;not null"`
	Currency          string                  `gorm:"column:currency;not null"`
	ReferenceCurrency string                  `gorm:"column:reference_currency;not null"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:numeric(20,4);not null"`
	SubtotalRef       decimal.Decimal         `gorm:"column:subtotal_ref;type:numeric(20,4);not null"`
	Tax               decimal.Decimal         `gorm:"column:tax;type:numeric(20,4);not null"`
	TaxRef            decimal.Decimal         `gorm:"column:tax_ref;type:numeric(20,4);not null"`
	Discounts         decimal.Decimal         `gorm:"column:discounts;type:numeric(20,4);not null"`
	DiscountsRef      decimal.Decimal         `gorm:"column:discounts_ref;type:numeric(20,4);not null"`
	Shipping          decimal.Decimal         `gorm:"column:shipping;type:numeric(20,4);not null"`
	ShippingRef       decimal.Decimal         `gorm:"column:shipping_ref;type:numeric(20,4);not null"`
	Total             decimal.Decimal         `gorm:"column:total;type:numeric(20,4);not null"`
	FinancialStatus   string                  `gorm:"column:financial_status;not null"`
	FulfillmentStatus string                  `gorm:"column:fulfillment_status;not null"`
	LineItems         types.LineItemSnapshots `gorm:"column:line_items;type:jsonb;not null"`
	ShippingAddress   *types.Address          `gorm:"column:shipping_address;type:jsonb"`
	Tags              string                  `gorm:"column:tags;not null"`
	CustomerEmail     string                  `gorm:"column:customer_email;not null"`
	PlacedAt          *time.Time              `gorm:"column:placed_at"`
	SourceUpdatedAt   *time.Time              `gorm:"column:source_updated_at"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
