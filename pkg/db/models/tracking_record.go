package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/pkg/types"
)

// TrackingRecord is the shipment of an order. One row per order; a later
// fulfillment replaces the earlier one.
type TrackingRecord struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         int64            `gorm:"column:order_id;not null;uniqueIndex:ux_trackings_order"`
	StoreID         uuid.UUID        `gorm:"column:store_id;type:uuid;not null;index"`
	FulfillmentID   int64            `gorm:"column:fulfillment_id;not null"`
	Carrier         string           `gorm:"column:carrier;not null"`
	TrackingNumbers types.StringList `gorm:"column:tracking_numbers;type:jsonb;not null"`
	TrackingURLs    types.StringList `gorm:"column:tracking_urls;type:jsonb;not null"`
	Status          string           `gorm:"column:status;not null"`
	ShipmentStatus  string           `gorm:"column:shipment_status;not null"`
	Origin          *types.Address   `gorm:"column:origin;type:jsonb"`
	Destination     *types.Address   `gorm:"column:destination;type:jsonb"`
	ShippedAt       *time.Time       `gorm:"column:shipped_at"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (TrackingRecord) TableName() string { return "trackings" }

func (r *TrackingRecord) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
