package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BackorderApplication records that a line item of an order has been
// evaluated against inventory, so a redelivered order is never counted twice.
type BackorderApplication struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	StoreID         uuid.UUID `gorm:"column:store_id;type:uuid;not null;uniqueIndex:ux_backorder_applications_line,priority:1"`
	OrderID         int64     `gorm:"column:order_id;not null;uniqueIndex:ux_backorder_applications_line,priority:2"`
	LineItemID      int64     `gorm:"column:line_item_id;not null;uniqueIndex:ux_backorder_applications_line,priority:3"`
	InventoryItemID int64     `gorm:"column:inventory_item_id;not null"`
	Available       int       `gorm:"column:available;not null"`
	Incremented     bool      `gorm:"column:incremented;not null"`
	AppliedAt       time.Time `gorm:"column:applied_at;not null"`
}

func (BackorderApplication) TableName() string { return "backorder_applications" }

func (a *BackorderApplication) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
