package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/pkg/types"
)

// WebhookLogEntry is the append-only audit row written for every delivery.
type WebhookLogEntry struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	StoreID    uuid.UUID      `gorm:"column:store_id;type:uuid;not null;index"`
	ShopDomain string         `gorm:"column:shop_domain;not null"`
	Topic      string         `gorm:"column:topic;not null"`
	WebhookID  string         `gorm:"column:webhook_id;not null"`
	Payload    types.JSONBlob `gorm:"column:payload;type:jsonb"`
	ReceivedAt time.Time      `gorm:"column:received_at;not null"`
}

func (WebhookLogEntry) TableName() string { return "webhook_log" }

func (e *WebhookLogEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
