package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/pkg/types"
)

// Store is a connected shop. Every synced record is owned by exactly one store.
type Store struct {
	ID               uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	ShopDomain       string         `gorm:"column:shop_domain;not null;uniqueIndex:ux_stores_shop_domain"`
	Name             string         `gorm:"column:name;not null"`
	AccessToken      string         `gorm:"column:access_token;not null"`
	Currency         string         `gorm:"column:currency;not null"`
	BillingAddress   *types.Address `gorm:"column:billing_address;type:jsonb"`
	InventoryFetched bool           `gorm:"column:inventory_fetched;not null"`
	Installed        bool           `gorm:"column:installed;not null"`
	UninstalledAt    *time.Time     `gorm:"column:uninstalled_at"`
	CreatedAt        time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Store) TableName() string { return "stores" }

func (s *Store) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
