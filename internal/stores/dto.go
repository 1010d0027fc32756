package stores

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/types"
)

// StoreDTO exposes store data without credentials.
type StoreDTO struct {
	ID               uuid.UUID      `json:"id"`
	ShopDomain       string         `json:"shop_domain"`
	Name             string         `json:"name"`
	Currency         string         `json:"currency"`
	BillingAddress   *types.Address `json:"billing_address,omitempty"`
	InventoryFetched bool           `json:"inventory_fetched"`
	Installed        bool           `json:"installed"`
	UninstalledAt    *time.Time     `json:"uninstalled_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// FromModel maps the store row to its API view.
func FromModel(m *models.Store) *StoreDTO {
	if m == nil {
		return nil
	}
	return &StoreDTO{
		ID:               m.ID,
		ShopDomain:       m.ShopDomain,
		Name:             m.Name,
		Currency:         m.Currency,
		BillingAddress:   m.BillingAddress,
		InventoryFetched: m.InventoryFetched,
		Installed:        m.Installed,
		UninstalledAt:    m.UninstalledAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// InstallInput registers a shop with the access token obtained at install time.
type InstallInput struct {
	ShopDomain  string `json:"-"`
	AccessToken string `json:"access_token" validate:"required"`
}

// Profile is the shop data refreshed from the platform before a backfill.
type Profile struct {
	Name           string
	Currency       string
	BillingAddress *types.Address
}

// NormalizeDomain lowercases and trims a shop domain.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
