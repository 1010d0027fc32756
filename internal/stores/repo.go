package stores

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/internal/repo"
	"github.com/commercive/commerce-sync/pkg/db/models"
)

// Repository handles store persistence.
type Repository struct {
	base repo.Base
}

// NewRepository binds a GORM DB to store operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

var installConflict = repo.Conflict{
	Columns: []string{"shop_domain"},
	Updates: []string{"access_token", "installed", "uninstalled_at", "updated_at"},
}

// Install creates the store or refreshes the credentials of an existing one.
func (r *Repository) Install(ctx context.Context, store *models.Store) error {
	if store == nil {
		return fmt.Errorf("store is required")
	}
	return r.base.Upsert(ctx, store, installConflict)
}

// FindByDomain loads a store by its shop domain.
func (r *Repository) FindByDomain(ctx context.Context, domain string) (*models.Store, error) {
	var store models.Store
	if err := r.base.DB(ctx).Where("shop_domain = ?", domain).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// FindByID loads a store by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.base.DB(ctx).Where("id = ?", id).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// UpdateColumns applies a partial update to one store.
func (r *Repository) UpdateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.base.DB(ctx).Model(&models.Store{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
