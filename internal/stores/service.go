package stores

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/pkg/db/models"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
)

type storeRepository interface {
	Install(ctx context.Context, store *models.Store) error
	FindByDomain(ctx context.Context, domain string) (*models.Store, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	UpdateColumns(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// Service exposes store registry operations.
type Service interface {
	Install(ctx context.Context, input InstallInput) (*models.Store, error)
	Resolve(ctx context.Context, shopDomain string) (*models.Store, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	MarkUninstalled(ctx context.Context, id uuid.UUID) error
	MarkInventoryFetched(ctx context.Context, id uuid.UUID) error
	RefreshProfile(ctx context.Context, id uuid.UUID, profile Profile) error
}

type service struct {
	repo storeRepository
	now  func() time.Time
}

// NewService builds a store service with the provided repository.
func NewService(repo storeRepository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "store repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Install(ctx context.Context, input InstallInput) (*models.Store, error) {
	domain := NormalizeDomain(input.ShopDomain)
	if domain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop domain required")
	}
	if strings.TrimSpace(input.AccessToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "access token required")
	}

	store := &models.Store{
		ShopDomain:  domain,
		Name:        domain,
		AccessToken: strings.TrimSpace(input.AccessToken),
		Installed:   true,
	}
	if err := s.repo.Install(ctx, store); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "install store")
	}
	return s.Resolve(ctx, domain)
}

// Resolve loads the store behind a shop domain.
func (s *service) Resolve(ctx context.Context, shopDomain string) (*models.Store, error) {
	domain := NormalizeDomain(shopDomain)
	if domain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop domain required")
	}
	store, err := s.repo.FindByDomain(ctx, domain)
	if err != nil {
		return nil, mapLookupError(err, "load store")
	}
	return store, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err, "load store")
	}
	return store, nil
}

func (s *service) MarkUninstalled(ctx context.Context, id uuid.UUID) error {
	return s.update(ctx, id, map[string]any{
		"installed":      false,
		"uninstalled_at": s.now().UTC(),
	}, "mark store uninstalled")
}

func (s *service) MarkInventoryFetched(ctx context.Context, id uuid.UUID) error {
	return s.update(ctx, id, map[string]any{"inventory_fetched": true}, "mark inventory fetched")
}

// RefreshProfile stores the shop name, currency and billing address. Empty
// values leave the current ones in place.
func (s *service) RefreshProfile(ctx context.Context, id uuid.UUID, profile Profile) error {
	updates := map[string]any{}
	if name := strings.TrimSpace(profile.Name); name != "" {
		updates["name"] = name
	}
	if currency := strings.ToUpper(strings.TrimSpace(profile.Currency)); currency != "" {
		updates["currency"] = currency
	}
	if profile.BillingAddress != nil {
		updates["billing_address"] = profile.BillingAddress
	}
	if len(updates) == 0 {
		return nil
	}
	return s.update(ctx, id, updates, "refresh store profile")
}

func (s *service) update(ctx context.Context, id uuid.UUID, updates map[string]any, action string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	if err := s.repo.UpdateColumns(ctx, id, updates); err != nil {
		return mapLookupError(err, action)
	}
	return nil
}

func mapLookupError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
