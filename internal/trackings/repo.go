package trackings

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/internal/repo"
	"github.com/commercive/commerce-sync/pkg/db/models"
)

// Repository persists one tracking row per order.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, record *models.TrackingRecord) error
	UpsertAll(ctx context.Context, records []models.TrackingRecord) error
	FindByOrder(ctx context.Context, orderID int64) (*models.TrackingRecord, error)
}

var trackingConflict = repo.Conflict{
	Columns: []string{"order_id"},
	Updates: []string{
		"store_id", "fulfillment_id", "carrier", "tracking_numbers", "tracking_urls",
		"status", "shipment_status", "origin", "destination", "shipped_at", "updated_at",
	},
}

type repository struct {
	base repo.Base
}

// NewRepository builds a trackings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

// Upsert replaces the order's tracking row with record.
func (r *repository) Upsert(ctx context.Context, record *models.TrackingRecord) error {
	if record == nil {
		return fmt.Errorf("tracking record is required")
	}
	return r.base.Upsert(ctx, record, trackingConflict)
}

func (r *repository) UpsertAll(ctx context.Context, records []models.TrackingRecord) error {
	index := make(map[int64]int, len(records))
	unique := make([]models.TrackingRecord, 0, len(records))
	for _, rec := range records {
		if i, ok := index[rec.OrderID]; ok {
			unique[i] = rec
			continue
		}
		index[rec.OrderID] = len(unique)
		unique = append(unique, rec)
	}
	return repo.UpsertAll(ctx, r.base, unique, trackingConflict, func(rec models.TrackingRecord) string {
		return fmt.Sprintf("tracking of order %d", rec.OrderID)
	})
}

func (r *repository) FindByOrder(ctx context.Context, orderID int64) (*models.TrackingRecord, error) {
	var record models.TrackingRecord
	if err := r.base.DB(ctx).Where("order_id = ?", orderID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
