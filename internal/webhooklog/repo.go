package webhooklog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/commercive/commerce-sync/internal/repo"
	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/pagination"
)

// Repository appends audit rows and pages through them newest first.
type Repository interface {
	Append(ctx context.Context, entry *models.WebhookLogEntry) error
	List(ctx context.Context, params ListParams) ([]models.WebhookLogEntry, *pagination.Cursor, error)
}

// ListParams filters the audit log of one store.
type ListParams struct {
	StoreID uuid.UUID
	Topic   string
	Limit   int
	Cursor  *pagination.Cursor
}

type repository struct {
	base repo.Base
}

// NewRepository builds a webhook log repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) Append(ctx context.Context, entry *models.WebhookLogEntry) error {
	if entry == nil {
		return fmt.Errorf("webhook log entry is required")
	}
	return r.base.DB(ctx).Create(entry).Error
}

// List returns at most Limit rows and the cursor of the last one when more remain.
func (r *repository) List(ctx context.Context, params ListParams) ([]models.WebhookLogEntry, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.base.DB(ctx).Model(&models.WebhookLogEntry{}).Where("store_id = ?", params.StoreID)
	if params.Topic != "" {
		query = query.Where("topic = ?", params.Topic)
	}
	if c := params.Cursor; c != nil {
		query = query.Where("received_at < ? OR (received_at = ? AND id < ?)", c.At, c.At, c.ID)
	}

	var entries []models.WebhookLogEntry
	if err := query.
		Order("received_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[limit-1]
		return entries, &pagination.Cursor{At: last.ReceivedAt, ID: last.ID}, nil
	}
	return entries, nil, nil
}
