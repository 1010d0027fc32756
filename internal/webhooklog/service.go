package webhooklog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/enums"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/pagination"
	"github.com/commercive/commerce-sync/pkg/types"
)

// ListInput is the listing request as received from the admin API.
type ListInput struct {
	StoreID uuid.UUID
	Topic   string
	Limit   int
	Cursor  string
}

// ListResult carries one page of audit rows and the cursor of the next page.
type ListResult struct {
	Items  []EntryDTO `json:"items"`
	Cursor string     `json:"cursor,omitempty"`
}

// EntryDTO is the API view of an audit row.
type EntryDTO struct {
	ID         uuid.UUID      `json:"id"`
	Topic      string         `json:"topic"`
	WebhookID  string         `json:"webhook_id,omitempty"`
	ReceivedAt time.Time      `json:"received_at"`
	Payload    types.JSONBlob `json:"payload,omitempty"`
}

// Service exposes the audit log.
type Service interface {
	List(ctx context.Context, input ListInput) (*ListResult, error)
}

type service struct {
	repo Repository
}

// NewService builds the audit log service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "webhook log repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.StoreID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "store id required")
	}
	params := ListParams{StoreID: input.StoreID, Limit: input.Limit}
	if input.Topic != "" {
		topic, err := enums.ParseWebhookTopic(input.Topic)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid topic")
		}
		params.Topic = string(topic)
	}
	if input.Cursor != "" {
		cursor, err := pagination.ParseCursor(input.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list webhook log")
	}

	result := &ListResult{Items: make([]EntryDTO, 0, len(rows))}
	for _, row := range rows {
		result.Items = append(result.Items, toDTO(row))
	}
	if next != nil {
		result.Cursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func toDTO(row models.WebhookLogEntry) EntryDTO {
	return EntryDTO{
		ID:         row.ID,
		Topic:      row.Topic,
		WebhookID:  row.WebhookID,
		ReceivedAt: row.ReceivedAt,
		Payload:    row.Payload,
	}
}
