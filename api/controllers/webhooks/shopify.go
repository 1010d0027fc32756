package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/commercive/commerce-sync/api/responses"
	"github.com/commercive/commerce-sync/api/validators"
	shopifywebhook "github.com/commercive/commerce-sync/internal/webhooks/shopify"
	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/enums"
	pkgerrors "github.com/commercive/commerce-sync/pkg/errors"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/security"
)

const (
	headerShopDomain = "X-Shopify-Shop-Domain"
	headerTopic      = "X-Shopify-Topic"
	headerHMAC       = "X-Shopify-Hmac-Sha256"
	headerWebhookID  = "X-Shopify-Webhook-Id"
	headerEventID    = "X-Shopify-Event-Id"

	processedMessage = "Webhook processed successfully"
)

type ShopifyRouter interface {
	Handle(ctx context.Context, evt shopifywebhook.Event) shopifywebhook.Result
}

type storeResolver interface {
	Resolve(ctx context.Context, shopDomain string) (*models.Store, error)
}

// ShopifyOptions tunes the intake handler.
type ShopifyOptions struct {
	// Secret enables X-Shopify-Hmac-Sha256 verification when set.
	Secret          string
	MaxPayloadBytes int64
	// Timeout bounds the apply step, detached from the client connection.
	Timeout time.Duration
}

type webhookEnvelope struct {
	Topic   string          `json:"topic" validate:"required"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// ShopifyWebhook accepts one delivery. Only a missing or unknown shop, a bad
// signature or an unreadable envelope produce a 4xx; everything after the
// store is resolved answers 200.
func ShopifyWebhook(router ShopifyRouter, storesSvc storeResolver, opts ShopifyOptions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if router == nil || storesSvc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook router unavailable"))
			return
		}

		body := r.Body
		if opts.MaxPayloadBytes > 0 {
			body = http.MaxBytesReader(w, r.Body, opts.MaxPayloadBytes)
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payload too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		shop := validators.SanitizeString(r.Header.Get(headerShopDomain), 255)
		if shop == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing shop domain"))
			return
		}
		if logg != nil {
			ctx = logg.WithShopDomain(ctx, shop)
		}

		if opts.Secret != "" {
			if err := security.VerifyWebhook(raw, r.Header.Get(headerHMAC), opts.Secret); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "webhook signature rejected"))
				return
			}
		}

		store, err := storesSvc.Resolve(ctx, shop)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unknown shop"))
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		evt := shopifywebhook.Event{
			Store:      store,
			DeliveryID: deliveryID(r),
			ReceivedAt: time.Now().UTC(),
		}
		if topic := validators.SanitizeString(r.Header.Get(headerTopic), 128); topic != "" {
			evt.Topic = enums.NormalizeWebhookTopic(topic)
			evt.Payload = raw
		} else {
			var env webhookEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook envelope"))
				return
			}
			if err := validators.ValidateStruct(&env); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			evt.Topic = enums.NormalizeWebhookTopic(env.Topic)
			evt.Payload = env.Payload
		}

		applyCtx := context.WithoutCancel(ctx)
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			applyCtx, cancel = context.WithTimeout(applyCtx, opts.Timeout)
			defer cancel()
		}
		res := router.Handle(applyCtx, evt)

		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"topic":   string(evt.Topic),
				"outcome": string(res.Outcome),
			}), "shopify webhook handled")
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, processedMessage)
	}
}

func deliveryID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(headerWebhookID)); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get(headerEventID))
}
