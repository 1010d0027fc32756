package normalize

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/shopify"
	"github.com/commercive/commerce-sync/pkg/types"
)

// Fulfillment normalizes either fulfillment shape into the tracking row of its
// order. origin is the store address the shipment leaves from. It returns nil
// when the order cannot be identified or the bulk node has no fulfillment.
func Fulfillment(src FulfillmentSource, storeID uuid.UUID, origin *types.Address) *models.TrackingRecord {
	var rec *models.TrackingRecord
	switch s := src.(type) {
	case BulkFulfillment:
		rec = fromBulkFulfillment(s.Node)
	case WebhookFulfillment:
		rec = fromWebhookFulfillment(s.Payload)
	}
	if rec == nil {
		return nil
	}
	rec.StoreID = storeID
	rec.Origin = origin
	return rec
}

func fromWebhookFulfillment(p *shopify.FulfillmentPayload) *models.TrackingRecord {
	if p == nil || p.OrderID <= 0 {
		return nil
	}
	numbers := nonEmpty(p.TrackingNumbers)
	if len(numbers) == 0 {
		numbers = nonEmpty([]string{p.TrackingNumber})
	}
	urls := nonEmpty(p.TrackingURLs)
	if len(urls) == 0 {
		urls = nonEmpty([]string{p.TrackingURL})
	}
	return &models.TrackingRecord{
		OrderID:         p.OrderID,
		FulfillmentID:   p.ID,
		Carrier:         p.TrackingCompany,
		TrackingNumbers: numbers,
		TrackingURLs:    urls,
		Status:          strings.ToLower(p.Status),
		ShipmentStatus:  strings.ToLower(p.ShipmentStatus),
		Destination:     addressFromWebhook(p.Destination),
		ShippedAt:       p.CreatedAt,
	}
}

func fromBulkFulfillment(node *shopify.FulfilledOrderNode) *models.TrackingRecord {
	if node == nil {
		return nil
	}
	orderID, ok := shopify.IDFromGID(node.ID)
	if !ok {
		return nil
	}
	latest := latestFulfillment(node.Fulfillments)
	if latest == nil {
		return nil
	}

	rec := &models.TrackingRecord{
		OrderID:         orderID,
		Status:          strings.ToLower(latest.Status),
		ShipmentStatus:  strings.ToLower(latest.DisplayStatus),
		Destination:     addressFromGraph(node.ShippingAddress),
		ShippedAt:       latest.CreatedAt,
		TrackingNumbers: types.StringList{},
		TrackingURLs:    types.StringList{},
	}
	rec.FulfillmentID, _ = shopify.IDFromGID(latest.ID)
	for _, info := range latest.TrackingInfo {
		if rec.Carrier == "" {
			rec.Carrier = info.Company
		}
		if n := strings.TrimSpace(info.Number); n != "" {
			rec.TrackingNumbers = append(rec.TrackingNumbers, n)
		}
		if u := strings.TrimSpace(info.URL); u != "" {
			rec.TrackingURLs = append(rec.TrackingURLs, u)
		}
	}
	return rec
}

// latestFulfillment picks the most recently touched fulfillment; one tracking
// row is kept per order.
func latestFulfillment(list []shopify.FulfillmentNode) *shopify.FulfillmentNode {
	var latest *shopify.FulfillmentNode
	for i := range list {
		f := &list[i]
		if latest == nil || !touchedAt(f).Before(touchedAt(latest)) {
			latest = f
		}
	}
	return latest
}

func touchedAt(f *shopify.FulfillmentNode) time.Time {
	switch {
	case f.UpdatedAt != nil:
		return *f.UpdatedAt
	case f.CreatedAt != nil:
		return *f.CreatedAt
	}
	return time.Time{}
}

func nonEmpty(values []string) types.StringList {
	out := types.StringList{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
