package normalize

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercive/commerce-sync/pkg/shopify"
	"github.com/commercive/commerce-sync/pkg/types"
)

type fixedRates struct {
	rates map[string]string
	calls int
}

func (f *fixedRates) Reference() string { return "USD" }

func (f *fixedRates) Convert(_ context.Context, amount decimal.Decimal, from string) (decimal.Decimal, error) {
	f.calls++
	rate, ok := f.rates[from]
	if !ok {
		return amount, errors.New("rate unavailable")
	}
	return amount.Div(decimal.RequireFromString(rate)).Round(4), nil
}

const bulkOrderJSON = `{
  "id": "gid://shopify/Order/4501",
  "name": "#1106",
  "createdAt": "2025-03-01T10:00:00Z",
  "currencyCode": "EUR",
  "email": "buyer@example.com",
  "displayFinancialStatus": "PAID",
  "displayFulfillmentStatus": "UNFULFILLED",
  "tags": ["vip", "wholesale"],
  "subtotalPriceSet": {"shopMoney": {"amount": "40.00", "currencyCode": "EUR"}},
  "totalPriceSet": {"shopMoney": {"amount": "47.50", "currencyCode": "EUR"}},
  "totalTaxSet": {"shopMoney": {"amount": "4.00", "currencyCode": "EUR"}},
  "totalDiscountsSet": {"shopMoney": {"amount": "1.50", "currencyCode": "EUR"}},
  "totalShippingPriceSet": {"shopMoney": {"amount": "5.00", "currencyCode": "EUR"}},
  "shippingAddress": {"name": "Ada", "address1": "1 Main St", "city": "Berlin", "countryCodeV2": "DE"},
  "lineItems": {"edges": [{"node": {
    "id": "gid://shopify/LineItem/9001", "title": "Tee", "quantity": 2, "sku": "TEE-1", "vendor": "Acme",
    "originalUnitPriceSet": {"shopMoney": {"amount": "20.00", "currencyCode": "EUR"}},
    "variant": {"id": "gid://shopify/ProductVariant/301", "title": "Large"},
    "product": {"id": "gid://shopify/Product/201"}
  }}]}
}`

const webhookOrderJSON = `{
  "id": 4501,
  "name": "#1106",
  "order_number": 1106,
  "currency": "EUR",
  "subtotal_price": "40.00",
  "total_tax": "4.00",
  "total_discounts": "1.50",
  "total_price": "47.50",
  "total_shipping_price_set": {"shop_money": {"amount": "5.00", "currency_code": "EUR"}},
  "financial_status": "paid",
  "fulfillment_status": null,
  "tags": "vip, wholesale",
  "email": "buyer@example.com",
  "created_at": "2025-03-01T10:00:00Z",
  "shipping_address": {"name": "Ada", "address1": "1 Main St", "city": "Berlin", "country_code": "DE"},
  "line_items": [{
    "id": 9001, "product_id": 201, "variant_id": 301, "sku": "TEE-1", "title": "Tee",
    "variant_title": "Large", "vendor": "Acme", "quantity": 2, "price": "20.00",
    "discount_allocations": [{"amount": "1.50"}]
  }]
}`

func decodeBulkOrder(t *testing.T) *shopify.OrderNode {
	t.Helper()
	var node shopify.OrderNode
	require.NoError(t, json.Unmarshal([]byte(bulkOrderJSON), &node))
	return &node
}

func decodeWebhookOrder(t *testing.T) *shopify.OrderPayload {
	t.Helper()
	var payload shopify.OrderPayload
	require.NoError(t, json.Unmarshal([]byte(webhookOrderJSON), &payload))
	return &payload
}

func TestBulkAndWebhookOrdersNormalizeIdentically(t *testing.T) {
	storeID := uuid.New()
	n := New(&fixedRates{rates: map[string]string{"EUR": "0.8"}}, nil, nil)

	bulk := n.Order(context.Background(), BulkOrder{Node: decodeBulkOrder(t)}, storeID)
	hook := n.Order(context.Background(), WebhookOrder{Payload: decodeWebhookOrder(t)}, storeID)
	require.NotNil(t, bulk)
	require.NotNil(t, hook)

	b, w := bulk.Order, hook.Order
	assert.Equal(t, int64(4501), b.OrderID)
	assert.Equal(t, b.OrderID, w.OrderID)
	assert.Equal(t, "1106", b.OrderNumber)
	assert.Equal(t, b.OrderNumber, w.OrderNumber)
	assert.Equal(t, "EUR", b.Currency)
	assert.Equal(t, b.Currency, w.Currency)
	assert.Equal(t, "USD", w.ReferenceCurrency)

	pairs := map[string][2]decimal.Decimal{
		"subtotal":      {b.Subtotal, w.Subtotal},
		"subtotal_ref":  {b.SubtotalRef, w.SubtotalRef},
		"tax":           {b.Tax, w.Tax},
		"tax_ref":       {b.TaxRef, w.TaxRef},
		"discounts":     {b.Discounts, w.Discounts},
		"discounts_ref": {b.DiscountsRef, w.DiscountsRef},
		"shipping":      {b.Shipping, w.Shipping},
		"shipping_ref":  {b.ShippingRef, w.ShippingRef},
		"total":         {b.Total, w.Total},
	}
	for name, pair := range pairs {
		assert.True(t, pair[0].Equal(pair[1]), "%s: bulk=%s webhook=%s", name, pair[0], pair[1])
	}
	assert.True(t, w.SubtotalRef.Equal(decimal.RequireFromString("50")))

	assert.Equal(t, b.FinancialStatus, w.FinancialStatus)
	assert.Equal(t, "unfulfilled", b.FulfillmentStatus)
	assert.Equal(t, b.FulfillmentStatus, w.FulfillmentStatus)
	assert.Equal(t, b.Tags, w.Tags)
	assert.Equal(t, b.ShippingAddress, w.ShippingAddress)
	assert.Equal(t, b.LineItems, w.LineItems)

	require.Len(t, hook.LineItems, 1)
	line := hook.LineItems[0]
	assert.Equal(t, int64(4501), line.OrderID)
	assert.Equal(t, int64(201), line.ProductID)
	assert.Equal(t, int64(301), line.VariantID)
	assert.Equal(t, storeID, line.StoreID)
	assert.JSONEq(t, `[{"amount":"1.50"}]`, string(line.DiscountAllocations))
	assert.Equal(t, bulk.LineItems[0].ProductID, line.ProductID)
}

func TestOrderConversionFailureKeepsStoreAmount(t *testing.T) {
	n := New(&fixedRates{rates: map[string]string{}}, nil, nil)
	rec := n.Order(context.Background(), WebhookOrder{Payload: decodeWebhookOrder(t)}, uuid.New())
	require.NotNil(t, rec)

	assert.True(t, rec.Order.SubtotalRef.Equal(rec.Order.Subtotal))
	assert.True(t, rec.Order.ShippingRef.Equal(rec.Order.Shipping))
}

func TestOrderInReferenceCurrencySkipsLookup(t *testing.T) {
	rates := &fixedRates{}
	payload := decodeWebhookOrder(t)
	payload.Currency = "usd"

	rec := New(rates, nil, nil).Order(context.Background(), WebhookOrder{Payload: payload}, uuid.New())
	require.NotNil(t, rec)
	assert.Equal(t, 0, rates.calls)
	assert.Equal(t, "USD", rec.Order.Currency)
	assert.True(t, rec.Order.TaxRef.Equal(rec.Order.Tax))
}

func TestOrderWithoutIdentifierIsDropped(t *testing.T) {
	n := New(nil, nil, nil)
	assert.Nil(t, n.Order(context.Background(), WebhookOrder{Payload: &shopify.OrderPayload{Name: "#1"}}, uuid.New()))
	assert.Nil(t, n.Order(context.Background(), WebhookOrder{}, uuid.New()))
	assert.Nil(t, n.Order(context.Background(), BulkOrder{Node: &shopify.OrderNode{ID: "gid://shopify/Order/"}}, uuid.New()))
	assert.Nil(t, n.Order(context.Background(), nil, uuid.New()))
}

func TestWebhookFulfillmentNormalizes(t *testing.T) {
	var payload shopify.FulfillmentPayload
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 77, "order_id": 4501, "status": "success", "shipment_status": "in_transit",
		"tracking_company": "UPS", "tracking_number": "1Z999", "tracking_numbers": [],
		"tracking_url": "https://ups.example/1Z999",
		"destination": {"address1": "1 Main St", "city": "Berlin", "country_code": "DE"},
		"created_at": "2025-03-02T10:00:00Z"
	}`), &payload))

	storeID := uuid.New()
	origin := &types.Address{Address1: "9 Dock Rd", City: "Hamburg"}
	rec := Fulfillment(WebhookFulfillment{Payload: &payload}, storeID, origin)
	require.NotNil(t, rec)

	assert.Equal(t, int64(4501), rec.OrderID)
	assert.Equal(t, int64(77), rec.FulfillmentID)
	assert.Equal(t, "UPS", rec.Carrier)
	assert.Equal(t, types.StringList{"1Z999"}, rec.TrackingNumbers)
	assert.Equal(t, types.StringList{"https://ups.example/1Z999"}, rec.TrackingURLs)
	assert.Equal(t, "in_transit", rec.ShipmentStatus)
	assert.Equal(t, origin, rec.Origin)
	assert.Equal(t, storeID, rec.StoreID)
	require.NotNil(t, rec.Destination)
	assert.Equal(t, "Berlin", rec.Destination.City)

	assert.Nil(t, Fulfillment(WebhookFulfillment{Payload: &shopify.FulfillmentPayload{ID: 1}}, storeID, nil))
}

func TestBulkFulfillmentKeepsLatest(t *testing.T) {
	early := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(24 * time.Hour)
	node := &shopify.FulfilledOrderNode{
		ID: "gid://shopify/Order/4501",
		Fulfillments: []shopify.FulfillmentNode{
			{ID: "gid://shopify/Fulfillment/2", Status: "SUCCESS", UpdatedAt: &late,
				TrackingInfo: []shopify.TrackingInfo{{Number: "B-2", URL: "https://t/B-2", Company: "DHL"}}},
			{ID: "gid://shopify/Fulfillment/1", Status: "CANCELLED", UpdatedAt: &early,
				TrackingInfo: []shopify.TrackingInfo{{Number: "A-1", Company: "UPS"}}},
		},
	}

	rec := Fulfillment(BulkFulfillment{Node: node}, uuid.New(), nil)
	require.NotNil(t, rec)
	assert.Equal(t, int64(4501), rec.OrderID)
	assert.Equal(t, int64(2), rec.FulfillmentID)
	assert.Equal(t, "DHL", rec.Carrier)
	assert.Equal(t, "success", rec.Status)
	assert.Equal(t, types.StringList{"B-2"}, rec.TrackingNumbers)

	assert.Nil(t, Fulfillment(BulkFulfillment{Node: &shopify.FulfilledOrderNode{ID: "gid://shopify/Order/1"}}, uuid.New(), nil))
}

func TestInventoryNormalizesLevels(t *testing.T) {
	var node shopify.InventoryItemNode
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "gid://shopify/InventoryItem/42", "sku": "TEE-1", "tracked": true,
		"variant": {"id": "gid://shopify/ProductVariant/301", "title": "Large",
			"image": {"url": "https://img/variant.png"},
			"product": {"id": "gid://shopify/Product/201", "title": "Tee",
				"featuredMedia": {"preview": {"image": {"url": "https://img/product.png"}}}}},
		"inventoryLevels": {"edges": [
			{"node": {"location": {"id": "gid://shopify/Location/7", "name": "Main"},
				"quantities": [{"name": "available", "quantity": 0}, {"name": "on_hand", "quantity": 2}]}},
			{"node": {"location": {"id": "gid://shopify/Location/8", "name": "Overflow"},
				"quantities": [{"name": "available", "quantity": 3}]}}
		]}
	}`), &node))

	storeID := uuid.New()
	rec := Inventory(&node, storeID)
	require.NotNil(t, rec)
	assert.Equal(t, int64(42), rec.InventoryItemID)
	assert.Equal(t, int64(201), rec.ProductID)
	assert.Equal(t, int64(301), rec.VariantID)
	assert.Equal(t, "Tee", rec.ProductName)
	assert.Equal(t, "Large", rec.VariantName)
	assert.Equal(t, "https://img/product.png", rec.ProductImage)
	assert.True(t, rec.Tracked)
	require.Len(t, rec.Levels, 2)
	assert.Equal(t, int64(7), rec.Levels[0].LocationID)

	available, ok := rec.Levels.Available()
	assert.True(t, ok)
	assert.Equal(t, 3, available)

	assert.Nil(t, Inventory(nil, storeID))
	assert.Nil(t, Inventory(&shopify.InventoryItemNode{SKU: "x"}, storeID))
}
