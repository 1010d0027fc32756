package normalize

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/logger"
	"github.com/commercive/commerce-sync/pkg/metrics"
	"github.com/commercive/commerce-sync/pkg/shopify"
	"github.com/commercive/commerce-sync/pkg/types"
)

// Converter converts store-currency amounts into the reference currency.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from string) (decimal.Decimal, error)
	Reference() string
}

// OrderRecords is a normalized order with the line item rows derived from it.
type OrderRecords struct {
	Order     models.Order
	LineItems []models.LineItem
}

// Normalizer turns platform payloads into canonical records.
type Normalizer struct {
	converter Converter
	logg      *logger.Logger
	metrics   *metrics.SyncMetrics
}

// New builds a Normalizer. logg and m may be nil.
func New(converter Converter, logg *logger.Logger, m *metrics.SyncMetrics) *Normalizer {
	return &Normalizer{converter: converter, logg: logg, metrics: m}
}

// orderFields is the shape-independent view of an order.
type orderFields struct {
	id                int64
	number            string
	currency          string
	subtotal          decimal.Decimal
	tax               decimal.Decimal
	discounts         decimal.Decimal
	shipping          decimal.Decimal
	total             decimal.Decimal
	financialStatus   string
	fulfillmentStatus string
	tags              string
	email             string
	placedAt          *time.Time
	updatedAt         *time.Time
	shippingAddress   *types.Address
	lines             []lineFields
}

type lineFields struct {
	id                  int64
	productID           int64
	variantID           int64
	sku                 string
	title               string
	variantTitle        string
	vendor              string
	quantity            int
	price               decimal.Decimal
	discountAllocations types.JSONBlob
}

// Order normalizes either order shape. It returns nil when the payload has no
// usable order identifier.
func (n *Normalizer) Order(ctx context.Context, src OrderSource, storeID uuid.UUID) *OrderRecords {
	var fields *orderFields
	switch s := src.(type) {
	case BulkOrder:
		fields = fromBulkOrder(s.Node)
	case WebhookOrder:
		fields = fromWebhookOrder(s.Payload)
	}
	if fields == nil {
		return nil
	}
	return n.build(ctx, fields, storeID)
}

func fromBulkOrder(node *shopify.OrderNode) *orderFields {
	if node == nil {
		return nil
	}
	id, ok := shopify.IDFromGID(node.ID)
	if !ok {
		return nil
	}
	f := &orderFields{
		id:                id,
		number:            strings.TrimPrefix(strings.TrimSpace(node.Name), "#"),
		currency:          node.CurrencyCode,
		subtotal:          shopify.AmountOf(node.SubtotalPriceSet),
		tax:               shopify.AmountOf(node.TotalTaxSet),
		discounts:         shopify.AmountOf(node.TotalDiscountsSet),
		shipping:          shopify.AmountOf(node.TotalShippingPriceSet),
		total:             shopify.AmountOf(node.TotalPriceSet),
		financialStatus:   strings.ToLower(node.DisplayFinancialStatus),
		fulfillmentStatus: fulfillmentStatus(node.DisplayFulfillmentStatus),
		tags:              strings.Join(node.Tags, ", "),
		email:             node.Email,
		placedAt:          node.CreatedAt,
		updatedAt:         node.UpdatedAt,
		shippingAddress:   addressFromGraph(node.ShippingAddress),
	}
	for _, item := range node.LineItems.Nodes() {
		lineID, ok := shopify.IDFromGID(item.ID)
		if !ok {
			continue
		}
		line := lineFields{
			id:       lineID,
			sku:      item.SKU,
			title:    item.Title,
			vendor:   item.Vendor,
			quantity: item.Quantity,
			price:    shopify.AmountOf(item.OriginalUnitPriceSet),
		}
		if item.Product != nil {
			line.productID, _ = shopify.IDFromGID(item.Product.ID)
		}
		if item.Variant != nil {
			line.variantID, _ = shopify.IDFromGID(item.Variant.ID)
			line.variantTitle = item.Variant.Title
		}
		if len(item.DiscountAllocations) > 0 {
			if raw, err := json.Marshal(item.DiscountAllocations); err == nil {
				line.discountAllocations = raw
			}
		}
		f.lines = append(f.lines, line)
	}
	return f
}

func fromWebhookOrder(p *shopify.OrderPayload) *orderFields {
	if p == nil || p.ID <= 0 {
		return nil
	}
	number := strings.TrimPrefix(strings.TrimSpace(p.Name), "#")
	if number == "" && p.OrderNumber > 0 {
		number = strconv.FormatInt(p.OrderNumber, 10)
	}
	f := &orderFields{
		id:                p.ID,
		number:            number,
		currency:          p.Currency,
		subtotal:          p.SubtotalPrice,
		tax:               p.TotalTax,
		discounts:         p.TotalDiscounts,
		total:             p.TotalPrice,
		financialStatus:   strings.ToLower(p.FinancialStatus),
		fulfillmentStatus: fulfillmentStatus(p.FulfillmentStatus),
		tags:              p.Tags,
		email:             p.Email,
		placedAt:          p.CreatedAt,
		updatedAt:         p.UpdatedAt,
		shippingAddress:   addressFromWebhook(p.ShippingAddress),
	}
	if p.TotalShippingPriceSet != nil {
		f.shipping = p.TotalShippingPriceSet.ShopMoney.Amount
	}
	for _, item := range p.LineItems {
		if item.ID <= 0 {
			continue
		}
		line := lineFields{
			id:           item.ID,
			sku:          item.SKU,
			title:        item.Title,
			variantTitle: item.VariantTitle,
			vendor:       item.Vendor,
			quantity:     item.Quantity,
			price:        item.Price,
		}
		if item.ProductID != nil {
			line.productID = *item.ProductID
		}
		if item.VariantID != nil {
			line.variantID = *item.VariantID
		}
		if len(item.DiscountAllocations) > 0 && string(item.DiscountAllocations) != "null" {
			line.discountAllocations = types.JSONBlob(item.DiscountAllocations)
		}
		f.lines = append(f.lines, line)
	}
	return f
}

// fulfillmentStatus maps both the GraphQL display enum and the REST value
// onto the REST vocabulary. A missing status means nothing shipped yet.
func fulfillmentStatus(raw string) string {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "":
		return "unfulfilled"
	case "partially_fulfilled":
		return "partial"
	default:
		return v
	}
}

func (n *Normalizer) build(ctx context.Context, f *orderFields, storeID uuid.UUID) *OrderRecords {
	currency := strings.ToUpper(strings.TrimSpace(f.currency))
	reference := currency
	if n.converter != nil {
		reference = n.converter.Reference()
	}

	order := models.Order{
		OrderID:           f.id,
		StoreID:           storeID,
		OrderNumber:       f.number,
		Currency:          currency,
		ReferenceCurrency: reference,
		Subtotal:          f.subtotal,
		Tax:               f.tax,
		Discounts:         f.discounts,
		Shipping:          f.shipping,
		Total:             f.total,
		FinancialStatus:   f.financialStatus,
		FulfillmentStatus: f.fulfillmentStatus,
		ShippingAddress:   f.shippingAddress,
		Tags:              f.tags,
		CustomerEmail:     f.email,
		PlacedAt:          f.placedAt,
		SourceUpdatedAt:   f.updatedAt,
		LineItems:         make(types.LineItemSnapshots, 0, len(f.lines)),
	}
	order.SubtotalRef = n.convert(ctx, f.subtotal, currency, f.id)
	order.TaxRef = n.convert(ctx, f.tax, currency, f.id)
	order.DiscountsRef = n.convert(ctx, f.discounts, currency, f.id)
	order.ShippingRef = n.convert(ctx, f.shipping, currency, f.id)

	lines := make([]models.LineItem, 0, len(f.lines))
	for _, l := range f.lines {
		order.LineItems = append(order.LineItems, types.LineItemSnapshot{
			LineItemID:   l.id,
			ProductID:    l.productID,
			VariantID:    l.variantID,
			SKU:          l.sku,
			Title:        l.title,
			VariantTitle: l.variantTitle,
			Quantity:     l.quantity,
			Price:        l.price,
		})
		lines = append(lines, models.LineItem{
			OrderID:             f.id,
			ProductID:           l.productID,
			StoreID:             storeID,
			LineItemID:          l.id,
			VariantID:           l.variantID,
			SKU:                 l.sku,
			Title:               l.title,
			Vendor:              l.vendor,
			Quantity:            l.quantity,
			Price:               l.price,
			DiscountAllocations: l.discountAllocations,
		})
	}
	return &OrderRecords{Order: order, LineItems: lines}
}

// convert falls back to the original amount when no rate can be found.
func (n *Normalizer) convert(ctx context.Context, amount decimal.Decimal, currency string, orderID int64) decimal.Decimal {
	if n.converter == nil || currency == "" || currency == n.converter.Reference() {
		return amount
	}
	converted, err := n.converter.Convert(ctx, amount, currency)
	if err != nil {
		n.metrics.IncFailure(metrics.FailureTransport)
		if n.logg != nil {
			warnCtx := n.logg.WithFields(ctx, map[string]any{
				"order_id":      orderID,
				"currency":      currency,
				"failure_class": metrics.FailureTransport,
				"error":         err.Error(),
			})
			n.logg.Warn(warnCtx, "currency conversion unavailable, keeping store amount")
		}
		return amount
	}
	return converted
}
