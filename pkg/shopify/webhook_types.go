package shopify

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Webhook bodies use the REST representation: integer ids, snake_case keys and
// money as decimal strings.

type AddressPayload struct {
	Name         string `json:"name"`
	Company      string `json:"company"`
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	Province     string `json:"province"`
	ProvinceCode string `json:"province_code"`
	Country      string `json:"country"`
	CountryCode  string `json:"country_code"`
	Zip          string `json:"zip"`
	Phone        string `json:"phone"`
}

type PriceSetPayload struct {
	ShopMoney struct {
		Amount       decimal.Decimal `json:"amount"`
		CurrencyCode string          `json:"currency_code"`
	} `json:"shop_money"`
}

type OrderPayload struct {
	ID                    int64                  `json:"id"`
	Name                  string                 `json:"name"`
	OrderNumber           int64                  `json:"order_number"`
	Currency              string                 `json:"currency"`
	SubtotalPrice         decimal.Decimal        `json:"subtotal_price"`
	TotalTax              decimal.Decimal        `json:"total_tax"`
	TotalDiscounts        decimal.Decimal        `json:"total_discounts"`
	TotalPrice            decimal.Decimal        `json:"total_price"`
	TotalShippingPriceSet *PriceSetPayload       `json:"total_shipping_price_set"`
	FinancialStatus       string                 `json:"financial_status"`
	FulfillmentStatus     string                 `json:"fulfillment_status"`
	Tags                  string                 `json:"tags"`
	Email                 string                 `json:"email"`
	CreatedAt             *time.Time             `json:"created_at"`
	UpdatedAt             *time.Time             `json:"updated_at"`
	ShippingAddress       *AddressPayload        `json:"shipping_address"`
	LineItems             []OrderLineItemPayload `json:"line_items"`
}

type OrderLineItemPayload struct {
	ID                  int64           `json:"id"`
	ProductID           *int64          `json:"product_id"`
	VariantID           *int64          `json:"variant_id"`
	SKU                 string          `json:"sku"`
	Title               string          `json:"title"`
	VariantTitle        string          `json:"variant_title"`
	Vendor              string          `json:"vendor"`
	Quantity            int             `json:"quantity"`
	Price               decimal.Decimal `json:"price"`
	DiscountAllocations json.RawMessage `json:"discount_allocations"`
}

type FulfillmentPayload struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	Status          string          `json:"status"`
	ShipmentStatus  string          `json:"shipment_status"`
	TrackingCompany string          `json:"tracking_company"`
	TrackingNumber  string          `json:"tracking_number"`
	TrackingNumbers []string        `json:"tracking_numbers"`
	TrackingURL     string          `json:"tracking_url"`
	TrackingURLs    []string        `json:"tracking_urls"`
	Destination     *AddressPayload `json:"destination"`
	CreatedAt       *time.Time      `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at"`
}

// InventoryLevelPayload is partial: the full item has to be fetched.
type InventoryLevelPayload struct {
	InventoryItemID int64      `json:"inventory_item_id"`
	LocationID      int64      `json:"location_id"`
	Available       *int       `json:"available"`
	UpdatedAt       *time.Time `json:"updated_at"`
}

type InventoryItemPayload struct {
	ID      int64  `json:"id"`
	SKU     string `json:"sku"`
	Tracked bool   `json:"tracked"`
}

type ProductPayload struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Variants []VariantPayload `json:"variants"`
}

type VariantPayload struct {
	ID              int64  `json:"id"`
	ProductID       int64  `json:"product_id"`
	InventoryItemID int64  `json:"inventory_item_id"`
	Title           string `json:"title"`
	SKU             string `json:"sku"`
}

// DeletePayload is the body of every */delete topic.
type DeletePayload struct {
	ID int64 `json:"id"`
}
