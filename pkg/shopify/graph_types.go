package shopify

import (
	"time"

	"github.com/shopspring/decimal"
)

// Connection is the edges/pageInfo envelope of a paginated GraphQL field.
type Connection[T any] struct {
	Edges    []Edge[T] `json:"edges"`
	PageInfo *PageInfo `json:"pageInfo"`
}

type Edge[T any] struct {
	Node T `json:"node"`
}

type PageInfo struct {
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor"`
}

// Nodes flattens the edges of the connection.
func (c Connection[T]) Nodes() []T {
	out := make([]T, 0, len(c.Edges))
	for _, edge := range c.Edges {
		out = append(out, edge.Node)
	}
	return out
}

type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type MoneyBag struct {
	ShopMoney Money `json:"shopMoney"`
}

// AmountOf returns the shop money amount, zero when the bag is absent.
func AmountOf(bag *MoneyBag) decimal.Decimal {
	if bag == nil {
		return decimal.Zero
	}
	return bag.ShopMoney.Amount
}

type MailingAddress struct {
	Name          string `json:"name"`
	Company       string `json:"company"`
	Address1      string `json:"address1"`
	Address2      string `json:"address2"`
	City          string `json:"city"`
	Province      string `json:"province"`
	ProvinceCode  string `json:"provinceCode"`
	Country       string `json:"country"`
	CountryCodeV2 string `json:"countryCodeV2"`
	Zip           string `json:"zip"`
	Phone         string `json:"phone"`
}

// OrderNode is an order as returned by the orders query.
type OrderNode struct {
	ID                       string                   `json:"id"`
	Name                     string                   `json:"name"`
	CreatedAt                *time.Time               `json:"createdAt"`
	UpdatedAt                *time.Time               `json:"updatedAt"`
	CurrencyCode             string                   `json:"currencyCode"`
	Email                    string                   `json:"email"`
	DisplayFinancialStatus   string                   `json:"displayFinancialStatus"`
	DisplayFulfillmentStatus string                   `json:"displayFulfillmentStatus"`
	Tags                     []string                 `json:"tags"`
	SubtotalPriceSet         *MoneyBag                `json:"subtotalPriceSet"`
	TotalPriceSet            *MoneyBag                `json:"totalPriceSet"`
	TotalTaxSet              *MoneyBag                `json:"totalTaxSet"`
	TotalDiscountsSet        *MoneyBag                `json:"totalDiscountsSet"`
	TotalShippingPriceSet    *MoneyBag                `json:"totalShippingPriceSet"`
	LineItems                Connection[LineItemNode] `json:"lineItems"`
	ShippingAddress          *MailingAddress          `json:"shippingAddress"`
}

type LineItemNode struct {
	ID                   string               `json:"id"`
	Title                string               `json:"title"`
	Quantity             int                  `json:"quantity"`
	SKU                  string               `json:"sku"`
	Vendor               string               `json:"vendor"`
	OriginalUnitPriceSet *MoneyBag            `json:"originalUnitPriceSet"`
	DiscountAllocations  []DiscountAllocation `json:"discountAllocations"`
	Variant              *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"variant"`
	Product *struct {
		ID string `json:"id"`
	} `json:"product"`
}

type DiscountAllocation struct {
	AllocatedAmountSet *MoneyBag `json:"allocatedAmountSet"`
}

// FulfilledOrderNode is an order with its fulfillments, from the fulfillments query.
type FulfilledOrderNode struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	ShippingAddress *MailingAddress   `json:"shippingAddress"`
	Fulfillments    []FulfillmentNode `json:"fulfillments"`
}

type FulfillmentNode struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	DisplayStatus string         `json:"displayStatus"`
	TrackingInfo  []TrackingInfo `json:"trackingInfo"`
	CreatedAt     *time.Time     `json:"createdAt"`
	UpdatedAt     *time.Time     `json:"updatedAt"`
}

type TrackingInfo struct {
	Number  string `json:"number"`
	URL     string `json:"url"`
	Company string `json:"company"`
}

// InventoryItemNode is an inventory item with its per-location levels.
type InventoryItemNode struct {
	ID              string                         `json:"id"`
	SKU             string                         `json:"sku"`
	Tracked         bool                           `json:"tracked"`
	Variant         *VariantNode                   `json:"variant"`
	InventoryLevels Connection[InventoryLevelNode] `json:"inventoryLevels"`
}

type VariantNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image *struct {
		URL string `json:"url"`
	} `json:"image"`
	Product *ProductNode `json:"product"`
}

type ProductNode struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	FeaturedMedia *struct {
		Preview *struct {
			Image *struct {
				URL string `json:"url"`
			} `json:"image"`
		} `json:"preview"`
	} `json:"featuredMedia"`
}

// ImageURL prefers the product's featured media and falls back to the variant image.
func (v *VariantNode) ImageURL() string {
	if v == nil {
		return ""
	}
	if p := v.Product; p != nil && p.FeaturedMedia != nil && p.FeaturedMedia.Preview != nil && p.FeaturedMedia.Preview.Image != nil {
		return p.FeaturedMedia.Preview.Image.URL
	}
	if v.Image != nil {
		return v.Image.URL
	}
	return ""
}

type InventoryLevelNode struct {
	Location *struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"location"`
	Quantities []struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
	} `json:"quantities"`
}

// Shop is the store profile used to refresh the local store row.
type Shop struct {
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	CurrencyCode    string          `json:"currencyCode"`
	MyshopifyDomain string          `json:"myshopifyDomain"`
	BillingAddress  *MailingAddress `json:"billingAddress"`
}
