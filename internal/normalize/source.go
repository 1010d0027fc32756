package normalize

import "github.com/commercive/commerce-sync/pkg/shopify"

// OrderSource is one of the order payload shapes: BulkOrder or WebhookOrder.
type OrderSource interface {
	orderSource()
}

// BulkOrder is an order node from a paginated GraphQL walk.
type BulkOrder struct {
	Node *shopify.OrderNode
}

// WebhookOrder is an orders/create or orders/updated webhook body.
type WebhookOrder struct {
	Payload *shopify.OrderPayload
}

func (BulkOrder) orderSource()    {}
func (WebhookOrder) orderSource() {}

// FulfillmentSource is one of BulkFulfillment or WebhookFulfillment.
type FulfillmentSource interface {
	fulfillmentSource()
}

// BulkFulfillment is a fulfilled order node with its fulfillments.
type BulkFulfillment struct {
	Node *shopify.FulfilledOrderNode
}

// WebhookFulfillment is a fulfillments/create or fulfillments/update body.
type WebhookFulfillment struct {
	Payload *shopify.FulfillmentPayload
}

func (BulkFulfillment) fulfillmentSource()    {}
func (WebhookFulfillment) fulfillmentSource() {}
