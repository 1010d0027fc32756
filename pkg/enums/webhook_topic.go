package enums

import (
	"fmt"
	"strings"
)

// WebhookTopic enumerates the platform event topics the router understands.
type WebhookTopic string

const (
	WebhookTopicFulfillmentsCreate        WebhookTopic = "FULFILLMENTS_CREATE"
	WebhookTopicFulfillmentsUpdate        WebhookTopic = "FULFILLMENTS_UPDATE"
	WebhookTopicOrdersCreate              WebhookTopic = "ORDERS_CREATE"
	WebhookTopicOrdersUpdated             WebhookTopic = "ORDERS_UPDATED"
	WebhookTopicInventoryLevelsUpdate     WebhookTopic = "INVENTORY_LEVELS_UPDATE"
	WebhookTopicInventoryLevelsConnect    WebhookTopic = "INVENTORY_LEVELS_CONNECT"
	WebhookTopicInventoryLevelsDisconnect WebhookTopic = "INVENTORY_LEVELS_DISCONNECT"
	WebhookTopicInventoryItemsCreate      WebhookTopic = "INVENTORY_ITEMS_CREATE"
	WebhookTopicInventoryItemsUpdate      WebhookTopic = "INVENTORY_ITEMS_UPDATE"
	WebhookTopicInventoryItemsDelete      WebhookTopic = "INVENTORY_ITEMS_DELETE"
	WebhookTopicProductsCreate            WebhookTopic = "PRODUCTS_CREATE"
	WebhookTopicProductsUpdate            WebhookTopic = "PRODUCTS_UPDATE"
	WebhookTopicProductsDelete            WebhookTopic = "PRODUCTS_DELETE"
	WebhookTopicAppUninstalled            WebhookTopic = "APP_UNINSTALLED"
)

var validWebhookTopics = []WebhookTopic{
	WebhookTopicFulfillmentsCreate,
	WebhookTopicFulfillmentsUpdate,
	WebhookTopicOrdersCreate,
	WebhookTopicOrdersUpdated,
	WebhookTopicInventoryLevelsUpdate,
	WebhookTopicInventoryLevelsConnect,
	WebhookTopicInventoryLevelsDisconnect,
	WebhookTopicInventoryItemsCreate,
	WebhookTopicInventoryItemsUpdate,
	WebhookTopicInventoryItemsDelete,
	WebhookTopicProductsCreate,
	WebhookTopicProductsUpdate,
	WebhookTopicProductsDelete,
	WebhookTopicAppUninstalled,
}

// IsValid reports whether the topic is one the router dispatches.
func (t WebhookTopic) IsValid() bool {
	for _, candidate := range validWebhookTopics {
		if candidate == t {
			return true
		}
	}
	return false
}

// WebhookTopics returns every known topic.
func WebhookTopics() []WebhookTopic {
	out := make([]WebhookTopic, len(validWebhookTopics))
	copy(out, validWebhookTopics)
	return out
}

// NormalizeWebhookTopic converts either the enum form ("ORDERS_CREATE") or the
// delivery header form ("orders/create") into a WebhookTopic. Unknown topics are
// returned as-is so the router can log and skip them.
func NormalizeWebhookTopic(raw string) WebhookTopic {
	value := strings.TrimSpace(raw)
	value = strings.ReplaceAll(value, "/", "_")
	return WebhookTopic(strings.ToUpper(value))
}

// ParseWebhookTopic converts the raw string to a known WebhookTopic.
func ParseWebhookTopic(value string) (WebhookTopic, error) {
	topic := NormalizeWebhookTopic(value)
	if !topic.IsValid() {
		return "", fmt.Errorf("invalid webhook topic %q", value)
	}
	return topic, nil
}
