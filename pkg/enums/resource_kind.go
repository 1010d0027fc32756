package enums

import "fmt"

// ResourceKind names a paginated collection walked by the backfill.
type ResourceKind string

const (
	ResourceKindOrders         ResourceKind = "orders"
	ResourceKindInventoryItems ResourceKind = "inventory_items"
	ResourceKindFulfillments   ResourceKind = "fulfillments"
)

var validResourceKinds = []ResourceKind{
	ResourceKindOrders,
	ResourceKindInventoryItems,
	ResourceKindFulfillments,
}

func (r ResourceKind) IsValid() bool {
	for _, candidate := range validResourceKinds {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResourceKind converts the raw string to ResourceKind.
func ParseResourceKind(value string) (ResourceKind, error) {
	for _, candidate := range validResourceKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resource kind %q", value)
}
