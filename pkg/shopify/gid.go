package shopify

import (
	"fmt"
	"strconv"
	"strings"
)

// Global id kinds used when addressing single resources.
const (
	KindOrder         = "Order"
	KindInventoryItem = "InventoryItem"
	KindLocation      = "Location"
	KindProduct       = "Product"
	KindVariant       = "ProductVariant"
	KindLineItem      = "LineItem"
	KindFulfillment   = "Fulfillment"
)

// GID builds a global id such as gid://shopify/InventoryItem/123.
func GID(kind string, id int64) string {
	return fmt.Sprintf("gid://shopify/%s/%d", kind, id)
}

// IDFromGID extracts the trailing numeric id of a global id. Query parameters
// are ignored. It returns false for anything that does not end in a number.
func IDFromGID(gid string) (int64, bool) {
	gid = strings.TrimSpace(gid)
	if gid == "" {
		return 0, false
	}
	if i := strings.IndexByte(gid, '?'); i >= 0 {
		gid = gid[:i]
	}
	tail := gid[strings.LastIndexByte(gid, '/')+1:]
	id, err := strconv.ParseInt(tail, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
