package types

import (
	"database/sql/driver"

	"github.com/shopspring/decimal"
)

// Quantity names reported per inventory location.
const (
	QuantityAvailable = "available"
	QuantityCommitted = "committed"
	QuantityIncoming  = "incoming"
	QuantityOnHand    = "on_hand"
	QuantityReserved  = "reserved"
)

// QuantityNames lists the quantity names requested from the platform.
var QuantityNames = []string{
	QuantityAvailable,
	QuantityCommitted,
	QuantityIncoming,
	QuantityOnHand,
	QuantityReserved,
}

// LineItemSnapshot is the denormalized copy of a line item kept on the order row.
type LineItemSnapshot struct {
	LineItemID   int64           `json:"line_item_id"`
	ProductID    int64           `json:"product_id,omitempty"`
	VariantID    int64           `json:"variant_id,omitempty"`
	SKU          string          `json:"sku,omitempty"`
	Title        string          `json:"title,omitempty"`
	VariantTitle string          `json:"variant_title,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

// LineItemSnapshots is persisted as a JSON array.
type LineItemSnapshots []LineItemSnapshot

func (l LineItemSnapshots) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]LineItemSnapshot(l))
}

func (l *LineItemSnapshots) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var out []LineItemSnapshot
	if err := scanJSON(value, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// InventoryLevel holds the named quantities of one item at one location.
type InventoryLevel struct {
	LocationID   int64          `json:"location_id,omitempty"`
	LocationName string         `json:"location_name,omitempty"`
	Quantities   map[string]int `json:"quantities"`
}

// InventoryLevels is persisted as a JSON array.
type InventoryLevels []InventoryLevel

func (l InventoryLevels) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return jsonValue([]InventoryLevel(l))
}

func (l *InventoryLevels) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	var out []InventoryLevel
	if err := scanJSON(value, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Available sums the "available" quantity across every location. The boolean
// is false when no location reports an available quantity at all.
func (l InventoryLevels) Available() (int, bool) {
	total := 0
	found := false
	for _, level := range l {
		qty, ok := level.Quantities[QuantityAvailable]
		if !ok {
			continue
		}
		total += qty
		found = true
	}
	return total, found
}

// StringList is a JSON encoded list of strings.
type StringList []string

func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonValue([]string(s))
}

func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var out []string
	if err := scanJSON(value, &out); err != nil {
		return err
	}
	*s = out
	return nil
}
