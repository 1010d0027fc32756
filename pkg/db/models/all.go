package models

// All returns every model owned by the sync engine, in dependency order.
func All() []any {
	return []any{
		&Store{},
		&Order{},
		&LineItem{},
		&InventoryRecord{},
		&TrackingRecord{},
		&WebhookLogEntry{},
		&BackorderApplication{},
	}
}
