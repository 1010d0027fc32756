package normalize

import (
	"github.com/google/uuid"

	"github.com/commercive/commerce-sync/pkg/db/models"
	"github.com/commercive/commerce-sync/pkg/shopify"
	"github.com/commercive/commerce-sync/pkg/types"
)

// Inventory normalizes an inventory item node, from a bulk page or a single
// item lookup, into an inventory row. It returns nil without an item id.
func Inventory(node *shopify.InventoryItemNode, storeID uuid.UUID) *models.InventoryRecord {
	if node == nil {
		return nil
	}
	itemID, ok := shopify.IDFromGID(node.ID)
	if !ok {
		return nil
	}

	rec := &models.InventoryRecord{
		InventoryItemID: itemID,
		StoreID:         storeID,
		SKU:             node.SKU,
		Tracked:         node.Tracked,
		Levels:          make(types.InventoryLevels, 0, len(node.InventoryLevels.Edges)),
	}
	if v := node.Variant; v != nil {
		rec.VariantID, _ = shopify.IDFromGID(v.ID)
		rec.VariantName = v.Title
		rec.ProductImage = v.ImageURL()
		if v.Product != nil {
			rec.ProductID, _ = shopify.IDFromGID(v.Product.ID)
			rec.ProductName = v.Product.Title
		}
	}

	for _, level := range node.InventoryLevels.Nodes() {
		entry := types.InventoryLevel{Quantities: make(map[string]int, len(level.Quantities))}
		if level.Location != nil {
			entry.LocationID, _ = shopify.IDFromGID(level.Location.ID)
			entry.LocationName = level.Location.Name
		}
		for _, q := range level.Quantities {
			entry.Quantities[q.Name] = q.Quantity
		}
		rec.Levels = append(rec.Levels, entry)
	}
	return rec
}
