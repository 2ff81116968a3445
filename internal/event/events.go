package event

const (
	TopicInventoryCreated  = "pantry.inventory.created"
	TopicInventoryImported = "pantry.inventory.imported"
	TopicShoppingSuggested = "pantry.shopping.suggested"
)

// InventoryCreatedEvent is published when an item is added to inventory directly.
type InventoryCreatedEvent struct {
	OwnerID         string `json:"owner_id"`
	InventoryItemID string `json:"inventory_item_id"`
	Name            string `json:"name"`
	Barcode         string `json:"barcode,omitempty"`
	Quantity        int    `json:"quantity"`
	// Enriched reports whether barcode resolution supplied metadata.
	Enriched bool `json:"enriched"`
}

// InventoryImportedEvent is published for every shopping item reconciled into inventory.
type InventoryImportedEvent struct {
	OwnerID         string `json:"owner_id"`
	ShoppingItemID  string `json:"shopping_item_id"`
	InventoryItemID string `json:"inventory_item_id"`
	// Action is "merge" or "create".
	Action   string `json:"action"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ShoppingSuggestedEvent is published once per low stock run that produced suggestions.
type ShoppingSuggestedEvent struct {
	OwnerID         string   `json:"owner_id"`
	ShoppingItemIDs []string `json:"shopping_item_ids"`
}
