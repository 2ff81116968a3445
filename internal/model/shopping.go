package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ShoppingSource records how a shopping list entry was created.
type ShoppingSource string

const (
	ShoppingSourceManual    ShoppingSource = "manual"
	ShoppingSourceSuggested ShoppingSource = "suggested"
)

func (s ShoppingSource) Validate() error {
	switch s {
	case ShoppingSourceManual, ShoppingSourceSuggested:
		return nil
	default:
		return fmt.Errorf("unknown shopping source: %q", string(s))
	}
}

// ShoppingListItem is a product the owner intends to acquire.
type ShoppingListItem struct {
	ID              uuid.UUID      `json:"id"`
	OwnerID         string         `json:"-"`
	Name            string         `json:"name"`
	Brand           string         `json:"brand,omitempty"`
	Category        string         `json:"category,omitempty"`
	Quantity        int            `json:"quantity"`
	Notes           string         `json:"notes,omitempty"`
	Checked         bool           `json:"checked"`
	CheckedAt       *time.Time     `json:"checked_at,omitempty"`
	Source          ShoppingSource `json:"source"`
	InventoryItemID *uuid.UUID     `json:"inventory_item_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Key returns the identity key of the item.
func (s ShoppingListItem) Key() IdentityKey {
	return KeyOf(s.Name, s.Brand, s.Category)
}
