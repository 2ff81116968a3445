// Package reconcile merges checked shopping list entries into inventory.
package reconcile

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
)

// ActionKind tells the store how to apply an import.
type ActionKind string

const (
	// ActionMerge adds Quantity to an inventory item that already exists.
	ActionMerge ActionKind = "merge"
	// ActionCreate inserts Item as a new inventory item.
	ActionCreate ActionKind = "create"
)

// Action is the inventory-side effect of importing one shopping item.
type Action struct {
	Kind            ActionKind
	ShoppingItemID  uuid.UUID
	InventoryItemID uuid.UUID
	Quantity        int
	// Item holds the full row for ActionCreate and is zero for ActionMerge.
	Item model.InventoryItem
}

// Result is the outcome of ImportChecked.
type Result struct {
	Inventory   []model.InventoryItem
	ImportedIDs []uuid.UUID
	Actions     []Action
}

// IDFunc generates identifiers for new inventory items.
type IDFunc func() (uuid.UUID, error)

// Engine computes imports without touching any store.
type Engine struct {
	newID IDFunc
	now   func() time.Time
}

// NewEngine creates an engine using newID for created items and now for timestamps.
func NewEngine(newID IDFunc, now func() time.Time) *Engine {
	return &Engine{
		newID: newID,
		now:   now,
	}
}

// ImportChecked merges every checked item in shopping into a copy of inventory.
//
// Items whose identity key matches an inventory item increase that item's
// quantity and leave its other fields untouched. Items with no match become
// new inventory items with location and expiry date unset. When several
// inventory items share a key, the oldest one receives the merge. Unchecked
// items are ignored, so running again after the imported entries were removed
// from the shopping list changes nothing.
func (e *Engine) ImportChecked(shopping []model.ShoppingListItem, inventory []model.InventoryItem) (Result, error) {
	updated := make([]model.InventoryItem, len(inventory))
	copy(updated, inventory)

	index := make(map[model.IdentityKey]int, len(updated))
	for i, item := range updated {
		key := item.Key()
		if j, ok := index[key]; ok && !item.CreatedAt.Before(updated[j].CreatedAt) {
			continue
		}
		index[key] = i
	}

	res := Result{}

	for _, s := range shopping {
		if !s.Checked {
			continue
		}

		qty := model.ClampQuantity(s.Quantity)
		now := e.now()

		if i, ok := index[s.Key()]; ok {
			updated[i].Quantity = model.AddQuantity(updated[i].Quantity, qty)
			updated[i].UpdatedAt = now

			res.Actions = append(res.Actions, Action{
				Kind:            ActionMerge,
				ShoppingItemID:  s.ID,
				InventoryItemID: updated[i].ID,
				Quantity:        qty,
			})
			res.ImportedIDs = append(res.ImportedIDs, s.ID)
			continue
		}

		id, err := e.newID()
		if err != nil {
			return Result{}, fmt.Errorf("generate inventory item id: %w", err)
		}

		item := model.InventoryItem{
			ID:            id,
			OwnerID:       s.OwnerID,
			Name:          s.Name,
			Brand:         s.Brand,
			Category:      s.Category,
			Quantity:      qty,
			ManuallyAdded: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		updated = append(updated, item)
		index[item.Key()] = len(updated) - 1

		res.Actions = append(res.Actions, Action{
			Kind:            ActionCreate,
			ShoppingItemID:  s.ID,
			InventoryItemID: id,
			Quantity:        qty,
			Item:            item,
		})
		res.ImportedIDs = append(res.ImportedIDs, s.ID)
	}

	res.Inventory = updated
	return res, nil
}

// ClearChecked returns the ids of all checked items. It discards them
// without crediting inventory.
func ClearChecked(shopping []model.ShoppingListItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(shopping))
	for _, s := range shopping {
		if s.Checked {
			ids = append(ids, s.ID)
		}
	}
	return ids
}
