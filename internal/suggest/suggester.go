// Package suggest proposes shopping list entries for inventory running low.
package suggest

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
	"github.com/tuanvumaihuynh/pantry-sync/internal/expiry"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
)

// Policy controls which items qualify and how much is suggested.
type Policy struct {
	// Threshold is the quantity at or below which an item qualifies.
	Threshold int
	// TargetStock is the level a suggestion replenishes to.
	TargetStock int
	// IncludeExpiring also suggests items expiring within ExpiringDays.
	IncludeExpiring bool
	ExpiringDays    int
}

// PolicyFromConfig builds a Policy from the Suggest config section.
func PolicyFromConfig(cfg config.Suggest) Policy {
	return Policy{
		Threshold:       cfg.LowStockThreshold,
		TargetStock:     cfg.TargetStock,
		IncludeExpiring: cfg.IncludeExpiring,
		ExpiringDays:    cfg.ExpiringDays,
	}
}

// Replenish returns how many units to buy for an item holding quantity.
func (p Policy) Replenish(quantity int) int {
	return model.ClampQuantity(p.TargetStock - quantity)
}

// Override adjusts a policy for a single run.
type Override struct {
	Threshold *int
}

// Suggester builds suggestions without mutating inventory or touching a store.
type Suggester struct {
	policy Policy
	newID  func() (uuid.UUID, error)
	now    func() time.Time
}

// New creates a suggester.
func New(policy Policy, newID func() (uuid.UUID, error), now func() time.Time) *Suggester {
	return &Suggester{
		policy: policy,
		newID:  newID,
		now:    now,
	}
}

// Policy returns the default policy of the suggester.
func (s *Suggester) Policy() Policy {
	return s.policy
}

// Suggest returns a new unchecked suggestion for every qualifying inventory
// item whose identity key is not already on the shopping list, checked or not.
// At most one suggestion is produced per identity key.
func (s *Suggester) Suggest(
	inventory []model.InventoryItem,
	shopping []model.ShoppingListItem,
	today model.Date,
	override Override,
) ([]model.ShoppingListItem, error) {
	policy := s.policy
	if override.Threshold != nil {
		policy.Threshold = *override.Threshold
	}

	listed := make(map[model.IdentityKey]struct{}, len(shopping))
	for _, item := range shopping {
		listed[item.Key()] = struct{}{}
	}

	suggestions := make([]model.ShoppingListItem, 0)
	for _, item := range inventory {
		reason, ok := qualifies(policy, item, today)
		if !ok {
			continue
		}

		key := item.Key()
		if _, exists := listed[key]; exists {
			continue
		}

		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate shopping item id: %w", err)
		}

		now := s.now()
		inventoryID := item.ID
		suggestions = append(suggestions, model.ShoppingListItem{
			ID:              id,
			OwnerID:         item.OwnerID,
			Name:            item.Name,
			Brand:           item.Brand,
			Category:        item.Category,
			Quantity:        policy.Replenish(item.Quantity),
			Notes:           note(reason, item.Location),
			Checked:         false,
			Source:          model.ShoppingSourceSuggested,
			InventoryItemID: &inventoryID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		listed[key] = struct{}{}
	}

	return suggestions, nil
}

type reason string

const (
	reasonLowStock reason = "Low stock"
	reasonExpiring reason = "Expiring soon"
)

func qualifies(p Policy, item model.InventoryItem, today model.Date) (reason, bool) {
	if item.Quantity <= p.Threshold {
		return reasonLowStock, true
	}

	if p.IncludeExpiring {
		if c, ok := expiry.Classify(item.ExpiryDate, today); ok && c.DaysRemaining <= p.ExpiringDays {
			return reasonExpiring, true
		}
	}

	return "", false
}

func note(r reason, location string) string {
	if location == "" {
		return string(r)
	}
	return fmt.Sprintf("%s: %s", r, location)
}
