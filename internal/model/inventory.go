package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// InventoryItem is a product physically on hand for an owner.
// Optional string fields are empty when unset.
type InventoryItem struct {
	ID            uuid.UUID `json:"id"`
	OwnerID       string    `json:"-"`
	Name          string    `json:"name"`
	Brand         string    `json:"brand,omitempty"`
	Category      string    `json:"category,omitempty"`
	Location      string    `json:"location,omitempty"`
	Quantity      int       `json:"quantity"`
	ExpiryDate    *Date     `json:"expiry_date,omitempty"`
	Barcode       string    `json:"barcode,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	ManuallyAdded bool      `json:"manually_added"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Key returns the identity key of the item.
func (i InventoryItem) Key() IdentityKey {
	return KeyOf(i.Name, i.Brand, i.Category)
}

const (
	// MinQuantity is the smallest quantity a stored item may hold.
	MinQuantity = 1
	// MaxQuantity is the largest quantity a stored item may hold. It also
	// bounds a single adjustment delta.
	MaxQuantity = 1_000_000
)

// ClampQuantity bounds q to [MinQuantity, MaxQuantity].
func ClampQuantity(q int) int {
	return min(max(q, MinQuantity), MaxQuantity)
}

// AddQuantity adds delta to q without overflowing and clamps the sum.
func AddQuantity(q, delta int) int {
	switch {
	case delta > 0 && q > math.MaxInt-delta:
		return MaxQuantity
	case delta < 0 && q < math.MinInt-delta:
		return MinQuantity
	}
	return ClampQuantity(q + delta)
}
