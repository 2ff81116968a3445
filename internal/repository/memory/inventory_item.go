package memory

import (
	"bytes"
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
)

var _ repository.InventoryItemRepository = (*inventoryItemRepository)(nil)

type inventoryItemRepository struct {
	db *DB
}

func NewInventoryItemRepository(db *DB) repository.InventoryItemRepository {
	return &inventoryItemRepository{db: db}
}

func (r inventoryItemRepository) WithDB(d db.DB) repository.InventoryItemRepository {
	if m, ok := asDB(d); ok {
		return &inventoryItemRepository{db: m}
	}
	return &r
}

func (r inventoryItemRepository) CreateInventoryItem(_ context.Context, item model.InventoryItem) error {
	return r.db.run(func(s *state) error {
		s.inventory[item.ID] = cloneInventoryItem(item)
		return nil
	})
}

func (r inventoryItemRepository) GetInventoryItem(_ context.Context, ownerID string, id uuid.UUID) (model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.run(func(s *state) error {
		stored, ok := s.inventory[id]
		if !ok || stored.OwnerID != ownerID {
			return repository.ErrNotFound
		}
		item = cloneInventoryItem(stored)
		return nil
	})
	return item, err
}

func (r inventoryItemRepository) ListInventoryItems(_ context.Context, params repository.ListInventoryItemsParams) ([]model.InventoryItem, error) {
	search := strings.ToLower(params.Search)

	items := make([]model.InventoryItem, 0)
	err := r.db.run(func(s *state) error {
		for _, item := range s.inventory {
			if item.OwnerID != params.OwnerID {
				continue
			}
			if params.Location != "" && item.Location != params.Location {
				continue
			}
			if search != "" && !matchesSearch(search, item.Name, item.Brand, item.Barcode) {
				continue
			}
			items = append(items, cloneInventoryItem(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(items, func(a, b model.InventoryItem) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})

	return items, nil
}

func (r inventoryItemRepository) UpdateInventoryItem(_ context.Context, item model.InventoryItem) error {
	return r.db.run(func(s *state) error {
		stored, ok := s.inventory[item.ID]
		if !ok || stored.OwnerID != item.OwnerID {
			return repository.ErrNotFound
		}
		item.CreatedAt = stored.CreatedAt
		item.ManuallyAdded = stored.ManuallyAdded
		s.inventory[item.ID] = cloneInventoryItem(item)
		return nil
	})
}

func (r inventoryItemRepository) ApplyQuantityDelta(_ context.Context, params repository.ApplyQuantityDeltaParams) (model.InventoryItem, error) {
	var item model.InventoryItem
	err := r.db.run(func(s *state) error {
		stored, ok := s.inventory[params.ID]
		if !ok || stored.OwnerID != params.OwnerID {
			return repository.ErrNotFound
		}
		stored.Quantity = model.AddQuantity(stored.Quantity, params.Delta)
		stored.UpdatedAt = params.Now
		s.inventory[params.ID] = stored
		item = cloneInventoryItem(stored)
		return nil
	})
	return item, err
}

func (r inventoryItemRepository) DeleteInventoryItem(_ context.Context, ownerID string, id uuid.UUID) error {
	return r.db.run(func(s *state) error {
		stored, ok := s.inventory[id]
		if !ok || stored.OwnerID != ownerID {
			return repository.ErrNotFound
		}
		delete(s.inventory, id)

		for sid, item := range s.shopping {
			if item.InventoryItemID != nil && *item.InventoryItemID == id {
				item.InventoryItemID = nil
				s.shopping[sid] = item
			}
		}
		return nil
	})
}

func matchesSearch(search string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}
