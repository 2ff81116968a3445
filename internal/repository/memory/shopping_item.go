package memory

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/reconcile"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
)

var _ repository.ShoppingItemRepository = (*shoppingItemRepository)(nil)

type shoppingItemRepository struct {
	db *DB
}

func NewShoppingItemRepository(db *DB) repository.ShoppingItemRepository {
	return &shoppingItemRepository{db: db}
}

func (r shoppingItemRepository) WithDB(d db.DB) repository.ShoppingItemRepository {
	if m, ok := asDB(d); ok {
		return &shoppingItemRepository{db: m}
	}
	return &r
}

func (r shoppingItemRepository) CreateShoppingItem(_ context.Context, item model.ShoppingListItem) error {
	return r.db.run(func(s *state) error {
		s.shopping[item.ID] = cloneShoppingItem(item)
		return nil
	})
}

func (r shoppingItemRepository) CreateShoppingItems(_ context.Context, items []model.ShoppingListItem) error {
	return r.db.run(func(s *state) error {
		for _, item := range items {
			s.shopping[item.ID] = cloneShoppingItem(item)
		}
		return nil
	})
}

func (r shoppingItemRepository) GetShoppingItem(_ context.Context, ownerID string, id uuid.UUID) (model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	err := r.db.run(func(s *state) error {
		stored, ok := s.shopping[id]
		if !ok || stored.OwnerID != ownerID {
			return repository.ErrNotFound
		}
		item = cloneShoppingItem(stored)
		return nil
	})
	return item, err
}

func (r shoppingItemRepository) ListShoppingItems(_ context.Context, params repository.ListShoppingItemsParams) ([]model.ShoppingListItem, error) {
	items := make([]model.ShoppingListItem, 0)
	err := r.db.run(func(s *state) error {
		for _, item := range s.shopping {
			if item.OwnerID != params.OwnerID {
				continue
			}
			if item.Checked && !params.IncludeChecked {
				continue
			}
			items = append(items, cloneShoppingItem(item))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(items, func(a, b model.ShoppingListItem) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})

	return items, nil
}

func (r shoppingItemRepository) UpdateShoppingItem(_ context.Context, item model.ShoppingListItem) error {
	return r.db.run(func(s *state) error {
		stored, ok := s.shopping[item.ID]
		if !ok || stored.OwnerID != item.OwnerID {
			return repository.ErrNotFound
		}
		item.CreatedAt = stored.CreatedAt
		item.Source = stored.Source
		item.InventoryItemID = stored.InventoryItemID
		s.shopping[item.ID] = cloneShoppingItem(item)
		return nil
	})
}

func (r shoppingItemRepository) AddShoppingQuantity(_ context.Context, params repository.AddShoppingQuantityParams) (model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	err := r.db.run(func(s *state) error {
		stored, ok := s.shopping[params.ID]
		if !ok || stored.OwnerID != params.OwnerID {
			return repository.ErrNotFound
		}
		stored.Quantity = model.AddQuantity(stored.Quantity, params.Delta)
		stored.UpdatedAt = params.Now
		s.shopping[params.ID] = stored
		item = cloneShoppingItem(stored)
		return nil
	})
	return item, err
}

func (r shoppingItemRepository) DeleteShoppingItem(_ context.Context, ownerID string, id uuid.UUID) error {
	return r.db.run(func(s *state) error {
		stored, ok := s.shopping[id]
		if !ok || stored.OwnerID != ownerID {
			return repository.ErrNotFound
		}
		delete(s.shopping, id)
		return nil
	})
}

func (r shoppingItemRepository) TakeCheckedShoppingItem(_ context.Context, ownerID string, id uuid.UUID) (model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	err := r.db.run(func(s *state) error {
		stored, ok := s.shopping[id]
		if !ok || stored.OwnerID != ownerID || !stored.Checked {
			return repository.ErrNotFound
		}
		delete(s.shopping, id)
		item = cloneShoppingItem(stored)
		return nil
	})
	return item, err
}

func (r shoppingItemRepository) DeleteCheckedShoppingItems(_ context.Context, ownerID string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.run(func(s *state) error {
		owned := make([]model.ShoppingListItem, 0, len(s.shopping))
		for _, item := range s.shopping {
			if item.OwnerID == ownerID {
				owned = append(owned, item)
			}
		}

		ids = reconcile.ClearChecked(owned)
		for _, id := range ids {
			delete(s.shopping, id)
		}
		return nil
	})
	return ids, err
}
