// Package memory provides in-process implementations of the repositories.
// It backs the memory store driver and the service and transport tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
)

var (
	_ db.DB            = (*DB)(nil)
	_ db.HealthChecker = (*DB)(nil)
)

// DB satisfies db.DB for the memory repositories. Only WithTx is supported;
// the SQL methods of the embedded interface are never called.
type DB struct {
	db.DB

	store *store
	inTx  bool
}

type store struct {
	mu    sync.Mutex
	state state
}

type state struct {
	inventory map[uuid.UUID]model.InventoryItem
	shopping  map[uuid.UUID]model.ShoppingListItem
	outbox    []outboxMsg
}

// New creates an empty in-memory store.
func New() *DB {
	return &DB{
		store: &store{
			state: state{
				inventory: make(map[uuid.UUID]model.InventoryItem),
				shopping:  make(map[uuid.UUID]model.ShoppingListItem),
			},
		},
	}
}

// WithTx runs txFunc with exclusive access to the store. Every change made by
// txFunc is discarded when it returns an error.
func (d *DB) WithTx(_ context.Context, txFunc func(db.DB) error) error {
	if d.inTx {
		return txFunc(d)
	}

	d.store.mu.Lock()
	defer d.store.mu.Unlock()

	snapshot := d.store.state.clone()
	if err := txFunc(&DB{store: d.store, inTx: true}); err != nil {
		d.store.state = snapshot
		return err
	}

	return nil
}

func (d *DB) IsHealthy(context.Context) (bool, error) {
	return true, nil
}

func (d *DB) run(fn func(s *state) error) error {
	if !d.inTx {
		d.store.mu.Lock()
		defer d.store.mu.Unlock()
	}
	return fn(&d.store.state)
}

func (s state) clone() state {
	c := state{
		inventory: make(map[uuid.UUID]model.InventoryItem, len(s.inventory)),
		shopping:  make(map[uuid.UUID]model.ShoppingListItem, len(s.shopping)),
		outbox:    make([]outboxMsg, len(s.outbox)),
	}
	for id, item := range s.inventory {
		c.inventory[id] = cloneInventoryItem(item)
	}
	for id, item := range s.shopping {
		c.shopping[id] = cloneShoppingItem(item)
	}
	copy(c.outbox, s.outbox)
	return c
}

func asDB(d db.DB) (*DB, bool) {
	m, ok := d.(*DB)
	return m, ok
}

func cloneInventoryItem(item model.InventoryItem) model.InventoryItem {
	if item.ExpiryDate != nil {
		d := *item.ExpiryDate
		item.ExpiryDate = &d
	}
	return item
}

func cloneShoppingItem(item model.ShoppingListItem) model.ShoppingListItem {
	if item.CheckedAt != nil {
		t := *item.CheckedAt
		item.CheckedAt = &t
	}
	if item.InventoryItemID != nil {
		id := *item.InventoryItemID
		item.InventoryItemID = &id
	}
	return item
}
