package service_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/pantry-sync/internal/barcode"
	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository/memory"
	"github.com/tuanvumaihuynh/pantry-sync/internal/service"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/validator"
)

const (
	alice = "alice"
	bob   = "bob"
)

var fixedNow = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)

// clock advances by one second on every reading so creation order is stable.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type stubResolver struct {
	products map[string]barcode.Product
	err      error
	calls    int
}

func (r *stubResolver) Resolve(_ context.Context, code string) (barcode.Product, error) {
	r.calls++
	if r.err != nil {
		return barcode.Product{}, r.err
	}
	p, ok := r.products[code]
	if !ok {
		return barcode.Product{}, barcode.ErrNotFound
	}
	return p, nil
}

// failingInventoryRepo fails writes for items whose name is in failNames.
type failingInventoryRepo struct {
	repository.InventoryItemRepository
	failNames map[string]bool
	listErr   error
}

func (r *failingInventoryRepo) WithDB(d db.DB) repository.InventoryItemRepository {
	return &failingInventoryRepo{
		InventoryItemRepository: r.InventoryItemRepository.WithDB(d),
		failNames:               r.failNames,
		listErr:                 r.listErr,
	}
}

func (r *failingInventoryRepo) CreateInventoryItem(ctx context.Context, item model.InventoryItem) error {
	if r.failNames[item.Name] {
		return errors.New("connection reset by peer")
	}
	return r.InventoryItemRepository.CreateInventoryItem(ctx, item)
}

func (r *failingInventoryRepo) ListInventoryItems(ctx context.Context, params repository.ListInventoryItemsParams) ([]model.InventoryItem, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.InventoryItemRepository.ListInventoryItems(ctx, params)
}

// afterListShoppingRepo runs afterList once, right after the first list call
// made while armed, to model a concurrent edit from another device.
type afterListShoppingRepo struct {
	repository.ShoppingItemRepository
	afterList func()
	armed     atomic.Bool
}

func (r *afterListShoppingRepo) ListShoppingItems(ctx context.Context, params repository.ListShoppingItemsParams) ([]model.ShoppingListItem, error) {
	items, err := r.ShoppingItemRepository.ListShoppingItems(ctx, params)
	if r.armed.CompareAndSwap(true, false) {
		r.afterList()
	}
	return items, err
}

type fixture struct {
	db        *memory.DB
	clock     *clock
	resolver  *stubResolver
	inventory service.InventoryService
	shopping  service.ShoppingService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithRepos(t, nil, nil)
}

func newFixtureWith(t *testing.T, wrapInventory func(repository.InventoryItemRepository) repository.InventoryItemRepository) *fixture {
	t.Helper()
	return newFixtureWithRepos(t, wrapInventory, nil)
}

// newFixtureWithRepos wraps the memory repositories; a nil wrapper keeps the repository as is.
func newFixtureWithRepos(
	t *testing.T,
	wrapInventory func(repository.InventoryItemRepository) repository.InventoryItemRepository,
	wrapShopping func(repository.ShoppingItemRepository) repository.ShoppingItemRepository,
) *fixture {
	t.Helper()

	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	mdb := memory.New()
	c := &clock{t: fixedNow}
	resolver := &stubResolver{products: map[string]barcode.Product{}}
	logger := slog.New(slog.DiscardHandler)

	storeCfg := config.Store{Driver: config.StoreDriverMemory, Timeout: time.Second}
	suggestCfg := config.Suggest{LowStockThreshold: 1, TargetStock: 2, ExpiringDays: 7}

	var (
		inventoryRepo = memory.NewInventoryItemRepository(mdb)
		shoppingRepo  = memory.NewShoppingItemRepository(mdb)
	)
	if wrapInventory != nil {
		inventoryRepo = wrapInventory(inventoryRepo)
	}
	if wrapShopping != nil {
		shoppingRepo = wrapShopping(shoppingRepo)
	}
	outboxRepo := memory.NewOutboxMsgRepository(mdb)

	return &fixture{
		db:       mdb,
		clock:    c,
		resolver: resolver,
		inventory: service.NewInventoryService(storeCfg, logger, mdb, v,
			inventoryRepo, outboxRepo, resolver,
			service.WithClock(c.Now),
		),
		shopping: service.NewShoppingService(storeCfg, suggestCfg, logger, mdb, v,
			shoppingRepo, inventoryRepo, outboxRepo,
			service.WithClock(c.Now),
		),
	}
}

func (f *fixture) addInventory(t *testing.T, owner string, params service.AddInventoryItemParams) model.InventoryItem {
	t.Helper()
	if params.Quantity == 0 {
		params.Quantity = 1
	}
	v, err := f.inventory.AddInventoryItem(context.Background(), owner, params)
	require.NoError(t, err)
	return v.InventoryItem
}

func (f *fixture) addShopping(t *testing.T, owner string, params service.AddShoppingItemParams, checked bool) model.ShoppingListItem {
	t.Helper()
	ctx := context.Background()
	if params.Quantity == 0 {
		params.Quantity = 1
	}
	item, err := f.shopping.AddShoppingItem(ctx, owner, params)
	require.NoError(t, err)

	if checked {
		item = f.check(t, owner, item.ID)
	}
	return item
}

func (f *fixture) check(t *testing.T, owner string, id uuid.UUID) model.ShoppingListItem {
	t.Helper()
	item, err := f.shopping.UpdateShoppingItem(context.Background(), owner, id, service.UpdateShoppingItemParams{
		Checked: patchBool(true),
	})
	require.NoError(t, err)
	return item
}
