package service_test

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/barcode"
	"github.com/tuanvumaihuynh/pantry-sync/internal/event"
	"github.com/tuanvumaihuynh/pantry-sync/internal/expiry"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/service"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/patch"
)

func dateIn(days int) *model.Date {
	d := model.DateOf(fixedNow).AddDays(days)
	return &d
}

func TestAddInventoryItem(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create the item and write an outbox message", func(t *testing.T) {
		f := newFixture(t)

		got, err := f.inventory.AddInventoryItem(ctx, alice, service.AddInventoryItemParams{
			Name:       "  Milk ",
			Brand:      "Acme",
			Location:   "Fridge",
			Quantity:   2,
			ExpiryDate: dateIn(2),
		})
		require.NoError(t, err)

		assert.Equal(t, "Milk", got.Name)
		assert.Equal(t, alice, got.OwnerID)
		assert.True(t, got.ManuallyAdded)
		require.NotNil(t, got.Expiry)
		assert.Equal(t, expiry.TierCritical, got.Expiry.Tier)
		assert.Equal(t, []string{event.TopicInventoryCreated}, f.db.Topics())
		assert.Zero(t, f.resolver.calls)
	})

	t.Run("Should enrich from the barcode when the name is missing", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.products["3017620422003"] = barcode.Product{Name: "Nutella", Brand: "Ferrero", Category: "Spreads"}

		got, err := f.inventory.AddInventoryItem(ctx, alice, service.AddInventoryItemParams{
			Barcode:  "3017620422003",
			Category: "Breakfast",
			Quantity: 1,
		})
		require.NoError(t, err)

		assert.Equal(t, "Nutella", got.Name)
		assert.Equal(t, "Ferrero", got.Brand)
		assert.Equal(t, "Breakfast", got.Category)
		assert.False(t, got.ManuallyAdded)
	})

	t.Run("Should still create the item when enrichment is unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.resolver.err = errors.New("dial tcp: i/o timeout")

		got, err := f.inventory.AddInventoryItem(ctx, alice, service.AddInventoryItemParams{
			Barcode:  "012345678905",
			Location: "Pantry",
			Quantity: 1,
		})
		require.NoError(t, err)

		assert.Equal(t, "Unknown Product (012345678905)", got.Name)
		assert.Equal(t, "Pantry", got.Location)
		assert.Equal(t, "012345678905", got.Barcode)
	})

	t.Run("Should require a name or barcode", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.inventory.AddInventoryItem(ctx, alice, service.AddInventoryItemParams{Quantity: 1})
		assert.ErrorIs(t, err, apperr.InventoryItemNameRequiredErr)
	})

	t.Run("Should reject invalid params", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.inventory.AddInventoryItem(ctx, alice, service.AddInventoryItemParams{Name: "Milk", Quantity: 0})
		assert.Error(t, err)

		_, err = f.inventory.AddInventoryItem(ctx, alice, service.AddInventoryItemParams{Name: "Milk", Quantity: 1, Barcode: "12ab"})
		assert.Error(t, err)

		_, err = f.inventory.AddInventoryItem(ctx, alice, service.AddInventoryItemParams{Name: "Milk", Quantity: model.MaxQuantity + 1})
		assert.Error(t, err)
		assert.Empty(t, f.db.Topics())
	})
}

func TestAdjustInventoryQuantity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.addInventory(t, alice, service.AddInventoryItemParams{Name: "Eggs", Quantity: 2})

	t.Run("Should clamp at one", func(t *testing.T) {
		got, err := f.inventory.AdjustInventoryQuantity(ctx, alice, item.ID, -100)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Quantity)
	})

	t.Run("Should add positive deltas", func(t *testing.T) {
		got, err := f.inventory.AdjustInventoryQuantity(ctx, alice, item.ID, 5)
		require.NoError(t, err)
		assert.Equal(t, 6, got.Quantity)
	})

	t.Run("Should not touch another owner's item", func(t *testing.T) {
		_, err := f.inventory.AdjustInventoryQuantity(ctx, bob, item.ID, 1)
		assert.ErrorIs(t, err, apperr.InventoryItemNotFoundErr)
	})

	t.Run("Should reject out of range deltas", func(t *testing.T) {
		for _, delta := range []int{math.MaxInt, math.MinInt, model.MaxQuantity + 1, -model.MaxQuantity - 1} {
			_, err := f.inventory.AdjustInventoryQuantity(ctx, alice, item.ID, delta)
			assertZErrorCode(t, err, apperr.ValidationErrorCode)
		}

		got, err := f.inventory.GetInventoryItem(ctx, alice, item.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, got.Quantity)
	})

	t.Run("Should cap at the maximum quantity", func(t *testing.T) {
		got, err := f.inventory.AdjustInventoryQuantity(ctx, alice, item.ID, model.MaxQuantity)
		require.NoError(t, err)
		assert.Equal(t, model.MaxQuantity, got.Quantity)
	})

	t.Run("Should reject patching an out of range quantity", func(t *testing.T) {
		_, err := f.inventory.UpdateInventoryItem(ctx, alice, item.ID, service.UpdateInventoryItemParams{
			Quantity: patch.Value(model.MaxQuantity + 1),
		})
		assertZErrorCode(t, err, apperr.ValidationErrorCode)
	})
}

func TestInventoryItemLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	item := f.addInventory(t, alice, service.AddInventoryItemParams{
		Name: "Yogurt", Location: "Fridge", Notes: "greek", Quantity: 3, ExpiryDate: dateIn(10),
	})

	t.Run("Should hide items from other owners", func(t *testing.T) {
		_, err := f.inventory.GetInventoryItem(ctx, bob, item.ID)
		assertZErrorCode(t, err, apperr.InventoryItemNotFoundCode)

		items, err := f.inventory.ListInventoryItems(ctx, bob, service.ListInventoryItemsParams{})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("Should apply a partial update and clear null fields", func(t *testing.T) {
		got, err := f.inventory.UpdateInventoryItem(ctx, alice, item.ID, service.UpdateInventoryItemParams{
			Location:   patch.Null[string](),
			ExpiryDate: patch.Null[model.Date](),
			Quantity:   patch.Value(4),
		})
		require.NoError(t, err)

		assert.Equal(t, "Yogurt", got.Name)
		assert.Empty(t, got.Location)
		assert.Nil(t, got.ExpiryDate)
		assert.Nil(t, got.Expiry)
		assert.Equal(t, "greek", got.Notes)
		assert.Equal(t, 4, got.Quantity)
	})

	t.Run("Should reject clearing the name", func(t *testing.T) {
		_, err := f.inventory.UpdateInventoryItem(ctx, alice, item.ID, service.UpdateInventoryItemParams{
			Name: patch.Null[string](),
		})
		assertZErrorCode(t, err, apperr.ValidationErrorCode)
	})

	t.Run("Should delete once", func(t *testing.T) {
		require.NoError(t, f.inventory.DeleteInventoryItem(ctx, alice, item.ID))
		err := f.inventory.DeleteInventoryItem(ctx, alice, item.ID)
		assert.ErrorIs(t, err, apperr.InventoryItemNotFoundErr)
	})
}

func TestStoreFailures(t *testing.T) {
	f := newFixtureWith(t, func(r repository.InventoryItemRepository) repository.InventoryItemRepository {
		return &failingInventoryRepo{InventoryItemRepository: r, listErr: context.DeadlineExceeded}
	})

	_, err := f.inventory.ListInventoryItems(context.Background(), alice, service.ListInventoryItemsParams{})
	assert.ErrorIs(t, err, apperr.StoreUnavailableErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExpiringSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.addInventory(t, alice, service.AddInventoryItemParams{Name: "Old bread", ExpiryDate: dateIn(-2)})
	f.addInventory(t, alice, service.AddInventoryItemParams{Name: "Milk", ExpiryDate: dateIn(0)})
	f.addInventory(t, alice, service.AddInventoryItemParams{Name: "Cream", ExpiryDate: dateIn(3)})
	f.addInventory(t, alice, service.AddInventoryItemParams{Name: "Cheese", ExpiryDate: dateIn(7)})
	f.addInventory(t, alice, service.AddInventoryItemParams{Name: "Butter", ExpiryDate: dateIn(12)})
	f.addInventory(t, alice, service.AddInventoryItemParams{Name: "Rice"})

	t.Run("Should group by tier within the default window", func(t *testing.T) {
		s, err := f.inventory.ExpiringSummary(ctx, alice, service.DefaultExpiringDays)
		require.NoError(t, err)

		assert.Equal(t, 4, s.Total())
		require.Len(t, s.Expired, 1)
		assert.Equal(t, "Old bread", s.Expired[0].Name)
		require.Len(t, s.Critical, 2)
		assert.Equal(t, "Milk", s.Critical[0].Name)
		assert.Equal(t, "Cream", s.Critical[1].Name)
		require.Len(t, s.Warning, 1)
		assert.Empty(t, s.Upcoming)
	})

	t.Run("Should report good items inside a wider window as upcoming", func(t *testing.T) {
		s, err := f.inventory.ExpiringSummary(ctx, alice, 14)
		require.NoError(t, err)

		require.Len(t, s.Upcoming, 1)
		assert.Equal(t, "Butter", s.Upcoming[0].Name)
	})
}

func TestInventoryStatsAndExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.resolver.products["012345678905"] = barcode.Product{Name: "Cola, 6 pack", Category: "Beverages"}

	f.addInventory(t, alice, service.AddInventoryItemParams{Name: "Milk", Category: "Dairy", Location: "Fridge", Quantity: 2, ExpiryDate: dateIn(1)})
	f.addInventory(t, alice, service.AddInventoryItemParams{Barcode: "012345678905", Location: "Pantry", Quantity: 6, Notes: `say "cheers"`})
	f.addInventory(t, bob, service.AddInventoryItemParams{Name: "Tea", Quantity: 9})

	t.Run("Should summarize the owner's inventory", func(t *testing.T) {
		stats, err := f.inventory.InventoryStats(ctx, alice)
		require.NoError(t, err)

		assert.Equal(t, 2, stats.TotalItems)
		assert.Equal(t, 8, stats.TotalQuantity)
		assert.Equal(t, []string{"Fridge", "Pantry"}, stats.Locations)
		assert.Equal(t, []string{"Beverages", "Dairy"}, stats.Categories)
		assert.Equal(t, 1, stats.ExpiringSoon)
		assert.Equal(t, 1, stats.ManuallyAddedCount)
	})

	t.Run("Should export a CSV document", func(t *testing.T) {
		data, err := f.inventory.ExportInventoryCSV(ctx, alice)
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)

		assert.Equal(t, []string{"Name", "Barcode", "Quantity", "Location", "Category", "Expiry Date", "Added Date", "Notes"}, records[0])
		assert.Equal(t, "Cola, 6 pack", records[1][0])
		assert.Equal(t, "012345678905", records[1][1])
		assert.Equal(t, `say "cheers"`, records[1][7])
		assert.Equal(t, "Milk", records[2][0])
		assert.Equal(t, "2024-06-16", records[2][5])
	})
}

func TestLookupBarcode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.resolver.products["3017620422003"] = barcode.Product{Name: "Nutella"}

	p, err := f.inventory.LookupBarcode(ctx, "3017620422003")
	require.NoError(t, err)
	assert.Equal(t, "Nutella", p.Name)

	_, err = f.inventory.LookupBarcode(ctx, "000000")
	assert.ErrorIs(t, err, apperr.BarcodeNotFoundErr)

	_, err = f.inventory.LookupBarcode(ctx, "abc")
	assertZErrorCode(t, err, apperr.ValidationErrorCode)

	f.resolver.err = errors.New("upstream 503")
	_, err = f.inventory.LookupBarcode(ctx, "3017620422003")
	assert.ErrorIs(t, err, apperr.EnrichmentUnavailableErr)
}

func TestClassifyExpiry(t *testing.T) {
	f := newFixture(t)

	c := f.inventory.ClassifyExpiry(*dateIn(-3))
	assert.Equal(t, expiry.TierExpired, c.Tier)
	assert.Equal(t, "Expired 3 days ago", c.Badge)
}
