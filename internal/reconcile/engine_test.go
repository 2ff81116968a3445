package reconcile_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/reconcile"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/ptr"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func newEngine() *reconcile.Engine {
	return reconcile.NewEngine(uuid.NewV7, func() time.Time { return fixedNow })
}

func TestImportChecked(t *testing.T) {
	t.Run("Should merge case-insensitive identity match", func(t *testing.T) {
		expiry := model.NewDate(2024, time.July, 1)
		milk := model.InventoryItem{
			ID: uuid.New(), Name: "Milk", Brand: "Acme", Category: "Dairy",
			Quantity: 2, Location: "Fridge", Notes: "lactose free", ExpiryDate: &expiry,
		}
		shop := model.ShoppingListItem{
			ID: uuid.New(), Name: "milk", Brand: "ACME", Category: "dairy", Quantity: 3, Checked: true,
		}

		res, err := newEngine().ImportChecked([]model.ShoppingListItem{shop}, []model.InventoryItem{milk})
		require.NoError(t, err)

		require.Len(t, res.Inventory, 1)
		got := res.Inventory[0]
		assert.Equal(t, 5, got.Quantity)
		assert.Equal(t, "Milk", got.Name)
		assert.Equal(t, "Fridge", got.Location)
		assert.Equal(t, "lactose free", got.Notes)
		assert.Equal(t, &expiry, got.ExpiryDate)
		assert.Equal(t, []uuid.UUID{shop.ID}, res.ImportedIDs)

		require.Len(t, res.Actions, 1)
		assert.Equal(t, reconcile.ActionMerge, res.Actions[0].Kind)
		assert.Equal(t, milk.ID, res.Actions[0].InventoryItemID)
		assert.Equal(t, 3, res.Actions[0].Quantity)

		assert.Equal(t, 2, milk.Quantity, "input snapshot must not be mutated")
	})

	t.Run("Should create new item when nothing matches", func(t *testing.T) {
		shop := model.ShoppingListItem{ID: uuid.New(), OwnerID: "owner-1", Name: "Honey", Quantity: 1, Checked: true}

		res, err := newEngine().ImportChecked([]model.ShoppingListItem{shop}, nil)
		require.NoError(t, err)

		require.Len(t, res.Inventory, 1)
		got := res.Inventory[0]
		assert.NotEqual(t, uuid.Nil, got.ID)
		assert.Equal(t, "Honey", got.Name)
		assert.Equal(t, 1, got.Quantity)
		assert.Equal(t, "owner-1", got.OwnerID)
		assert.Empty(t, got.Location)
		assert.Nil(t, got.ExpiryDate)
		assert.True(t, got.ManuallyAdded)

		require.Len(t, res.Actions, 1)
		assert.Equal(t, reconcile.ActionCreate, res.Actions[0].Kind)
		assert.Equal(t, got, res.Actions[0].Item)
	})

	t.Run("Should ignore unchecked items", func(t *testing.T) {
		shop := []model.ShoppingListItem{
			{ID: uuid.New(), Name: "Eggs", Quantity: 12},
		}

		res, err := newEngine().ImportChecked(shop, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Inventory)
		assert.Empty(t, res.ImportedIDs)
		assert.Empty(t, res.Actions)
	})

	t.Run("Should merge duplicates within one batch into a single new item", func(t *testing.T) {
		first := model.ShoppingListItem{ID: uuid.New(), Name: "Bread", Quantity: 1, Checked: true}
		second := model.ShoppingListItem{ID: uuid.New(), Name: "bread", Quantity: 2, Checked: true}

		res, err := newEngine().ImportChecked([]model.ShoppingListItem{first, second}, nil)
		require.NoError(t, err)

		require.Len(t, res.Inventory, 1)
		assert.Equal(t, 3, res.Inventory[0].Quantity)

		require.Len(t, res.Actions, 2)
		assert.Equal(t, reconcile.ActionCreate, res.Actions[0].Kind)
		assert.Equal(t, reconcile.ActionMerge, res.Actions[1].Kind)
		assert.Equal(t, res.Actions[0].InventoryItemID, res.Actions[1].InventoryItemID)
	})

	t.Run("Should cap merged quantities", func(t *testing.T) {
		stock := model.InventoryItem{ID: uuid.New(), Name: "Salt", Quantity: model.MaxQuantity - 1}
		shop := model.ShoppingListItem{ID: uuid.New(), Name: "Salt", Quantity: 5, Checked: true}

		res, err := newEngine().ImportChecked([]model.ShoppingListItem{shop}, []model.InventoryItem{stock})
		require.NoError(t, err)
		require.Len(t, res.Inventory, 1)
		assert.Equal(t, model.MaxQuantity, res.Inventory[0].Quantity)
	})

	t.Run("Should merge into the oldest of several matching items", func(t *testing.T) {
		newer := model.InventoryItem{ID: uuid.New(), Name: "Rice", Quantity: 1, CreatedAt: fixedNow.Add(-time.Hour)}
		older := model.InventoryItem{ID: uuid.New(), Name: "Rice", Quantity: 4, CreatedAt: fixedNow.Add(-48 * time.Hour)}
		shop := model.ShoppingListItem{ID: uuid.New(), Name: "rice", Quantity: 1, Checked: true}

		res, err := newEngine().ImportChecked([]model.ShoppingListItem{shop}, []model.InventoryItem{newer, older})
		require.NoError(t, err)

		assert.Equal(t, older.ID, res.Actions[0].InventoryItemID)
		assert.Equal(t, 1, res.Inventory[0].Quantity)
		assert.Equal(t, 5, res.Inventory[1].Quantity)
	})

	t.Run("Should clamp non-positive quantities to one", func(t *testing.T) {
		shop := model.ShoppingListItem{ID: uuid.New(), Name: "Salt", Quantity: 0, Checked: true}

		res, err := newEngine().ImportChecked([]model.ShoppingListItem{shop}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Inventory[0].Quantity)
	})

	t.Run("Should be a no-op once imported entries are gone", func(t *testing.T) {
		inv := []model.InventoryItem{{ID: uuid.New(), Name: "Milk", Quantity: 5}}
		remaining := []model.ShoppingListItem{{ID: uuid.New(), Name: "Tea", Quantity: 1}}

		res, err := newEngine().ImportChecked(remaining, inv)
		require.NoError(t, err)
		assert.Equal(t, inv, res.Inventory)
		assert.Empty(t, res.ImportedIDs)
	})
}

func TestClearChecked(t *testing.T) {
	a := model.ShoppingListItem{ID: uuid.New(), Checked: true}
	b := model.ShoppingListItem{ID: uuid.New(), Checked: false}
	c := model.ShoppingListItem{ID: uuid.New(), Checked: true, CheckedAt: ptr.New(fixedNow)}

	assert.Equal(t, []uuid.UUID{a.ID, c.ID}, reconcile.ClearChecked([]model.ShoppingListItem{a, b, c}))
	assert.Empty(t, reconcile.ClearChecked(nil))
}
