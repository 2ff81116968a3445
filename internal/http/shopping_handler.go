package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/http/apierr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/service"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/patch"
)

type AddShoppingItemRequest struct {
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
	Quantity *int   `json:"quantity"`
	Notes    string `json:"notes"`
}

type UpdateShoppingItemRequest struct {
	Name     patch.Field[string] `json:"name"`
	Brand    patch.Field[string] `json:"brand"`
	Category patch.Field[string] `json:"category"`
	Quantity patch.Field[int]    `json:"quantity"`
	Notes    patch.Field[string] `json:"notes"`
	Checked  patch.Field[bool]   `json:"checked"`
}

type SuggestLowStockRequest struct {
	Threshold *int `json:"threshold"`
}

type ClearCheckedResponse struct {
	Deleted int `json:"deleted"`
}

type ImportFailureResponse struct {
	ShoppingItemID uuid.UUID `json:"shopping_item_id"`
	Code           string    `json:"code"`
	Message        string    `json:"message"`
}

type ImportResponse struct {
	ImportedCount       int                     `json:"imported_count"`
	CreatedInventoryIDs []uuid.UUID             `json:"created_inventory_ids"`
	MergedInventoryIDs  []uuid.UUID             `json:"merged_inventory_ids"`
	Failures            []ImportFailureResponse `json:"failures"`
}

type shoppingHandler struct {
	shoppingSvc service.ShoppingService
}

func newShoppingHandler(shoppingSvc service.ShoppingService) *shoppingHandler {
	return &shoppingHandler{
		shoppingSvc: shoppingSvc,
	}
}

func (h *shoppingHandler) ListShoppingItems(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	includeChecked := true
	if err := queryParam(r, "include_checked", &includeChecked); err != nil {
		return err
	}

	items, err := h.shoppingSvc.ListShoppingItems(r.Context(), owner, includeChecked)
	if err != nil {
		return fmt.Errorf("shopping service list shopping items: %w", err)
	}
	if items == nil {
		items = []model.ShoppingListItem{}
	}

	return writeJSON(w, http.StatusOK, items)
}

func (h *shoppingHandler) GetShoppingItem(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}

	item, err := h.shoppingSvc.GetShoppingItem(r.Context(), owner, id)
	if err != nil {
		return fmt.Errorf("shopping service get shopping item: %w", err)
	}

	return writeJSON(w, http.StatusOK, item)
}

func (h *shoppingHandler) AddShoppingItem(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	var body AddShoppingItemRequest
	if err := decodeJSON(r, &body, false); err != nil {
		return err
	}

	quantity := 1
	if body.Quantity != nil {
		quantity = *body.Quantity
	}

	item, err := h.shoppingSvc.AddShoppingItem(r.Context(), owner, service.AddShoppingItemParams{
		Name:     body.Name,
		Brand:    body.Brand,
		Category: body.Category,
		Quantity: quantity,
		Notes:    body.Notes,
	})
	if err != nil {
		return fmt.Errorf("shopping service add shopping item: %w", err)
	}

	return writeJSON(w, http.StatusCreated, item)
}

func (h *shoppingHandler) AddShoppingItemFromInventory(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}
	inventoryItemID, err := pathUUID(r, "inventoryItemId")
	if err != nil {
		return err
	}

	item, err := h.shoppingSvc.AddShoppingItemFromInventory(r.Context(), owner, inventoryItemID)
	if err != nil {
		return fmt.Errorf("shopping service add shopping item from inventory: %w", err)
	}

	return writeJSON(w, http.StatusOK, item)
}

func (h *shoppingHandler) UpdateShoppingItem(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}

	var body UpdateShoppingItemRequest
	if err := decodeJSON(r, &body, false); err != nil {
		return err
	}

	item, err := h.shoppingSvc.UpdateShoppingItem(r.Context(), owner, id, service.UpdateShoppingItemParams{
		Name:     body.Name,
		Brand:    body.Brand,
		Category: body.Category,
		Quantity: body.Quantity,
		Notes:    body.Notes,
		Checked:  body.Checked,
	})
	if err != nil {
		return fmt.Errorf("shopping service update shopping item: %w", err)
	}

	return writeJSON(w, http.StatusOK, item)
}

func (h *shoppingHandler) DeleteShoppingItem(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}

	if err := h.shoppingSvc.DeleteShoppingItem(r.Context(), owner, id); err != nil {
		return fmt.Errorf("shopping service delete shopping item: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *shoppingHandler) ClearChecked(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	n, err := h.shoppingSvc.ClearChecked(r.Context(), owner)
	if err != nil {
		return fmt.Errorf("shopping service clear checked: %w", err)
	}

	return writeJSON(w, http.StatusOK, ClearCheckedResponse{Deleted: n})
}

func (h *shoppingHandler) ImportCheckedToInventory(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	res, err := h.shoppingSvc.ImportCheckedToInventory(r.Context(), owner)
	if err != nil {
		return fmt.Errorf("shopping service import checked to inventory: %w", err)
	}

	failures := make([]ImportFailureResponse, 0, len(res.Failures))
	for _, f := range res.Failures {
		e := apierr.New(f.Err)
		failures = append(failures, ImportFailureResponse{
			ShoppingItemID: f.ShoppingItemID,
			Code:           e.Code,
			Message:        e.Message,
		})
	}

	return writeJSON(w, http.StatusOK, ImportResponse{
		ImportedCount:       res.ImportedCount,
		CreatedInventoryIDs: res.CreatedInventoryIDs,
		MergedInventoryIDs:  res.MergedInventoryIDs,
		Failures:            failures,
	})
}

func (h *shoppingHandler) SuggestLowStock(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	var body SuggestLowStockRequest
	if err := decodeJSON(r, &body, true); err != nil {
		return err
	}

	items, err := h.shoppingSvc.SuggestLowStock(r.Context(), owner, service.SuggestLowStockParams{
		Threshold: body.Threshold,
	})
	if err != nil {
		return fmt.Errorf("shopping service suggest low stock: %w", err)
	}
	if items == nil {
		items = []model.ShoppingListItem{}
	}

	return writeJSON(w, http.StatusOK, items)
}
