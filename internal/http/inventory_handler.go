package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/expiry"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/service"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/patch"
)

type InventoryItemResponse struct {
	model.InventoryItem
	Expiry *expiry.Classification `json:"expiry,omitempty"`
}

func toInventoryItemResponse(v service.InventoryItemView) InventoryItemResponse {
	return InventoryItemResponse{InventoryItem: v.InventoryItem, Expiry: v.Expiry}
}

func toInventoryItemResponses(views []service.InventoryItemView) []InventoryItemResponse {
	items := make([]InventoryItemResponse, 0, len(views))
	for _, v := range views {
		items = append(items, toInventoryItemResponse(v))
	}
	return items
}

type AddInventoryItemRequest struct {
	Barcode    string      `json:"barcode"`
	Name       string      `json:"name"`
	Brand      string      `json:"brand"`
	Category   string      `json:"category"`
	Location   string      `json:"location"`
	Quantity   *int        `json:"quantity"`
	ExpiryDate *model.Date `json:"expiry_date"`
	Notes      string      `json:"notes"`
}

type UpdateInventoryItemRequest struct {
	Name       patch.Field[string]     `json:"name"`
	Brand      patch.Field[string]     `json:"brand"`
	Category   patch.Field[string]     `json:"category"`
	Location   patch.Field[string]     `json:"location"`
	Quantity   patch.Field[int]        `json:"quantity"`
	ExpiryDate patch.Field[model.Date] `json:"expiry_date"`
	Barcode    patch.Field[string]     `json:"barcode"`
	Notes      patch.Field[string]     `json:"notes"`
}

type AdjustQuantityRequest struct {
	Delta int `json:"delta"`
}

type ExpiringSummaryResponse struct {
	Days     int                     `json:"days"`
	Total    int                     `json:"total"`
	Expired  []InventoryItemResponse `json:"expired"`
	Critical []InventoryItemResponse `json:"critical"`
	Warning  []InventoryItemResponse `json:"warning"`
	Upcoming []InventoryItemResponse `json:"upcoming"`
}

type InventoryStatsResponse struct {
	TotalItems         int      `json:"total_items"`
	TotalQuantity      int      `json:"total_quantity"`
	Locations          []string `json:"locations"`
	Categories         []string `json:"categories"`
	ExpiringSoon       int      `json:"expiring_soon"`
	ManuallyAddedCount int      `json:"manually_added_count"`
}

type ClassifyExpiryRequest struct {
	ExpiryDate *model.Date `json:"expiry_date"`
}

type inventoryHandler struct {
	inventorySvc service.InventoryService
}

func newInventoryHandler(inventorySvc service.InventoryService) *inventoryHandler {
	return &inventoryHandler{
		inventorySvc: inventorySvc,
	}
}

func (h *inventoryHandler) ListInventoryItems(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	var params service.ListInventoryItemsParams
	if err := queryParam(r, "location", &params.Location); err != nil {
		return err
	}
	if err := queryParam(r, "search", &params.Search); err != nil {
		return err
	}

	items, err := h.inventorySvc.ListInventoryItems(r.Context(), owner, params)
	if err != nil {
		return fmt.Errorf("inventory service list inventory items: %w", err)
	}

	return writeJSON(w, http.StatusOK, toInventoryItemResponses(items))
}

func (h *inventoryHandler) AddInventoryItem(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	var body AddInventoryItemRequest
	if err := decodeJSON(r, &body, false); err != nil {
		return err
	}

	quantity := 1
	if body.Quantity != nil {
		quantity = *body.Quantity
	}

	item, err := h.inventorySvc.AddInventoryItem(r.Context(), owner, service.AddInventoryItemParams{
		Barcode:    body.Barcode,
		Name:       body.Name,
		Brand:      body.Brand,
		Category:   body.Category,
		Location:   body.Location,
		Quantity:   quantity,
		ExpiryDate: body.ExpiryDate,
		Notes:      body.Notes,
	})
	if err != nil {
		return fmt.Errorf("inventory service add inventory item: %w", err)
	}

	return writeJSON(w, http.StatusCreated, toInventoryItemResponse(item))
}

func (h *inventoryHandler) GetInventoryItem(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}

	item, err := h.inventorySvc.GetInventoryItem(r.Context(), owner, id)
	if err != nil {
		return fmt.Errorf("inventory service get inventory item: %w", err)
	}

	return writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

func (h *inventoryHandler) UpdateInventoryItem(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}

	var body UpdateInventoryItemRequest
	if err := decodeJSON(r, &body, false); err != nil {
		return err
	}

	item, err := h.inventorySvc.UpdateInventoryItem(r.Context(), owner, id, service.UpdateInventoryItemParams{
		Name:       body.Name,
		Brand:      body.Brand,
		Category:   body.Category,
		Location:   body.Location,
		Quantity:   body.Quantity,
		ExpiryDate: body.ExpiryDate,
		Barcode:    body.Barcode,
		Notes:      body.Notes,
	})
	if err != nil {
		return fmt.Errorf("inventory service update inventory item: %w", err)
	}

	return writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

func (h *inventoryHandler) DeleteInventoryItem(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}

	if err := h.inventorySvc.DeleteInventoryItem(r.Context(), owner, id); err != nil {
		return fmt.Errorf("inventory service delete inventory item: %w", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *inventoryHandler) AdjustInventoryQuantity(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		return err
	}

	var body AdjustQuantityRequest
	if err := decodeJSON(r, &body, false); err != nil {
		return err
	}

	item, err := h.inventorySvc.AdjustInventoryQuantity(r.Context(), owner, id, body.Delta)
	if err != nil {
		return fmt.Errorf("inventory service adjust inventory quantity: %w", err)
	}

	return writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

func (h *inventoryHandler) ExpiringSummary(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	days := service.DefaultExpiringDays
	if err := queryParam(r, "days", &days); err != nil {
		return err
	}

	s, err := h.inventorySvc.ExpiringSummary(r.Context(), owner, days)
	if err != nil {
		return fmt.Errorf("inventory service expiring summary: %w", err)
	}

	return writeJSON(w, http.StatusOK, ExpiringSummaryResponse{
		Days:     s.Days,
		Total:    s.Total(),
		Expired:  toInventoryItemResponses(s.Expired),
		Critical: toInventoryItemResponses(s.Critical),
		Warning:  toInventoryItemResponses(s.Warning),
		Upcoming: toInventoryItemResponses(s.Upcoming),
	})
}

func (h *inventoryHandler) InventoryStats(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	stats, err := h.inventorySvc.InventoryStats(r.Context(), owner)
	if err != nil {
		return fmt.Errorf("inventory service inventory stats: %w", err)
	}

	return writeJSON(w, http.StatusOK, InventoryStatsResponse(stats))
}

func (h *inventoryHandler) ExportInventoryCSV(w http.ResponseWriter, r *http.Request) error {
	owner, err := ownerID(r)
	if err != nil {
		return err
	}

	data, err := h.inventorySvc.ExportInventoryCSV(r.Context(), owner)
	if err != nil {
		return fmt.Errorf("inventory service export inventory csv: %w", err)
	}

	filename := fmt.Sprintf("pantry-inventory-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(data)
	return err
}

func (h *inventoryHandler) ClassifyExpiry(w http.ResponseWriter, r *http.Request) error {
	var body ClassifyExpiryRequest
	if err := decodeJSON(r, &body, false); err != nil {
		return err
	}
	if body.ExpiryDate == nil || body.ExpiryDate.IsZero() {
		return apperr.NewValidationErr("expiry_date is required")
	}

	return writeJSON(w, http.StatusOK, h.inventorySvc.ClassifyExpiry(*body.ExpiryDate))
}
