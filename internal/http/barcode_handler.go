package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/service"
)

type BarcodeLookupResponse struct {
	Found    bool   `json:"found"`
	Barcode  string `json:"barcode"`
	Name     string `json:"name,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Category string `json:"category,omitempty"`
	Source   string `json:"source,omitempty"`
}

type ForgetBarcodeResponse struct {
	Removed bool `json:"removed"`
}

type barcodeHandler struct {
	inventorySvc service.InventoryService
	cache        BarcodeCache
}

func newBarcodeHandler(inventorySvc service.InventoryService, cache BarcodeCache) *barcodeHandler {
	return &barcodeHandler{
		inventorySvc: inventorySvc,
		cache:        cache,
	}
}

// LookupBarcode answers 200 with found=false for unknown barcodes so clients
// can fall back to manual entry.
func (h *barcodeHandler) LookupBarcode(w http.ResponseWriter, r *http.Request) error {
	code, err := pathString(r, "barcode")
	if err != nil {
		return err
	}

	p, err := h.inventorySvc.LookupBarcode(r.Context(), code)
	if errors.Is(err, apperr.BarcodeNotFoundErr) {
		return writeJSON(w, http.StatusOK, BarcodeLookupResponse{Barcode: code})
	}
	if err != nil {
		return fmt.Errorf("inventory service lookup barcode: %w", err)
	}

	return writeJSON(w, http.StatusOK, BarcodeLookupResponse{
		Found:    true,
		Barcode:  code,
		Name:     p.Name,
		Brand:    p.Brand,
		Category: p.Category,
		Source:   string(p.Source),
	})
}

func (h *barcodeHandler) ForgetBarcode(w http.ResponseWriter, r *http.Request) error {
	code, err := pathString(r, "barcode")
	if err != nil {
		return err
	}

	removed, err := h.cache.Forget(r.Context(), code)
	if err != nil {
		return fmt.Errorf("barcode cache forget: %w", apperr.StoreUnavailableErr.WrapParent(err))
	}

	return writeJSON(w, http.StatusOK, ForgetBarcodeResponse{Removed: removed})
}
