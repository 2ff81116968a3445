package apperr

import "github.com/tuanvumaihuynh/pantry-sync/pkg/zerror"

const (
	ValidationErrorCode           = "VALIDATION_FAILED"
	InventoryItemNotFoundCode     = "INVENTORY_ITEM_NOT_FOUND"
	ShoppingItemNotFoundCode      = "SHOPPING_ITEM_NOT_FOUND"
	StoreUnavailableCode          = "STORE_UNAVAILABLE"
	EnrichmentUnavailableCode     = "ENRICHMENT_UNAVAILABLE"
	UnauthorizedCode              = "UNAUTHORIZED"
	BarcodeNotFoundCode           = "BARCODE_NOT_FOUND"
	InventoryItemNameRequiredCode = "INVENTORY_ITEM_NAME_REQUIRED"
)

var (
	ValidationErr = zerror.NewValidationFailed(ValidationErrorCode, "validation error")

	InventoryItemNotFoundErr = zerror.NewNotFound(InventoryItemNotFoundCode, "inventory item not found")
	ShoppingItemNotFoundErr  = zerror.NewNotFound(ShoppingItemNotFoundCode, "shopping item not found")

	// InventoryItemNameRequiredErr is returned when an item has neither name nor barcode.
	InventoryItemNameRequiredErr = zerror.NewValidationFailed(InventoryItemNameRequiredCode, "name or barcode is required")

	StoreUnavailableErr      = zerror.NewServiceUnavailable(StoreUnavailableCode, "item store is unavailable")
	EnrichmentUnavailableErr = zerror.NewBadGateway(EnrichmentUnavailableCode, "barcode resolution service is unavailable")
	BarcodeNotFoundErr       = zerror.NewNotFound(BarcodeNotFoundCode, "barcode not found")

	UnauthorizedErr = zerror.NewUnauthorized(UnauthorizedCode, "missing or invalid bearer token")
)

// NewValidationErr returns a validation error carrying a specific message.
func NewValidationErr(msg string) zerror.ZError {
	return zerror.NewValidationFailed(ValidationErrorCode, msg)
}
