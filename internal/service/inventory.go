package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/barcode"
	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
	"github.com/tuanvumaihuynh/pantry-sync/internal/event"
	"github.com/tuanvumaihuynh/pantry-sync/internal/expiry"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/patch"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/validator"
)

const unknownProductName = "Unknown Product"

type AddInventoryItemParams struct {
	Barcode    string      `validate:"omitempty,barcode"`
	Name       string      `validate:"max=200"`
	Brand      string      `validate:"max=100"`
	Category   string      `validate:"max=100"`
	Location   string      `validate:"max=100"`
	Quantity   int         `validate:"gte=1,lte=1000000"`
	ExpiryDate *model.Date `validate:"-"`
	Notes      string      `validate:"max=1000"`
}

type ListInventoryItemsParams struct {
	Location string
	Search   string
}

// UpdateInventoryItemParams is a partial update. Null clears brand, category,
// location, barcode, notes and expiry date; name and quantity cannot be null.
type UpdateInventoryItemParams struct {
	Name       patch.Field[string]
	Brand      patch.Field[string]
	Category   patch.Field[string]
	Location   patch.Field[string]
	Quantity   patch.Field[int]
	ExpiryDate patch.Field[model.Date]
	Barcode    patch.Field[string]
	Notes      patch.Field[string]
}

// InventoryItemView is an inventory item with its expiry classification as of today.
type InventoryItemView struct {
	model.InventoryItem
	// Expiry is nil when the item has no expiry date.
	Expiry *expiry.Classification
}

type InventoryService interface {
	AddInventoryItem(ctx context.Context, ownerID string, params AddInventoryItemParams) (InventoryItemView, error)
	ListInventoryItems(ctx context.Context, ownerID string, params ListInventoryItemsParams) ([]InventoryItemView, error)
	GetInventoryItem(ctx context.Context, ownerID string, id uuid.UUID) (InventoryItemView, error)
	UpdateInventoryItem(ctx context.Context, ownerID string, id uuid.UUID, params UpdateInventoryItemParams) (InventoryItemView, error)
	// AdjustInventoryQuantity applies delta atomically; the result never drops below one.
	AdjustInventoryQuantity(ctx context.Context, ownerID string, id uuid.UUID, delta int) (InventoryItemView, error)
	DeleteInventoryItem(ctx context.Context, ownerID string, id uuid.UUID) error

	ExpiringSummary(ctx context.Context, ownerID string, days int) (ExpiringSummary, error)
	InventoryStats(ctx context.Context, ownerID string) (InventoryStats, error)
	ExportInventoryCSV(ctx context.Context, ownerID string) ([]byte, error)

	ClassifyExpiry(expiryDate model.Date) expiry.Classification
	LookupBarcode(ctx context.Context, code string) (barcode.Product, error)
}

type inventoryService struct {
	logger        *slog.Logger
	store         store
	validator     validator.Validator
	inventoryRepo repository.InventoryItemRepository
	outboxMsgRepo repository.OutboxMsgRepository
	resolver      barcode.Resolver
	opts          options
}

func NewInventoryService(
	cfg config.Store,
	logger *slog.Logger,
	db db.DB,
	v validator.Validator,
	inventoryRepo repository.InventoryItemRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	resolver barcode.Resolver,
	opts ...Option,
) InventoryService {
	return &inventoryService{
		logger:        logger.With(slog.String("service", "inventory")),
		store:         store{db: db, timeout: cfg.Timeout},
		validator:     v,
		inventoryRepo: inventoryRepo,
		outboxMsgRepo: outboxMsgRepo,
		resolver:      resolver,
		opts:          applyOptions(opts),
	}
}

func (s *inventoryService) AddInventoryItem(ctx context.Context, ownerID string, params AddInventoryItemParams) (InventoryItemView, error) {
	if err := s.validator.Validate(params); err != nil {
		return InventoryItemView{}, fmt.Errorf("validate params: %w", err)
	}

	enriched := false
	if strings.TrimSpace(params.Name) == "" && params.Barcode != "" {
		enriched = s.enrich(ctx, &params)
		if !enriched {
			params.Name = fmt.Sprintf("%s (%s)", unknownProductName, params.Barcode)
		}
	}

	if strings.TrimSpace(params.Name) == "" {
		return InventoryItemView{}, apperr.InventoryItemNameRequiredErr
	}

	id, err := s.opts.newID()
	if err != nil {
		return InventoryItemView{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := s.opts.now()
	item := model.InventoryItem{
		ID:            id,
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(params.Name),
		Brand:         strings.TrimSpace(params.Brand),
		Category:      strings.TrimSpace(params.Category),
		Location:      strings.TrimSpace(params.Location),
		Quantity:      params.Quantity,
		ExpiryDate:    params.ExpiryDate,
		Barcode:       params.Barcode,
		Notes:         params.Notes,
		ManuallyAdded: params.Barcode == "",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ev := event.InventoryCreatedEvent{
		OwnerID:         ownerID,
		InventoryItemID: item.ID.String(),
		Name:            item.Name,
		Barcode:         item.Barcode,
		Quantity:        item.Quantity,
		Enriched:        enriched,
	}

	if err := s.store.tx(ctx, func(ctx context.Context, tx db.DB) error {
		if err := s.inventoryRepo.
			WithDB(tx).
			CreateInventoryItem(ctx, item); err != nil {
			return fmt.Errorf("inventory repository create inventory item: %w", err)
		}

		return writeOutboxMsg(ctx, s.outboxMsgRepo.WithDB(tx), event.TopicInventoryCreated, ownerID, ev)
	}); err != nil {
		return InventoryItemView{}, fmt.Errorf("db with tx: %w", storeErr(err, apperr.InventoryItemNotFoundErr))
	}

	return s.view(item), nil
}

// enrich fills missing metadata from the barcode and reports whether it did.
// Lookup failures are logged and never returned.
func (s *inventoryService) enrich(ctx context.Context, params *AddInventoryItemParams) bool {
	p, err := s.resolver.Resolve(ctx, params.Barcode)
	if err != nil {
		if errors.Is(err, barcode.ErrNotFound) {
			s.logger.InfoContext(ctx, "barcode not found, skipping enrichment",
				slog.String("barcode", params.Barcode))
			return false
		}

		s.logger.WarnContext(ctx, "barcode enrichment unavailable",
			slog.String("barcode", params.Barcode),
			slog.Any("error", apperr.EnrichmentUnavailableErr.WrapParent(err)),
		)
		return false
	}

	params.Name = p.Name
	if params.Brand == "" {
		params.Brand = p.Brand
	}
	if params.Category == "" && p.Category != barcode.Uncategorized {
		params.Category = p.Category
	}
	return true
}

func (s *inventoryService) ListInventoryItems(ctx context.Context, ownerID string, params ListInventoryItemsParams) ([]InventoryItemView, error) {
	var items []model.InventoryItem
	if err := s.store.call(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.inventoryRepo.ListInventoryItems(ctx, repository.ListInventoryItemsParams{
			OwnerID:  ownerID,
			Location: params.Location,
			Search:   strings.TrimSpace(params.Search),
		})
		return err
	}); err != nil {
		return nil, fmt.Errorf("inventory repository list inventory items: %w", storeErr(err, apperr.InventoryItemNotFoundErr))
	}

	return s.views(items), nil
}

func (s *inventoryService) GetInventoryItem(ctx context.Context, ownerID string, id uuid.UUID) (InventoryItemView, error) {
	var item model.InventoryItem
	if err := s.store.call(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.inventoryRepo.GetInventoryItem(ctx, ownerID, id)
		return err
	}); err != nil {
		return InventoryItemView{}, fmt.Errorf("inventory repository get inventory item: %w", storeErr(err, apperr.InventoryItemNotFoundErr))
	}

	return s.view(item), nil
}

func (s *inventoryService) UpdateInventoryItem(ctx context.Context, ownerID string, id uuid.UUID, params UpdateInventoryItemParams) (InventoryItemView, error) {
	if err := validateInventoryPatch(params); err != nil {
		return InventoryItemView{}, err
	}

	var item model.InventoryItem
	if err := s.store.tx(ctx, func(ctx context.Context, tx db.DB) error {
		repo := s.inventoryRepo.WithDB(tx)

		var err error
		item, err = repo.GetInventoryItem(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("inventory repository get inventory item: %w", err)
		}

		applyInventoryPatch(&item, params)
		item.UpdatedAt = s.opts.now()

		if err := repo.UpdateInventoryItem(ctx, item); err != nil {
			return fmt.Errorf("inventory repository update inventory item: %w", err)
		}
		return nil
	}); err != nil {
		return InventoryItemView{}, fmt.Errorf("db with tx: %w", storeErr(err, apperr.InventoryItemNotFoundErr))
	}

	return s.view(item), nil
}

func validateInventoryPatch(params UpdateInventoryItemParams) error {
	if params.Name.IsNull() {
		return apperr.NewValidationErr("name cannot be null")
	}
	if name, ok := params.Name.Get(); ok && strings.TrimSpace(name) == "" {
		return apperr.NewValidationErr("name must not be blank")
	}
	if params.Quantity.IsNull() {
		return apperr.NewValidationErr("quantity cannot be null")
	}
	if q, ok := params.Quantity.Get(); ok {
		if err := validateQuantity(q); err != nil {
			return err
		}
	}
	if code, ok := params.Barcode.Get(); ok && code != "" && !validator.BarcodeRegex.MatchString(code) {
		return apperr.NewValidationErr("barcode must be a numeric barcode of 6 to 14 digits")
	}
	return nil
}

func applyInventoryPatch(item *model.InventoryItem, params UpdateInventoryItemParams) {
	if v, ok := params.Name.Get(); ok {
		item.Name = strings.TrimSpace(v)
	}
	applyString(&item.Brand, params.Brand)
	applyString(&item.Category, params.Category)
	applyString(&item.Location, params.Location)
	applyString(&item.Barcode, params.Barcode)
	applyString(&item.Notes, params.Notes)
	if v, ok := params.Quantity.Get(); ok {
		item.Quantity = v
	}
	if params.ExpiryDate.IsSet() {
		item.ExpiryDate = params.ExpiryDate.Ptr()
	}
}

func applyString(dst *string, f patch.Field[string]) {
	if !f.IsSet() {
		return
	}
	v, _ := f.Get()
	*dst = strings.TrimSpace(v)
}

func (s *inventoryService) AdjustInventoryQuantity(ctx context.Context, ownerID string, id uuid.UUID, delta int) (InventoryItemView, error) {
	if delta < -model.MaxQuantity || delta > model.MaxQuantity {
		return InventoryItemView{}, apperr.NewValidationErr(fmt.Sprintf("delta must be between %d and %d", -model.MaxQuantity, model.MaxQuantity))
	}

	var item model.InventoryItem
	if err := s.store.call(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.inventoryRepo.ApplyQuantityDelta(ctx, repository.ApplyQuantityDeltaParams{
			OwnerID: ownerID,
			ID:      id,
			Delta:   delta,
			Now:     s.opts.now(),
		})
		return err
	}); err != nil {
		return InventoryItemView{}, fmt.Errorf("inventory repository apply quantity delta: %w", storeErr(err, apperr.InventoryItemNotFoundErr))
	}

	return s.view(item), nil
}

func (s *inventoryService) DeleteInventoryItem(ctx context.Context, ownerID string, id uuid.UUID) error {
	if err := s.store.call(ctx, func(ctx context.Context) error {
		return s.inventoryRepo.DeleteInventoryItem(ctx, ownerID, id)
	}); err != nil {
		return fmt.Errorf("inventory repository delete inventory item: %w", storeErr(err, apperr.InventoryItemNotFoundErr))
	}

	return nil
}

func (s *inventoryService) ClassifyExpiry(expiryDate model.Date) expiry.Classification {
	c, _ := expiry.Classify(&expiryDate, today(s.opts.now))
	return c
}

func (s *inventoryService) LookupBarcode(ctx context.Context, code string) (barcode.Product, error) {
	if !validator.BarcodeRegex.MatchString(code) {
		return barcode.Product{}, apperr.NewValidationErr("barcode must be a numeric barcode of 6 to 14 digits")
	}

	p, err := s.resolver.Resolve(ctx, code)
	if err != nil {
		if errors.Is(err, barcode.ErrNotFound) {
			return barcode.Product{}, apperr.BarcodeNotFoundErr
		}
		return barcode.Product{}, fmt.Errorf("resolve barcode: %w", apperr.EnrichmentUnavailableErr.WrapParent(err))
	}

	return p, nil
}

func (s *inventoryService) listAll(ctx context.Context, ownerID string) ([]model.InventoryItem, error) {
	var items []model.InventoryItem
	if err := s.store.call(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.inventoryRepo.ListInventoryItems(ctx, repository.ListInventoryItemsParams{OwnerID: ownerID})
		return err
	}); err != nil {
		return nil, fmt.Errorf("inventory repository list inventory items: %w", storeErr(err, apperr.InventoryItemNotFoundErr))
	}
	return items, nil
}

func (s *inventoryService) view(item model.InventoryItem) InventoryItemView {
	return viewAt(item, today(s.opts.now))
}

func (s *inventoryService) views(items []model.InventoryItem) []InventoryItemView {
	d := today(s.opts.now)
	out := make([]InventoryItemView, 0, len(items))
	for _, item := range items {
		out = append(out, viewAt(item, d))
	}
	return out
}

func viewAt(item model.InventoryItem, d model.Date) InventoryItemView {
	v := InventoryItemView{InventoryItem: item}
	if c, ok := expiry.Classify(item.ExpiryDate, d); ok {
		v.Expiry = &c
	}
	return v
}
