package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
	"github.com/tuanvumaihuynh/pantry-sync/internal/event"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/reconcile"
	"github.com/tuanvumaihuynh/pantry-sync/internal/repository"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
	"github.com/tuanvumaihuynh/pantry-sync/internal/suggest"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/patch"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/validator"
)

type AddShoppingItemParams struct {
	Name     string `validate:"required,notblank,max=200"`
	Brand    string `validate:"max=100"`
	Category string `validate:"max=100"`
	Quantity int    `validate:"gte=1,lte=1000000"`
	Notes    string `validate:"max=1000"`
}

// UpdateShoppingItemParams is a partial update. Null clears brand, category
// and notes.
type UpdateShoppingItemParams struct {
	Name     patch.Field[string]
	Brand    patch.Field[string]
	Category patch.Field[string]
	Quantity patch.Field[int]
	Notes    patch.Field[string]
	Checked  patch.Field[bool]
}

type SuggestLowStockParams struct {
	// Threshold overrides the configured low stock threshold when set.
	Threshold *int
}

// ImportFailure describes a checked shopping item that stayed on the list
// because its inventory write did not commit.
type ImportFailure struct {
	ShoppingItemID uuid.UUID
	Err            error
}

type ImportResult struct {
	ImportedCount       int
	CreatedInventoryIDs []uuid.UUID
	MergedInventoryIDs  []uuid.UUID
	Failures            []ImportFailure
}

type ShoppingService interface {
	// ListShoppingItems returns the owner's items newest first.
	ListShoppingItems(ctx context.Context, ownerID string, includeChecked bool) ([]model.ShoppingListItem, error)
	GetShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) (model.ShoppingListItem, error)
	AddShoppingItem(ctx context.Context, ownerID string, params AddShoppingItemParams) (model.ShoppingListItem, error)
	AddShoppingItemFromInventory(ctx context.Context, ownerID string, inventoryItemID uuid.UUID) (model.ShoppingListItem, error)
	UpdateShoppingItem(ctx context.Context, ownerID string, id uuid.UUID, params UpdateShoppingItemParams) (model.ShoppingListItem, error)
	// DeleteShoppingItem succeeds when the item is already gone.
	DeleteShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) error
	ClearChecked(ctx context.Context, ownerID string) (int, error)
	ImportCheckedToInventory(ctx context.Context, ownerID string) (ImportResult, error)
	SuggestLowStock(ctx context.Context, ownerID string, params SuggestLowStockParams) ([]model.ShoppingListItem, error)
}

type shoppingService struct {
	logger        *slog.Logger
	store         store
	validator     validator.Validator
	shoppingRepo  repository.ShoppingItemRepository
	inventoryRepo repository.InventoryItemRepository
	outboxMsgRepo repository.OutboxMsgRepository
	engine        *reconcile.Engine
	suggester     *suggest.Suggester
	opts          options
}

func NewShoppingService(
	cfg config.Store,
	suggestCfg config.Suggest,
	logger *slog.Logger,
	db db.DB,
	v validator.Validator,
	shoppingRepo repository.ShoppingItemRepository,
	inventoryRepo repository.InventoryItemRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	opts ...Option,
) ShoppingService {
	o := applyOptions(opts)
	return &shoppingService{
		logger:        logger.With(slog.String("service", "shopping")),
		store:         store{db: db, timeout: cfg.Timeout},
		validator:     v,
		shoppingRepo:  shoppingRepo,
		inventoryRepo: inventoryRepo,
		outboxMsgRepo: outboxMsgRepo,
		engine:        reconcile.NewEngine(o.newID, o.now),
		suggester:     suggest.New(suggest.PolicyFromConfig(suggestCfg), o.newID, o.now),
		opts:          o,
	}
}

func (s *shoppingService) ListShoppingItems(ctx context.Context, ownerID string, includeChecked bool) ([]model.ShoppingListItem, error) {
	var items []model.ShoppingListItem
	if err := s.store.call(ctx, func(ctx context.Context) error {
		var err error
		items, err = s.shoppingRepo.ListShoppingItems(ctx, repository.ListShoppingItemsParams{
			OwnerID:        ownerID,
			IncludeChecked: includeChecked,
		})
		return err
	}); err != nil {
		return nil, fmt.Errorf("shopping repository list shopping items: %w", storeErr(err, apperr.ShoppingItemNotFoundErr))
	}

	return items, nil
}

func (s *shoppingService) GetShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) (model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	if err := s.store.call(ctx, func(ctx context.Context) error {
		var err error
		item, err = s.shoppingRepo.GetShoppingItem(ctx, ownerID, id)
		return err
	}); err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("shopping repository get shopping item: %w", storeErr(err, apperr.ShoppingItemNotFoundErr))
	}

	return item, nil
}

func (s *shoppingService) AddShoppingItem(ctx context.Context, ownerID string, params AddShoppingItemParams) (model.ShoppingListItem, error) {
	if err := s.validator.Validate(params); err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("validate params: %w", err)
	}

	id, err := s.opts.newID()
	if err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	now := s.opts.now()
	item := model.ShoppingListItem{
		ID:        id,
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(params.Name),
		Brand:     strings.TrimSpace(params.Brand),
		Category:  strings.TrimSpace(params.Category),
		Quantity:  params.Quantity,
		Notes:     params.Notes,
		Source:    model.ShoppingSourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.call(ctx, func(ctx context.Context) error {
		return s.shoppingRepo.CreateShoppingItem(ctx, item)
	}); err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("shopping repository create shopping item: %w", storeErr(err, apperr.ShoppingItemNotFoundErr))
	}

	return item, nil
}

// AddShoppingItemFromInventory puts an inventory item on the list. When an
// unchecked entry for the same product exists its quantity grows by one
// instead.
func (s *shoppingService) AddShoppingItemFromInventory(ctx context.Context, ownerID string, inventoryItemID uuid.UUID) (model.ShoppingListItem, error) {
	var result model.ShoppingListItem
	if err := s.store.tx(ctx, func(ctx context.Context, tx db.DB) error {
		inv, err := s.inventoryRepo.WithDB(tx).GetInventoryItem(ctx, ownerID, inventoryItemID)
		if err != nil {
			return storeErr(fmt.Errorf("inventory repository get inventory item: %w", err), apperr.InventoryItemNotFoundErr)
		}

		shoppingRepo := s.shoppingRepo.WithDB(tx)
		unchecked, err := shoppingRepo.ListShoppingItems(ctx, repository.ListShoppingItemsParams{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("shopping repository list shopping items: %w", err)
		}

		now := s.opts.now()
		for _, existing := range unchecked {
			if existing.Key() != inv.Key() {
				continue
			}

			result, err = shoppingRepo.AddShoppingQuantity(ctx, repository.AddShoppingQuantityParams{
				OwnerID: ownerID,
				ID:      existing.ID,
				Delta:   1,
				Now:     now,
			})
			if err != nil {
				return fmt.Errorf("shopping repository add shopping quantity: %w", err)
			}
			return nil
		}

		id, err := s.opts.newID()
		if err != nil {
			return fmt.Errorf("generate uuid v7: %w", err)
		}

		notes := "From inventory"
		if inv.Location != "" {
			notes += ": " + inv.Location
		}

		result = model.ShoppingListItem{
			ID:              id,
			OwnerID:         ownerID,
			Name:            inv.Name,
			Brand:           inv.Brand,
			Category:        inv.Category,
			Quantity:        1,
			Notes:           notes,
			Source:          model.ShoppingSourceManual,
			InventoryItemID: &inv.ID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := shoppingRepo.CreateShoppingItem(ctx, result); err != nil {
			return fmt.Errorf("shopping repository create shopping item: %w", err)
		}
		return nil
	}); err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("db with tx: %w", storeErr(err, apperr.ShoppingItemNotFoundErr))
	}

	return result, nil
}

func (s *shoppingService) UpdateShoppingItem(ctx context.Context, ownerID string, id uuid.UUID, params UpdateShoppingItemParams) (model.ShoppingListItem, error) {
	if err := validateShoppingPatch(params); err != nil {
		return model.ShoppingListItem{}, err
	}

	var item model.ShoppingListItem
	if err := s.store.tx(ctx, func(ctx context.Context, tx db.DB) error {
		repo := s.shoppingRepo.WithDB(tx)

		var err error
		item, err = repo.GetShoppingItem(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("shopping repository get shopping item: %w", err)
		}

		now := s.opts.now()
		applyShoppingPatch(&item, params, now)
		item.UpdatedAt = now

		if err := repo.UpdateShoppingItem(ctx, item); err != nil {
			return fmt.Errorf("shopping repository update shopping item: %w", err)
		}
		return nil
	}); err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("db with tx: %w", storeErr(err, apperr.ShoppingItemNotFoundErr))
	}

	return item, nil
}

func validateShoppingPatch(params UpdateShoppingItemParams) error {
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
	if params.Checked.IsNull() {
		return apperr.NewValidationErr("checked cannot be null")
	}
	return nil
}

func applyShoppingPatch(item *model.ShoppingListItem, params UpdateShoppingItemParams, now time.Time) {
	if v, ok := params.Name.Get(); ok {
		item.Name = strings.TrimSpace(v)
	}
	applyString(&item.Brand, params.Brand)
	applyString(&item.Category, params.Category)
	applyString(&item.Notes, params.Notes)
	if v, ok := params.Quantity.Get(); ok {
		item.Quantity = v
	}
	if checked, ok := params.Checked.Get(); ok {
		switch {
		case checked && !item.Checked:
			item.CheckedAt = &now
		case !checked:
			item.CheckedAt = nil
		}
		item.Checked = checked
	}
}

func (s *shoppingService) DeleteShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) error {
	err := s.store.call(ctx, func(ctx context.Context) error {
		return s.shoppingRepo.DeleteShoppingItem(ctx, ownerID, id)
	})
	if err == nil || errors.Is(err, repository.ErrNotFound) {
		return nil
	}

	return fmt.Errorf("shopping repository delete shopping item: %w", storeErr(err, apperr.ShoppingItemNotFoundErr))
}

func (s *shoppingService) ClearChecked(ctx context.Context, ownerID string) (int, error) {
	var deleted []uuid.UUID
	if err := s.store.call(ctx, func(ctx context.Context) error {
		var err error
		deleted, err = s.shoppingRepo.DeleteCheckedShoppingItems(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("shopping repository delete checked shopping items: %w", err)
		}
		return nil
	}); err != nil {
		return 0, storeErr(err, apperr.ShoppingItemNotFoundErr)
	}

	return len(deleted), nil
}

// errNoLongerChecked marks an item that was unchecked or removed after the
// checked list was read.
var errNoLongerChecked = errors.New("shopping item is no longer checked")

// ImportCheckedToInventory reconciles every checked item into inventory.
// Each shopping item is committed in its own transaction together with its
// inventory write, so a failure leaves that item on the list and does not
// affect the rest of the batch.
func (s *shoppingService) ImportCheckedToInventory(ctx context.Context, ownerID string) (ImportResult, error) {
	var checked []model.ShoppingListItem
	if err := s.store.call(ctx, func(ctx context.Context) error {
		items, err := s.shoppingRepo.ListShoppingItems(ctx, repository.ListShoppingItemsParams{
			OwnerID:        ownerID,
			IncludeChecked: true,
		})
		if err != nil {
			return fmt.Errorf("shopping repository list shopping items: %w", err)
		}

		for _, item := range items {
			if item.Checked {
				checked = append(checked, item)
			}
		}
		return nil
	}); err != nil {
		return ImportResult{}, storeErr(err, apperr.ShoppingItemNotFoundErr)
	}

	res := ImportResult{
		CreatedInventoryIDs: []uuid.UUID{},
		MergedInventoryIDs:  []uuid.UUID{},
	}
	for _, item := range checked {
		action, err := s.importItem(ctx, ownerID, item.ID)
		switch {
		case errors.Is(err, errNoLongerChecked):
			s.logger.DebugContext(ctx, "skipped shopping item changed since listing",
				slog.String("shopping_item_id", item.ID.String()),
			)
			continue
		case err != nil:
			s.logger.WarnContext(ctx, "shopping item import failed",
				slog.String("shopping_item_id", item.ID.String()),
				slog.Any("error", err),
			)
			res.Failures = append(res.Failures, ImportFailure{ShoppingItemID: item.ID, Err: err})
			continue
		}

		res.ImportedCount++
		if action.Kind == reconcile.ActionCreate {
			res.CreatedInventoryIDs = append(res.CreatedInventoryIDs, action.InventoryItemID)
		} else {
			res.MergedInventoryIDs = append(res.MergedInventoryIDs, action.InventoryItemID)
		}
	}

	if res.ImportedCount > 0 || len(res.Failures) > 0 {
		s.logger.InfoContext(ctx, "imported checked shopping items",
			slog.Int("imported", res.ImportedCount),
			slog.Int("failed", len(res.Failures)),
		)
	}

	return res, nil
}

// importItem removes one shopping item while it is still checked and credits
// its stored quantity to inventory in the same transaction. The merge target
// is planned against the inventory as read inside that transaction.
func (s *shoppingService) importItem(ctx context.Context, ownerID string, id uuid.UUID) (reconcile.Action, error) {
	var action reconcile.Action

	err := s.store.tx(ctx, func(ctx context.Context, tx db.DB) error {
		item, err := s.shoppingRepo.WithDB(tx).TakeCheckedShoppingItem(ctx, ownerID, id)
		if errors.Is(err, repository.ErrNotFound) {
			return errNoLongerChecked
		}
		if err != nil {
			return fmt.Errorf("shopping repository take checked shopping item: %w", err)
		}

		inventoryRepo := s.inventoryRepo.WithDB(tx)
		inventory, err := inventoryRepo.ListInventoryItems(ctx, repository.ListInventoryItemsParams{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("inventory repository list inventory items: %w", err)
		}

		plan, err := s.engine.ImportChecked([]model.ShoppingListItem{item}, inventory)
		if err != nil {
			return fmt.Errorf("reconcile import checked: %w", err)
		}
		if len(plan.Actions) != 1 {
			return fmt.Errorf("reconcile import checked: expected one action, got %d", len(plan.Actions))
		}
		action = plan.Actions[0]

		switch action.Kind {
		case reconcile.ActionMerge:
			if _, err := inventoryRepo.ApplyQuantityDelta(ctx, repository.ApplyQuantityDeltaParams{
				OwnerID: ownerID,
				ID:      action.InventoryItemID,
				Delta:   action.Quantity,
				Now:     s.opts.now(),
			}); err != nil {
				return storeErr(fmt.Errorf("inventory repository apply quantity delta: %w", err), apperr.InventoryItemNotFoundErr)
			}
		case reconcile.ActionCreate:
			if err := inventoryRepo.CreateInventoryItem(ctx, action.Item); err != nil {
				return fmt.Errorf("inventory repository create inventory item: %w", err)
			}
		default:
			return fmt.Errorf("unknown import action: %s", action.Kind)
		}

		return writeOutboxMsg(ctx, s.outboxMsgRepo.WithDB(tx), event.TopicInventoryImported, ownerID, event.InventoryImportedEvent{
			OwnerID:         ownerID,
			ShoppingItemID:  item.ID.String(),
			InventoryItemID: action.InventoryItemID.String(),
			Action:          string(action.Kind),
			Name:            item.Name,
			Quantity:        action.Quantity,
		})
	})
	if errors.Is(err, errNoLongerChecked) {
		return reconcile.Action{}, err
	}

	return action, storeErr(err, apperr.ShoppingItemNotFoundErr)
}

func (s *shoppingService) SuggestLowStock(ctx context.Context, ownerID string, params SuggestLowStockParams) ([]model.ShoppingListItem, error) {
	if params.Threshold != nil && *params.Threshold < 0 {
		return nil, apperr.NewValidationErr("threshold must not be negative")
	}

	shopping, inventory, err := s.snapshot(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	suggestions, err := s.suggester.Suggest(inventory, shopping, today(s.opts.now), suggest.Override{Threshold: params.Threshold})
	if err != nil {
		return nil, fmt.Errorf("suggest low stock: %w", err)
	}

	if len(suggestions) == 0 {
		return suggestions, nil
	}

	ids := make([]string, 0, len(suggestions))
	for _, item := range suggestions {
		ids = append(ids, item.ID.String())
	}
	ev := event.ShoppingSuggestedEvent{OwnerID: ownerID, ShoppingItemIDs: ids}

	if err := s.store.tx(ctx, func(ctx context.Context, tx db.DB) error {
		if err := s.shoppingRepo.
			WithDB(tx).
			CreateShoppingItems(ctx, suggestions); err != nil {
			return fmt.Errorf("shopping repository create shopping items: %w", err)
		}

		return writeOutboxMsg(ctx, s.outboxMsgRepo.WithDB(tx), event.TopicShoppingSuggested, ownerID, ev)
	}); err != nil {
		return nil, fmt.Errorf("db with tx: %w", storeErr(err, apperr.ShoppingItemNotFoundErr))
	}

	s.logger.InfoContext(ctx, "suggested low stock items", slog.Int("count", len(suggestions)))
	return suggestions, nil
}

// snapshot reads the owner's full shopping list and inventory.
func (s *shoppingService) snapshot(ctx context.Context, ownerID string) ([]model.ShoppingListItem, []model.InventoryItem, error) {
	var (
		shopping  []model.ShoppingListItem
		inventory []model.InventoryItem
	)

	if err := s.store.call(ctx, func(ctx context.Context) error {
		var err error
		shopping, err = s.shoppingRepo.ListShoppingItems(ctx, repository.ListShoppingItemsParams{
			OwnerID:        ownerID,
			IncludeChecked: true,
		})
		if err != nil {
			return fmt.Errorf("shopping repository list shopping items: %w", err)
		}

		inventory, err = s.inventoryRepo.ListInventoryItems(ctx, repository.ListInventoryItemsParams{OwnerID: ownerID})
		if err != nil {
			return fmt.Errorf("inventory repository list inventory items: %w", err)
		}
		return nil
	}); err != nil {
		return nil, nil, storeErr(err, apperr.ShoppingItemNotFoundErr)
	}

	return shopping, inventory, nil
}
