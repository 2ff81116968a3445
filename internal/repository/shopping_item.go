package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
)

type ListShoppingItemsParams struct {
	OwnerID        string
	IncludeChecked bool
}

type AddShoppingQuantityParams struct {
	OwnerID string
	ID      uuid.UUID
	Delta   int
	Now     time.Time
}

type ShoppingItemRepository interface {
	WithDB(db db.DB) ShoppingItemRepository
	CreateShoppingItem(ctx context.Context, item model.ShoppingListItem) error
	CreateShoppingItems(ctx context.Context, items []model.ShoppingListItem) error
	GetShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) (model.ShoppingListItem, error)
	// ListShoppingItems returns the owner's items newest first.
	ListShoppingItems(ctx context.Context, params ListShoppingItemsParams) ([]model.ShoppingListItem, error)
	UpdateShoppingItem(ctx context.Context, item model.ShoppingListItem) error
	AddShoppingQuantity(ctx context.Context, params AddShoppingQuantityParams) (model.ShoppingListItem, error)
	DeleteShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) error
	// TakeCheckedShoppingItem deletes the item only while it is checked and
	// returns the deleted row. ErrNotFound covers missing and unchecked items.
	TakeCheckedShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) (model.ShoppingListItem, error)
	// DeleteCheckedShoppingItems removes every checked item of the owner and
	// returns their ids.
	DeleteCheckedShoppingItems(ctx context.Context, ownerID string) ([]uuid.UUID, error)
}

type shoppingItemRepository struct {
	db db.DB
}

func NewShoppingItemRepository(db db.DB) ShoppingItemRepository {
	return &shoppingItemRepository{db: db}
}

func (r shoppingItemRepository) WithDB(db db.DB) ShoppingItemRepository {
	return &shoppingItemRepository{db: db}
}

const shoppingItemColumns = `
	id, owner_id, name, brand, category, quantity, notes, checked, checked_at,
	source, inventory_item_id, created_at, updated_at`

const insertShoppingItemSQL = `
	INSERT INTO shopping_items (` + shoppingItemColumns + `)
	VALUES (
		@id, @owner_id, @name, @brand, @category, @quantity, @notes, @checked, @checked_at,
		@source, @inventory_item_id, @created_at, @updated_at
	)`

func (r shoppingItemRepository) CreateShoppingItem(ctx context.Context, item model.ShoppingListItem) error {
	if _, err := r.db.Exec(ctx, insertShoppingItemSQL, shoppingItemArgs(item)); err != nil {
		return fmt.Errorf("insert shopping item: %w", err)
	}

	return nil
}

func (r shoppingItemRepository) CreateShoppingItems(ctx context.Context, items []model.ShoppingListItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(insertShoppingItemSQL, shoppingItemArgs(item))
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert shopping items batch: %w", err)
	}

	return nil
}

func (r shoppingItemRepository) GetShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) (model.ShoppingListItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+shoppingItemColumns+`
		FROM shopping_items
		WHERE id = @id AND owner_id = @owner_id
	`, pgx.NamedArgs{
		"id":       id,
		"owner_id": ownerID,
	})
	if err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("query shopping item: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanShoppingItem)
	if err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("collect shopping item: %w", notFoundOr(err))
	}

	return item, nil
}

func (r shoppingItemRepository) ListShoppingItems(ctx context.Context, params ListShoppingItemsParams) ([]model.ShoppingListItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+shoppingItemColumns+`
		FROM shopping_items
		WHERE owner_id = @owner_id
			AND (@include_checked::boolean OR NOT checked)
		ORDER BY created_at DESC, id DESC
	`, pgx.NamedArgs{
		"owner_id":        params.OwnerID,
		"include_checked": params.IncludeChecked,
	})
	if err != nil {
		return nil, fmt.Errorf("query shopping items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanShoppingItem)
	if err != nil {
		return nil, fmt.Errorf("collect shopping items: %w", err)
	}

	return items, nil
}

func (r shoppingItemRepository) UpdateShoppingItem(ctx context.Context, item model.ShoppingListItem) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE shopping_items
		SET
			name       = @name,
			brand      = @brand,
			category   = @category,
			quantity   = @quantity,
			notes      = @notes,
			checked    = @checked,
			checked_at = @checked_at,
			updated_at = @updated_at
		WHERE id = @id AND owner_id = @owner_id
	`, shoppingItemArgs(item))
	if err != nil {
		return fmt.Errorf("update shopping item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r shoppingItemRepository) AddShoppingQuantity(ctx context.Context, params AddShoppingQuantityParams) (model.ShoppingListItem, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE shopping_items
		SET
			quantity   = LEAST(GREATEST(quantity::bigint + @delta, @min_quantity), @max_quantity),
			updated_at = @updated_at
		WHERE id = @id AND owner_id = @owner_id
		RETURNING `+shoppingItemColumns,
		pgx.NamedArgs{
			"id":           params.ID,
			"owner_id":     params.OwnerID,
			"delta":        params.Delta,
			"min_quantity": model.MinQuantity,
			"max_quantity": model.MaxQuantity,
			"updated_at":   params.Now,
		})
	if err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("add shopping quantity: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanShoppingItem)
	if err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("collect shopping item: %w", notFoundOr(err))
	}

	return item, nil
}

func (r shoppingItemRepository) DeleteShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM shopping_items
		WHERE id = @id AND owner_id = @owner_id
	`, pgx.NamedArgs{
		"id":       id,
		"owner_id": ownerID,
	})
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r shoppingItemRepository) TakeCheckedShoppingItem(ctx context.Context, ownerID string, id uuid.UUID) (model.ShoppingListItem, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM shopping_items
		WHERE id = @id AND owner_id = @owner_id AND checked
		RETURNING `+shoppingItemColumns,
		pgx.NamedArgs{
			"id":       id,
			"owner_id": ownerID,
		})
	if err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("take checked shopping item: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanShoppingItem)
	if err != nil {
		return model.ShoppingListItem{}, fmt.Errorf("collect shopping item: %w", notFoundOr(err))
	}

	return item, nil
}

func (r shoppingItemRepository) DeleteCheckedShoppingItems(ctx context.Context, ownerID string) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM shopping_items
		WHERE owner_id = @owner_id AND checked
		RETURNING id
	`, pgx.NamedArgs{
		"owner_id": ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("delete checked shopping items: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect deleted shopping item ids: %w", err)
	}

	return ids, nil
}

func shoppingItemArgs(item model.ShoppingListItem) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":                item.ID,
		"owner_id":          item.OwnerID,
		"name":              item.Name,
		"brand":             item.Brand,
		"category":          item.Category,
		"quantity":          item.Quantity,
		"notes":             item.Notes,
		"checked":           item.Checked,
		"checked_at":        item.CheckedAt,
		"source":            string(item.Source),
		"inventory_item_id": item.InventoryItemID,
		"created_at":        item.CreatedAt,
		"updated_at":        item.UpdatedAt,
	}
}

func scanShoppingItem(row pgx.CollectableRow) (model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	if err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Name,
		&item.Brand,
		&item.Category,
		&item.Quantity,
		&item.Notes,
		&item.Checked,
		&item.CheckedAt,
		&item.Source,
		&item.InventoryItemID,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return model.ShoppingListItem{}, err
	}

	return item, nil
}
