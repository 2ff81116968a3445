package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
)

type ListInventoryItemsParams struct {
	OwnerID  string
	Location string
	// Search matches name, brand or barcode case-insensitively.
	Search string
}

type ApplyQuantityDeltaParams struct {
	OwnerID string
	ID      uuid.UUID
	Delta   int
	Now     time.Time
}

type InventoryItemRepository interface {
	WithDB(db db.DB) InventoryItemRepository
	CreateInventoryItem(ctx context.Context, item model.InventoryItem) error
	GetInventoryItem(ctx context.Context, ownerID string, id uuid.UUID) (model.InventoryItem, error)
	ListInventoryItems(ctx context.Context, params ListInventoryItemsParams) ([]model.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, item model.InventoryItem) error
	// ApplyQuantityDelta atomically adds Delta to the stored quantity, clamped to
	// [model.MinQuantity, model.MaxQuantity].
	ApplyQuantityDelta(ctx context.Context, params ApplyQuantityDeltaParams) (model.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, ownerID string, id uuid.UUID) error
}

type inventoryItemRepository struct {
	db db.DB
}

func NewInventoryItemRepository(db db.DB) InventoryItemRepository {
	return &inventoryItemRepository{db: db}
}

func (r inventoryItemRepository) WithDB(db db.DB) InventoryItemRepository {
	return &inventoryItemRepository{db: db}
}

const inventoryItemColumns = `
	id, owner_id, name, brand, category, location, quantity, expiry_date,
	barcode, notes, manually_added, created_at, updated_at`

func (r inventoryItemRepository) CreateInventoryItem(ctx context.Context, item model.InventoryItem) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO inventory_items (`+inventoryItemColumns+`)
		VALUES (
			@id, @owner_id, @name, @brand, @category, @location, @quantity, @expiry_date,
			@barcode, @notes, @manually_added, @created_at, @updated_at
		)
	`, inventoryItemArgs(item))
	if err != nil {
		return fmt.Errorf("insert inventory item: %w", err)
	}

	return nil
}

func (r inventoryItemRepository) GetInventoryItem(ctx context.Context, ownerID string, id uuid.UUID) (model.InventoryItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+inventoryItemColumns+`
		FROM inventory_items
		WHERE id = @id AND owner_id = @owner_id
	`, pgx.NamedArgs{
		"id":       id,
		"owner_id": ownerID,
	})
	if err != nil {
		return model.InventoryItem{}, fmt.Errorf("query inventory item: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanInventoryItem)
	if err != nil {
		return model.InventoryItem{}, fmt.Errorf("collect inventory item: %w", notFoundOr(err))
	}

	return item, nil
}

func (r inventoryItemRepository) ListInventoryItems(ctx context.Context, params ListInventoryItemsParams) ([]model.InventoryItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+inventoryItemColumns+`
		FROM inventory_items
		WHERE owner_id = @owner_id
			AND (@location::text = '' OR location = @location)
			AND (
				@search::text = ''
				OR name ILIKE '%' || @search || '%'
				OR brand ILIKE '%' || @search || '%'
				OR barcode ILIKE '%' || @search || '%'
			)
		ORDER BY updated_at DESC, id DESC
	`, pgx.NamedArgs{
		"owner_id": params.OwnerID,
		"location": params.Location,
		"search":   params.Search,
	})
	if err != nil {
		return nil, fmt.Errorf("query inventory items: %w", err)
	}

	items, err := pgx.CollectRows(rows, scanInventoryItem)
	if err != nil {
		return nil, fmt.Errorf("collect inventory items: %w", err)
	}

	return items, nil
}

func (r inventoryItemRepository) UpdateInventoryItem(ctx context.Context, item model.InventoryItem) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE inventory_items
		SET
			name        = @name,
			brand       = @brand,
			category    = @category,
			location    = @location,
			quantity    = @quantity,
			expiry_date = @expiry_date,
			barcode     = @barcode,
			notes       = @notes,
			updated_at  = @updated_at
		WHERE id = @id AND owner_id = @owner_id
	`, inventoryItemArgs(item))
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r inventoryItemRepository) ApplyQuantityDelta(ctx context.Context, params ApplyQuantityDeltaParams) (model.InventoryItem, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE inventory_items
		SET
			quantity   = LEAST(GREATEST(quantity::bigint + @delta, @min_quantity), @max_quantity),
			updated_at = @updated_at
		WHERE id = @id AND owner_id = @owner_id
		RETURNING `+inventoryItemColumns,
		pgx.NamedArgs{
			"id":           params.ID,
			"owner_id":     params.OwnerID,
			"delta":        params.Delta,
			"min_quantity": model.MinQuantity,
			"max_quantity": model.MaxQuantity,
			"updated_at":   params.Now,
		})
	if err != nil {
		return model.InventoryItem{}, fmt.Errorf("apply quantity delta: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanInventoryItem)
	if err != nil {
		return model.InventoryItem{}, fmt.Errorf("collect inventory item: %w", notFoundOr(err))
	}

	return item, nil
}

func (r inventoryItemRepository) DeleteInventoryItem(ctx context.Context, ownerID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM inventory_items
		WHERE id = @id AND owner_id = @owner_id
	`, pgx.NamedArgs{
		"id":       id,
		"owner_id": ownerID,
	})
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func inventoryItemArgs(item model.InventoryItem) pgx.NamedArgs {
	return pgx.NamedArgs{
		"id":             item.ID,
		"owner_id":       item.OwnerID,
		"name":           item.Name,
		"brand":          item.Brand,
		"category":       item.Category,
		"location":       item.Location,
		"quantity":       item.Quantity,
		"expiry_date":    dateToPg(item.ExpiryDate),
		"barcode":        item.Barcode,
		"notes":          item.Notes,
		"manually_added": item.ManuallyAdded,
		"created_at":     item.CreatedAt,
		"updated_at":     item.UpdatedAt,
	}
}

func scanInventoryItem(row pgx.CollectableRow) (model.InventoryItem, error) {
	var (
		item   model.InventoryItem
		expiry pgtype.Date
	)

	if err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Name,
		&item.Brand,
		&item.Category,
		&item.Location,
		&item.Quantity,
		&expiry,
		&item.Barcode,
		&item.Notes,
		&item.ManuallyAdded,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return model.InventoryItem{}, err
	}

	item.ExpiryDate = dateFromPg(expiry)
	return item, nil
}

func dateToPg(d *model.Date) pgtype.Date {
	if d == nil || d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time(), Valid: true}
}

func dateFromPg(d pgtype.Date) *model.Date {
	if !d.Valid {
		return nil
	}
	date := model.DateOf(d.Time)
	return &date
}
