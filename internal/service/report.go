package service

import (
	"bytes"
	"cmp"
	"context"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/expiry"
)

// DefaultExpiringDays is the look-ahead window of the expiring summary.
const DefaultExpiringDays = expiry.WarningDays

// ExpiringSummary groups the items that expire within Days by tier. Items
// classified good but still inside the window are reported as Upcoming.
type ExpiringSummary struct {
	Days     int
	Expired  []InventoryItemView
	Critical []InventoryItemView
	Warning  []InventoryItemView
	Upcoming []InventoryItemView
}

// Total is the number of items in the summary.
func (s ExpiringSummary) Total() int {
	return len(s.Expired) + len(s.Critical) + len(s.Warning) + len(s.Upcoming)
}

type InventoryStats struct {
	TotalItems         int
	TotalQuantity      int
	Locations          []string
	Categories         []string
	ExpiringSoon       int
	ManuallyAddedCount int
}

func (s *inventoryService) ExpiringSummary(ctx context.Context, ownerID string, days int) (ExpiringSummary, error) {
	if days < 0 {
		return ExpiringSummary{}, apperr.NewValidationErr("days must not be negative")
	}

	items, err := s.listAll(ctx, ownerID)
	if err != nil {
		return ExpiringSummary{}, err
	}

	d := today(s.opts.now)
	var monitored []InventoryItemView
	for _, item := range items {
		v := viewAt(item, d)
		if v.Expiry == nil || v.Expiry.DaysRemaining > days {
			continue
		}
		monitored = append(monitored, v)
	}

	slices.SortStableFunc(monitored, func(a, b InventoryItemView) int {
		return cmp.Compare(a.Expiry.DaysRemaining, b.Expiry.DaysRemaining)
	})

	summary := ExpiringSummary{Days: days}
	for _, v := range monitored {
		switch v.Expiry.Tier {
		case expiry.TierExpired:
			summary.Expired = append(summary.Expired, v)
		case expiry.TierCritical:
			summary.Critical = append(summary.Critical, v)
		case expiry.TierWarning:
			summary.Warning = append(summary.Warning, v)
		case expiry.TierGood:
			summary.Upcoming = append(summary.Upcoming, v)
		}
	}

	return summary, nil
}

func (s *inventoryService) InventoryStats(ctx context.Context, ownerID string) (InventoryStats, error) {
	items, err := s.listAll(ctx, ownerID)
	if err != nil {
		return InventoryStats{}, err
	}

	d := today(s.opts.now)
	stats := InventoryStats{TotalItems: len(items)}
	locations := map[string]struct{}{}
	categories := map[string]struct{}{}

	for _, item := range items {
		stats.TotalQuantity += item.Quantity
		if item.ManuallyAdded {
			stats.ManuallyAddedCount++
		}
		if item.Location != "" {
			locations[item.Location] = struct{}{}
		}
		if item.Category != "" {
			categories[item.Category] = struct{}{}
		}
		if c, ok := expiry.Classify(item.ExpiryDate, d); ok && c.DaysRemaining <= DefaultExpiringDays {
			stats.ExpiringSoon++
		}
	}

	stats.Locations = sortedKeys(locations)
	stats.Categories = sortedKeys(categories)
	return stats, nil
}

var csvHeader = []string{"Name", "Barcode", "Quantity", "Location", "Category", "Expiry Date", "Added Date", "Notes"}

func (s *inventoryService) ExportInventoryCSV(ctx context.Context, ownerID string) ([]byte, error) {
	items, err := s.listAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, item := range items {
		expiryDate := ""
		if item.ExpiryDate != nil {
			expiryDate = item.ExpiryDate.String()
		}

		if err := w.Write([]string{
			item.Name,
			item.Barcode,
			strconv.Itoa(item.Quantity),
			item.Location,
			item.Category,
			expiryDate,
			item.CreatedAt.UTC().Format(time.RFC3339),
			item.Notes,
		}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
