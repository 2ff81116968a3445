// Package expiry classifies expiry dates into urgency tiers.
package expiry

import (
	"fmt"

	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
)

// Tier is the expiry urgency of an item, in ascending urgency.
type Tier string

const (
	TierGood     Tier = "good"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
	TierExpired  Tier = "expired"
)

const (
	// WarningDays is the largest days-remaining value classified as warning.
	WarningDays = 7
	// CriticalDays is the largest days-remaining value classified as critical.
	CriticalDays = 3
)

func (t Tier) Validate() error {
	switch t {
	case TierGood, TierWarning, TierCritical, TierExpired:
		return nil
	default:
		return fmt.Errorf("unknown tier: %q", string(t))
	}
}

// Urgency returns a rank where a larger number is more urgent.
func (t Tier) Urgency() int {
	switch t {
	case TierWarning:
		return 1
	case TierCritical:
		return 2
	case TierExpired:
		return 3
	default:
		return 0
	}
}

// Classification is the tier and badge derived from one days-remaining value.
type Classification struct {
	Tier          Tier   `json:"tier"`
	Badge         string `json:"badge"`
	DaysRemaining int    `json:"days_remaining"`
}

// Classify maps an expiry date to its urgency relative to today.
// It returns false when expiryDate is nil; such items are unmonitored.
func Classify(expiryDate *model.Date, today model.Date) (Classification, bool) {
	if expiryDate == nil || expiryDate.IsZero() {
		return Classification{}, false
	}

	return ClassifyDays(expiryDate.DaysSince(today)), true
}

// ClassifyDays derives tier and badge from the same days-remaining value.
func ClassifyDays(daysRemaining int) Classification {
	return Classification{
		Tier:          tierFor(daysRemaining),
		Badge:         badgeFor(daysRemaining),
		DaysRemaining: daysRemaining,
	}
}

func tierFor(days int) Tier {
	switch {
	case days < 0:
		return TierExpired
	case days <= CriticalDays:
		return TierCritical
	case days <= WarningDays:
		return TierWarning
	default:
		return TierGood
	}
}

func badgeFor(days int) string {
	switch {
	case days == 0:
		return "Expires today"
	case days == 1:
		return "Expires tomorrow"
	case days > 1:
		return fmt.Sprintf("Expires in %d days", days)
	case days == -1:
		return "Expired yesterday"
	default:
		return fmt.Sprintf("Expired %d days ago", -days)
	}
}
