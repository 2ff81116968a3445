package expiry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/pantry-sync/internal/expiry"
	"github.com/tuanvumaihuynh/pantry-sync/internal/model"
	"github.com/tuanvumaihuynh/pantry-sync/pkg/ptr"
)

var today = model.NewDate(2024, time.June, 15)

func TestClassifyBoundaries(t *testing.T) {
	tests := []struct {
		days      int
		wantTier  expiry.Tier
		wantBadge string
	}{
		{days: 30, wantTier: expiry.TierGood, wantBadge: "Expires in 30 days"},
		{days: 8, wantTier: expiry.TierGood, wantBadge: "Expires in 8 days"},
		{days: 7, wantTier: expiry.TierWarning, wantBadge: "Expires in 7 days"},
		{days: 4, wantTier: expiry.TierWarning, wantBadge: "Expires in 4 days"},
		{days: 3, wantTier: expiry.TierCritical, wantBadge: "Expires in 3 days"},
		{days: 2, wantTier: expiry.TierCritical, wantBadge: "Expires in 2 days"},
		{days: 1, wantTier: expiry.TierCritical, wantBadge: "Expires tomorrow"},
		{days: 0, wantTier: expiry.TierCritical, wantBadge: "Expires today"},
		{days: -1, wantTier: expiry.TierExpired, wantBadge: "Expired yesterday"},
		{days: -3, wantTier: expiry.TierExpired, wantBadge: "Expired 3 days ago"},
	}

	for _, tt := range tests {
		t.Run(tt.wantBadge, func(t *testing.T) {
			date := today.AddDays(tt.days)
			got, ok := expiry.Classify(&date, today)

			assert.True(t, ok)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantBadge, got.Badge)
			assert.Equal(t, tt.days, got.DaysRemaining)
		})
	}
}

func TestClassifyMonotonic(t *testing.T) {
	prev := expiry.ClassifyDays(60).Tier.Urgency()
	for days := 59; days >= -60; days-- {
		cur := expiry.ClassifyDays(days).Tier.Urgency()
		assert.GreaterOrEqual(t, cur, prev, "urgency decreased at %d days", days)
		prev = cur
	}
}

func TestClassifyUnmonitored(t *testing.T) {
	_, ok := expiry.Classify(nil, today)
	assert.False(t, ok)

	_, ok = expiry.Classify(ptr.New(model.Date{}), today)
	assert.False(t, ok)
}

func TestTierValidate(t *testing.T) {
	assert.NoError(t, expiry.TierCritical.Validate())
	assert.Error(t, expiry.Tier("stale").Validate())
}
