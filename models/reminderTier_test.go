package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestClassifyReminder(t *testing.T) {
	today := date(2024, time.March, 10)

	tests := []struct {
		name   string
		due    time.Time
		want   ReminderTier
		wantOK bool
	}{
		{"five days out", today.AddDate(0, 0, 5), TierEarly, true},
		{"two days out", today.AddDate(0, 0, 2), TierEarly, true},
		{"tomorrow", today.AddDate(0, 0, 1), TierOneDay, true},
		{"today", today, TierDueToday, true},
		{"today later in the day", today.Add(20 * time.Hour), TierDueToday, true},
		{"yesterday", today.AddDate(0, 0, -1), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ClassifyReminder(today, tt.due)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyReminder_Scenario(t *testing.T) {
	sub := newTestSubscription(t, date(2024, time.January, 1), CycleMonthly, 3)

	cases := map[time.Time]ReminderTier{
		date(2024, time.January, 29): TierEarly,
		date(2024, time.January, 30): TierEarly,
		date(2024, time.January, 31): TierOneDay,
		date(2024, time.February, 1): TierDueToday,
	}
	for today, want := range cases {
		assert.True(t, sub.IsInReminderWindow(today))
		got, ok := ClassifyReminder(today, sub.NextBillingDate)
		assert.True(t, ok)
		assert.Equal(t, want, got, today.Format(time.DateOnly))
	}
}

func TestClassifyReminder_WideWindow(t *testing.T) {
	today := date(2024, time.May, 1)
	sub := newTestSubscription(t, today.AddDate(0, 0, 5).AddDate(0, -1, 0), CycleMonthly, 7)

	assert.Equal(t, today.AddDate(0, 0, 5), sub.NextBillingDate)
	assert.True(t, sub.IsInReminderWindow(today))
	tier, ok := ClassifyReminder(today, sub.NextBillingDate)
	assert.True(t, ok)
	assert.Equal(t, TierEarly, tier)
}

func TestDaysUntil_AcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// DST starts 2024-03-10 in New York, so that calendar day is 23 hours long
	today := time.Date(2024, time.March, 9, 8, 0, 0, 0, loc)
	due := time.Date(2024, time.March, 11, 0, 0, 0, 0, loc)
	assert.Equal(t, 2, DaysUntil(today, due))
}

func TestNewReminderNotice(t *testing.T) {
	sub := newTestSubscription(t, date(2024, time.January, 1), CycleMonthly, 3)
	sub.Owner = &User{ID: "owner-1", Username: "asha", Email: "asha@example.com"}

	notice := NewReminderNotice(sub, TierOneDay, 1)
	assert.Equal(t, sub.ID, notice.SubscriptionID)
	assert.Equal(t, "asha@example.com", notice.RecipientEmail)
	assert.Equal(t, "asha", notice.Username)
	assert.Equal(t, "Netflix", notice.PlatformName)
	assert.Equal(t, sub.NextBillingDate, notice.DueDate)
	assert.True(t, decimal.RequireFromString("649").Equal(notice.Amount))
	assert.Equal(t, CurrencyINR, notice.Currency)

	sub.Owner = nil
	assert.Empty(t, NewReminderNotice(sub, TierEarly, 3).RecipientEmail)
}
