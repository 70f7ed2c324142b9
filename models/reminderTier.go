package models

import (
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

type ReminderTier string

// ReminderTier enum values
const (
	TierEarly    ReminderTier = "EarlyReminder"
	TierOneDay   ReminderTier = "OneDayReminder"
	TierDueToday ReminderTier = "DueTodayReminder"
)

// ReminderNotice is everything a notifier needs to tell an owner about an upcoming payment.
type ReminderNotice struct {
	SubscriptionID string
	Tier           ReminderTier
	RecipientEmail string
	Username       string
	PlatformName   string
	DueDate        time.Time
	DaysLeft       int
	Amount         decimal.Decimal
	Currency       Currency
}

func NewReminderNotice(sub *Subscription, tier ReminderTier, daysLeft int) ReminderNotice {
	notice := ReminderNotice{
		SubscriptionID: sub.ID,
		Tier:           tier,
		PlatformName:   sub.PlatformName,
		DueDate:        sub.NextBillingDate,
		DaysLeft:       daysLeft,
		Amount:         sub.Price.Amount,
		Currency:       sub.Price.Currency,
	}
	if sub.Owner != nil {
		notice.RecipientEmail = sub.Owner.Email
		notice.Username = sub.Owner.Username
	}
	return notice
}

// DaysUntil counts calendar days from today to target, both taken at midnight in today's
// location. Negative when target is in the past.
func DaysUntil(today, target time.Time) int {
	a := startOfDay(today, today.Location())
	b := startOfDay(target, today.Location())

	// compare as UTC dates so DST transitions never yield 23h or 25h days
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

// ClassifyReminder picks the single tier owed on today for a payment due on nextBillingDate.
// It returns false when the due date has already passed.
func ClassifyReminder(today, nextBillingDate time.Time) (ReminderTier, bool) {
	switch d := DaysUntil(today, nextBillingDate); {
	case d > 1:
		return TierEarly, true
	case d == 1:
		return TierOneDay, true
	case d == 0:
		return TierDueToday, true
	default:
		return "", false
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	return now.With(t.In(loc)).BeginningOfDay()
}
