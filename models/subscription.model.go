package models

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"subminder/apperror"
)

type SubscriptionStatus string

// SubscriptionStatus enum values
const (
	StatusActive    SubscriptionStatus = "Active"
	StatusCancelled SubscriptionStatus = "Cancelled"
	StatusPaused    SubscriptionStatus = "Paused"
	StatusExpired   SubscriptionStatus = "Expired"
)

var subscriptionStatuses = []SubscriptionStatus{StatusActive, StatusCancelled, StatusPaused, StatusExpired}

func (s SubscriptionStatus) IsValid() bool {
	return lo.Contains(subscriptionStatuses, s)
}

type Currency string

// Currency enum values
const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyINR Currency = "INR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
)

var currencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyINR, CurrencyGBP, CurrencyJPY}

func (c Currency) IsValid() bool {
	return lo.Contains(currencies, c)
}

const (
	DefaultCurrency           = CurrencyINR
	DefaultBillingCycle       = CycleMonthly
	DefaultCategory           = "Other"
	DefaultReminderDaysBefore = 3
	MaxReminderDaysBefore     = 30
)

type Price struct {
	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency Currency        `gorm:"type:varchar(3);not null" json:"currency"`
}

// Subscription is a user's recurring payment. NextBillingDate is derived from StartDate and
// BillingCycle and is only ever written by the methods in this file.
type Subscription struct {
	ID                 string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID            string             `gorm:"type:varchar(36);not null;index:idx_subscriptions_owner_next,priority:1" json:"ownerId"`
	Owner              *User              `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	PlatformName       string             `gorm:"type:varchar(120);not null" json:"platformName"`
	Price              Price              `gorm:"embedded;embeddedPrefix:price_" json:"price"`
	BillingCycle       BillingCycle       `gorm:"type:varchar(20);not null" json:"billingCycle"`
	StartDate          time.Time          `gorm:"not null" json:"startDate"`
	NextBillingDate    time.Time          `gorm:"not null;index:idx_subscriptions_owner_next,priority:2;index:idx_subscriptions_status_next,priority:2" json:"nextBillingDate"`
	Status             SubscriptionStatus `gorm:"type:varchar(20);not null;index:idx_subscriptions_status_next,priority:1" json:"status"`
	Category           string             `gorm:"type:varchar(60);not null" json:"category"`
	ReminderDaysBefore int                `gorm:"not null" json:"reminderDaysBefore"`
	LastReminderSent   *time.Time         `json:"lastReminderSent"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// SubscriptionInput is the data needed to create a subscription. Zero values pick the defaults.
type SubscriptionInput struct {
	PlatformName       string
	Amount             decimal.Decimal
	Currency           Currency
	BillingCycle       BillingCycle
	StartDate          time.Time
	Status             SubscriptionStatus
	Category           string
	ReminderDaysBefore *int
}

type PricePatch struct {
	Amount   *decimal.Decimal
	Currency *Currency
}

// SubscriptionPatch is a partial update; nil fields are left as they are.
type SubscriptionPatch struct {
	PlatformName       *string
	Price              *PricePatch
	BillingCycle       *BillingCycle
	StartDate          *time.Time
	Status             *SubscriptionStatus
	Category           *string
	ReminderDaysBefore *int
}

// NormalizePlatformName trims s and capitalizes the first letter, lower-casing the rest.
func NormalizePlatformName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}

// NewSubscription builds a validated, Active-by-default subscription for ownerID with its
// next billing date already derived.
func NewSubscription(ownerID string, in SubscriptionInput) (*Subscription, error) {
	sub := &Subscription{
		ID:                 uuid.NewString(),
		OwnerID:            strings.TrimSpace(ownerID),
		PlatformName:       NormalizePlatformName(in.PlatformName),
		Price:              Price{Amount: in.Amount, Currency: in.Currency},
		BillingCycle:       in.BillingCycle,
		StartDate:          in.StartDate,
		Status:             in.Status,
		Category:           strings.TrimSpace(in.Category),
		ReminderDaysBefore: DefaultReminderDaysBefore,
	}
	if sub.Price.Currency == "" {
		sub.Price.Currency = DefaultCurrency
	}
	if sub.BillingCycle == "" {
		sub.BillingCycle = DefaultBillingCycle
	}
	if sub.Status == "" {
		sub.Status = StatusActive
	}
	if sub.Category == "" {
		sub.Category = DefaultCategory
	}
	if in.ReminderDaysBefore != nil {
		sub.ReminderDaysBefore = *in.ReminderDaysBefore
	}

	fields := sub.validate()
	if sub.OwnerID == "" {
		fields["ownerId"] = "Owner is required!"
	}
	if err := apperror.NewValidation(fields); err != nil {
		return nil, err
	}

	sub.NextBillingDate = AdvanceBillingDate(sub.StartDate, sub.BillingCycle)
	return sub, nil
}

// ApplyPatch applies p and re-derives the next billing date. On a validation error the
// subscription is left unchanged.
func (s *Subscription) ApplyPatch(p SubscriptionPatch) error {
	next := *s

	if p.PlatformName != nil {
		next.PlatformName = NormalizePlatformName(*p.PlatformName)
	}
	if p.Price != nil {
		// merge, never replace the whole price with a partial one
		if p.Price.Amount != nil {
			next.Price.Amount = *p.Price.Amount
		}
		if p.Price.Currency != nil {
			next.Price.Currency = *p.Price.Currency
		}
	}
	if p.BillingCycle != nil {
		next.BillingCycle = *p.BillingCycle
	}
	if p.StartDate != nil {
		next.StartDate = *p.StartDate
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Category != nil {
		next.Category = strings.TrimSpace(*p.Category)
		if next.Category == "" {
			next.Category = DefaultCategory
		}
	}
	if p.ReminderDaysBefore != nil {
		next.ReminderDaysBefore = *p.ReminderDaysBefore
	}

	if err := apperror.NewValidation(next.validate()); err != nil {
		return err
	}

	next.NextBillingDate = AdvanceBillingDate(next.StartDate, next.BillingCycle)
	*s = next
	return nil
}

// MarkAsPaid starts a new billing period at paidDate, or at clock when paidDate is nil.
// LastReminderSent is deliberately left alone.
func (s *Subscription) MarkAsPaid(paidDate *time.Time, clock time.Time) {
	effective := clock
	if paidDate != nil && !paidDate.IsZero() {
		effective = *paidDate
	}
	s.StartDate = effective
	s.NextBillingDate = AdvanceBillingDate(effective, s.BillingCycle)
}

func (s *Subscription) MarkAsExpired() {
	s.Status = StatusExpired
}

func (s *Subscription) IsOwnedBy(userID string) bool {
	return userID != "" && s.OwnerID == userID
}

// IsInReminderWindow reports whether some reminder may be owed on today: the subscription is
// Active, today falls within [NextBillingDate-ReminderDaysBefore, NextBillingDate] by calendar
// day, and no reminder has gone out yet today.
func (s *Subscription) IsInReminderWindow(today time.Time) bool {
	if s.Status != StatusActive || s.NextBillingDate.IsZero() {
		return false
	}

	day := startOfDay(today, today.Location())
	due := startOfDay(s.NextBillingDate, today.Location())
	windowStart := due.AddDate(0, 0, -s.ReminderDaysBefore)

	if s.LastReminderSent != nil && startOfDay(*s.LastReminderSent, today.Location()).Equal(day) {
		return false
	}

	return !day.Before(windowStart) && !day.After(due)
}

func (s *Subscription) validate() map[string]string {
	fields := make(map[string]string)

	if s.PlatformName == "" {
		fields["platformName"] = "Platform name is required!"
	} else if utf8.RuneCountInString(s.PlatformName) > 120 {
		fields["platformName"] = "Platform name must be at most 120 characters!"
	} else if strings.ContainsFunc(s.PlatformName, unicode.IsControl) {
		fields["platformName"] = "Platform name must not contain control characters!"
	}
	if s.Price.Amount.IsNegative() {
		fields["price.amount"] = "Amount must not be negative!"
	}
	if !s.Price.Currency.IsValid() {
		fields["price.currency"] = "Currency must be one of USD, EUR, INR, GBP, JPY!"
	}
	if !s.BillingCycle.IsValid() {
		fields["billingCycle"] = "Billing cycle must be one of Weekly, Monthly, Quarterly, Yearly!"
	}
	if s.StartDate.IsZero() {
		fields["startDate"] = "Start date is required!"
	}
	if !s.Status.IsValid() {
		fields["status"] = "Status must be one of Active, Cancelled, Paused, Expired!"
	}
	if s.ReminderDaysBefore < 0 || s.ReminderDaysBefore > MaxReminderDaysBefore {
		fields["reminderDaysBefore"] = "Reminder days must be between 0 and 30!"
	}

	return fields
}
