package models

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

type BillingCycle string

// BillingCycle enum values
const (
	CycleWeekly    BillingCycle = "Weekly"
	CycleMonthly   BillingCycle = "Monthly"
	CycleQuarterly BillingCycle = "Quarterly"
	CycleYearly    BillingCycle = "Yearly"
)

var billingCycles = []BillingCycle{CycleWeekly, CycleMonthly, CycleQuarterly, CycleYearly}

func (c BillingCycle) IsValid() bool {
	return lo.Contains(billingCycles, c)
}

// ParseBillingCycle accepts any casing ("monthly", "MONTHLY").
func ParseBillingCycle(s string) (BillingCycle, bool) {
	return lo.Find(billingCycles, func(c BillingCycle) bool {
		return strings.EqualFold(string(c), strings.TrimSpace(s))
	})
}

// AdvanceBillingDate shifts anchor forward by exactly one billing cycle. Unknown cycles are
// treated as Monthly.
//
// Month arithmetic uses time.AddDate normalization and is NOT clamped to the end of the
// month: Jan 31 + 1 month lands on Mar 2 (leap year) or Mar 3, and Feb 29 + 1 year lands on
// Mar 1.
func AdvanceBillingDate(anchor time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case CycleWeekly:
		return anchor.AddDate(0, 0, 7)
	case CycleQuarterly:
		return anchor.AddDate(0, 3, 0)
	case CycleYearly:
		return anchor.AddDate(1, 0, 0)
	default:
		return anchor.AddDate(0, 1, 0)
	}
}
