// Package calculator derives month and year money summaries.
//
// Every function is pure and works in integer cents. The only float division
// is in SpentPercentage, rounded once at the end.
package calculator

import (
	"math"
	"time"

	"github.com/Staniell/MonthWise/internal/models"
)

// Summary is the computed view of one month.
type Summary struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	MonthID string `json:"monthId,omitempty"`

	// AllowanceCents is the override when HasOverride is set, otherwise the
	// default allowance passed in.
	AllowanceCents int64 `json:"allowanceCents"`
	HasOverride    bool  `json:"hasOverride"`

	SpentCents     int64 `json:"spentCents"`     // paid expenses
	BalanceCents   int64 `json:"balanceCents"`   // unpaid expenses
	RemainingCents int64 `json:"remainingCents"` // allowance - spent, may be negative
	ExpenseCount   int   `json:"expenseCount"`
}

// TotalAllowance sums active, non-deleted sources.
func TotalAllowance(sources []models.AllowanceSource) int64 {
	var total int64
	for _, s := range sources {
		if s.IsActive && s.DeletedAt == nil {
			total += s.AmountCents
		}
	}
	return total
}

// TotalSpent sums paid, non-deleted expenses.
func TotalSpent(expenses []models.Expense) int64 {
	var total int64
	for _, e := range expenses {
		if e.IsPaid && e.DeletedAt == nil {
			total += e.AmountCents
		}
	}
	return total
}

// TotalBalance sums unpaid, non-deleted expenses.
func TotalBalance(expenses []models.Expense) int64 {
	var total int64
	for _, e := range expenses {
		if !e.IsPaid && e.DeletedAt == nil {
			total += e.AmountCents
		}
	}
	return total
}

// Remaining is positive for a surplus and negative for a deficit.
func Remaining(allowance, spent int64) int64 {
	return allowance - spent
}

// MonthSummary composes the totals for one month. month may be nil when the
// month row has not been created yet, in which case defaultAllowance applies.
func MonthSummary(year, monthNum int, month *models.Month, defaultAllowance int64, expenses []models.Expense) Summary {
	s := Summary{
		Year:           year,
		Month:          monthNum,
		AllowanceCents: defaultAllowance,
	}
	if month != nil {
		s.MonthID = month.ID
		if month.AllowanceOverrideCents != nil {
			s.AllowanceCents = *month.AllowanceOverrideCents
			s.HasOverride = true
		}
	}

	s.SpentCents = TotalSpent(expenses)
	s.BalanceCents = TotalBalance(expenses)
	s.RemainingCents = Remaining(s.AllowanceCents, s.SpentCents)
	for _, e := range expenses {
		if e.DeletedAt == nil {
			s.ExpenseCount++
		}
	}
	return s
}

// TotalExcess sums the strictly positive remainders of months up to and
// including upToMonth. Use ExcessBoundary to pick upToMonth.
func TotalExcess(summaries []Summary, upToMonth int) int64 {
	var total int64
	for _, s := range summaries {
		if s.Month <= upToMonth && s.RemainingCents > 0 {
			total += s.RemainingCents
		}
	}
	return total
}

// ExcessBoundary returns the last month of year that counts towards excess
// as of now: 12 for a past year, 0 for a future year and the current month
// for the current year.
func ExcessBoundary(year int, now time.Time) int {
	switch {
	case year < now.Year():
		return 12
	case year > now.Year():
		return 0
	default:
		return int(now.Month())
	}
}

// SpentPercentage returns spent as a whole percentage of allowance, or nil
// when allowance is zero.
func SpentPercentage(spent, allowance int64) *int {
	if allowance == 0 {
		return nil
	}
	pct := int(math.Floor(float64(spent)/float64(allowance)*100 + 0.5))
	return &pct
}
