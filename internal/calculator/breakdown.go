package calculator

import (
	"sort"
	"time"

	"github.com/Staniell/MonthWise/internal/models"
)

// CategoryTotal is one row of a category breakdown.
type CategoryTotal struct {
	CategoryID string `json:"categoryId"`
	TotalCents int64  `json:"totalCents"`
	Count      int    `json:"count"`
}

// CategoryBreakdown groups non-deleted expenses by category, largest total
// first. Ties are ordered by category id so the output is stable.
func CategoryBreakdown(expenses []models.Expense) []CategoryTotal {
	byID := make(map[string]*CategoryTotal)
	for _, e := range expenses {
		if e.DeletedAt != nil {
			continue
		}
		ct, ok := byID[e.CategoryID]
		if !ok {
			ct = &CategoryTotal{CategoryID: e.CategoryID}
			byID[e.CategoryID] = ct
		}
		ct.TotalCents += e.AmountCents
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(byID))
	for _, ct := range byID {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCents != out[j].TotalCents {
			return out[i].TotalCents > out[j].TotalCents
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// YearReport aggregates the twelve months of a profile's year.
type YearReport struct {
	Year   int       `json:"year"`
	Months []Summary `json:"months"`

	DefaultAllowanceCents int64 `json:"defaultAllowanceCents"`
	AllowanceCents        int64 `json:"allowanceCents"`
	SpentCents            int64 `json:"spentCents"`
	BalanceCents          int64 `json:"balanceCents"`

	// ExcessCents counts surplus only through ExcessThroughMonth.
	ExcessCents        int64 `json:"excessCents"`
	ExcessThroughMonth int   `json:"excessThroughMonth"`
}

// YearSummary builds a summary for every month of year. months and expenses
// belong to the profile and year; months that were never created use the
// default allowance from sources.
func YearSummary(year int, months []models.Month, sources []models.AllowanceSource, expenses []models.Expense, now time.Time) YearReport {
	defaultAllowance := TotalAllowance(sources)

	byNumber := make(map[int]*models.Month, len(months))
	for i := range months {
		byNumber[months[i].Month] = &months[i]
	}
	byMonthID := make(map[string][]models.Expense)
	for _, e := range expenses {
		byMonthID[e.MonthID] = append(byMonthID[e.MonthID], e)
	}

	r := YearReport{
		Year:                  year,
		Months:                make([]Summary, 0, 12),
		DefaultAllowanceCents: defaultAllowance,
		ExcessThroughMonth:    ExcessBoundary(year, now),
	}
	for n := 1; n <= 12; n++ {
		m := byNumber[n]
		var monthExpenses []models.Expense
		if m != nil {
			monthExpenses = byMonthID[m.ID]
		}
		s := MonthSummary(year, n, m, defaultAllowance, monthExpenses)
		r.Months = append(r.Months, s)
		r.AllowanceCents += s.AllowanceCents
		r.SpentCents += s.SpentCents
		r.BalanceCents += s.BalanceCents
	}
	r.ExcessCents = TotalExcess(r.Months, r.ExcessThroughMonth)
	return r
}
