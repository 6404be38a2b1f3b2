package calculator

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Staniell/MonthWise/internal/models"
)

func ptr[T any](v T) *T { return &v }

var deletedAt = ptr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

func expense(monthID, categoryID string, cents int64, paid bool) models.Expense {
	return models.Expense{MonthID: monthID, CategoryID: categoryID, AmountCents: cents, IsPaid: paid}
}

func TestTotals(t *testing.T) {
	sources := []models.AllowanceSource{
		{AmountCents: 30000, IsActive: true},
		{AmountCents: 20000, IsActive: true},
		{AmountCents: 9999, IsActive: false},
		{AmountCents: 7777, IsActive: true, DeletedAt: deletedAt},
	}
	assert.Equal(t, int64(50000), TotalAllowance(sources))
	assert.Equal(t, int64(0), TotalAllowance(nil))

	deleted := expense("m", "c", 5000, true)
	deleted.DeletedAt = deletedAt
	expenses := []models.Expense{
		expense("m", "c", 1050, true),
		expense("m", "c", 250, true),
		expense("m", "c", 700, false),
		deleted,
	}
	assert.Equal(t, int64(1300), TotalSpent(expenses))
	assert.Equal(t, int64(700), TotalBalance(expenses))
	assert.Equal(t, int64(-300), Remaining(1000, 1300))
}

func TestTotalSpentIsExact(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	expenses := make([]models.Expense, 10_000)
	var want int64
	for i := range expenses {
		// Amounts like 0.10 and 0.20 drift when summed as floats.
		cents := int64(rng.Intn(100_000) + 1)
		if i%3 == 0 {
			cents = 10
		}
		paid := i%2 == 0
		expenses[i] = expense("m", "c", cents, paid)
		if paid {
			want += cents
		}
	}
	assert.Equal(t, want, TotalSpent(expenses))

	tenCents := make([]models.Expense, 10_000)
	for i := range tenCents {
		tenCents[i] = expense("m", "c", 10, true)
	}
	assert.Equal(t, int64(100_000), TotalSpent(tenCents))
}

func TestMonthSummary(t *testing.T) {
	sources := []models.AllowanceSource{
		{Year: 2026, AmountCents: 30000, IsActive: true},
		{Year: 2026, AmountCents: 20000, IsActive: true},
	}
	expenses := []models.Expense{
		expense("m3", "c", 12000, true),
		expense("m3", "c", 3000, false),
	}

	tests := []struct {
		name         string
		month        *models.Month
		validateFunc func(t *testing.T, s Summary)
	}{
		{
			name:  "no month row uses source total",
			month: nil,
			validateFunc: func(t *testing.T, s Summary) {
				assert.Equal(t, int64(50000), s.AllowanceCents)
				assert.False(t, s.HasOverride)
				assert.Empty(t, s.MonthID)
			},
		},
		{
			name:  "null override uses source total",
			month: &models.Month{ID: "m3", Year: 2026, Month: 3},
			validateFunc: func(t *testing.T, s Summary) {
				assert.Equal(t, int64(50000), s.AllowanceCents)
				assert.False(t, s.HasOverride)
				assert.Equal(t, int64(38000), s.RemainingCents)
			},
		},
		{
			name:  "override replaces source total",
			month: &models.Month{ID: "m3", Year: 2026, Month: 3, AllowanceOverrideCents: ptr(int64(75000))},
			validateFunc: func(t *testing.T, s Summary) {
				assert.Equal(t, int64(75000), s.AllowanceCents)
				assert.True(t, s.HasOverride)
				assert.Equal(t, int64(63000), s.RemainingCents)
			},
		},
		{
			name:  "zero override is still an override",
			month: &models.Month{ID: "m3", Year: 2026, Month: 3, AllowanceOverrideCents: ptr(int64(0))},
			validateFunc: func(t *testing.T, s Summary) {
				assert.Equal(t, int64(0), s.AllowanceCents)
				assert.True(t, s.HasOverride)
				assert.Equal(t, int64(-12000), s.RemainingCents)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MonthSummary(2026, 3, tt.month, TotalAllowance(sources), expenses)
			assert.Equal(t, 2026, s.Year)
			assert.Equal(t, 3, s.Month)
			assert.Equal(t, int64(12000), s.SpentCents)
			assert.Equal(t, int64(3000), s.BalanceCents)
			assert.Equal(t, 2, s.ExpenseCount)
			tt.validateFunc(t, s)
		})
	}
}

func TestTotalExcess(t *testing.T) {
	summaries := make([]Summary, 12)
	for i := range summaries {
		summaries[i] = Summary{Month: i + 1, RemainingCents: 1000}
	}
	summaries[1].RemainingCents = -5000
	summaries[2].RemainingCents = 0

	assert.Equal(t, int64(10000), TotalExcess(summaries, 12))
	assert.Equal(t, int64(1000), TotalExcess(summaries, 3))
	assert.Equal(t, int64(0), TotalExcess(summaries, 0))
}

func TestExcessBoundary(t *testing.T) {
	now := time.Date(2026, time.May, 17, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		year int
		want int
	}{
		{2025, 12},
		{2026, 5},
		{2027, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.year), func(t *testing.T) {
			assert.Equal(t, tt.want, ExcessBoundary(tt.year, now))
		})
	}
}

func TestYearSummaryPastYearCountsAllMonths(t *testing.T) {
	// Data entered in March 2025 for the whole of 2025, evaluated a year later.
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	sources := []models.AllowanceSource{{Year: 2025, AmountCents: 10000, IsActive: true}}
	months := []models.Month{
		{ID: "jan", Year: 2025, Month: 1},
		{ID: "dec", Year: 2025, Month: 12, AllowanceOverrideCents: ptr(int64(20000))},
	}
	expenses := []models.Expense{
		expense("jan", "c", 4000, true),
		expense("dec", "c", 5000, true),
		expense("dec", "c", 900, false),
	}

	r := YearSummary(2025, months, sources, expenses, now)
	require.Len(t, r.Months, 12)
	assert.Equal(t, 12, r.ExcessThroughMonth)
	assert.Equal(t, int64(6000), r.Months[0].RemainingCents)
	assert.Equal(t, int64(15000), r.Months[11].RemainingCents)
	assert.Equal(t, "dec", r.Months[11].MonthID)
	// Ten untouched months at 10000 each, plus January and December.
	assert.Equal(t, int64(100000+6000+15000), r.ExcessCents)
	assert.Equal(t, int64(9000), r.SpentCents)
	assert.Equal(t, int64(900), r.BalanceCents)
	assert.Equal(t, int64(11*10000+20000), r.AllowanceCents)

	current := YearSummary(2026, nil, sources, nil, now)
	assert.Equal(t, 3, current.ExcessThroughMonth)
	assert.Equal(t, int64(30000), current.ExcessCents)

	future := YearSummary(2027, nil, sources, nil, now)
	assert.Equal(t, int64(0), future.ExcessCents)
}

func TestCategoryBreakdown(t *testing.T) {
	deleted := expense("m", "food", 99999, true)
	deleted.DeletedAt = deletedAt
	got := CategoryBreakdown([]models.Expense{
		expense("m", "food", 1000, true),
		expense("m", "rent", 50000, true),
		expense("m", "food", 2500, false),
		expense("m", "fun", 3500, true),
		deleted,
	})

	assert.Equal(t, []CategoryTotal{
		{CategoryID: "rent", TotalCents: 50000, Count: 1},
		{CategoryID: "food", TotalCents: 3500, Count: 2},
		{CategoryID: "fun", TotalCents: 3500, Count: 1},
	}, got)
	assert.Empty(t, CategoryBreakdown(nil))
}

func TestSpentPercentage(t *testing.T) {
	tests := []struct {
		name      string
		spent     int64
		allowance int64
		want      *int
	}{
		{"zero allowance", 500, 0, nil},
		{"half", 500, 1000, ptr(50)},
		{"rounds half up", 1, 200, ptr(1)},
		{"rounds down", 1, 300, ptr(0)},
		{"over budget", 1500, 1000, ptr(150)},
		{"two thirds", 2, 3, ptr(67)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpentPercentage(tt.spent, tt.allowance))
		})
	}
}
