package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Staniell/MonthWise/internal/calculator"
	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/storage"
)

// CategoryLine is a breakdown row with its category resolved for display.
type CategoryLine struct {
	Category   models.Category `json:"category"`
	TotalCents int64           `json:"totalCents"`
	Count      int             `json:"count"`
}

// MonthReport is the dashboard view of one month.
type MonthReport struct {
	calculator.Summary
	Breakdown []CategoryLine `json:"breakdown"`

	// SpentPercent is nil when the allowance is zero.
	SpentPercent *int `json:"spentPercent"`
}

// SummaryService assembles month and year reports from stored data.
type SummaryService struct {
	store storage.Store
}

// NewSummaryService creates a SummaryService over store.
func NewSummaryService(store storage.Store) *SummaryService {
	return &SummaryService{store: store}
}

// Month returns the report for profileID's year/month. The month row is
// created on first access.
func (s *SummaryService) Month(ctx context.Context, profileID string, year, month int) (*MonthReport, error) {
	if _, err := s.store.Profiles().FindByID(ctx, profileID); err != nil {
		return nil, fmt.Errorf("month summary: %w", err)
	}

	m, err := s.store.Months().GetOrCreate(ctx, year, month, profileID)
	if err != nil {
		return nil, fmt.Errorf("month summary: %w", err)
	}
	sources, err := s.store.AllowanceSources().ListByProfileYear(ctx, profileID, year)
	if err != nil {
		return nil, fmt.Errorf("month summary: %w", err)
	}
	expenses, err := s.store.Expenses().ListByMonth(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("month summary: %w", err)
	}
	categories, err := s.store.Categories().ListIncludingDeleted(ctx)
	if err != nil {
		return nil, fmt.Errorf("month summary: %w", err)
	}

	summary := calculator.MonthSummary(year, month, m, calculator.TotalAllowance(sources), expenses)
	report := &MonthReport{
		Summary:      summary,
		Breakdown:    resolveBreakdown(calculator.CategoryBreakdown(expenses), models.NewCategoryIndex(categories)),
		SpentPercent: calculator.SpentPercentage(summary.SpentCents, summary.AllowanceCents),
	}

	slog.DebugContext(ctx, "Month summary built",
		"profile_id", profileID,
		"year", year,
		"month", month,
		"expenses", summary.ExpenseCount,
	)
	return report, nil
}

// Year returns the twelve-month report for profileID. Excess is counted
// through the month boundary implied by now.
func (s *SummaryService) Year(ctx context.Context, profileID string, year int, now time.Time) (*calculator.YearReport, error) {
	if _, err := s.store.Profiles().FindByID(ctx, profileID); err != nil {
		return nil, fmt.Errorf("year summary: %w", err)
	}

	months, err := s.store.Months().ListByProfileYear(ctx, profileID, year)
	if err != nil {
		return nil, fmt.Errorf("year summary: %w", err)
	}
	sources, err := s.store.AllowanceSources().ListByProfileYear(ctx, profileID, year)
	if err != nil {
		return nil, fmt.Errorf("year summary: %w", err)
	}
	expenses, err := s.store.Expenses().ListByProfileYear(ctx, profileID, year)
	if err != nil {
		return nil, fmt.Errorf("year summary: %w", err)
	}

	r := calculator.YearSummary(year, months, sources, expenses, now)
	return &r, nil
}

func resolveBreakdown(totals []calculator.CategoryTotal, idx models.CategoryIndex) []CategoryLine {
	lines := make([]CategoryLine, 0, len(totals))
	for _, t := range totals {
		lines = append(lines, CategoryLine{
			Category:   idx.Lookup(t.CategoryID),
			TotalCents: t.TotalCents,
			Count:      t.Count,
		})
	}
	return lines
}
