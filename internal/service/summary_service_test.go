package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/storage"
)

func TestSummaryServiceMonth(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewSummaryService(store)
	p := createProfile(t, store, "Alice")

	require.NoError(t, store.AllowanceSources().Create(ctx, &models.AllowanceSource{
		ProfileID: p.ID, Year: 2026, Name: "Salary", AmountCents: 40000, IsActive: true,
	}))
	require.NoError(t, store.AllowanceSources().Create(ctx, &models.AllowanceSource{
		ProfileID: p.ID, Year: 2026, Name: "Side job", AmountCents: 10000, IsActive: true,
	}))

	t.Run("empty month is created on first access", func(t *testing.T) {
		r, err := svc.Month(ctx, p.ID, 2026, 1)
		require.NoError(t, err)
		assert.NotEmpty(t, r.MonthID)
		assert.Equal(t, int64(50000), r.AllowanceCents)
		assert.Equal(t, int64(50000), r.RemainingCents)
		assert.Empty(t, r.Breakdown)
		require.NotNil(t, r.SpentPercent)
		assert.Equal(t, 0, *r.SpentPercent)

		_, err = store.Months().Find(ctx, p.ID, 2026, 1)
		require.NoError(t, err)
	})

	t.Run("breakdown resolves deleted categories to Unknown", func(t *testing.T) {
		m, err := store.Months().GetOrCreate(ctx, 2026, 3, p.ID)
		require.NoError(t, err)

		gift := &models.Category{Name: "Gifts", Icon: "gift", Color: "#E91E63", SortOrder: 20}
		require.NoError(t, store.Categories().Create(ctx, gift))

		food := categoryID(t, store, "Food & Dining")
		addExpense(t, store, m.ID, food, 12000, true, 2)
		addExpense(t, store, m.ID, food, 500, false, 3)
		addExpense(t, store, m.ID, gift.ID, 3000, true, 4)
		require.NoError(t, store.Categories().SoftDelete(ctx, gift.ID))

		r, err := svc.Month(ctx, p.ID, 2026, 3)
		require.NoError(t, err)
		assert.Equal(t, m.ID, r.MonthID)
		assert.Equal(t, int64(15000), r.SpentCents)
		assert.Equal(t, int64(500), r.BalanceCents)
		assert.Equal(t, int64(35000), r.RemainingCents)
		require.NotNil(t, r.SpentPercent)
		assert.Equal(t, 30, *r.SpentPercent)

		require.Len(t, r.Breakdown, 2)
		assert.Equal(t, "Food & Dining", r.Breakdown[0].Category.Name)
		assert.Equal(t, int64(12500), r.Breakdown[0].TotalCents)
		assert.Equal(t, models.UnknownCategoryName, r.Breakdown[1].Category.Name)
		assert.Equal(t, gift.ID, r.Breakdown[1].Category.ID)
	})

	t.Run("override with zero allowance has no percentage", func(t *testing.T) {
		m, err := store.Months().GetOrCreate(ctx, 2026, 4, p.ID)
		require.NoError(t, err)
		zero := int64(0)
		_, err = store.Months().Update(ctx, m.ID, models.MonthPatch{AllowanceOverrideCents: models.Set(&zero)})
		require.NoError(t, err)

		r, err := svc.Month(ctx, p.ID, 2026, 4)
		require.NoError(t, err)
		assert.True(t, r.HasOverride)
		assert.Nil(t, r.SpentPercent)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := svc.Month(ctx, "missing", 2026, 1)
		require.ErrorIs(t, err, storage.ErrNotFound)

		_, err = svc.Month(ctx, p.ID, 2026, 13)
		require.ErrorIs(t, err, storage.ErrConstraint)
	})
}

func TestSummaryServiceYear(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	svc := NewSummaryService(store)
	alice := createProfile(t, store, "Alice")
	bob := createProfile(t, store, "Bob")

	for _, p := range []*models.Profile{alice, bob} {
		require.NoError(t, store.AllowanceSources().Create(ctx, &models.AllowanceSource{
			ProfileID: p.ID, Year: 2026, Name: "Salary", AmountCents: 10000, IsActive: true,
		}))
	}
	m, err := store.Months().GetOrCreate(ctx, 2026, 3, alice.ID)
	require.NoError(t, err)
	addExpense(t, store, m.ID, categoryID(t, store, "Transport"), 4000, true, 10)

	bobMonth, err := store.Months().GetOrCreate(ctx, 2026, 3, bob.ID)
	require.NoError(t, err)
	addExpense(t, store, bobMonth.ID, categoryID(t, store, "Transport"), 9000, true, 10)

	now := time.Date(2026, time.March, 20, 0, 0, 0, 0, time.UTC)
	r, err := svc.Year(ctx, alice.ID, 2026, now)
	require.NoError(t, err)
	require.Len(t, r.Months, 12)
	assert.Equal(t, int64(4000), r.SpentCents)
	assert.Equal(t, 3, r.ExcessThroughMonth)
	assert.Equal(t, int64(10000+10000+6000), r.ExcessCents)

	_, err = svc.Year(ctx, "missing", 2026, now)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
