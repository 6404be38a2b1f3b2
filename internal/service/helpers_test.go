package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Staniell/MonthWise/internal/models"
	"github.com/Staniell/MonthWise/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "monthwise.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createProfile(t *testing.T, store *sqlite.Store, name string) *models.Profile {
	t.Helper()
	p := &models.Profile{Name: name}
	require.NoError(t, store.Profiles().Create(context.Background(), p))
	return p
}

func categoryID(t *testing.T, store *sqlite.Store, name string) string {
	t.Helper()
	c, err := store.Categories().FindByName(context.Background(), name)
	require.NoError(t, err)
	return c.ID
}

func addExpense(t *testing.T, store *sqlite.Store, monthID, categoryID string, cents int64, paid bool, day int) *models.Expense {
	t.Helper()
	e := &models.Expense{
		MonthID:     monthID,
		CategoryID:  categoryID,
		AmountCents: cents,
		ExpenseDate: models.Date(2026, time.March, day),
		IsPaid:      paid,
	}
	require.NoError(t, store.Expenses().Create(context.Background(), e))
	return e
}
