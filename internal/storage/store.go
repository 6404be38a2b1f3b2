// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/Staniell/MonthWise/internal/models"
)

// Store bundles every repository over one database handle.
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	Profiles() ProfileRepository
	Categories() CategoryRepository
	AllowanceSources() AllowanceSourceRepository
	Months() MonthRepository
	Expenses() ExpenseRepository
	Settings() SettingsRepository

	// Dump returns every row of every table, soft-deleted rows included.
	Dump(ctx context.Context) (*Dataset, error)

	// Replace swaps the stored dataset for ds inside a single transaction.
	// On any failure the previous dataset is left intact and the error
	// wraps ErrTransaction.
	Replace(ctx context.Context, ds *Dataset) error

	// Close releases any resources held by the store.
	Close() error
}

// Dataset is a full-fidelity snapshot of the stored entities.
// Profiles and Settings are optional on Replace: nil leaves them untouched.
type Dataset struct {
	Profiles         []models.Profile
	Categories       []models.Category
	AllowanceSources []models.AllowanceSource
	Months           []models.Month
	Expenses         []models.Expense
	Settings         []models.Setting
}

// ProfileRepository persists profiles.
type ProfileRepository interface {
	// FindByID returns ErrNotFound when no profile has the id.
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]models.Profile, error)
	Count(ctx context.Context) (int, error)

	// Create assigns ID and timestamps when they are empty.
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, id string, patch models.ProfilePatch) (*models.Profile, error)

	// Delete removes the profile and cascades to its months, expenses and
	// allowance sources. Deleting the last remaining profile fails with
	// ErrConstraint.
	Delete(ctx context.Context, id string) error
}

// CategoryRepository persists global categories.
type CategoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)

	// FindByName matches live categories case-insensitively.
	FindByName(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	ListIncludingDeleted(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, id string, patch models.CategoryPatch) (*models.Category, error)
	SoftDelete(ctx context.Context, id string) error
}

// AllowanceSourceRepository persists profile income lines.
type AllowanceSourceRepository interface {
	FindByID(ctx context.Context, id string) (*models.AllowanceSource, error)
	ListByProfileYear(ctx context.Context, profileID string, year int) ([]models.AllowanceSource, error)
	Create(ctx context.Context, source *models.AllowanceSource) error
	Update(ctx context.Context, id string, patch models.AllowanceSourcePatch) (*models.AllowanceSource, error)
	SoftDelete(ctx context.Context, id string) error
}

// MonthRepository persists profile months.
type MonthRepository interface {
	FindByID(ctx context.Context, id string) (*models.Month, error)

	// Find returns ErrNotFound when the month has not been created yet.
	Find(ctx context.Context, profileID string, year, month int) (*models.Month, error)
	ListByProfileYear(ctx context.Context, profileID string, year int) ([]models.Month, error)

	// GetOrCreate returns the existing month or inserts it. Repeated calls
	// with the same arguments never fail with a duplicate error.
	GetOrCreate(ctx context.Context, year, month int, profileID string) (*models.Month, error)
	Update(ctx context.Context, id string, patch models.MonthPatch) (*models.Month, error)
}

// ExpenseRepository persists expenses.
type ExpenseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Expense, error)
	ListByMonth(ctx context.Context, monthID string) ([]models.Expense, error)
	ListByProfileYear(ctx context.Context, profileID string, year int) ([]models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error

	// Update applies the patch and the verification reset rule: IsVerified is
	// cleared when any material field changes or IsPaid goes true -> false,
	// then an explicit IsVerified in the patch is applied on top.
	Update(ctx context.Context, id string, patch models.ExpensePatch) (*models.Expense, error)
	SoftDelete(ctx context.Context, id string) error

	// Bulk operations run as one statement and are no-ops for empty ids.
	BulkUpdatePaidStatus(ctx context.Context, ids []string, paid bool) error
	BulkUpdateVerifiedStatus(ctx context.Context, ids []string, verified bool) error
	BulkDelete(ctx context.Context, ids []string) error
}

// SettingsRepository persists process-wide string settings.
type SettingsRepository interface {
	// Get reports ok=false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) ([]models.Setting, error)
}
