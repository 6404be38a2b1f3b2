package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Staniell/MonthWise/internal/models"
)

// Row types mirror table columns one to one. Each has a toModel method and a
// matching constructor from the domain model, so the mapping is tested
// without a database.

type profileRow struct {
	ID           string
	Name         string
	IsSecured    bool
	PasswordHash sql.NullString
	CreatedAt    string
	UpdatedAt    string
}

func profileRowFrom(p models.Profile) profileRow {
	return profileRow{
		ID:           p.ID,
		Name:         p.Name,
		IsSecured:    p.IsSecured,
		PasswordHash: nullString(p.PasswordHash),
		CreatedAt:    fmtTime(p.CreatedAt),
		UpdatedAt:    fmtTime(p.UpdatedAt),
	}
}

func (r profileRow) toModel() (models.Profile, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return models.Profile{}, err
	}
	updatedAt, err := parseTime(r.UpdatedAt)
	if err != nil {
		return models.Profile{}, err
	}
	return models.Profile{
		ID:           r.ID,
		Name:         r.Name,
		IsSecured:    r.IsSecured,
		PasswordHash: stringPtr(r.PasswordHash),
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

const profileColumns = `id, name, is_secured, password_hash, created_at, updated_at`

func scanProfile(s rowScanner) (*models.Profile, error) {
	var r profileRow
	if err := s.Scan(&r.ID, &r.Name, &r.IsSecured, &r.PasswordHash, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	p, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type categoryRow struct {
	ID        string
	Name      string
	Icon      string
	Color     string
	SortOrder int
	CreatedAt string
	UpdatedAt string
	DeletedAt sql.NullString
}

func categoryRowFrom(c models.Category) categoryRow {
	return categoryRow{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      c.Icon,
		Color:     c.Color,
		SortOrder: c.SortOrder,
		CreatedAt: fmtTime(c.CreatedAt),
		UpdatedAt: fmtTime(c.UpdatedAt),
		DeletedAt: fmtNullableTime(c.DeletedAt),
	}
}

func (r categoryRow) toModel() (models.Category, error) {
	createdAt, updatedAt, deletedAt, err := parseLifecycle(r.CreatedAt, r.UpdatedAt, r.DeletedAt)
	if err != nil {
		return models.Category{}, err
	}
	return models.Category{
		ID:        r.ID,
		Name:      r.Name,
		Icon:      r.Icon,
		Color:     r.Color,
		SortOrder: r.SortOrder,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}, nil
}

const categoryColumns = `id, name, icon, color, sort_order, created_at, updated_at, deleted_at`

func scanCategory(s rowScanner) (*models.Category, error) {
	var r categoryRow
	if err := s.Scan(&r.ID, &r.Name, &r.Icon, &r.Color, &r.SortOrder, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
		return nil, err
	}
	c, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type allowanceSourceRow struct {
	ID          string
	ProfileID   string
	Year        int
	Name        string
	AmountCents int64
	IsActive    bool
	CreatedAt   string
	UpdatedAt   string
	DeletedAt   sql.NullString
}

func allowanceSourceRowFrom(a models.AllowanceSource) allowanceSourceRow {
	return allowanceSourceRow{
		ID:          a.ID,
		ProfileID:   a.ProfileID,
		Year:        a.Year,
		Name:        a.Name,
		AmountCents: a.AmountCents,
		IsActive:    a.IsActive,
		CreatedAt:   fmtTime(a.CreatedAt),
		UpdatedAt:   fmtTime(a.UpdatedAt),
		DeletedAt:   fmtNullableTime(a.DeletedAt),
	}
}

func (r allowanceSourceRow) toModel() (models.AllowanceSource, error) {
	createdAt, updatedAt, deletedAt, err := parseLifecycle(r.CreatedAt, r.UpdatedAt, r.DeletedAt)
	if err != nil {
		return models.AllowanceSource{}, err
	}
	return models.AllowanceSource{
		ID:          r.ID,
		ProfileID:   r.ProfileID,
		Year:        r.Year,
		Name:        r.Name,
		AmountCents: r.AmountCents,
		IsActive:    r.IsActive,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
	}, nil
}

const allowanceSourceColumns = `id, profile_id, year, name, amount_cents, is_active, created_at, updated_at, deleted_at`

func scanAllowanceSource(s rowScanner) (*models.AllowanceSource, error) {
	var r allowanceSourceRow
	if err := s.Scan(&r.ID, &r.ProfileID, &r.Year, &r.Name, &r.AmountCents, &r.IsActive, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
		return nil, err
	}
	a, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type monthRow struct {
	ID                     string
	ProfileID              string
	Year                   int
	Month                  int
	AllowanceOverrideCents sql.NullInt64
	CreatedAt              string
	UpdatedAt              string
}

func monthRowFrom(m models.Month) monthRow {
	return monthRow{
		ID:                     m.ID,
		ProfileID:              m.ProfileID,
		Year:                   m.Year,
		Month:                  m.Month,
		AllowanceOverrideCents: nullInt64(m.AllowanceOverrideCents),
		CreatedAt:              fmtTime(m.CreatedAt),
		UpdatedAt:              fmtTime(m.UpdatedAt),
	}
}

func (r monthRow) toModel() (models.Month, error) {
	createdAt, err := parseTime(r.CreatedAt)
	if err != nil {
		return models.Month{}, err
	}
	updatedAt, err := parseTime(r.UpdatedAt)
	if err != nil {
		return models.Month{}, err
	}
	return models.Month{
		ID:                     r.ID,
		ProfileID:              r.ProfileID,
		Year:                   r.Year,
		Month:                  r.Month,
		AllowanceOverrideCents: int64Ptr(r.AllowanceOverrideCents),
		CreatedAt:              createdAt,
		UpdatedAt:              updatedAt,
	}, nil
}

const monthColumns = `id, profile_id, year, month, allowance_override_cents, created_at, updated_at`

func scanMonth(s rowScanner) (*models.Month, error) {
	var r monthRow
	if err := s.Scan(&r.ID, &r.ProfileID, &r.Year, &r.Month, &r.AllowanceOverrideCents, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	m, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type expenseRow struct {
	ID          string
	MonthID     string
	CategoryID  string
	AmountCents int64
	Note        sql.NullString
	ExpenseDate string
	IsPaid      bool
	IsVerified  bool
	CreatedAt   string
	UpdatedAt   string
	DeletedAt   sql.NullString
}

func expenseRowFrom(e models.Expense) expenseRow {
	return expenseRow{
		ID:          e.ID,
		MonthID:     e.MonthID,
		CategoryID:  e.CategoryID,
		AmountCents: e.AmountCents,
		Note:        nullString(e.Note),
		ExpenseDate: e.ExpenseDate.Format(models.DateLayout),
		IsPaid:      e.IsPaid,
		IsVerified:  e.IsVerified,
		CreatedAt:   fmtTime(e.CreatedAt),
		UpdatedAt:   fmtTime(e.UpdatedAt),
		DeletedAt:   fmtNullableTime(e.DeletedAt),
	}
}

func (r expenseRow) toModel() (models.Expense, error) {
	createdAt, updatedAt, deletedAt, err := parseLifecycle(r.CreatedAt, r.UpdatedAt, r.DeletedAt)
	if err != nil {
		return models.Expense{}, err
	}
	date, err := time.Parse(models.DateLayout, r.ExpenseDate)
	if err != nil {
		return models.Expense{}, fmt.Errorf("parse expense date %q: %w", r.ExpenseDate, err)
	}
	return models.Expense{
		ID:          r.ID,
		MonthID:     r.MonthID,
		CategoryID:  r.CategoryID,
		AmountCents: r.AmountCents,
		Note:        stringPtr(r.Note),
		ExpenseDate: date,
		IsPaid:      r.IsPaid,
		IsVerified:  r.IsVerified,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
	}, nil
}

const expenseColumns = `id, month_id, category_id, amount_cents, note, expense_date, is_paid, is_verified, created_at, updated_at, deleted_at`

func scanExpense(s rowScanner) (*models.Expense, error) {
	var r expenseRow
	if err := s.Scan(&r.ID, &r.MonthID, &r.CategoryID, &r.AmountCents, &r.Note, &r.ExpenseDate,
		&r.IsPaid, &r.IsVerified, &r.CreatedAt, &r.UpdatedAt, &r.DeletedAt); err != nil {
		return nil, err
	}
	e, err := r.toModel()
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func parseLifecycle(created, updated string, deleted sql.NullString) (time.Time, time.Time, *time.Time, error) {
	createdAt, err := parseTime(created)
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}
	updatedAt, err := parseTime(updated)
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}
	deletedAt, err := parseNullableTime(deleted)
	if err != nil {
		return time.Time{}, time.Time{}, nil, err
	}
	return createdAt, updatedAt, deletedAt, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
