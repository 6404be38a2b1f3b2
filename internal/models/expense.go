package models

import "time"

// DateLayout is the storage and display layout of an expense date.
const DateLayout = "2006-01-02"

// Expense is a single categorized amount recorded in a month.
type Expense struct {
	ID         string `json:"id"`
	MonthID    string `json:"monthId"`
	CategoryID string `json:"categoryId"`

	// AmountCents is the expense amount in cents. Always positive.
	AmountCents int64 `json:"amountCents"`

	Note *string `json:"note"`

	// ExpenseDate is a calendar date at UTC midnight.
	ExpenseDate time.Time `json:"expenseDate"`

	// IsPaid separates spent money from the outstanding balance.
	IsPaid bool `json:"isPaid"`

	// IsVerified is a secondary confirmation. It is cleared whenever a
	// material field changes or the expense goes from paid to unpaid.
	IsVerified bool `json:"isVerified"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// ExpensePatch lists the expense fields an update may change.
type ExpensePatch struct {
	CategoryID  Field[string]
	AmountCents Field[int64]
	Note        Field[*string]
	ExpenseDate Field[time.Time]
	IsPaid      Field[bool]
	IsVerified  Field[bool]
}

// Date returns the calendar date y-m-d at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TruncateDate drops the time of day from t, keeping its calendar date.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}
