package models

import "time"

// Month groups the expenses of one profile for one calendar month.
// Months are created on first access and are unique per (ProfileID, Year, Month).
type Month struct {
	ID        string `json:"id"`
	ProfileID string `json:"profileId"`
	Year      int    `json:"year"`

	// Month is the calendar month, 1-12.
	Month int `json:"month"`

	// AllowanceOverrideCents replaces the computed allowance when non-nil.
	AllowanceOverrideCents *int64 `json:"allowanceOverrideCents"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MonthPatch lists the month fields an update may change.
type MonthPatch struct {
	AllowanceOverrideCents Field[*int64]
}
