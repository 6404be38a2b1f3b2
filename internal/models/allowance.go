package models

import "time"

// AllowanceSource is one recurring income line for a profile and year.
type AllowanceSource struct {
	ID        string `json:"id"`
	ProfileID string `json:"profileId"`
	Year      int    `json:"year"`
	Name      string `json:"name"`

	// AmountCents is the monthly amount in cents. Never negative.
	AmountCents int64 `json:"amountCents"`

	// IsActive excludes the source from allowance totals when false.
	IsActive bool `json:"isActive"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// AllowanceSourcePatch lists the allowance source fields an update may change.
type AllowanceSourcePatch struct {
	Name        Field[string]
	AmountCents Field[int64]
	IsActive    Field[bool]
}
