package models

import "time"

// Profile is an isolated namespace of allowance, month and expense data
// within one installation. Profiles are never soft-deleted.
type Profile struct {
	// ID is the unique identifier for the profile (UUID format).
	ID string `json:"id"`

	// Name is the display name of the profile (e.g., "Personal", "Household").
	Name string `json:"name"`

	// IsSecured reports whether opening the profile requires a password.
	IsSecured bool `json:"isSecured"`

	// PasswordHash is the stored digest when IsSecured is true.
	PasswordHash *string `json:"passwordHash"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfilePatch lists the profile fields an update may change.
type ProfilePatch struct {
	Name         Field[string]
	IsSecured    Field[bool]
	PasswordHash Field[*string]
}
