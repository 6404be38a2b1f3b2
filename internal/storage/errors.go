package storage

import "errors"

// Error taxonomy shared by every storage implementation.
// Callers match with errors.Is; implementations wrap with fmt.Errorf("...: %w").
var (
	// ErrNotFound means the referenced row is missing or soft-deleted.
	ErrNotFound = errors.New("storage: not found")

	// ErrConstraint means a uniqueness, foreign-key or value-range rule was violated.
	ErrConstraint = errors.New("storage: constraint violation")

	// ErrMigration means schema inspection or alteration failed. It is fatal:
	// the application must not continue on a half-migrated schema.
	ErrMigration = errors.New("storage: migration failed")

	// ErrImportValidation means a backup document is malformed or incompatible.
	ErrImportValidation = errors.New("storage: invalid backup document")

	// ErrTransaction means a multi-statement operation failed and was rolled back.
	ErrTransaction = errors.New("storage: transaction failed")
)
