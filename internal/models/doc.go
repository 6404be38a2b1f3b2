// Package models defines the core domain models for MonthWise.
//
// # Entities
//
//   - Profile: an isolated namespace of allowance, month and expense data
//   - Category: a global, shared expense category
//   - AllowanceSource: one recurring income line for a profile and year
//   - Month: a lazily created (profile, year, month) bucket for expenses
//   - Expense: a single categorized amount inside a month
//   - Setting: a process-wide key/value pair
//
// # Money
//
// Every monetary field is an int64 count of minor currency units ("cents").
// Nothing in this package or the calculator converts money to floating point.
//
// # Partial updates
//
// Update operations take a *Patch struct built from Field values. A zero
// Field means "not supplied"; Set(v) means "supplied". Nullable columns use a
// pointer type parameter, so Set[*int64](nil) is an explicit null and is
// distinguishable from an omitted field.
//
// # Soft delete
//
// Categories, allowance sources and expenses carry a DeletedAt timestamp.
// Soft-deleted rows disappear from default queries but are kept for export.
package models
