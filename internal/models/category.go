package models

import "time"

// UnknownCategoryName is the display name used for expenses whose category
// no longer resolves.
const UnknownCategoryName = "Unknown"

// Category is a global expense category shared by all profiles.
type Category struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Icon      string     `json:"icon"`
	Color     string     `json:"color"`
	SortOrder int        `json:"sortOrder"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt"`
}

// CategoryPatch lists the category fields an update may change.
type CategoryPatch struct {
	Name      Field[string]
	Icon      Field[string]
	Color     Field[string]
	SortOrder Field[int]
}

// UnknownCategory returns the sentinel rendered in place of a missing or
// deleted category. It keeps the original id so callers can still group by it.
func UnknownCategory(id string) Category {
	return Category{
		ID:        id,
		Name:      UnknownCategoryName,
		Icon:      "help-circle",
		Color:     "#9E9E9E",
		SortOrder: 1 << 30,
	}
}

// CategoryIndex resolves category ids for display.
type CategoryIndex map[string]Category

// NewCategoryIndex builds an index over live categories. Soft-deleted entries
// are skipped so they resolve to the sentinel.
func NewCategoryIndex(categories []Category) CategoryIndex {
	idx := make(CategoryIndex, len(categories))
	for _, c := range categories {
		if c.DeletedAt != nil {
			continue
		}
		idx[c.ID] = c
	}
	return idx
}

// Lookup returns the category for id, or UnknownCategory(id).
func (idx CategoryIndex) Lookup(id string) Category {
	if c, ok := idx[id]; ok {
		return c
	}
	return UnknownCategory(id)
}
