package models

import "slices"

// categories is the canonical category set, enforced by the expense schema
// and by the storage CHECK constraint.
var categories = []string{
	"Food", "Housing", "Transportation", "Utilities", "Books & Supplies",
	"Entertainment", "Personal Care", "Technology", "Health & Wellness",
	"Miscellaneous", "Education", "Clothing", "Gifts", "Travel", "Dining Out",
}

// Categories returns a copy of the canonical category list in display order.
func Categories() []string {
	return slices.Clone(categories)
}

// IsCategory reports whether name is one of the canonical categories.
func IsCategory(name string) bool {
	return slices.Contains(categories, name)
}
