// internal/models/category.go
package models

import "strings"

// Category is one of the closed set of spend categories a reward rule can target.
type Category string

const (
	CategoryTravel   Category = "travel"
	CategoryDining   Category = "dining"
	CategoryShopping Category = "shopping"
	CategoryOnline   Category = "online"
	CategoryFuel     Category = "fuel"
	CategoryGeneral  Category = "general"
	CategoryOther    Category = "other"
)

var canonicalCategories = []Category{
	CategoryTravel,
	CategoryDining,
	CategoryShopping,
	CategoryOnline,
	CategoryFuel,
	CategoryGeneral,
	CategoryOther,
}

// Categories returns the canonical categories in their fixed iteration order.
func Categories() []Category {
	out := make([]Category, len(canonicalCategories))
	copy(out, canonicalCategories)
	return out
}

// ParseCategory normalizes s and reports whether it names a canonical category.
// Unknown names are never mapped to a nearby category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, true
	}
	return "", false
}

func (c Category) Valid() bool {
	return c.Index() >= 0
}

// Index is the position of c in the canonical order, or -1.
func (c Category) Index() int {
	for i, cc := range canonicalCategories {
		if cc == c {
			return i
		}
	}
	return -1
}

func (c Category) String() string {
	return string(c)
}

// RewardType is the native unit a card earns in.
type RewardType string

const (
	RewardPoints   RewardType = "points"
	RewardMiles    RewardType = "miles"
	RewardCashback RewardType = "cashback"
)

func ParseRewardType(s string) (RewardType, bool) {
	switch rt := RewardType(strings.ToLower(strings.TrimSpace(s))); rt {
	case RewardPoints, RewardMiles, RewardCashback:
		return rt, true
	}
	return "", false
}

// Preference is a user's declared reward-style preference.
// The zero value means no preference was recorded.
type Preference string

const (
	PreferenceTravel   Preference = "travel"
	PreferenceCashback Preference = "cashback"
	PreferenceBalanced Preference = "balanced"
)

func ParsePreference(s string) (Preference, bool) {
	switch p := Preference(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PreferenceTravel, PreferenceCashback, PreferenceBalanced:
		return p, true
	}
	return "", false
}

// OrBalanced maps the empty preference to balanced.
func (p Preference) OrBalanced() Preference {
	if p == "" {
		return PreferenceBalanced
	}
	return p
}
