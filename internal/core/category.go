package core

import (
	"errors"
	"strings"
)

// Category is a spend bucket label. The set is closed so that a typo cannot
// silently open a new bucket; anything unrecognised lands in CategoryOther.
type Category string

const (
	CategoryEntertainment Category = "Entertainment"
	CategoryMusic         Category = "Music"
	CategoryGaming        Category = "Gaming"
	CategoryProductivity  Category = "Productivity"
	CategoryCloud         Category = "Cloud"
	CategoryNews          Category = "News"
	CategoryEducation     Category = "Education"
	CategoryHealth        Category = "Health"
	CategoryUtilities     Category = "Utilities"
	CategoryShopping      Category = "Shopping"
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryFinance       Category = "Finance"
	CategoryOther         Category = "Other"
)

var ErrUnknownCategory = errors.New("unknown category")

var categories = []Category{
	CategoryEntertainment,
	CategoryMusic,
	CategoryGaming,
	CategoryProductivity,
	CategoryCloud,
	CategoryNews,
	CategoryEducation,
	CategoryHealth,
	CategoryUtilities,
	CategoryShopping,
	CategoryFood,
	CategoryTransport,
	CategoryFinance,
	CategoryOther,
}

var categoryIndex = func() map[string]Category {
	idx := make(map[string]Category, len(categories))
	for _, c := range categories {
		idx[strings.ToLower(string(c))] = c
	}
	return idx
}()

// Categories returns every known category, Other last.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory matches s case-insensitively against the known set.
// Blank input is CategoryOther. Unknown input returns CategoryOther together
// with ErrUnknownCategory so writers can reject it.
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return CategoryOther, nil
	}
	if c, ok := categoryIndex[key]; ok {
		return c, nil
	}
	return CategoryOther, ErrUnknownCategory
}

// Normalize returns the canonical category for c, folding blanks and
// unknown labels into CategoryOther.
func (c Category) Normalize() Category {
	n, _ := ParseCategory(string(c))
	return n
}

func (c Category) String() string {
	return string(c)
}
