package domain

import (
	"fmt"
	"strings"
)

// Category identifies one tracked section of the app.
type Category string

const (
	CategoryCardio    Category = "cardio"
	CategoryStrength  Category = "strength"
	CategoryNutrition Category = "nutrition"
)

// Categories lists every supported category in display order.
func Categories() []Category {
	return []Category{CategoryCardio, CategoryStrength, CategoryNutrition}
}

// ParseCategory normalises and validates a category name.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	switch c {
	case CategoryCardio, CategoryStrength, CategoryNutrition:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, value)
}

func (c Category) String() string { return string(c) }
