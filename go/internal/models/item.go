package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category is the role an item fills on a roster.
type Category string

const (
	CategoryGK  Category = "GK"
	CategoryDEF Category = "DEF"
	CategoryMID Category = "MID"
	CategoryFWD Category = "FWD"
)

// Categories lists every category in display order.
var Categories = []Category{CategoryGK, CategoryDEF, CategoryMID, CategoryFWD}

// ParseCategory converts a raw category string into a Category
func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryGK, CategoryDEF, CategoryMID, CategoryFWD:
		return c, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

// Grade is the ordinal quality band of an item. A+ is the best grade.
type Grade string

const (
	GradeAPlus Grade = "A+"
	GradeA     Grade = "A"
	GradeB     Grade = "B"
	GradeC     Grade = "C"
	GradeD     Grade = "D"
	GradeE     Grade = "E"
	GradeF     Grade = "F"
)

var gradeOrder = []Grade{GradeAPlus, GradeA, GradeB, GradeC, GradeD, GradeE, GradeF}

// ParseGrade converts a raw grade string into a Grade
func ParseGrade(s string) (Grade, error) {
	for _, g := range gradeOrder {
		if string(g) == s {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown grade %q", s)
}

// Rank returns the position of the grade on the scale, 0 being the best.
// Unknown grades rank after F.
func (g Grade) Rank() int {
	for i, o := range gradeOrder {
		if o == g {
			return i
		}
	}
	return len(gradeOrder)
}

// ItemID identifies an item within a catalog
type ItemID int

// Item represents a draftable catalog entry. Items are created once when the
// catalog is loaded and never mutated afterwards.
type Item struct {
	ID       ItemID          `json:"id"`
	Name     string          `json:"name"`
	Category Category        `json:"category"`
	Grade    Grade           `json:"grade"`
	Price    decimal.Decimal `json:"price"`
}
