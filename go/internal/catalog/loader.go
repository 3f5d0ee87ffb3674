package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mcdev12/budgetdraft/go/internal/models"
)

var requiredColumns = []string{"name", "category", "grade", "price"}

// LoadFile reads a CSV catalog from disk
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load parses a CSV catalog. The header row must contain name, category,
// grade and price columns; an id column is optional; when it is absent items
// are numbered in row order starting at 1.
//
// Records missing a required field or carrying an unparsable value are logged
// and skipped. They never make the whole load fail.
func Load(r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := columns[col]; !ok {
			return nil, fmt.Errorf("catalog header is missing column %q", col)
		}
	}
	idCol, hasID := columns["id"]

	var items []models.Item
	seen := make(map[models.ItemID]bool)
	line := 1
	nextID := models.ItemID(1)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping unreadable catalog record")
			continue
		}

		field := func(col string) string {
			idx := columns[col]
			if idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		id := nextID
		if hasID && idCol < len(record) && strings.TrimSpace(record[idCol]) != "" {
			parsed, err := strconv.Atoi(strings.TrimSpace(record[idCol]))
			if err != nil {
				log.Warn().Err(err).Int("line", line).Msg("skipping catalog record with invalid id")
				continue
			}
			id = models.ItemID(parsed)
		}

		item, err := parseRecord(id, field("name"), field("category"), field("grade"), field("price"))
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping invalid catalog record")
			continue
		}
		if seen[item.ID] {
			log.Warn().Int("line", line).Int("item_id", int(item.ID)).Msg("skipping catalog record with duplicate id")
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
		if item.ID >= nextID {
			nextID = item.ID + 1
		}
	}

	log.Info().Int("items", len(items)).Msg("catalog loaded")
	return New(items)
}

func parseRecord(id models.ItemID, name, category, grade, price string) (models.Item, error) {
	switch {
	case name == "":
		return models.Item{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	case category == "":
		return models.Item{}, fmt.Errorf("%w: category is required", ErrInvalidItem)
	case grade == "":
		return models.Item{}, fmt.Errorf("%w: grade is required", ErrInvalidItem)
	case price == "":
		return models.Item{}, fmt.Errorf("%w: price is required", ErrInvalidItem)
	}

	cat, err := models.ParseCategory(strings.ToUpper(category))
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	g, err := models.ParseGrade(strings.ToUpper(grade))
	if err != nil {
		return models.Item{}, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}
	p, err := ParsePrice(price)
	if err != nil {
		return models.Item{}, err
	}

	item := models.Item{ID: id, Name: name, Category: cat, Grade: g, Price: p}
	if err := validateItem(item); err != nil {
		return models.Item{}, err
	}
	return item, nil
}

// ParsePrice parses a string-encoded, non-negative price with at most one
// decimal place
func ParsePrice(s string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q: %v", ErrInvalidItem, s, err)
	}
	if p.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q is negative", ErrInvalidItem, s)
	}
	if !p.Equal(p.Round(1)) {
		return decimal.Decimal{}, fmt.Errorf("%w: price %q has more than one decimal place", ErrInvalidItem, s)
	}
	return p, nil
}
