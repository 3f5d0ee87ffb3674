package catalog

import (
	"errors"
	"fmt"

	"github.com/mcdev12/budgetdraft/go/internal/models"
)

// ErrInvalidItem is returned when an item cannot be part of a catalog
var ErrInvalidItem = errors.New("invalid catalog item")

// Catalog is an immutable, ordered collection of draftable items.
// It is shared read-only between every participant of a draft.
type Catalog struct {
	items []*models.Item
	byID  map[models.ItemID]*models.Item
}

// New builds a catalog from already-parsed items. Items are copied once; the
// catalog hands out pointers to its own copies from then on.
func New(items []models.Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]*models.Item, 0, len(items)),
		byID:  make(map[models.ItemID]*models.Item, len(items)),
	}
	for i := range items {
		item := items[i]
		if err := validateItem(item); err != nil {
			return nil, err
		}
		if _, exists := c.byID[item.ID]; exists {
			return nil, fmt.Errorf("%w: duplicate id %d", ErrInvalidItem, item.ID)
		}
		c.items = append(c.items, &item)
		c.byID[item.ID] = &item
	}
	return c, nil
}

// Lookup returns the item with the given ID
func (c *Catalog) Lookup(id models.ItemID) (*models.Item, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Items returns the catalog items in load order
func (c *Catalog) Items() []*models.Item {
	out := make([]*models.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items in the catalog
func (c *Catalog) Len() int {
	return len(c.items)
}

func validateItem(item models.Item) error {
	if item.Name == "" {
		return fmt.Errorf("%w: item %d has no name", ErrInvalidItem, item.ID)
	}
	if _, err := models.ParseCategory(string(item.Category)); err != nil {
		return fmt.Errorf("%w: item %d: %v", ErrInvalidItem, item.ID, err)
	}
	if _, err := models.ParseGrade(string(item.Grade)); err != nil {
		return fmt.Errorf("%w: item %d: %v", ErrInvalidItem, item.ID, err)
	}
	if item.Price.IsNegative() {
		return fmt.Errorf("%w: item %d has a negative price", ErrInvalidItem, item.ID)
	}
	if !item.Price.Equal(item.Price.Round(1)) {
		return fmt.Errorf("%w: item %d price %s has more than one decimal place", ErrInvalidItem, item.ID, item.Price)
	}
	return nil
}
