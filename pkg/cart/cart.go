package cart

import (
	"errors"
	"fmt"

	"github.com/example/foodonbus/pkg/catalog"
	"github.com/example/foodonbus/pkg/models"
	"github.com/shopspring/decimal"
)

var ErrUnknownItem = errors.New("unknown menu item")

// Cart is the line list of one session. It is not safe for concurrent use.
type Cart struct {
	catalog *catalog.Catalog
	lines   []models.CartLine
}

func New(cat *catalog.Catalog) *Cart {
	return &Cart{catalog: cat}
}

// Restore rebuilds a cart from previously saved lines.
func Restore(cat *catalog.Catalog, lines []models.CartLine) *Cart {
	c := New(cat)
	c.lines = append(c.lines, lines...)
	return c
}

// Add appends a line for the item with its current name and price. Quantity
// bounds are checked where the quantity is entered.
func (c *Cart) Add(itemID string, quantity int) (models.CartLine, error) {
	item, ok := c.catalog.Lookup(itemID)
	if !ok {
		return models.CartLine{}, fmt.Errorf("%w: %q", ErrUnknownItem, itemID)
	}

	line := models.CartLine{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
		Quantity:  quantity,
	}
	c.lines = append(c.lines, line)
	return line, nil
}

func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the current lines.
func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int { return len(c.lines) }

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

func (c *Cart) Subtotal() decimal.Decimal {
	return models.Subtotal(c.lines)
}
