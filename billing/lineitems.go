package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LINE ITEM - One priced entry on an invoice
// =============================================================================

// LineItem is immutable once added. Changing an item is remove + add.
type LineItem struct {
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice Money           `json:"unit_price"`
}

// Total returns round_half_up(Quantity * UnitPrice, 2).
func (li LineItem) Total() Money {
	return li.UnitPrice.Mul(li.Quantity)
}

// NewLineItem validates and builds an item. The name is trimmed and the
// quantity normalized to 2 places before the checks run.
func NewLineItem(name string, quantity decimal.Decimal, unitPrice Money) (LineItem, error) {
	name = strings.TrimSpace(name)
	quantity = quantity.Round(MoneyPlaces)

	if name == "" {
		return LineItem{}, &ValidationError{Field: "name", Message: "item name cannot be empty"}
	}
	if !quantity.IsPositive() {
		return LineItem{}, &ValidationError{Field: "quantity", Message: "quantity must be greater than 0"}
	}
	if unitPrice.IsNegative() {
		return LineItem{}, &ValidationError{Field: "unit_price", Message: "price cannot be negative"}
	}
	return LineItem{Name: name, Quantity: quantity, UnitPrice: unitPrice}, nil
}

// =============================================================================
// LINE ITEMS - Ordered collection for the invoice being built
// =============================================================================

// LineItems keeps items in insertion order. Positions are 0-based.
type LineItems struct {
	items []LineItem
}

// Add validates and appends an item. On failure nothing changes.
func (l *LineItems) Add(name string, quantity decimal.Decimal, unitPrice Money) (LineItem, error) {
	item, err := NewLineItem(name, quantity, unitPrice)
	if err != nil {
		return LineItem{}, err
	}
	l.items = append(l.items, item)
	return item, nil
}

// Remove deletes exactly the item at position and keeps the others in order.
func (l *LineItems) Remove(position int) (LineItem, error) {
	if position < 0 || position >= len(l.items) {
		return LineItem{}, &SelectionError{Position: position, Count: len(l.items)}
	}
	removed := l.items[position]
	l.items = append(l.items[:position:position], l.items[position+1:]...)
	return removed, nil
}

func (l *LineItems) Clear()   { l.items = nil }
func (l *LineItems) Len() int { return len(l.items) }

// Items returns a copy; callers cannot mutate the collection through it.
func (l *LineItems) Items() []LineItem {
	out := make([]LineItem, len(l.items))
	copy(out, l.items)
	return out
}
