// Package cart tracks the items a user intends to order.
package cart

import (
	"github.com/shopspring/decimal"
)

// Line is one cart row. A ledger never holds two lines with the same ID or a
// line with a non-positive quantity.
type Line struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Subtotal is price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Ledger is an insertion-ordered set of lines keyed by catalog id. It does
// not validate ids against the catalog and is not safe for concurrent use;
// the owning session serializes access.
type Ledger struct {
	lines []Line
}

func NewLedger() *Ledger {
	return &Ledger{}
}

func (l *Ledger) find(id int64) int {
	for i := range l.lines {
		if l.lines[i].ID == id {
			return i
		}
	}
	return -1
}

// AddItem increments the quantity of an existing line or appends a new line
// with quantity one.
func (l *Ledger) AddItem(id int64, name string, price decimal.Decimal) {
	if i := l.find(id); i >= 0 {
		l.lines[i].Quantity++
		return
	}
	l.lines = append(l.lines, Line{ID: id, Name: name, Price: price, Quantity: 1})
}

// SetQuantity upserts a line. A quantity of zero or less removes it.
func (l *Ledger) SetQuantity(id int64, name string, price decimal.Decimal, qty int) {
	if qty <= 0 {
		l.RemoveItem(id)
		return
	}
	if i := l.find(id); i >= 0 {
		l.lines[i].Quantity = qty
		return
	}
	l.lines = append(l.lines, Line{ID: id, Name: name, Price: price, Quantity: qty})
}

// RemoveItem drops the line for id; absent ids are a no-op.
func (l *Ledger) RemoveItem(id int64) {
	i := l.find(id)
	if i < 0 {
		return
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
}

func (l *Ledger) Clear() {
	l.lines = nil
}

// Total is the sum of price times quantity, rounded to two decimals.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l.lines {
		total = total.Add(line.Subtotal())
	}
	return total.Round(2)
}

// Lines returns a copy of the lines in insertion order.
func (l *Ledger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

// Quantity of id, zero when absent.
func (l *Ledger) Quantity(id int64) int {
	if i := l.find(id); i >= 0 {
		return l.lines[i].Quantity
	}
	return 0
}

// Len is the number of distinct lines.
func (l *Ledger) Len() int {
	return len(l.lines)
}

// Count is the total number of units across all lines.
func (l *Ledger) Count() int {
	n := 0
	for _, line := range l.lines {
		n += line.Quantity
	}
	return n
}

func (l *Ledger) IsEmpty() bool {
	return len(l.lines) == 0
}
