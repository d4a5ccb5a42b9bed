// Package catalog holds the immutable menu index and the sources it is
// loaded from.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an identifier does not resolve to an entry.
var ErrNotFound = errors.New("catalog entry not found")

// Entry is a single orderable menu item.
type Entry struct {
	ID                int64           `json:"id"`
	VariantID         int64           `json:"variant_id,omitempty"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category,omitempty"`
	Price             decimal.Decimal `json:"price"`
	Image             string          `json:"image,omitempty"`
	Restaurant        string          `json:"restaurant,omitempty"`
	SpicinessLevel    int             `json:"spicinessLevel,omitempty"`
	SweetnessLevel    int             `json:"sweetnessLevel,omitempty"`
	DietaryPreference []string        `json:"dietaryPreference,omitempty"`
	HealthinessScore  int             `json:"healthinessScore,omitempty"`
	Popularity        int             `json:"popularity,omitempty"`
	CaffeineLevel     string          `json:"caffeineLevel,omitempty"`
	SufficientFor     int             `json:"sufficientFor,omitempty"`
}

// Index is a read-only view over a fixed set of entries. Lookups are
// constant time and never mutate the index.
type Index struct {
	entries    []Entry
	byID       map[int64]int
	categories []string
}

// New builds an index. Identifiers must be unique and prices non-negative.
func New(entries []Entry) (*Index, error) {
	idx := &Index{
		entries: make([]Entry, 0, len(entries)),
		byID:    make(map[int64]int, len(entries)),
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if _, dup := idx.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate catalog id %d", e.ID)
		}
		if e.Price.IsNegative() {
			return nil, fmt.Errorf("catalog id %d has negative price %s", e.ID, e.Price)
		}
		idx.byID[e.ID] = len(idx.entries)
		idx.entries = append(idx.entries, e)

		if e.Category != "" && !seen[strings.ToLower(e.Category)] {
			seen[strings.ToLower(e.Category)] = true
			idx.categories = append(idx.categories, e.Category)
		}
	}

	return idx, nil
}

// Lookup returns the entry for id or ErrNotFound.
func (i *Index) Lookup(id int64) (Entry, error) {
	pos, ok := i.byID[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return i.entries[pos], nil
}

// Has reports whether id resolves to an entry.
func (i *Index) Has(id int64) bool {
	_, ok := i.byID[id]
	return ok
}

// All returns a copy of every entry in load order.
func (i *Index) All() []Entry {
	out := make([]Entry, len(i.entries))
	copy(out, i.entries)
	return out
}

func (i *Index) Len() int {
	return len(i.entries)
}

// Categories lists distinct categories in order of first appearance.
func (i *Index) Categories() []string {
	out := make([]string, len(i.categories))
	copy(out, i.categories)
	return out
}

// ByCategory returns the entries of a category, matched case-insensitively.
func (i *Index) ByCategory(category string) []Entry {
	var out []Entry
	for _, e := range i.entries {
		if strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out
}

// Holder publishes the current index. A reload swaps in a whole new index,
// so readers always see a consistent snapshot.
type Holder struct {
	current atomic.Pointer[Index]
}

func NewHolder(idx *Index) *Holder {
	h := &Holder{}
	h.current.Store(idx)
	return h
}

func (h *Holder) Current() *Index {
	return h.current.Load()
}

func (h *Holder) Replace(idx *Index) {
	h.current.Store(idx)
}
