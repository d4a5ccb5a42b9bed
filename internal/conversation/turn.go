// Package conversation keeps the append-only turn log of a session and
// records it to a transcript store.
package conversation

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/intent"
)

// Originator says who produced a turn.
type Originator string

const (
	FromUser      Originator = "user"
	FromAssistant Originator = "assistant"
)

// Turn is one entry in the log. Turns are never edited once appended.
type Turn struct {
	ID             int64           `json:"id"`
	From           Originator      `json:"from"`
	Text           string          `json:"text"`
	Time           time.Time       `json:"time"`
	Intent         intent.Intent   `json:"intent,omitempty"`
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Raw            string          `json:"raw,omitempty"`
	Image          bool            `json:"image,omitempty"`
	IsError        bool            `json:"is_error,omitempty"`
	Retryable      bool            `json:"retryable,omitempty"`
	Sensitive      bool            `json:"-"`
}

// Recommendation is the structured answer the assistant returns for a menu
// query. Items keep whatever the model sent; Render filters them.
type Recommendation struct {
	Text       string `json:"text"`
	Items      []Item `json:"items"`
	Conclusion string `json:"conclusion"`
}

// Item is a recommended catalog reference.
type Item struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// UnknownItemID marks an item whose id could not be read. Render drops it;
// the rest of the recommendation is kept.
const UnknownItemID int64 = -1

// UnmarshalJSON accepts the id as a number or a numeric string. Prices the
// model decorates, such as "AED 12.00", are read leniently and left at zero
// when no number can be found.
func (it *Item) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID    json.RawMessage `json:"id"`
		Name  string          `json:"name"`
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	it.ID = parseItemID(wire.ID)
	it.Name = wire.Name
	it.Price = parsePrice(wire.Price)
	return nil
}

// parseItemID reads integers, integral floats such as 2.0 and their quoted
// forms. Anything else is UnknownItemID.
func parseItemID(raw json.RawMessage) int64 {
	s := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(raw), `"`)))
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id
	}
	if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
		return d.IntPart()
	}
	return UnknownItemID
}

var priceDigits = regexp.MustCompile(`\d+(\.\d+)?`)

func parsePrice(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(bytes.Trim(bytes.TrimSpace(raw), `"`)))
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	if m := priceDigits.FindString(s); m != "" {
		if d, err := decimal.NewFromString(m); err == nil {
			return d
		}
	}
	return decimal.Zero
}

// redacted replaces sensitive user input in history and transcripts.
const redacted = "[redacted]"

// promptText is the turn as it appears in replayed history.
func (t Turn) promptText() string {
	switch {
	case t.Sensitive:
		return redacted
	case t.From == FromAssistant && t.Raw != "":
		return t.Raw
	default:
		return strings.TrimSpace(t.Text)
	}
}
