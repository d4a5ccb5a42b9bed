package conversation

import (
	"strings"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/pkg/clock"
)

// Log is an append-only ordered list of turns. It is not safe for
// concurrent use; the owning session serializes access.
type Log struct {
	clock  clock.Clock
	turns  []Turn
	nextID int64
}

// NewLog returns an empty log stamping turns with c.
func NewLog(c clock.Clock) *Log {
	if c == nil {
		c = clock.NewRealClock()
	}
	return &Log{clock: c, nextID: 1}
}

// Append assigns the next id and the current time to t, stores it and
// returns the stored copy.
func (l *Log) Append(t Turn) Turn {
	t.ID = l.nextID
	l.nextID++
	t.Time = l.clock.Now()
	l.turns = append(l.turns, t)
	return t
}

// Turns returns a copy of the log in append order.
func (l *Log) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int {
	return len(l.turns)
}

// FormatHistory serializes turns as prompt context, one "User: ..." or
// "Bot: ..." line per turn.
func FormatHistory(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := "User"
		if t.From == FromAssistant {
			speaker = "Bot"
		}
		lines = append(lines, speaker+": "+t.promptText())
	}
	return strings.Join(lines, "\n")
}

// Resolver resolves catalog ids. *catalog.Index satisfies it.
type Resolver interface {
	Lookup(id int64) (catalog.Entry, error)
}

// View is a turn prepared for display.
type View struct {
	Turn
	Items []catalog.Entry `json:"items,omitempty"`
}

// Render resolves recommended items against the catalog. Items that do not
// resolve are dropped, repeats are shown once, and order follows the
// recommendation. The stored turn is left untouched.
func Render(t Turn, r Resolver) View {
	v := View{Turn: t}
	if t.Recommendation == nil || r == nil {
		return v
	}

	seen := make(map[int64]bool, len(t.Recommendation.Items))
	for _, it := range t.Recommendation.Items {
		if it.ID == UnknownItemID || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		entry, err := r.Lookup(it.ID)
		if err != nil {
			continue
		}
		v.Items = append(v.Items, entry)
	}
	return v
}

// RenderAll renders every turn in order.
func RenderAll(turns []Turn, r Resolver) []View {
	views := make([]View, 0, len(turns))
	for _, t := range turns {
		views = append(views, Render(t, r))
	}
	return views
}
