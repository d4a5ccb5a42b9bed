// Package intent tags free-text user input with a coarse conversational
// intent.
package intent

import (
	"regexp"
	"strings"
	"unicode"
)

// Intent is the conversational branch a piece of user text belongs to.
type Intent string

const (
	MenuQuery Intent = "MENU_QUERY"
	General   Intent = "GENERAL"
	Checkout  Intent = "CHECKOUT"
	Browse    Intent = "BROWSE"
)

func (i Intent) String() string {
	return string(i)
}

// rule scores one intent. Patterns weigh more than synonyms; priority breaks
// near-ties the same way for every input.
type rule struct {
	intent   Intent
	patterns []*regexp.Regexp
	synonyms []string
	priority int
}

var rules = []rule{
	{
		intent: Checkout,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bcheck\s*out\b`),
			regexp.MustCompile(`(?i)\b(place|confirm|complete|finish)\s+(my|the|an?)?\s*order\b`),
			regexp.MustCompile(`(?i)\bproceed\s+to\s+(checkout|payment|pay)\b`),
			regexp.MustCompile(`(?i)\b(that'?s|that\s+is)\s+all\b`),
			regexp.MustCompile(`(?i)\bready\s+to\s+(pay|order)\b`),
		},
		synonyms: []string{"pay", "payment", "checkout", "purchase", "buy"},
		priority: 30,
	},
	{
		intent: Browse,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(show|see|view|list)\s+(me\s+)?(the\s+)?(whole\s+|full\s+|entire\s+)?(menu|categories|everything)\b`),
			regexp.MustCompile(`(?i)\bbrowse\b`),
			regexp.MustCompile(`(?i)\bwhat\s+(do\s+you|categories\s+do\s+you)\s+(have|offer|sell)\b`),
		},
		synonyms: []string{"menu", "categories", "catalog", "browse"},
		priority: 20,
	},
	{
		intent: MenuQuery,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(under|below|less\s+than|cheaper\s+than|around)\s+\d+`),
			regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s*(aed|dhs?|dirhams?|usd|\$)`),
			regexp.MustCompile(`(?i)\b(recommend|suggest)\w*\b`),
			regexp.MustCompile(`(?i)\bi('?m|\s+am)\s+(hungry|craving|thirsty)\b`),
			regexp.MustCompile(`(?i)\b(i\s+)?(want|would\s+like|need)\s+(a|an|some|something)\b`),
		},
		synonyms: []string{
			"breakfast", "lunch", "dinner", "snack", "dessert", "coffee", "latte",
			"espresso", "tea", "donut", "donuts", "doughnut", "munchkins", "sandwich",
			"bagel", "croissant", "drink", "drinks", "iced", "hot", "sweet", "spicy",
			"vegan", "vegetarian", "healthy", "caffeine", "price", "cheap", "aed",
			"hungry", "craving", "order", "want", "eat", "food",
		},
		priority: 10,
	},
}

// Classify maps text to an intent. It is total and deterministic: the
// highest scoring rule wins, earlier rules win exact ties, and text that
// matches nothing is General.
func Classify(text string) Intent {
	text = strings.TrimSpace(text)
	if text == "" {
		return General
	}

	words := tokenize(text)
	best := General
	bestScore := 0.0

	for _, r := range rules {
		score := 0.0
		for _, p := range r.patterns {
			if p.MatchString(text) {
				score += 50.0 + float64(r.priority)/10.0
			}
		}
		for _, syn := range r.synonyms {
			if words[syn] {
				score += 20.0 + float64(len(syn))/2.0 + float64(r.priority)/20.0
			}
		}
		if score > bestScore {
			best = r.intent
			bestScore = score
		}
	}

	return best
}

func tokenize(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	words := make(map[string]bool, len(fields))
	for _, f := range fields {
		words[f] = true
	}
	return words
}

// Placeholder is the input hint shown after a turn of the given intent.
func Placeholder(i Intent) string {
	if i == MenuQuery {
		return "Ask about menu items, prices, or place an order..."
	}
	return "Type your message here..."
}
