package assistant

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
)

func TestParse(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	const valid = `{"text": "Coffee time!", "items": [{"id": 1, "name": "Latte", "price": "12.00"}, {"id": "2", "name": "Mocha", "price": 13.5}], "conclusion": "Enjoy!"}`

	tests := []struct {
		name       string
		raw        string
		wantKind   ResultKind
		wantMethod string
		wantItems  int
	}{
		{name: "direct", raw: valid, wantKind: Parsed, wantMethod: MethodJSON, wantItems: 2},
		{name: "surrounding whitespace", raw: "\n  " + valid + "\n", wantKind: Parsed, wantMethod: MethodJSON, wantItems: 2},
		{name: "fenced", raw: "```json\n" + valid + "\n```", wantKind: Parsed, wantMethod: MethodFenced, wantItems: 2},
		{name: "embedded", raw: "Sure! Here you go: " + valid + " Let me know.", wantKind: Parsed, wantMethod: MethodExtracted, wantItems: 2},
		{name: "empty items", raw: `{"text": "Nothing fits", "items": [], "conclusion": ""}`, wantKind: Parsed, wantMethod: MethodJSON},
		{name: "truncated", raw: `{"text": "Coffee time!", "items": [{"id": 1, "name": "Lat`, wantKind: Raw, wantMethod: MethodFallback},
		{name: "missing conclusion", raw: `{"text": "Coffee time!", "items": []}`, wantKind: Raw, wantMethod: MethodFallback},
		{name: "items not array", raw: `{"text": "x", "items": "latte", "conclusion": ""}`, wantKind: Raw, wantMethod: MethodFallback},
		{name: "item without id", raw: `{"text": "x", "items": [{"name": "Latte"}], "conclusion": ""}`, wantKind: Raw, wantMethod: MethodFallback},
		{name: "unreadable item id", raw: `{"text": "t", "items": [{"id": 1, "name": "Latte"}, {"id": "abc", "name": "?"}], "conclusion": "c"}`, wantKind: Parsed, wantMethod: MethodJSON, wantItems: 2},
		{name: "integral float id", raw: `{"text": "t", "items": [{"id": 1}, {"id": 2.0}], "conclusion": "c"}`, wantKind: Parsed, wantMethod: MethodJSON, wantItems: 2},
		{name: "plain text", raw: "We have great coffee.", wantKind: Raw, wantMethod: MethodFallback},
		{name: "empty", raw: "", wantKind: Raw, wantMethod: MethodFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.Parse(tt.raw)
			if res.Kind != tt.wantKind {
				t.Fatalf("Kind = %s, want %s", res.Kind, tt.wantKind)
			}
			if res.Method != tt.wantMethod {
				t.Errorf("Method = %s, want %s", res.Method, tt.wantMethod)
			}
			if res.Raw != tt.raw {
				t.Errorf("Raw = %q, want the original payload", res.Raw)
			}
			if tt.wantKind == Parsed && len(res.Recommendation.Items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(res.Recommendation.Items), tt.wantItems)
			}
			if tt.wantKind == Raw && res.Recommendation != nil {
				t.Error("Raw result carries a recommendation")
			}
		})
	}
}

func TestParseKeepsUnknownItems(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	res := p.Parse(`{"text": "t", "items": [{"id": 999, "name": "Ghost", "price": 1}], "conclusion": "c"}`)
	if res.Kind != Parsed {
		t.Fatalf("Kind = %s, want parsed", res.Kind)
	}
	if got := res.Recommendation.Items[0].ID; got != 999 {
		t.Errorf("item id = %d, want 999 kept until render", got)
	}
}

func TestParseKeepsItemsBesideUnreadableIDs(t *testing.T) {
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser() error = %v", err)
	}

	res := p.Parse(`{"text": "t", "items": [{"id": 1, "name": "Latte"}, {"id": "abc"}, {"id": 2.0}, {"id": 3.5}], "conclusion": "c"}`)
	if res.Kind != Parsed {
		t.Fatalf("Kind = %s, want parsed", res.Kind)
	}

	var got []int64
	for _, it := range res.Recommendation.Items {
		got = append(got, it.ID)
	}
	want := []int64{1, conversation.UnknownItemID, 2, conversation.UnknownItemID}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("item ids mismatch (-want +got):\n%s", diff)
	}
}
