package tokens

import (
	"strings"
	"testing"
)

func TestEstimator_CountText(t *testing.T) {
	e := NewEstimator()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "short", text: "hi", want: 1},
		{name: "exact", text: "abcdefgh", want: 2},
		{name: "rounds up", text: "abcdefghi", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.CountText("gemini-2.0-flash", tt.text)
			if err != nil {
				t.Fatalf("CountText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CountText() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTiktokenCounter_CountText(t *testing.T) {
	c := NewTiktokenCounter()

	for _, model := range []string{"gpt-4o", "gpt-4o-mini", "gpt-4", "gpt-3.5-turbo"} {
		t.Run(model, func(t *testing.T) {
			n, err := c.CountText(model, "Hello, how are you today?")
			if err != nil {
				t.Fatalf("CountText() error = %v", err)
			}
			if n < 4 || n > 12 {
				t.Errorf("CountText() = %d, outside expected range", n)
			}
		})
	}
}

func TestTiktokenCounter_SupportsModel(t *testing.T) {
	c := NewTiktokenCounter()

	tests := []struct {
		model string
		want  bool
	}{
		{"gpt-4o", true},
		{"GPT-4o-mini", true},
		{"o3-mini", true},
		{"gemini-2.0-flash", false},
		{"claude-3-haiku", false},
	}

	for _, tt := range tests {
		if got := c.SupportsModel(tt.model); got != tt.want {
			t.Errorf("SupportsModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestRegistryFallsBackToEstimator(t *testing.T) {
	r := NewRegistry(NewTiktokenCounter())

	if !r.SupportsModel("gemini-2.0-flash") {
		t.Fatal("registry should support any model through the fallback")
	}
	got, err := r.CountText("gemini-2.0-flash", strings.Repeat("a", 40))
	if err != nil {
		t.Fatalf("CountText() error = %v", err)
	}
	if got != 10 {
		t.Errorf("CountText() = %d, want 10", got)
	}
}

func TestKeepNewest(t *testing.T) {
	e := NewEstimator()
	// Each line is 8 chars = 2 tokens, plus 1 for the newline.
	lines := []string{"User: aa", "Bot: bbb", "User: cc", "Bot: ddd"}

	tests := []struct {
		name   string
		budget int
		want   int
	}{
		{name: "unlimited", budget: 0, want: 0},
		{name: "everything fits", budget: 12, want: 0},
		{name: "drop one", budget: 9, want: 1},
		{name: "only newest", budget: 3, want: 3},
		{name: "nothing fits", budget: 2, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeepNewest(e, "any", lines, tt.budget)
			if err != nil {
				t.Fatalf("KeepNewest() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("KeepNewest() = %d, want %d", got, tt.want)
			}
		})
	}
}
