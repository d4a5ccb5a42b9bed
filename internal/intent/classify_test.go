package intent

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Intent
	}{
		{name: "budget lunch", text: "I want lunch under 50 AED", want: MenuQuery},
		{name: "recommendation", text: "Can you recommend something sweet?", want: MenuQuery},
		{name: "craving", text: "I'm craving an iced latte", want: MenuQuery},
		{name: "greeting", text: "hello there", want: General},
		{name: "thanks", text: "Thanks!", want: General},
		{name: "empty", text: "   ", want: General},
		{name: "checkout", text: "I'd like to checkout", want: Checkout},
		{name: "place order", text: "Place my order please", want: Checkout},
		{name: "pay", text: "can I pay now", want: Checkout},
		{name: "that's all", text: "that's all, thanks", want: Checkout},
		{name: "show menu", text: "show me the full menu", want: Browse},
		{name: "what do you have", text: "What do you have?", want: Browse},
		{name: "browse", text: "browse donuts", want: Browse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	inputs := []string{"I want lunch under 50 AED", "show menu and checkout", "pay for coffee"}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 20; i++ {
			if got := Classify(in); got != first {
				t.Fatalf("Classify(%q) changed from %v to %v", in, first, got)
			}
		}
	}
}

func TestPlaceholder(t *testing.T) {
	if got := Placeholder(MenuQuery); got != "Ask about menu items, prices, or place an order..." {
		t.Errorf("Placeholder(MenuQuery) = %q", got)
	}
	if got := Placeholder(General); got != "Type your message here..." {
		t.Errorf("Placeholder(General) = %q", got)
	}
}
