package session

import (
	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/cart"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/intent"
)

// CartSummary is the cart as shown to the client.
type CartSummary struct {
	Lines []cart.Line `json:"lines"`
	// Items counts units across all lines.
	Items    int             `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
	// Display is the total formatted for display, e.g. "AED 13.50".
	Display string `json:"display"`
}

// CheckoutView is the checkout state with payment fields masked.
type CheckoutView struct {
	State   checkout.State   `json:"state"`
	Phase   checkout.Phase   `json:"phase"`
	Method  checkout.Method  `json:"method,omitempty"`
	Details checkout.Details `json:"details"`
}

// Snapshot is a read-only copy of a session for clients.
type Snapshot struct {
	ID          string              `json:"id"`
	Turns       []conversation.View `json:"turns"`
	Cart        CartSummary         `json:"cart"`
	Checkout    CheckoutView        `json:"checkout"`
	Mode        Mode                `json:"mode"`
	Intent      intent.Intent       `json:"intent"`
	Placeholder string              `json:"placeholder"`
	Loading     bool                `json:"loading"`
	CanRetry    bool                `json:"can_retry"`
}

// cartSummary must be called with s.mu held.
func (s *Session) cartSummary() CartSummary {
	total := s.state.Cart.Total()
	currency := s.deps.Sequencer.Currency
	return CartSummary{
		Lines:    s.state.Cart.Lines(),
		Items:    s.state.Cart.Count(),
		Total:    total,
		Currency: currency,
		Display:  currency + " " + total.StringFixed(2),
	}
}

// Cart returns the current cart.
func (s *Session) Cart() CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartSummary()
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	turns := s.state.Log.Turns()
	snap := Snapshot{
		ID:   s.ID,
		Cart: s.cartSummary(),
		Checkout: CheckoutView{
			State:   s.state.Checkout.State,
			Phase:   s.state.Checkout.State.Phase(),
			Method:  s.state.Checkout.Method,
			Details: s.state.Checkout.Details.Masked(),
		},
		Mode:        s.state.Mode,
		Intent:      s.state.Intent,
		Placeholder: intent.Placeholder(s.state.Intent),
		Loading:     s.state.Loading,
		CanRetry:    s.pending != nil && !s.state.Loading,
	}
	s.mu.Unlock()

	snap.Turns = s.render(turns)
	return snap
}
