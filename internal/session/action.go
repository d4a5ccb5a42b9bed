package session

import (
	"fmt"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/cart"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/intent"
)

// Mode is how the client presents the catalog.
type Mode string

const (
	ModeChat   Mode = "chat"
	ModeBrowse Mode = "browse"
)

// ParseMode accepts "chat" or "browse".
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeChat, ModeBrowse:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// State is everything a session owns. It is only changed through Reduce.
type State struct {
	Log      *conversation.Log
	Cart     *cart.Ledger
	Checkout checkout.Session
	Mode     Mode
	Intent   intent.Intent
	Loading  bool
}

// Action is one state change. The set is closed.
type Action interface {
	action()
}

type (
	AddTurn        struct{ Turn conversation.Turn }
	SetLoading     struct{ Loading bool }
	SetIntent      struct{ Intent intent.Intent }
	SetMode        struct{ Mode Mode }
	AddToCart      struct{ Entry catalog.Entry }
	RemoveFromCart struct{ ID int64 }
	ClearCart      struct{}
	SetCheckout    struct{ Checkout checkout.Session }
)

// SetCartQuantity upserts a line; a quantity of zero or less removes it.
type SetCartQuantity struct {
	Entry    catalog.Entry
	Quantity int
}

func (AddTurn) action()         {}
func (SetLoading) action()      {}
func (SetIntent) action()       {}
func (SetMode) action()         {}
func (AddToCart) action()       {}
func (SetCartQuantity) action() {}
func (RemoveFromCart) action()  {}
func (ClearCart) action()       {}
func (SetCheckout) action()     {}

// Reduce applies a to st. When a appends a turn, the stored turn is
// returned with ok set.
func Reduce(st *State, a Action) (turn conversation.Turn, ok bool) {
	switch a := a.(type) {
	case AddTurn:
		return st.Log.Append(a.Turn), true
	case SetLoading:
		st.Loading = a.Loading
	case SetIntent:
		st.Intent = a.Intent
	case SetMode:
		st.Mode = a.Mode
	case AddToCart:
		st.Cart.AddItem(a.Entry.ID, a.Entry.Name, a.Entry.Price)
	case SetCartQuantity:
		st.Cart.SetQuantity(a.Entry.ID, a.Entry.Name, a.Entry.Price, a.Quantity)
	case RemoveFromCart:
		st.Cart.RemoveItem(a.ID)
	case ClearCart:
		st.Cart.Clear()
	case SetCheckout:
		st.Checkout = a.Checkout
	}
	return conversation.Turn{}, false
}
