// Package checkout sequences the scripted delivery and payment dialogue that
// turns a cart into an order.
package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/cart"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/payment"
)

// State is the step the sequencer is waiting on.
type State int

const (
	Idle State = iota
	CollectingName
	CollectingAddress
	CollectingPhone
	CollectingCard
	CollectingExpiry
	CollectingCvv
	Settling
)

var stateNames = map[State]string{
	Idle:              "idle",
	CollectingName:    "collecting_name",
	CollectingAddress: "collecting_address",
	CollectingPhone:   "collecting_phone",
	CollectingCard:    "collecting_card",
	CollectingExpiry:  "collecting_expiry",
	CollectingCvv:     "collecting_cvv",
	Settling:          "settling",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the state by name in JSON snapshots.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for st, name := range stateNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown checkout state %q", text)
}

// Phase groups states the way the user sees them.
type Phase string

const (
	PhaseNone     Phase = "none"
	PhaseDetails  Phase = "collectingDetails"
	PhasePayment  Phase = "collectingPayment"
	PhaseSettling Phase = "settling"
)

func (s State) Phase() Phase {
	switch s {
	case CollectingName, CollectingAddress, CollectingPhone:
		return PhaseDetails
	case CollectingCard, CollectingExpiry, CollectingCvv:
		return PhasePayment
	case Settling:
		return PhaseSettling
	default:
		return PhaseNone
	}
}

// Active reports whether user text should be routed to the sequencer.
func (s State) Active() bool {
	return s != Idle
}

// Sensitive reports whether input collected in this state must not be
// persisted verbatim.
func (s State) Sensitive() bool {
	return s == CollectingCard || s == CollectingExpiry || s == CollectingCvv
}

// Method is how an order is paid.
type Method string

const (
	MethodCard   Method = "card"
	MethodWallet Method = "wallet"
)

// ParseMethod defaults to card for anything but "wallet".
func ParseMethod(s string) Method {
	if strings.EqualFold(strings.TrimSpace(s), string(MethodWallet)) {
		return MethodWallet
	}
	return MethodCard
}

// Details holds what the user typed at each step, stored as typed. Card
// number, expiry and CVV are not validated.
type Details struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Phone      string `json:"phone"`
	CardNumber string `json:"card_number,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CVV        string `json:"cvv,omitempty"`
}

// Masked hides payment fields for display.
func (d Details) Masked() Details {
	out := d
	if n := len(d.CardNumber); n > 4 {
		out.CardNumber = strings.Repeat("*", n-4) + d.CardNumber[n-4:]
	}
	if d.Expiry != "" {
		out.Expiry = "**/**"
	}
	if d.CVV != "" {
		out.CVV = "***"
	}
	return out
}

// Customer is the delivery contact kept on an order.
type Customer struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (d Details) Customer() Customer {
	return Customer{Name: d.Name, Address: d.Address, Phone: d.Phone}
}

// Session is the per-conversation checkout state. The zero value is Idle.
type Session struct {
	State   State   `json:"state"`
	Details Details `json:"details"`
	Method  Method  `json:"method,omitempty"`
	// Attempt counts checkouts begun in this conversation.
	Attempt int `json:"attempt"`
}

// Order is a settled checkout.
type Order struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Customer  Customer         `json:"customer"`
	Lines     []cart.Line      `json:"lines"`
	Total     decimal.Decimal  `json:"total"`
	Currency  string           `json:"currency"`
	Method    Method           `json:"method"`
	Receipt   *payment.Receipt `json:"receipt,omitempty"`
	PlacedAt  time.Time        `json:"placed_at"`
}
