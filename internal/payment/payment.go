// Package payment settles a cart total through an external wallet
// capability. Transaction construction is left entirely to that capability.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrWalletNotConnected is reported when no wallet session is available.
var ErrWalletNotConnected = errors.New("wallet not connected")

// DefaultRate is the number of local currency units (AED) per settlement
// currency unit (USDT).
var DefaultRate = decimal.RequireFromString("3.3")

// Request asks for Amount in the settlement currency.
type Request struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Memo           string          `json:"memo,omitempty"`
}

// Receipt is returned by a successful settlement.
type Receipt struct {
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Reference      string          `json:"reference"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	SettledAt      time.Time       `json:"settled_at"`
}

// ShortReference is the first eight characters of the reference followed by
// an ellipsis, as shown to the user.
func (r Receipt) ShortReference() string {
	if len(r.Reference) <= 8 {
		return r.Reference
	}
	return r.Reference[:8] + "..."
}

// Payer is the single capability the checkout needs from a wallet.
type Payer interface {
	AttemptPayment(ctx context.Context, req Request) (Receipt, error)
}

// Failure is a payment that did not settle. The checkout stays at its
// payment step so the user can try again.
type Failure struct {
	Reason string
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("payment failed: %s: %v", f.Reason, f.Err)
	}
	return "payment failed: " + f.Reason
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Convert turns a local-currency total into the settlement amount at rate
// local units per settlement unit, rounded to two decimals.
func Convert(total, rate decimal.Decimal) (decimal.Decimal, error) {
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("conversion rate must be positive, got %s", rate)
	}
	return total.DivRound(rate, 2), nil
}
