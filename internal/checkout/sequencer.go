package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/payment"
)

const (
	PromptBegin    = "Please provide your delivery details to proceed with the order. What name should we put on it?"
	PromptAddress  = "Great! What's your delivery address?"
	PromptPhone    = "Perfect! And your phone number?"
	PromptCard     = "Great! Now for payment. Please enter your card number:"
	PromptExpiry   = "Please enter the card expiry date (MM/YY):"
	PromptCvv      = "Finally, please enter the CVV:"
	PromptFailed   = "Payment failed. Please try again."
	PromptNoWallet = "Please connect your wallet to complete the payment."
	PromptCancel   = "Checkout cancelled. Your cart has been kept."
)

// Effect tells the caller what to do with the cart after a step.
type Effect int

const (
	EffectNone Effect = iota
	// EffectPlaceOrder means the order is complete: record it and clear the cart.
	EffectPlaceOrder
	// EffectAwaitPayment means the details are complete and a payment
	// attempt may now be made.
	EffectAwaitPayment
)

// Step is the outcome of one transition. Reply is the assistant text to
// append and is empty when nothing happened. Completed is the details
// snapshot taken before the reset on EffectPlaceOrder.
type Step struct {
	Session   Session
	Reply     string
	Effect    Effect
	Advanced  bool
	Completed *Details
}

// Sequencer holds the per-deployment checkout settings. Its methods are pure:
// they take a session and return the next one without side effects.
//
// Currency labels cart totals. SettlementCurrency and Rate (local units per
// settlement unit) apply to the wallet path. Brand, when set, is thanked in
// the wallet confirmation.
type Sequencer struct {
	Method             Method
	Currency           string
	SettlementCurrency string
	Rate               decimal.Decimal
	Brand              string
}

// NewSequencer returns a card sequencer with the default AED/USDT settings.
func NewSequencer() Sequencer {
	return Sequencer{
		Method:             MethodCard,
		Currency:           "AED",
		SettlementCurrency: "USDT",
		Rate:               payment.DefaultRate,
	}
}

// Begin enters CollectingName with empty details.
func (q Sequencer) Begin(s Session) Step {
	next := Session{
		State:   CollectingName,
		Method:  q.Method,
		Attempt: s.Attempt + 1,
	}
	return Step{Session: next, Reply: PromptBegin, Advanced: true}
}

// Advance consumes one line of user text. Blank input never transitions.
func (q Sequencer) Advance(s Session, input string, total decimal.Decimal) Step {
	input = strings.TrimSpace(input)
	if input == "" || !s.State.Active() {
		return Step{Session: s}
	}

	next := s
	switch s.State {
	case CollectingName:
		next.Details.Name = input
		next.State = CollectingAddress
		return Step{Session: next, Reply: PromptAddress, Advanced: true}

	case CollectingAddress:
		next.Details.Address = input
		next.State = CollectingPhone
		return Step{Session: next, Reply: PromptPhone, Advanced: true}

	case CollectingPhone:
		next.Details.Phone = input
		if s.Method == MethodWallet {
			next.State = Settling
			return Step{Session: next, Reply: q.PaymentPrompt(total), Effect: EffectAwaitPayment, Advanced: true}
		}
		next.State = CollectingCard
		return Step{Session: next, Reply: PromptCard, Advanced: true}

	case CollectingCard:
		next.Details.CardNumber = input
		next.State = CollectingExpiry
		return Step{Session: next, Reply: PromptExpiry, Advanced: true}

	case CollectingExpiry:
		next.Details.Expiry = input
		next.State = CollectingCvv
		return Step{Session: next, Reply: PromptCvv, Advanced: true}

	case CollectingCvv:
		next.Details.CVV = input
		completed := next.Details
		reply := fmt.Sprintf("Thank you for your order! Your total is %s %s. Your order will be delivered to %s. We'll send updates to %s.",
			q.Currency, total.StringFixed(2), completed.Address, completed.Phone)
		return Step{
			Session:   Session{Attempt: s.Attempt},
			Reply:     reply,
			Effect:    EffectPlaceOrder,
			Advanced:  true,
			Completed: &completed,
		}

	case Settling:
		return Step{Session: s, Reply: q.PaymentPrompt(total)}
	}

	return Step{Session: s}
}

// Quote converts a cart total into the settlement amount.
func (q Sequencer) Quote(total decimal.Decimal) (decimal.Decimal, error) {
	return payment.Convert(total, q.Rate)
}

// PaymentPrompt asks the user to settle total through the wallet.
func (q Sequencer) PaymentPrompt(total decimal.Decimal) string {
	amount, err := q.Quote(total)
	if err != nil {
		return fmt.Sprintf("Your total is %s %s. Use pay to complete your order.", q.Currency, total.StringFixed(2))
	}
	return fmt.Sprintf("Your total is %s %s. Use pay to send exactly %s %s and place your order (1 %s = %s %s).",
		q.Currency, total.StringFixed(2), amount.StringFixed(2), q.SettlementCurrency,
		q.SettlementCurrency, q.Rate.String(), q.Currency)
}

// Settled finishes a wallet checkout. There is exactly one confirmation and
// it is only produced for a successful receipt.
func (q Sequencer) Settled(s Session, r payment.Receipt) Step {
	completed := s.Details
	reply := fmt.Sprintf("Payment Successful! Transaction: %s Your order will be delivered to %s. We'll send updates to %s.",
		r.ShortReference(), completed.Address, completed.Phone)
	if q.Brand != "" {
		reply += fmt.Sprintf(" Thank you for choosing %s!", q.Brand)
	}
	return Step{
		Session:   Session{Attempt: s.Attempt},
		Reply:     reply,
		Effect:    EffectPlaceOrder,
		Advanced:  true,
		Completed: &completed,
	}
}

// PaymentFailed keeps the session at its payment step.
func (q Sequencer) PaymentFailed(s Session, err error) Step {
	if errors.Is(err, payment.ErrWalletNotConnected) {
		return Step{Session: s, Reply: PromptNoWallet}
	}
	return Step{Session: s, Reply: PromptFailed}
}

// Cancel abandons the checkout and forgets the collected details.
func (q Sequencer) Cancel(s Session) Step {
	if !s.State.Active() {
		return Step{Session: s}
	}
	return Step{Session: Session{Attempt: s.Attempt}, Reply: PromptCancel, Advanced: true}
}

// IdempotencyKey identifies one checkout attempt of one conversation.
func IdempotencyKey(sessionID string, s Session) string {
	return fmt.Sprintf("%s:%d", sessionID, s.Attempt)
}
