package checkout

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/payment"
)

var total = decimal.RequireFromString("13.50")

func TestSequencer_CardFlow(t *testing.T) {
	q := NewSequencer()

	step := q.Begin(Session{})
	if step.Session.State != CollectingName {
		t.Fatalf("Begin() state = %v, want %v", step.Session.State, CollectingName)
	}
	if step.Reply != PromptBegin {
		t.Errorf("Begin() reply = %q", step.Reply)
	}

	walk := []struct {
		input     string
		wantState State
		wantReply string
	}{
		{"Ana", CollectingAddress, PromptAddress},
		{"12 Palm St", CollectingPhone, PromptPhone},
		{"555-0100", CollectingCard, PromptCard},
		{"4111111111111111", CollectingExpiry, PromptExpiry},
		{"12/29", CollectingCvv, PromptCvv},
	}

	s := step.Session
	for _, w := range walk {
		step = q.Advance(s, w.input, total)
		if step.Session.State != w.wantState {
			t.Fatalf("Advance(%q) state = %v, want %v", w.input, step.Session.State, w.wantState)
		}
		if step.Reply != w.wantReply {
			t.Errorf("Advance(%q) reply = %q, want %q", w.input, step.Reply, w.wantReply)
		}
		if step.Effect != EffectNone {
			t.Errorf("Advance(%q) effect = %v, want none", w.input, step.Effect)
		}
		s = step.Session
	}

	step = q.Advance(s, "123", total)
	if step.Session.State != Idle {
		t.Errorf("final state = %v, want idle", step.Session.State)
	}
	if step.Effect != EffectPlaceOrder {
		t.Errorf("final effect = %v, want EffectPlaceOrder", step.Effect)
	}
	want := "Thank you for your order! Your total is AED 13.50. Your order will be delivered to 12 Palm St. We'll send updates to 555-0100."
	if step.Reply != want {
		t.Errorf("confirmation = %q, want %q", step.Reply, want)
	}
	if diff := cmp.Diff(Details{}, step.Session.Details); diff != "" {
		t.Errorf("details not reset (-want +got):\n%s", diff)
	}
	wantDetails := Details{Name: "Ana", Address: "12 Palm St", Phone: "555-0100", CardNumber: "4111111111111111", Expiry: "12/29", CVV: "123"}
	if diff := cmp.Diff(&wantDetails, step.Completed); diff != "" {
		t.Errorf("completed details mismatch (-want +got):\n%s", diff)
	}
	if step.Session.Attempt != 1 {
		t.Errorf("attempt = %d, want 1", step.Session.Attempt)
	}
}

func TestSequencer_BlankInputDoesNotAdvance(t *testing.T) {
	q := NewSequencer()
	states := []State{CollectingName, CollectingAddress, CollectingPhone, CollectingCard, CollectingExpiry, CollectingCvv}

	for _, st := range states {
		for _, in := range []string{"", "   ", "\t\n"} {
			s := Session{State: st, Details: Details{Name: "keep"}}
			step := q.Advance(s, in, total)
			if step.Advanced || step.Reply != "" {
				t.Errorf("Advance(%v, %q) advanced = %v reply = %q", st, in, step.Advanced, step.Reply)
			}
			if diff := cmp.Diff(s, step.Session); diff != "" {
				t.Errorf("Advance(%v, %q) changed session (-want +got):\n%s", st, in, diff)
			}
		}
	}
}

func TestSequencer_FieldsStoredInOrder(t *testing.T) {
	q := NewSequencer()
	s := q.Begin(Session{}).Session

	s = q.Advance(s, "first", total).Session
	if s.Details.Name != "first" || s.Details.Address != "" {
		t.Fatalf("after first input details = %+v", s.Details)
	}
	s = q.Advance(s, "second", total).Session
	if s.Details.Address != "second" || s.Details.Phone != "" {
		t.Fatalf("after second input details = %+v", s.Details)
	}
	s = q.Advance(s, "  third  ", total).Session
	if s.Details.Phone != "third" {
		t.Fatalf("phone = %q, want trimmed third", s.Details.Phone)
	}
}

func TestSequencer_AcceptsUnvalidatedPaymentFields(t *testing.T) {
	// Card number, expiry and CVV are stored exactly as typed.
	q := NewSequencer()
	s := Session{State: CollectingCard, Method: MethodCard}

	s = q.Advance(s, "not a card", total).Session
	s = q.Advance(s, "tomorrow", total).Session
	if s.State != CollectingCvv {
		t.Fatalf("state = %v, want collecting_cvv", s.State)
	}
	step := q.Advance(s, "x", total)
	if step.Effect != EffectPlaceOrder {
		t.Fatalf("effect = %v, want EffectPlaceOrder", step.Effect)
	}
	if step.Completed.CardNumber != "not a card" || step.Completed.Expiry != "tomorrow" || step.Completed.CVV != "x" {
		t.Errorf("completed = %+v", step.Completed)
	}
}

func TestSequencer_IdleIgnoresInput(t *testing.T) {
	step := NewSequencer().Advance(Session{}, "hello", total)
	if step.Advanced || step.Session.State != Idle || step.Reply != "" {
		t.Errorf("Advance(idle) = %+v", step)
	}
}

func walletSequencer() Sequencer {
	q := NewSequencer()
	q.Method = MethodWallet
	q.Brand = "Dunkin'"
	return q
}

func TestSequencer_WalletFlow(t *testing.T) {
	q := walletSequencer()
	s := q.Begin(Session{}).Session
	if s.Method != MethodWallet {
		t.Fatalf("method = %v, want wallet", s.Method)
	}

	s = q.Advance(s, "Ana", total).Session
	s = q.Advance(s, "12 Palm St", total).Session
	step := q.Advance(s, "555-0100", total)

	if step.Session.State != Settling {
		t.Fatalf("state = %v, want settling", step.Session.State)
	}
	if step.Effect != EffectAwaitPayment {
		t.Errorf("effect = %v, want EffectAwaitPayment", step.Effect)
	}
	if !strings.Contains(step.Reply, "4.09 USDT") {
		t.Errorf("payment prompt = %q, want 4.09 USDT", step.Reply)
	}

	// Text while settling re-prompts without moving.
	again := q.Advance(step.Session, "hello?", total)
	if again.Session.State != Settling || again.Advanced {
		t.Errorf("Advance(settling) = %+v", again)
	}

	if got := q.PaymentFailed(step.Session, payment.ErrWalletNotConnected).Reply; got != PromptNoWallet {
		t.Errorf("PaymentFailed(no wallet) reply = %q", got)
	}

	failed := q.PaymentFailed(step.Session, &payment.Failure{Reason: "rejected"})
	if failed.Session.State != Settling || failed.Reply != PromptFailed {
		t.Errorf("PaymentFailed() = %+v", failed)
	}
	if failed.Session.Details.Phone != "555-0100" {
		t.Error("PaymentFailed() lost details")
	}

	done := q.Settled(failed.Session, payment.Receipt{Reference: "5xKq9mZtAbCdEf", SettledAt: time.Now()})
	if done.Session.State != Idle || done.Effect != EffectPlaceOrder {
		t.Errorf("Settled() = %+v", done)
	}
	want := "Payment Successful! Transaction: 5xKq9mZt... Your order will be delivered to 12 Palm St. We'll send updates to 555-0100. Thank you for choosing Dunkin'!"
	if done.Reply != want {
		t.Errorf("Settled() reply = %q, want %q", done.Reply, want)
	}
}

func TestSequencer_Cancel(t *testing.T) {
	q := NewSequencer()
	s := q.Begin(Session{}).Session
	s = q.Advance(s, "Ana", total).Session

	step := q.Cancel(s)
	if step.Session.State != Idle || step.Reply != PromptCancel {
		t.Errorf("Cancel() = %+v", step)
	}
	if step.Session.Details.Name != "" {
		t.Error("Cancel() kept details")
	}

	if idle := q.Cancel(Session{}); idle.Advanced {
		t.Error("Cancel(idle) advanced")
	}
}

func TestSequencer_BeginIncrementsAttempt(t *testing.T) {
	q := NewSequencer()
	s := q.Begin(Session{Attempt: 2}).Session
	if s.Attempt != 3 {
		t.Errorf("Attempt = %d, want 3", s.Attempt)
	}
	if got := IdempotencyKey("sess", s); got != "sess:3" {
		t.Errorf("IdempotencyKey() = %q, want sess:3", got)
	}
}

func TestState_Phase(t *testing.T) {
	tests := []struct {
		state State
		want  Phase
	}{
		{Idle, PhaseNone},
		{CollectingName, PhaseDetails},
		{CollectingPhone, PhaseDetails},
		{CollectingCard, PhasePayment},
		{CollectingCvv, PhasePayment},
		{Settling, PhaseSettling},
	}
	for _, tt := range tests {
		if got := tt.state.Phase(); got != tt.want {
			t.Errorf("%v.Phase() = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestDetails_Masked(t *testing.T) {
	d := Details{Name: "Ana", CardNumber: "4111111111111111", Expiry: "12/29", CVV: "123"}
	m := d.Masked()
	if m.CardNumber != "************1111" {
		t.Errorf("CardNumber = %q", m.CardNumber)
	}
	if m.CVV != "***" || m.Expiry != "**/**" {
		t.Errorf("masked = %+v", m)
	}
	if m.Name != "Ana" {
		t.Errorf("Name = %q, want Ana", m.Name)
	}
}
