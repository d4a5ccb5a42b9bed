// Package session runs one ordering conversation: it routes user input to
// the checkout sequencer or the assistant, owns the cart and serializes
// every state change through Reduce.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/assistant"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/cart"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/intent"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/payment"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/pkg/clock"
)

// Greeting opens every conversation.
const Greeting = "Hi! I'm your menu assistant. What would you like to know about our offerings?"

// imagePlaceholder stands in for an image the model could not describe.
const imagePlaceholder = "[image]"

const sinkTimeout = 10 * time.Second

// Assistant answers menu questions. *assistant.Reconciler satisfies it.
type Assistant interface {
	Reconcile(ctx context.Context, text string, history []conversation.Turn, idx *catalog.Index) conversation.Turn
	ReconcileImage(ctx context.Context, img llm.Image, history []conversation.Turn, idx *catalog.Index) assistant.ImageOutcome
}

// OrderSink receives every placed order.
type OrderSink interface {
	SubmitOrder(ctx context.Context, order *checkout.Order) error
}

// OrderSinkFunc adapts a function to OrderSink.
type OrderSinkFunc func(ctx context.Context, order *checkout.Order) error

func (f OrderSinkFunc) SubmitOrder(ctx context.Context, order *checkout.Order) error {
	return f(ctx, order)
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Catalog   *catalog.Holder
	Assistant Assistant
	Sequencer checkout.Sequencer
	// Payer settles wallet checkouts. Card checkouts never call it.
	Payer    payment.Payer
	Recorder *conversation.Recorder
	Sinks    []OrderSink
	Clock    clock.Clock
	Logger   *slog.Logger
}

// pendingRequest remembers the last failed assistant call for Retry. An
// image request whose description succeeded is retried as text.
type pendingRequest struct {
	text      string
	image     *llm.Image
	userAdded bool
	intent    intent.Intent
	history   []conversation.Turn
}

// Session is one conversation. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	deps *Deps

	mu      sync.Mutex
	state   State
	pending *pendingRequest
}

func newSession(ctx context.Context, id string, deps *Deps) *Session {
	s := &Session{
		ID:        id,
		CreatedAt: deps.Clock.Now(),
		deps:      deps,
		state: State{
			Log:    conversation.NewLog(deps.Clock),
			Cart:   cart.NewLedger(),
			Mode:   ModeChat,
			Intent: intent.General,
		},
	}

	deps.Recorder.Start(ctx, id, map[string]string{"payment_method": string(deps.Sequencer.Method)})

	s.mu.Lock()
	s.dispatch(ctx, AddTurn{Turn: conversation.Turn{From: conversation.FromAssistant, Text: Greeting}})
	s.mu.Unlock()
	return s
}

// dispatch reduces each action in order and records appended turns. The
// caller holds s.mu.
func (s *Session) dispatch(ctx context.Context, actions ...Action) []conversation.Turn {
	var appended []conversation.Turn
	for _, a := range actions {
		if turn, ok := Reduce(&s.state, a); ok {
			appended = append(appended, turn)
			s.deps.Recorder.Record(ctx, s.ID, turn)
		}
	}
	return appended
}

func (s *Session) index() *catalog.Index {
	if s.deps.Catalog == nil {
		return nil
	}
	return s.deps.Catalog.Current()
}

// render resolves turns against the current catalog.
func (s *Session) render(turns []conversation.Turn) []conversation.View {
	return conversation.RenderAll(turns, resolver(s.index()))
}

// resolver avoids handing Render a typed nil.
func resolver(idx *catalog.Index) conversation.Resolver {
	if idx == nil {
		return nil
	}
	return idx
}

// promptHistory is the log without error turns.
func (s *Session) promptHistory() []conversation.Turn {
	turns := s.state.Log.Turns()
	out := turns[:0]
	for _, t := range turns {
		if !t.IsError {
			out = append(out, t)
		}
	}
	return out
}

// Send handles one line of user text and returns the turns it appended.
func (s *Session) Send(ctx context.Context, text string) ([]conversation.View, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}

	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return nil, ErrBusy
	}

	in := intent.Classify(text)

	if s.state.Checkout.State.Active() {
		appended, order := s.advanceCheckout(ctx, text, in)
		s.mu.Unlock()
		s.submit(ctx, order)
		return s.render(appended), nil
	}

	history := s.promptHistory()
	appended := s.dispatch(ctx,
		SetIntent{Intent: in},
		AddTurn{Turn: conversation.Turn{From: conversation.FromUser, Text: text, Intent: in}},
	)

	if in == intent.Browse {
		appended = append(appended, s.dispatch(ctx,
			SetMode{Mode: ModeBrowse},
			AddTurn{Turn: s.categoriesTurn()},
		)...)
		s.mu.Unlock()
		return s.render(appended), nil
	}

	s.dispatch(ctx, SetLoading{Loading: true})
	s.mu.Unlock()

	req := &pendingRequest{text: text, intent: in, history: history}
	return s.render(append(appended, s.ask(ctx, req))), nil
}

// advanceCheckout feeds text to the sequencer. The caller holds s.mu.
func (s *Session) advanceCheckout(ctx context.Context, text string, in intent.Intent) ([]conversation.Turn, *checkout.Order) {
	cs := s.state.Checkout
	q := s.deps.Sequencer

	user := conversation.Turn{
		From:      conversation.FromUser,
		Text:      text,
		Intent:    in,
		Sensitive: cs.State.Sensitive(),
	}
	step := q.Advance(cs, text, s.state.Cart.Total())

	actions := []Action{SetIntent{Intent: intent.Checkout}, AddTurn{Turn: user}, SetCheckout{Checkout: step.Session}}
	if step.Reply != "" {
		actions = append(actions, AddTurn{Turn: conversation.Turn{
			From:   conversation.FromAssistant,
			Text:   step.Reply,
			Intent: intent.Checkout,
		}})
	}

	var order *checkout.Order
	if step.Effect == checkout.EffectPlaceOrder && step.Completed != nil && !s.state.Cart.IsEmpty() {
		order = s.newOrder(*step.Completed, cs.Method, s.state.Cart.Lines(), s.state.Cart.Total(), nil)
		actions = append(actions, ClearCart{})
	}

	return s.dispatch(ctx, actions...), order
}

func (s *Session) categoriesTurn() conversation.Turn {
	text := "Our menu is loading. Please try again in a moment."
	if idx := s.index(); idx != nil {
		if cats := idx.Categories(); len(cats) > 0 {
			text = "Here are our menu categories: " + strings.Join(cats, ", ") + ". Pick one to see its items."
		} else {
			text = fmt.Sprintf("We have %d items on the menu. Have a look!", idx.Len())
		}
	}
	return conversation.Turn{From: conversation.FromAssistant, Text: text, Intent: intent.Browse}
}

// ask runs one assistant request with s.mu released and loading set, then
// appends the answer and clears loading. Loading is cleared even if the
// assistant panics, leaving req retryable.
func (s *Session) ask(ctx context.Context, req *pendingRequest) conversation.Turn {
	done := false
	defer func() {
		if done {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dispatch(ctx, SetLoading{Loading: false})
		s.pending = req
	}()

	idx := s.index()

	var (
		answer   conversation.Turn
		userTurn *conversation.Turn
	)
	if req.image != nil && req.text == "" {
		out := s.deps.Assistant.ReconcileImage(ctx, *req.image, req.history, idx)
		answer = out.Turn
		if out.Description != "" {
			req.text = out.Description
		}
		if !req.userAdded {
			text := out.Description
			if text == "" {
				text = imagePlaceholder
			}
			userTurn = &conversation.Turn{From: conversation.FromUser, Text: text, Image: true, Intent: req.intent}
			req.userAdded = true
		}
	} else {
		answer = s.deps.Assistant.Reconcile(ctx, req.text, req.history, idx)
	}
	if !answer.IsError {
		answer.Intent = req.intent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var actions []Action
	if userTurn != nil {
		actions = append(actions, AddTurn{Turn: *userTurn})
	}
	actions = append(actions, AddTurn{Turn: answer}, SetLoading{Loading: false})
	appended := s.dispatch(ctx, actions...)
	done = true

	if answer.IsError {
		s.pending = req
	} else {
		s.pending = nil
	}
	return appended[len(appended)-1]
}

// SendImage describes an image and answers as if its description had been
// typed. The user turn is appended once the description is known.
func (s *Session) SendImage(ctx context.Context, data []byte, mediaType string) ([]conversation.View, error) {
	img, err := llm.NewImage(data, mediaType)
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}

	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.state.Checkout.State.Active() {
		s.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	history := s.promptHistory()
	s.dispatch(ctx, SetIntent{Intent: intent.MenuQuery}, SetLoading{Loading: true})
	before := s.state.Log.Len()
	s.mu.Unlock()

	s.ask(ctx, &pendingRequest{image: &img, intent: intent.MenuQuery, history: history})

	s.mu.Lock()
	turns := s.state.Log.Turns()[before:]
	s.mu.Unlock()
	return s.render(turns), nil
}

// Retry repeats the last failed assistant request. The failed turn stays in
// the log and a new answer is appended.
func (s *Session) Retry(ctx context.Context) ([]conversation.View, error) {
	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	req := s.pending
	if req == nil {
		s.mu.Unlock()
		return nil, ErrNothingToRetry
	}
	s.dispatch(ctx, SetLoading{Loading: true})
	s.mu.Unlock()

	return s.render([]conversation.Turn{s.ask(ctx, req)}), nil
}

// BeginCheckout starts collecting delivery details. It switches the
// display back to chat.
func (s *Session) BeginCheckout(ctx context.Context) ([]conversation.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Loading {
		return nil, ErrBusy
	}
	if s.state.Checkout.State.Active() {
		return nil, ErrCheckoutInProgress
	}
	if s.state.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	step := s.deps.Sequencer.Begin(s.state.Checkout)
	appended := s.dispatch(ctx,
		SetMode{Mode: ModeChat},
		SetIntent{Intent: intent.Checkout},
		SetCheckout{Checkout: step.Session},
		AddTurn{Turn: conversation.Turn{From: conversation.FromAssistant, Text: step.Reply, Intent: intent.Checkout}},
	)
	return s.render(appended), nil
}

// Cancel abandons the checkout. The cart is kept.
func (s *Session) Cancel(ctx context.Context) ([]conversation.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Loading {
		return nil, ErrBusy
	}
	if !s.state.Checkout.State.Active() {
		return nil, ErrNoCheckout
	}

	step := s.deps.Sequencer.Cancel(s.state.Checkout)
	appended := s.dispatch(ctx,
		SetCheckout{Checkout: step.Session},
		AddTurn{Turn: conversation.Turn{From: conversation.FromAssistant, Text: step.Reply, Intent: intent.Checkout}},
	)
	return s.render(appended), nil
}

// Pay settles a wallet checkout. A failed payment appends an error turn
// and leaves the checkout at its payment step. The order records the cart
// as it was quoted; the cart cannot change while the payment is in flight.
func (s *Session) Pay(ctx context.Context) ([]conversation.View, error) {
	s.mu.Lock()
	if s.state.Loading {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.state.Checkout.State != checkout.Settling {
		s.mu.Unlock()
		return nil, ErrNoPaymentPending
	}
	if s.state.Cart.IsEmpty() {
		s.mu.Unlock()
		return nil, ErrEmptyCart
	}

	q := s.deps.Sequencer
	lines := s.state.Cart.Lines()
	total := s.state.Cart.Total()
	amount, err := q.Quote(total)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to quote payment: %w", err)
	}
	req := payment.Request{
		IdempotencyKey: checkout.IdempotencyKey(s.ID, s.state.Checkout),
		Amount:         amount,
		Currency:       q.SettlementCurrency,
		Memo:           "order " + s.ID,
	}
	s.dispatch(ctx, SetLoading{Loading: true})
	s.mu.Unlock()

	done := false
	defer func() {
		if done {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dispatch(ctx, SetLoading{Loading: false})
	}()

	var receipt payment.Receipt
	if s.deps.Payer == nil {
		err = &payment.Failure{Reason: "no payment capability configured"}
	} else {
		receipt, err = s.deps.Payer.AttemptPayment(ctx, req)
	}

	appended, order := s.settle(ctx, req, receipt, err, lines, total)
	done = true

	s.submit(ctx, order)
	return s.render(appended), nil
}

// settle applies a payment outcome and clears loading. order is nil when
// the payment failed.
func (s *Session) settle(ctx context.Context, req payment.Request, receipt payment.Receipt, err error, lines []cart.Line, total decimal.Decimal) ([]conversation.Turn, *checkout.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.deps.Sequencer
	cs := s.state.Checkout

	if err != nil {
		s.deps.Logger.Warn("payment failed",
			slog.String("session_id", s.ID),
			slog.String("idempotency_key", req.IdempotencyKey),
			slog.String("error", err.Error()),
		)
		step := q.PaymentFailed(cs, err)
		appended := s.dispatch(ctx,
			SetLoading{Loading: false},
			AddTurn{Turn: conversation.Turn{
				From:    conversation.FromAssistant,
				Text:    step.Reply,
				Intent:  intent.Checkout,
				IsError: true,
			}},
		)
		return appended, nil
	}

	step := q.Settled(cs, receipt)
	order := s.newOrder(*step.Completed, cs.Method, lines, total, &receipt)
	appended := s.dispatch(ctx,
		SetLoading{Loading: false},
		SetCheckout{Checkout: step.Session},
		ClearCart{},
		AddTurn{Turn: conversation.Turn{From: conversation.FromAssistant, Text: step.Reply, Intent: intent.Checkout}},
	)
	return appended, order
}

// newOrder builds an order from a cart snapshot.
func (s *Session) newOrder(d checkout.Details, method checkout.Method, lines []cart.Line, total decimal.Decimal, receipt *payment.Receipt) *checkout.Order {
	return &checkout.Order{
		ID:        "ord_" + uuid.New().String(),
		SessionID: s.ID,
		Customer:  d.Customer(),
		Lines:     lines,
		Total:     total,
		Currency:  s.deps.Sequencer.Currency,
		Method:    method,
		Receipt:   receipt,
		PlacedAt:  s.deps.Clock.Now(),
	}
}

// submit hands the order to every sink. Failures are logged; the user has
// already been told the order is placed.
func (s *Session) submit(ctx context.Context, order *checkout.Order) {
	if order == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	for _, sink := range s.deps.Sinks {
		if err := sink.SubmitOrder(ctx, order); err != nil {
			s.deps.Logger.Error("failed to submit order",
				slog.String("session_id", s.ID),
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
		}
	}
	s.deps.Logger.Info("order placed",
		slog.String("session_id", s.ID),
		slog.String("order_id", order.ID),
		slog.String("total", order.Total.StringFixed(2)),
		slog.String("method", string(order.Method)),
	)
}

// AddToCart adds one unit of a catalog item.
func (s *Session) AddToCart(ctx context.Context, id int64) (CartSummary, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return CartSummary{}, err
	}
	return s.mutateCart(ctx, AddToCart{Entry: entry})
}

// SetCartQuantity sets a line's quantity; zero or less removes it.
func (s *Session) SetCartQuantity(ctx context.Context, id int64, qty int) (CartSummary, error) {
	if qty <= 0 {
		return s.mutateCart(ctx, RemoveFromCart{ID: id})
	}
	entry, err := s.lookup(id)
	if err != nil {
		return CartSummary{}, err
	}
	return s.mutateCart(ctx, SetCartQuantity{Entry: entry, Quantity: qty})
}

// RemoveFromCart drops a line if present.
func (s *Session) RemoveFromCart(ctx context.Context, id int64) (CartSummary, error) {
	return s.mutateCart(ctx, RemoveFromCart{ID: id})
}

// ClearCart empties the cart.
func (s *Session) ClearCart(ctx context.Context) (CartSummary, error) {
	return s.mutateCart(ctx, ClearCart{})
}

// SetMode switches the display mode.
func (s *Session) SetMode(ctx context.Context, m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch(ctx, SetMode{Mode: m})
}

func (s *Session) lookup(id int64) (catalog.Entry, error) {
	idx := s.index()
	if idx == nil {
		return catalog.Entry{}, ErrNoCatalog
	}
	return idx.Lookup(id)
}

// mutateCart applies a cart action. The cart is frozen while a request is
// in flight and once the payment amount has been quoted.
func (s *Session) mutateCart(ctx context.Context, a Action) (CartSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Loading {
		return CartSummary{}, ErrBusy
	}
	if s.state.Checkout.State == checkout.Settling {
		return CartSummary{}, ErrCheckoutInProgress
	}
	s.dispatch(ctx, a)
	return s.cartSummary(), nil
}
