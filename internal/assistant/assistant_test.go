package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/tokens"
)

type fakeBackend struct {
	reply       string
	err         error
	describe    string
	describeErr error

	requests      []llm.Request
	imageRequests []llm.ImageRequest
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeBackend) DescribeImage(ctx context.Context, req llm.ImageRequest) (string, error) {
	f.imageRequests = append(f.imageRequests, req)
	return f.describe, f.describeErr
}

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	idx, err := catalog.New([]catalog.Entry{
		{ID: 1, Name: "Latte", Category: "Coffee", Price: decimal.RequireFromString("12.00")},
		{ID: 2, Name: "Glazed Donut", Category: "Donuts", Price: decimal.RequireFromString("4.50")},
	})
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return idx
}

func newTestReconciler(t *testing.T, b *fakeBackend, cfg Config) *Reconciler {
	t.Helper()
	r, err := New(b, tokens.NewEstimator(), cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestReconcileParsed(t *testing.T) {
	b := &fakeBackend{reply: `{"text": "Try these", "items": [{"id": 1, "name": "Latte", "price": "12.00"}, {"id": 2, "name": "Glazed Donut", "price": "4.50"}], "conclusion": "Yum"}`}
	r := newTestReconciler(t, b, DefaultConfig())

	history := []conversation.Turn{
		{From: conversation.FromAssistant, Text: "Hi!"},
		{From: conversation.FromUser, Text: "I like sweet things"},
	}
	turn := r.Reconcile(context.Background(), "coffee and a donut", history, testIndex(t))

	if turn.IsError {
		t.Fatalf("turn is an error: %+v", turn)
	}
	if turn.From != conversation.FromAssistant {
		t.Errorf("From = %s", turn.From)
	}
	if turn.Recommendation == nil || len(turn.Recommendation.Items) != 2 {
		t.Fatalf("Recommendation = %+v", turn.Recommendation)
	}
	if turn.Text != "Try these" || turn.Raw != b.reply {
		t.Errorf("Text = %q Raw = %q", turn.Text, turn.Raw)
	}

	req := b.requests[0]
	if req.Model != "gpt-4o" || req.MaxTokens != 500 {
		t.Errorf("request model %s max tokens %d", req.Model, req.MaxTokens)
	}
	for _, want := range []string{`"name":"Latte"`, `"price":"4.50"`, "Bot: Hi!\nUser: I like sweet things", "coffee and a donut", `"conclusion"`} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, req.Prompt)
		}
	}
}

func TestReconcileRawIsNotAnError(t *testing.T) {
	b := &fakeBackend{reply: `{"text": "cut off`}
	turn := newTestReconciler(t, b, DefaultConfig()).Reconcile(context.Background(), "hi", nil, testIndex(t))

	if turn.IsError || turn.Retryable {
		t.Errorf("raw output flagged as error: %+v", turn)
	}
	if turn.Text != b.reply || turn.Recommendation != nil {
		t.Errorf("turn = %+v, want raw text verbatim", turn)
	}
}

func TestReconcileRemoteFailure(t *testing.T) {
	b := &fakeBackend{err: llm.NewRemoteError(llm.ErrorTypeAuthentication, "bad key")}
	turn := newTestReconciler(t, b, DefaultConfig()).Reconcile(context.Background(), "hi", nil, testIndex(t))

	if turn.Text != Apology {
		t.Errorf("Text = %q, want apology", turn.Text)
	}
	if !turn.IsError || !turn.Retryable {
		t.Errorf("turn = %+v, want retryable error", turn)
	}
}

func TestReconcileWithoutCatalog(t *testing.T) {
	b := &fakeBackend{reply: "{}"}
	turn := newTestReconciler(t, b, DefaultConfig()).Reconcile(context.Background(), "hi", nil, nil)

	if !turn.IsError {
		t.Error("expected an error turn without a catalog")
	}
	if len(b.requests) != 0 {
		t.Error("backend called without a catalog")
	}
}

func TestReconcileImage(t *testing.T) {
	b := &fakeBackend{
		describe: "  A pink frosted donut.  ",
		reply:    `{"text": "Donut match!", "items": [{"id": 2, "name": "Glazed Donut", "price": "4.50"}], "conclusion": "Sweet"}`,
	}
	r := newTestReconciler(t, b, DefaultConfig())
	img := llm.Image{MediaType: "image/jpeg", Data: []byte{1}}

	out := r.ReconcileImage(context.Background(), img, nil, testIndex(t))

	if out.Description != "A pink frosted donut." {
		t.Errorf("Description = %q", out.Description)
	}
	if out.Turn.Recommendation == nil {
		t.Fatalf("turn = %+v, want parsed", out.Turn)
	}
	if ir := b.imageRequests[0]; ir.Model != "gpt-4o-mini" || ir.MaxTokens != 2000 || ir.Instruction != llm.DescribeInstruction {
		t.Errorf("image request = %+v", ir)
	}
	if req := b.requests[0]; !strings.Contains(req.Prompt, "A pink frosted donut.") || req.Model != "gpt-4o-mini" {
		t.Errorf("reasoning request = model %s prompt %q", req.Model, req.Prompt)
	}
}

func TestReconcileImageDescribeFailure(t *testing.T) {
	b := &fakeBackend{describeErr: errors.New("timeout")}
	out := newTestReconciler(t, b, DefaultConfig()).ReconcileImage(context.Background(), llm.Image{}, nil, testIndex(t))

	if out.Description != "" || out.Turn.Text != Apology || !out.Turn.Retryable {
		t.Errorf("outcome = %+v", out)
	}
	if len(b.requests) != 0 {
		t.Error("reasoning call made after describe failed")
	}
}

func TestHistoryTrimmedToBudget(t *testing.T) {
	b := &fakeBackend{reply: "ok"}
	cfg := DefaultConfig()
	cfg.HistoryTokens = 10
	r := newTestReconciler(t, b, cfg)

	history := []conversation.Turn{
		{From: conversation.FromUser, Text: "first message that is quite long indeed"},
		{From: conversation.FromAssistant, Text: "ok"},
		{From: conversation.FromUser, Text: "latest"},
	}
	r.Reconcile(context.Background(), "q", history, testIndex(t))

	prompt := b.requests[0].Prompt
	if strings.Contains(prompt, "first message") {
		t.Error("oldest turn was not trimmed")
	}
	if !strings.Contains(prompt, "Bot: ok\nUser: latest") {
		t.Errorf("newest turns missing from prompt:\n%s", prompt)
	}
}

func TestSummary(t *testing.T) {
	rec := &conversation.Recommendation{Text: "Try", Conclusion: "Bye"}
	items := []catalog.Entry{{ID: 1, Name: "Latte", Price: decimal.RequireFromString("12")}}

	want := "Try\n  [1] Latte  12.00\nBye"
	if got := Summary(rec, items); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if Summary(nil, nil) != "" {
		t.Error("Summary(nil) should be empty")
	}
}
