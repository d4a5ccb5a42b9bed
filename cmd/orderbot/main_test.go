package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/assistant"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/config"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/session"
)

type echoAssistant struct{}

func (echoAssistant) Reconcile(ctx context.Context, text string, history []conversation.Turn, idx *catalog.Index) conversation.Turn {
	return conversation.Turn{
		From:           conversation.FromAssistant,
		Text:           "You asked: " + text,
		Recommendation: &conversation.Recommendation{Text: "You asked: " + text, Items: []conversation.Item{{ID: 1}}},
	}
}

func (echoAssistant) ReconcileImage(ctx context.Context, img llm.Image, history []conversation.Turn, idx *catalog.Index) assistant.ImageOutcome {
	return assistant.ImageOutcome{Turn: conversation.Turn{From: conversation.FromAssistant, Text: assistant.Apology, IsError: true, Retryable: true}}
}

func TestRunChat(t *testing.T) {
	idx, err := catalog.New([]catalog.Entry{
		{ID: 1, Name: "Glazed Donut", Category: "Donuts", Price: decimal.RequireFromString("4.50")},
		{ID: 2, Name: "Iced Latte", Category: "Drinks", Price: decimal.RequireFromString("9.00")},
	})
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	holder := catalog.NewHolder(idx)
	mgr := session.NewManager(session.Deps{
		Catalog:   holder,
		Assistant: echoAssistant{},
		Sequencer: checkout.NewSequencer(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	sess := mgr.Create(context.Background())

	input := strings.Join([]string{
		"/menu",
		"/menu Drinks",
		"recommend a donut",
		"/add 1",
		"/add 2",
		"/add 99",
		"/checkout",
		"Ana",
		"12 Palm St",
		"555-0100",
		"4111111111111111",
		"12/29",
		"123",
		"/cart",
		"/bogus",
		"/quit",
		"never read",
	}, "\n")

	var out bytes.Buffer
	if err := runChat(context.Background(), sess, holder, strings.NewReader(input), &out); err != nil {
		t.Fatalf("runChat() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		session.Greeting,
		"categories: Donuts, Drinks",
		"[2] Iced Latte  9.00",
		"You asked: recommend a donut",
		"[1] Glazed Donut  4.50",
		"total (2 items): AED 13.50",
		"error: catalog entry not found",
		checkout.PromptBegin,
		"Your total is AED 13.50",
		"cart is empty",
		"unknown command /bogus",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "never read") {
		t.Error("input after /quit was processed")
	}
}

func TestParseItemArgs(t *testing.T) {
	tests := []struct {
		arg     string
		id      int64
		qty     int
		wantErr bool
	}{
		{"3", 3, 0, false},
		{"3 2", 3, 2, false},
		{"", 0, 0, true},
		{"x", 0, 0, true},
		{"3 many", 0, 0, true},
	}
	for _, tt := range tests {
		id, qty, err := parseItemArgs(tt.arg)
		if (err != nil) != tt.wantErr || id != tt.id || qty != tt.qty {
			t.Errorf("parseItemArgs(%q) = %d, %d, %v", tt.arg, id, qty, err)
		}
	}
}

func TestNewSequencer(t *testing.T) {
	cfg := &config.Config{
		Checkout: config.CheckoutConfig{PaymentMode: "wallet", Currency: "AED", Brand: "Dunkin"},
		Payment:  config.PaymentConfig{SettlementCurrency: "USDT", Rate: "3.3"},
	}
	seq, err := newSequencer(cfg)
	if err != nil {
		t.Fatalf("newSequencer() error = %v", err)
	}
	if seq.Method != checkout.MethodWallet || seq.Brand != "Dunkin" {
		t.Errorf("sequencer = %+v", seq)
	}
	if !seq.Rate.Equal(decimal.RequireFromString("3.3")) {
		t.Errorf("Rate = %s", seq.Rate)
	}

	cfg.Payment.Rate = "zero"
	if _, err := newSequencer(cfg); err == nil {
		t.Error("newSequencer() error = nil for bad rate")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	if strings.Contains(buf.String(), "hidden") {
		t.Error("info record logged at warn level")
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Errorf("want text handler output, got %q", buf.String())
	}
}

func TestNewStore(t *testing.T) {
	store, err := newStore(config.StorageConfig{Type: "none"})
	if err != nil || store != nil {
		t.Errorf("newStore(none) = %v, %v", store, err)
	}
	store, err = newStore(config.StorageConfig{Type: "memory"})
	if err != nil || store == nil {
		t.Fatalf("newStore(memory) = %v, %v", store, err)
	}
	store.Close()
}
