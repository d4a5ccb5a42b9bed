package conversation

import (
	"context"
	"testing"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/api/middleware"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/intent"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage/memory"
)

func TestRecordPersistsWithCancelledContext(t *testing.T) {
	store := memory.New()
	rec := NewRecorder(store, nil)

	ctx, cancel := context.WithCancel(middleware.WithRequestID(context.Background(), "req-1"))
	rec.Start(ctx, "sess-1", map[string]string{"mode": "chat"})
	cancel() // simulate client disconnect

	rec.Record(ctx, "sess-1", Turn{From: FromUser, Text: "hi", Intent: intent.General})
	rec.Record(ctx, "sess-1", Turn{From: FromAssistant, Text: "hello", Raw: `{"text":"hello"}`})

	conv, err := store.GetConversation(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("expected conversation to be stored, got error: %v", err)
	}
	if conv.Metadata["request_id"] != "req-1" {
		t.Errorf("request_id = %q, want req-1", conv.Metadata["request_id"])
	}
	if conv.Metadata["mode"] != "chat" {
		t.Errorf("mode = %q, want chat", conv.Metadata["mode"])
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("expected 2 messages to be stored, got %d", len(conv.Messages))
	}
	if conv.Messages[0].Intent != "GENERAL" {
		t.Errorf("intent = %q, want GENERAL", conv.Messages[0].Intent)
	}
	if conv.Messages[1].Raw != `{"text":"hello"}` {
		t.Errorf("raw = %q", conv.Messages[1].Raw)
	}
}

func TestRecordRedactsSensitiveTurns(t *testing.T) {
	store := memory.New()
	rec := NewRecorder(store, nil)
	rec.Start(context.Background(), "sess-2", nil)

	rec.Record(context.Background(), "sess-2", Turn{From: FromUser, Text: "4111111111111111", Sensitive: true})

	conv, err := store.GetConversation(context.Background(), "sess-2")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got := conv.Messages[0].Content; got != "[redacted]" {
		t.Errorf("content = %q, want [redacted]", got)
	}
}

func TestRecordCreatesMissingConversation(t *testing.T) {
	store := memory.New()
	rec := NewRecorder(store, nil)

	rec.Record(context.Background(), "late", Turn{From: FromUser, Text: "hi"})

	conv, err := store.GetConversation(context.Background(), "late")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if len(conv.Messages) != 1 {
		t.Errorf("messages = %d, want 1", len(conv.Messages))
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var rec *Recorder
	rec.Start(context.Background(), "x", nil)
	rec.Record(context.Background(), "x", Turn{})

	NewRecorder(nil, nil).Record(context.Background(), "x", Turn{})
}
