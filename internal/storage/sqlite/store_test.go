package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/cart"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/payment"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage"
)

func newTestStore(t *testing.T, name string) *Store {
	t.Helper()
	// Use in-memory SQLite with shared cache for testing
	store, err := New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_CreateConversation(t *testing.T) {
	store := newTestStore(t, "memdb1")

	conv := &storage.Conversation{
		ID:       "test-conv-1",
		Metadata: map[string]string{"key": "value"},
	}
	if err := store.CreateConversation(context.Background(), conv); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	retrieved, err := store.GetConversation(context.Background(), "test-conv-1")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if retrieved.ID != conv.ID {
		t.Errorf("ID = %v, want %v", retrieved.ID, conv.ID)
	}
	if retrieved.Metadata["key"] != "value" {
		t.Errorf("Metadata = %v, want key=value", retrieved.Metadata)
	}
	if len(retrieved.Messages) != 0 {
		t.Errorf("Messages = %v, want none", retrieved.Messages)
	}
}

func TestSQLiteStore_AddMessage(t *testing.T) {
	store := newTestStore(t, "memdb2")
	ctx := context.Background()

	if err := store.CreateConversation(ctx, &storage.Conversation{ID: "test-conv-2"}); err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	msgs := []*storage.Message{
		{ID: "msg-1", Role: "user", Content: "I want lunch under 50 AED", Intent: "MENU_QUERY", CreatedAt: base},
		{ID: "msg-2", Role: "assistant", Content: "Sorry, something went wrong. Please try again.", IsError: true, CreatedAt: base.Add(time.Second)},
	}
	for _, m := range msgs {
		if err := store.AddMessage(ctx, "test-conv-2", m); err != nil {
			t.Fatalf("AddMessage() error = %v", err)
		}
	}

	retrieved, err := store.GetConversation(ctx, "test-conv-2")
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if len(retrieved.Messages) != 2 {
		t.Fatalf("Messages count = %d, want 2", len(retrieved.Messages))
	}
	if retrieved.Messages[0].Intent != "MENU_QUERY" {
		t.Errorf("Intent = %v, want MENU_QUERY", retrieved.Messages[0].Intent)
	}
	if !retrieved.Messages[1].IsError {
		t.Error("IsError = false, want true")
	}

	if err := store.AddMessage(ctx, "missing", &storage.Message{ID: "msg-3", Role: "user", Content: "x"}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("AddMessage(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := newTestStore(t, "memdb3")
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.CreateConversation(ctx, &storage.Conversation{ID: id}); err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
	}

	list, err := store.ListConversations(ctx, storage.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("ListConversations() len = %d, want 2", len(list))
	}

	if err := store.DeleteConversation(ctx, "a"); err != nil {
		t.Fatalf("DeleteConversation() error = %v", err)
	}
	if _, err := store.GetConversation(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetConversation(deleted) error = %v, want ErrNotFound", err)
	}
	if err := store.DeleteConversation(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("DeleteConversation(again) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Orders(t *testing.T) {
	store := newTestStore(t, "memdb4")
	ctx := context.Background()
	placed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	order := &checkout.Order{
		ID:        "ord-1",
		SessionID: "sess-1",
		Customer:  checkout.Customer{Name: "Ana", Address: "12 Palm St", Phone: "555-0100"},
		Lines: []cart.Line{
			{ID: 1, Name: "Glazed Donut", Price: decimal.RequireFromString("4.50"), Quantity: 2},
			{ID: 2, Name: "Mini Latte", Price: decimal.RequireFromString("4.50"), Quantity: 1},
		},
		Total:    decimal.RequireFromString("13.50"),
		Currency: "AED",
		Method:   checkout.MethodWallet,
		Receipt: &payment.Receipt{
			IdempotencyKey: "sess-1:1",
			Reference:      "5xKq9mZtAbCdEf",
			Amount:         decimal.RequireFromString("4.09"),
			Currency:       "USDT",
			SettledAt:      placed,
		},
		PlacedAt: placed,
	}
	if err := store.SaveOrder(ctx, order); err != nil {
		t.Fatalf("SaveOrder() error = %v", err)
	}
	second := *order
	second.ID = "ord-2"
	second.Receipt = nil
	second.PlacedAt = placed.Add(time.Hour)
	if err := store.SaveOrder(ctx, &second); err != nil {
		t.Fatalf("SaveOrder() error = %v", err)
	}

	got, err := store.GetOrder(ctx, "ord-1")
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if diff := cmp.Diff(order.Customer, got.Customer); diff != "" {
		t.Errorf("Customer mismatch (-want +got):\n%s", diff)
	}
	if got.Total.StringFixed(2) != "13.50" {
		t.Errorf("Total = %v, want 13.50", got.Total)
	}
	if len(got.Lines) != 2 || got.Lines[0].Quantity != 2 {
		t.Errorf("Lines = %+v", got.Lines)
	}
	if got.Receipt == nil || got.Receipt.Reference != "5xKq9mZtAbCdEf" {
		t.Errorf("Receipt = %+v", got.Receipt)
	}

	list, err := store.ListOrders(ctx, storage.ListOptions{})
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != "ord-2" {
		t.Fatalf("ListOrders() = %v, want ord-2 first", list)
	}
	if list[0].Receipt != nil {
		t.Errorf("ord-2 Receipt = %+v, want nil", list[0].Receipt)
	}

	if _, err := store.GetOrder(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetOrder(missing) error = %v, want ErrNotFound", err)
	}
}
