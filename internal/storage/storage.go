// Package storage defines the persistence ports for transcripts and orders.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
)

// ErrNotFound is returned when a conversation or order does not exist.
var ErrNotFound = errors.New("not found")

// Conversation is a recorded session transcript.
type Conversation struct {
	ID        string            `json:"id"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Messages  []Message         `json:"messages"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Message is one recorded turn.
type Message struct {
	ID        string    `json:"id" db:"id"`
	Role      string    `json:"role" db:"role"`
	Content   string    `json:"content" db:"content"`
	Intent    string    `json:"intent,omitempty" db:"intent"`
	Raw       string    `json:"raw,omitempty" db:"raw"`
	IsError   bool      `json:"is_error,omitempty" db:"is_error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ListOptions pages list queries. A zero Limit means the store default.
type ListOptions struct {
	Limit  int
	Offset int
}

// ConversationStore persists transcripts.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	AddMessage(ctx context.Context, convID string, msg *Message) error
	ListConversations(ctx context.Context, opts ListOptions) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	Close() error
}

// OrderStore persists placed orders.
type OrderStore interface {
	SaveOrder(ctx context.Context, order *checkout.Order) error
	GetOrder(ctx context.Context, id string) (*checkout.Order, error)
	ListOrders(ctx context.Context, opts ListOptions) ([]*checkout.Order, error)
}

// Store is what a backend provides.
type Store interface {
	ConversationStore
	OrderStore
}
