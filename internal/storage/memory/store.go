package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage"
)

// Store is an in-memory implementation of storage.Store
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*storage.Conversation
	orders        map[string]*checkout.Order
	orderSeq      []string
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		conversations: make(map[string]*storage.Conversation),
		orders:        make(map[string]*checkout.Order),
	}
}

func (s *Store) CreateConversation(ctx context.Context, conv *storage.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; exists {
		return fmt.Errorf("conversation %s already exists", conv.ID)
	}

	conv.CreatedAt = time.Now()
	conv.UpdatedAt = conv.CreatedAt
	conv.Messages = []storage.Message{}

	s.conversations[conv.ID] = conv
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*storage.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, exists := s.conversations[id]
	if !exists {
		return nil, fmt.Errorf("conversation %s: %w", id, storage.ErrNotFound)
	}

	return cloneConversation(conv), nil
}

func (s *Store) AddMessage(ctx context.Context, convID string, msg *storage.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, exists := s.conversations[convID]
	if !exists {
		return fmt.Errorf("conversation %s: %w", convID, storage.ErrNotFound)
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	conv.Messages = append(conv.Messages, *msg)
	conv.UpdatedAt = time.Now()

	return nil
}

func (s *Store) ListConversations(ctx context.Context, opts storage.ListOptions) ([]*storage.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*storage.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		c := cloneConversation(conv)
		c.Messages = nil
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	return page(result, opts), nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[id]; !exists {
		return fmt.Errorf("conversation %s: %w", id, storage.ErrNotFound)
	}

	delete(s.conversations, id)
	return nil
}

func (s *Store) SaveOrder(ctx context.Context, order *checkout.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("order %s already exists", order.ID)
	}

	o := *order
	o.Lines = append(o.Lines[:0:0], order.Lines...)
	s.orders[order.ID] = &o
	s.orderSeq = append(s.orderSeq, order.ID)
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*checkout.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.orders[id]
	if !exists {
		return nil, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
	}
	out := *o
	return &out, nil
}

// ListOrders returns orders newest first.
func (s *Store) ListOrders(ctx context.Context, opts storage.ListOptions) ([]*checkout.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*checkout.Order, 0, len(s.orderSeq))
	for i := len(s.orderSeq) - 1; i >= 0; i-- {
		o := *s.orders[s.orderSeq[i]]
		result = append(result, &o)
	}
	return page(result, opts), nil
}

func (s *Store) Close() error {
	return nil
}

func cloneConversation(conv *storage.Conversation) *storage.Conversation {
	c := *conv
	c.Messages = append([]storage.Message(nil), conv.Messages...)
	if conv.Metadata != nil {
		c.Metadata = make(map[string]string, len(conv.Metadata))
		for k, v := range conv.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func page[T any](items []T, opts storage.ListOptions) []T {
	start := opts.Offset
	if start >= len(items) {
		return []T{}
	}

	end := start + opts.Limit
	if opts.Limit == 0 || end > len(items) {
		end = len(items)
	}

	return items[start:end]
}
