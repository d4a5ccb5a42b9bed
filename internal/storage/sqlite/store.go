package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/cart"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/payment"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage"
)

// Store is a SQLite implementation of storage.Store
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			intent TEXT NOT NULL DEFAULT '',
			raw TEXT NOT NULL DEFAULT '',
			is_error INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			customer TEXT NOT NULL,
			lines TEXT NOT NULL,
			total TEXT NOT NULL,
			currency TEXT NOT NULL,
			method TEXT NOT NULL,
			receipt TEXT,
			placed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_session ON orders(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_placed ON orders(placed_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

type conversationRow struct {
	ID        string         `db:"id"`
	Metadata  sql.NullString `db:"metadata"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r conversationRow) toConversation() (*storage.Conversation, error) {
	conv := &storage.Conversation{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Metadata.Valid && r.Metadata.String != "" && r.Metadata.String != "null" {
		if err := json.Unmarshal([]byte(r.Metadata.String), &conv.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return conv, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv *storage.Conversation) error {
	conv.CreatedAt = time.Now().UTC()
	conv.UpdatedAt = conv.CreatedAt

	metadata, err := json.Marshal(conv.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO conversations (id, metadata, created_at, updated_at)
	          VALUES (?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, query, conv.ID, string(metadata), conv.CreatedAt, conv.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*storage.Conversation, error) {
	var row conversationRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, metadata, created_at, updated_at FROM conversations WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	conv, err := row.toConversation()
	if err != nil {
		return nil, err
	}

	messages := []storage.Message{}
	err = s.db.SelectContext(ctx, &messages,
		`SELECT id, role, content, intent, raw, is_error, created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY created_at ASC, rowid ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	conv.Messages = messages

	return conv, nil
}

func (s *Store) AddMessage(ctx context.Context, convID string, msg *storage.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, time.Now().UTC(), convID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", convID, storage.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, intent, raw, is_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, convID, msg.Role, msg.Content, msg.Intent, msg.Raw, msg.IsError, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	return tx.Commit()
}

func (s *Store) ListConversations(ctx context.Context, opts storage.ListOptions) ([]*storage.Conversation, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 100 // default limit
	}

	var rows []conversationRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, metadata, created_at, updated_at FROM conversations
		 ORDER BY updated_at DESC LIMIT ? OFFSET ?`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}

	conversations := make([]*storage.Conversation, 0, len(rows))
	for _, r := range rows {
		conv, err := r.toConversation()
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

type orderRow struct {
	ID        string         `db:"id"`
	SessionID string         `db:"session_id"`
	Customer  string         `db:"customer"`
	Lines     string         `db:"lines"`
	Total     string         `db:"total"`
	Currency  string         `db:"currency"`
	Method    string         `db:"method"`
	Receipt   sql.NullString `db:"receipt"`
	PlacedAt  time.Time      `db:"placed_at"`
}

func (s *Store) SaveOrder(ctx context.Context, order *checkout.Order) error {
	customer, err := json.Marshal(order.Customer)
	if err != nil {
		return fmt.Errorf("failed to marshal customer: %w", err)
	}
	lines, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal lines: %w", err)
	}

	row := orderRow{
		ID:        order.ID,
		SessionID: order.SessionID,
		Customer:  string(customer),
		Lines:     string(lines),
		Total:     order.Total.StringFixed(2),
		Currency:  order.Currency,
		Method:    string(order.Method),
		PlacedAt:  order.PlacedAt.UTC(),
	}
	if order.Receipt != nil {
		receipt, err := json.Marshal(order.Receipt)
		if err != nil {
			return fmt.Errorf("failed to marshal receipt: %w", err)
		}
		row.Receipt = sql.NullString{String: string(receipt), Valid: true}
	}

	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO orders (id, session_id, customer, lines, total, currency, method, receipt, placed_at)
		 VALUES (:id, :session_id, :customer, :lines, :total, :currency, :method, :receipt, :placed_at)`, row)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (r orderRow) toOrder() (*checkout.Order, error) {
	total, err := decimal.NewFromString(r.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to parse order total: %w", err)
	}

	order := &checkout.Order{
		ID:        r.ID,
		SessionID: r.SessionID,
		Total:     total,
		Currency:  r.Currency,
		Method:    checkout.Method(r.Method),
		PlacedAt:  r.PlacedAt,
	}
	if err := json.Unmarshal([]byte(r.Customer), &order.Customer); err != nil {
		return nil, fmt.Errorf("failed to unmarshal customer: %w", err)
	}
	var lines []cart.Line
	if err := json.Unmarshal([]byte(r.Lines), &lines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lines: %w", err)
	}
	order.Lines = lines
	if r.Receipt.Valid {
		var receipt payment.Receipt
		if err := json.Unmarshal([]byte(r.Receipt.String), &receipt); err != nil {
			return nil, fmt.Errorf("failed to unmarshal receipt: %w", err)
		}
		order.Receipt = &receipt
	}
	return order, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*checkout.Order, error) {
	var row orderRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM orders WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return row.toOrder()
}

func (s *Store) ListOrders(ctx context.Context, opts storage.ListOptions) ([]*checkout.Order, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = 100
	}

	var rows []orderRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM orders ORDER BY placed_at DESC LIMIT ? OFFSET ?`, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := make([]*checkout.Order, 0, len(rows))
	for _, r := range rows {
		o, err := r.toOrder()
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
