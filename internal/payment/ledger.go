package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	bolt "github.com/boltdb/bolt"
)

const receiptsBucket = "receipts"

// ErrReceiptNotFound is returned when no receipt is stored under a key.
var ErrReceiptNotFound = errors.New("receipt not found")

// Ledger is a BoltDB file of settled receipts keyed by idempotency key.
type Ledger struct {
	db *bolt.DB
}

// OpenLedger opens (or creates) the ledger file at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open receipt ledger: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(receiptsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create receipts bucket: %w", err)
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Get returns the receipt stored under key or ErrReceiptNotFound.
func (l *Ledger) Get(key string) (Receipt, error) {
	var r Receipt
	err := l.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(receiptsBucket)).Get([]byte(key))
		if v == nil {
			return ErrReceiptNotFound
		}
		return json.Unmarshal(v, &r)
	})
	if err != nil {
		return Receipt{}, err
	}
	return r, nil
}

// Create stores r under its idempotency key unless a receipt already exists
// there, in which case the stored receipt is returned and nothing is written.
func (l *Ledger) Create(r Receipt) (Receipt, bool, error) {
	if r.IdempotencyKey == "" {
		return Receipt{}, false, fmt.Errorf("receipt has no idempotency key")
	}

	var result Receipt
	created := false

	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(receiptsBucket))
		if existing := b.Get([]byte(r.IdempotencyKey)); existing != nil {
			return json.Unmarshal(existing, &result)
		}

		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		result = r
		created = true
		return b.Put([]byte(r.IdempotencyKey), data)
	})
	if err != nil {
		return Receipt{}, false, err
	}
	return result, created, nil
}

// Idempotent wraps a Payer so a request whose key already settled returns
// the stored receipt instead of paying again. Failed attempts are not
// recorded and may be retried under the same key.
type Idempotent struct {
	next   Payer
	ledger *Ledger
	logger *slog.Logger
}

func NewIdempotent(next Payer, ledger *Ledger, logger *slog.Logger) *Idempotent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Idempotent{next: next, ledger: ledger, logger: logger}
}

func (p *Idempotent) AttemptPayment(ctx context.Context, req Request) (Receipt, error) {
	if req.IdempotencyKey == "" {
		return p.next.AttemptPayment(ctx, req)
	}

	if r, err := p.ledger.Get(req.IdempotencyKey); err == nil {
		return r, nil
	} else if !errors.Is(err, ErrReceiptNotFound) {
		return Receipt{}, fmt.Errorf("failed to read receipt ledger: %w", err)
	}

	r, err := p.next.AttemptPayment(ctx, req)
	if err != nil {
		return Receipt{}, err
	}
	r.IdempotencyKey = req.IdempotencyKey

	stored, _, err := p.ledger.Create(r)
	if err != nil {
		// Settled stays settled even when the ledger write fails.
		p.logger.Error("failed to record receipt",
			slog.String("idempotency_key", req.IdempotencyKey),
			slog.String("reference", r.Reference),
			slog.String("error", err.Error()),
		)
		return r, nil
	}
	return stored, nil
}
