package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/pkg/clock"
)

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithBridgeHTTPClient sets a custom HTTP client.
func WithBridgeHTTPClient(httpClient *http.Client) BridgeOption {
	return func(b *Bridge) {
		b.httpClient = httpClient
	}
}

// WithBridgeClock sets the clock used to stamp receipts.
func WithBridgeClock(c clock.Clock) BridgeOption {
	return func(b *Bridge) {
		b.clock = c
	}
}

// Bridge hands transfers to a wallet bridge service that owns the user's
// wallet session and builds, signs and submits the transaction.
type Bridge struct {
	baseURL     string
	destination string
	httpClient  *http.Client
	clock       clock.Clock
}

func NewBridge(baseURL, destination string, opts ...BridgeOption) *Bridge {
	b := &Bridge{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		destination: destination,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		clock:       clock.NewRealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type transferRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
	Memo        string `json:"memo,omitempty"`
}

type transferResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
}

func (b *Bridge) AttemptPayment(ctx context.Context, req Request) (Receipt, error) {
	if !req.Amount.IsPositive() {
		return Receipt{}, &Failure{Reason: fmt.Sprintf("invalid amount %s", req.Amount)}
	}

	body, err := json.Marshal(transferRequest{
		Amount:      req.Amount.StringFixed(2),
		Currency:    req.Currency,
		Destination: b.destination,
		Memo:        req.Memo,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to marshal transfer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/transfers", bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return Receipt{}, &Failure{Reason: "wallet bridge unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Receipt{}, &Failure{Reason: "failed to read wallet response", Err: err}
	}

	var result transferResponse
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode != http.StatusOK {
		if result.Code == "wallet_not_connected" {
			return Receipt{}, &Failure{Reason: "wallet not connected", Err: ErrWalletNotConnected}
		}
		reason := result.Error
		if reason == "" {
			reason = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Receipt{}, &Failure{Reason: reason}
	}

	if result.Signature == "" {
		return Receipt{}, &Failure{Reason: "wallet returned no transaction signature"}
	}

	return Receipt{
		IdempotencyKey: req.IdempotencyKey,
		Reference:      result.Signature,
		Amount:         req.Amount,
		Currency:       req.Currency,
		SettledAt:      b.clock.Now().UTC(),
	}, nil
}
