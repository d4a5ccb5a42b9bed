// Package storefront talks to a Shopify-style product aggregator: it loads
// the catalog and submits settled orders.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "orderbot/1.0"
	maxErrorBody   = 4 << 10
)

// ErrNoAccessToken is returned when the client has no token to send.
var ErrNoAccessToken = errors.New("storefront access token not configured")

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithEmail sets the contact address sent with every order.
func WithEmail(email string) Option {
	return func(c *Client) {
		c.email = email
	}
}

// Client loads products from and submits orders to the aggregator. It is a
// catalog.Source and a session order sink.
type Client struct {
	baseURL     string
	accessToken string
	email       string
	httpClient  *http.Client

	mu       sync.RWMutex
	variants map[int64]int64
}

// New creates a client for baseURL, e.g. "https://aggregator.example/api/shopify".
func New(baseURL, accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		variants:    make(map[int64]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// product is the subset of a storefront product the catalog needs.
type product struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	BodyHTML    string      `json:"body_html"`
	ProductType string      `json:"product_type"`
	Vendor      string      `json:"vendor"`
	Variants    []struct {
		ID    json.Number `json:"id"`
		Price string      `json:"price"`
	} `json:"variants"`
	Image *struct {
		Src string `json:"src"`
	} `json:"image"`
}

// Load fetches every product. The body may be an array of products, an
// object with a "products" array, or a single product.
func (c *Client) Load(ctx context.Context) ([]catalog.Entry, error) {
	body, err := c.do(ctx, http.MethodGet, "getProducts", nil)
	if err != nil {
		return nil, err
	}

	products, err := decodeProducts(body)
	if err != nil {
		return nil, err
	}

	entries := make([]catalog.Entry, 0, len(products))
	variants := make(map[int64]int64, len(products))
	for _, p := range products {
		entry, err := p.entry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		if entry.VariantID != 0 {
			variants[entry.ID] = entry.VariantID
		}
	}

	c.mu.Lock()
	c.variants = variants
	c.mu.Unlock()

	return entries, nil
}

func decodeProducts(body []byte) ([]product, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []product
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("failed to decode products: %w", err)
		}
		return list, nil
	}

	var wrapped struct {
		Products []product `json:"products"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	if wrapped.Products != nil {
		return wrapped.Products, nil
	}

	var single product
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, fmt.Errorf("failed to decode product: %w", err)
	}
	return []product{single}, nil
}

func (p product) entry() (catalog.Entry, error) {
	id, err := strconv.ParseInt(p.ID.String(), 10, 64)
	if err != nil {
		return catalog.Entry{}, fmt.Errorf("invalid product id %q: %w", p.ID, err)
	}

	e := catalog.Entry{
		ID:          id,
		Name:        p.Title,
		Description: p.BodyHTML,
		Category:    p.ProductType,
		Restaurant:  p.Vendor,
		Price:       decimal.Zero,
	}
	if len(p.Variants) > 0 {
		v := p.Variants[0]
		if v.Price != "" {
			price, err := decimal.NewFromString(v.Price)
			if err != nil {
				return catalog.Entry{}, fmt.Errorf("invalid price %q for product %d: %w", v.Price, id, err)
			}
			e.Price = price
		}
		if vid, err := strconv.ParseInt(v.ID.String(), 10, 64); err == nil {
			e.VariantID = vid
		}
	}
	if p.Image != nil {
		e.Image = p.Image.Src
	}
	return e, nil
}

type orderAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Phone     string `json:"phone,omitempty"`
}

type orderLine struct {
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

type orderPayload struct {
	Order struct {
		Email                  string       `json:"email,omitempty"`
		LineItems              []orderLine  `json:"line_items"`
		Customer               orderAddress `json:"customer"`
		BillingAddress         orderAddress `json:"billing_address"`
		ShippingAddress        orderAddress `json:"shipping_address"`
		Note                   string       `json:"note,omitempty"`
		FulfillmentStatus      string       `json:"fulfillment_status"`
		FinancialStatus        string       `json:"financial_status"`
		SendReceipt            bool         `json:"send_receipt"`
		SendFulfillmentReceipt bool         `json:"send_fulfillment_receipt"`
	} `json:"order"`
}

// SubmitOrder posts a settled order. Lines are sent by variant when the
// last Load knew one.
func (c *Client) SubmitOrder(ctx context.Context, order *checkout.Order) error {
	first, last := splitName(order.Customer.Name)
	addr := orderAddress{
		FirstName: first,
		LastName:  last,
		Address1:  order.Customer.Address,
		Phone:     order.Customer.Phone,
	}

	var p orderPayload
	p.Order.Email = c.email
	p.Order.Customer = addr
	p.Order.BillingAddress = addr
	p.Order.ShippingAddress = addr
	p.Order.Note = "orderbot " + order.ID
	p.Order.FulfillmentStatus = "unfulfilled"
	p.Order.FinancialStatus = "paid"
	p.Order.SendReceipt = true
	p.Order.SendFulfillmentReceipt = true

	c.mu.RLock()
	for _, line := range order.Lines {
		id := line.ID
		if vid, ok := c.variants[line.ID]; ok {
			id = vid
		}
		p.Order.LineItems = append(p.Order.LineItems, orderLine{VariantID: id, Quantity: line.Quantity})
	}
	c.mu.RUnlock()

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "createOrder", body); err != nil {
		return fmt.Errorf("failed to submit order %s: %w", order.ID, err)
	}
	return nil
}

func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	first, last, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(last)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.accessToken == "" {
		return nil, ErrNoAccessToken
	}

	u := c.baseURL + "/" + path + "?accessToken=" + url.QueryEscape(c.accessToken)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

// StatusError is a non-2xx response from the aggregator.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("storefront returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("storefront returned status %d: %s", e.StatusCode, e.Body)
}
