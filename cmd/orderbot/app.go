package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/assistant"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/config"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm/gemini"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm/openai"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/payment"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/session"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage/memory"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage/sqlite"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storefront"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/tokens"
)

// app is everything a command needs, built once from config.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	catalog  *catalog.Holder
	watcher  *catalog.Watcher
	store    storage.Store
	sessions *session.Manager
	closers  []io.Closer
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	backend, err := newBackend(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	reconciler, err := assistant.New(
		llm.NewTraced(backend),
		tokens.NewRegistry(tokens.NewTiktokenCounter()),
		assistant.Config{
			TextModel:      cfg.Assistant.TextModel,
			TextMaxTokens:  cfg.Assistant.TextMaxTokens,
			ImageModel:     cfg.Assistant.ImageModel,
			ImageMaxTokens: cfg.Assistant.ImageMaxTokens,
			HistoryTokens:  cfg.Assistant.HistoryTokens,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}

	var sinks []session.OrderSink

	source, front, err := newCatalogSource(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	idx, err := catalog.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	a.catalog = catalog.NewHolder(idx)
	logger.Info("catalog loaded", slog.String("source", cfg.Catalog.Source), slog.Int("items", idx.Len()))

	if fs, ok := source.(catalog.FileSource); ok && cfg.Catalog.Watch {
		a.watcher = catalog.NewWatcher(fs, a.catalog, logger)
	}
	if front != nil && cfg.Catalog.Storefront.SubmitOrders {
		sinks = append(sinks, front)
	}

	store, err := newStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if store != nil {
		a.store = store
		a.closers = append(a.closers, store)
		sinks = append(sinks, session.OrderSinkFunc(store.SaveOrder))
	}

	seq, err := newSequencer(cfg)
	if err != nil {
		return nil, err
	}
	payer, err := a.newPayer(cfg.Payment)
	if err != nil {
		return nil, err
	}

	var recorder *conversation.Recorder
	if store != nil {
		recorder = conversation.NewRecorder(store, logger)
	}

	a.sessions = session.NewManager(session.Deps{
		Catalog:   a.catalog,
		Assistant: reconciler,
		Sequencer: seq,
		Payer:     payer,
		Recorder:  recorder,
		Sinks:     sinks,
		Logger:    logger,
	})
	return a, nil
}

func newBackend(ctx context.Context, cfg config.LLMConfig) (llm.Backend, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	switch cfg.Provider {
	case "gemini":
		b, err := gemini.New(ctx, gemini.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, HTTPClient: httpClient})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini backend: %w", err)
		}
		return b, nil
	default:
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key is required (set ORDERBOT_LLM__API_KEY)")
		}
		return openai.New(cfg.APIKey, openai.WithBaseURL(cfg.BaseURL), openai.WithHTTPClient(httpClient)), nil
	}
}

// newCatalogSource returns the storefront client too when it is the source,
// so it can double as an order sink.
func newCatalogSource(cfg config.CatalogConfig) (catalog.Source, *storefront.Client, error) {
	if cfg.Source == "storefront" {
		sf := cfg.Storefront
		client := storefront.New(sf.BaseURL, sf.AccessToken, storefront.WithEmail(sf.Email))
		return client, client, nil
	}
	return catalog.FileSource{Path: cfg.Path}, nil, nil
}

func newStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case "sqlite":
		s, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, nil
	}
}

func newSequencer(cfg *config.Config) (checkout.Sequencer, error) {
	rate, err := cfg.Payment.ParsedRate()
	if err != nil {
		return checkout.Sequencer{}, err
	}
	seq := checkout.NewSequencer()
	seq.Method = checkout.ParseMethod(cfg.Checkout.PaymentMode)
	seq.Currency = cfg.Checkout.Currency
	seq.SettlementCurrency = cfg.Payment.SettlementCurrency
	seq.Rate = rate
	seq.Brand = cfg.Checkout.Brand
	return seq, nil
}

// newPayer builds the wallet payer: the bridge when configured, otherwise
// the simulated payer, behind the idempotency ledger and tracing.
func (a *app) newPayer(cfg config.PaymentConfig) (payment.Payer, error) {
	var payer payment.Payer = &payment.Simulated{}
	if cfg.BridgeURL != "" {
		payer = payment.NewBridge(cfg.BridgeURL, cfg.Destination)
	} else if a.cfg.Checkout.PaymentMode == "wallet" {
		a.logger.Warn("no payment.bridge_url configured; wallet payments are simulated")
	}

	if cfg.LedgerPath != "" && a.cfg.Checkout.PaymentMode == "wallet" {
		ledger, err := payment.OpenLedger(cfg.LedgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open payment ledger: %w", err)
		}
		a.closers = append(a.closers, ledger)
		payer = payment.NewIdempotent(payer, ledger, a.logger)
	}
	return payment.NewTraced(payer), nil
}

func loadApp(ctx context.Context, w io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.Log, w)
	slog.SetDefault(logger)
	return newApp(ctx, cfg, logger)
}
