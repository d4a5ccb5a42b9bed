// Package config loads orderbot settings from config.yaml and ORDERBOT_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// EnvPrefix marks environment overrides. Nesting uses "__", so
// ORDERBOT_LLM__API_KEY sets llm.api_key.
const EnvPrefix = "ORDERBOT_"

// DefaultPath is read when no path is given.
const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	LLM       LLMConfig       `koanf:"llm"`
	Assistant AssistantConfig `koanf:"assistant"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Checkout  CheckoutConfig  `koanf:"checkout"`
	Payment   PaymentConfig   `koanf:"payment"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	RequestTimeout  time.Duration `koanf:"request_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	Provider string        `koanf:"provider"` // openai, gemini
	APIKey   string        `koanf:"api_key"`
	BaseURL  string        `koanf:"base_url"`
	Timeout  time.Duration `koanf:"timeout"`
}

type AssistantConfig struct {
	TextModel      string `koanf:"text_model"`
	TextMaxTokens  int    `koanf:"text_max_tokens"`
	ImageModel     string `koanf:"image_model"`
	ImageMaxTokens int    `koanf:"image_max_tokens"`
	// HistoryTokens bounds the prompt history; zero keeps all of it.
	HistoryTokens int `koanf:"history_tokens"`
}

type CatalogConfig struct {
	Source     string           `koanf:"source"` // file, storefront
	Path       string           `koanf:"path"`
	Watch      bool             `koanf:"watch"`
	Storefront StorefrontConfig `koanf:"storefront"`
}

type StorefrontConfig struct {
	BaseURL     string `koanf:"base_url"`
	AccessToken string `koanf:"access_token"`
	Email       string `koanf:"email"`
	// SubmitOrders posts settled orders back to the storefront.
	SubmitOrders bool `koanf:"submit_orders"`
}

type CheckoutConfig struct {
	PaymentMode string `koanf:"payment_mode"` // card, wallet
	Currency    string `koanf:"currency"`
	Brand       string `koanf:"brand"`
}

// PaymentConfig applies to the wallet path only.
type PaymentConfig struct {
	SettlementCurrency string `koanf:"settlement_currency"`
	Rate               string `koanf:"rate"`
	// BridgeURL is the wallet bridge endpoint. Empty settles through the
	// simulated payer.
	BridgeURL   string `koanf:"bridge_url"`
	Destination string `koanf:"destination"`
	LedgerPath  string `koanf:"ledger_path"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"server.port":                 8080,
	"server.request_timeout":      "90s",
	"server.shutdown_timeout":     "15s",
	"log.level":                   "info",
	"log.format":                  "json",
	"llm.provider":                "openai",
	"llm.timeout":                 "60s",
	"assistant.text_model":        "gpt-4o",
	"assistant.text_max_tokens":   500,
	"assistant.image_model":       "gpt-4o-mini",
	"assistant.image_max_tokens":  2000,
	"assistant.history_tokens":    2000,
	"catalog.source":              "file",
	"catalog.path":                "menu.yaml",
	"checkout.payment_mode":       "card",
	"checkout.currency":           "AED",
	"payment.settlement_currency": "USDT",
	"payment.rate":                "3.3",
	"payment.ledger_path":         "payments.db",
	"storage.type":                "memory",
	"storage.sqlite.path":         "orderbot.db",
	"telemetry.service_name":      "orderbot",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (DefaultPath when empty), applies environment overrides
// and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.LLM.APIKey = substituteEnvVars(cfg.LLM.APIKey)
	cfg.Catalog.Storefront.AccessToken = substituteEnvVars(cfg.Catalog.Storefront.AccessToken)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with. A missing API
// key is allowed here; the backend constructor reports it.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q: want openai or gemini", c.LLM.Provider))
	}
	switch c.Catalog.Source {
	case "file":
		if c.Catalog.Path == "" {
			errs = append(errs, errors.New("catalog.path is required for the file source"))
		}
	case "storefront":
		if c.Catalog.Storefront.BaseURL == "" {
			errs = append(errs, errors.New("catalog.storefront.base_url is required for the storefront source"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.source %q: want file or storefront", c.Catalog.Source))
	}
	switch c.Checkout.PaymentMode {
	case "card", "wallet":
	default:
		errs = append(errs, fmt.Errorf("checkout.payment_mode %q: want card or wallet", c.Checkout.PaymentMode))
	}
	if _, err := c.Payment.ParsedRate(); err != nil {
		errs = append(errs, err)
	}
	switch c.Storage.Type {
	case "memory", "none":
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, errors.New("storage.sqlite.path is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type %q: want sqlite, memory or none", c.Storage.Type))
	}

	return errors.Join(errs...)
}

// ParsedRate is the conversion rate in local units per settlement unit.
func (p PaymentConfig) ParsedRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(p.Rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("payment.rate %q: %w", p.Rate, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("payment.rate %q must be positive", p.Rate)
	}
	return rate, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
