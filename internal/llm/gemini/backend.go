// Package gemini adapts the Google GenAI SDK to the llm ports.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
)

const providerName = "gemini"

// Config holds the client settings.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// Backend implements llm.Backend with Gemini models.
type Backend struct {
	client *genai.Client
}

var _ llm.Backend = (*Backend)(nil)

// New creates a Gemini backend. An API key is required.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Backend{client: client}, nil
}

func (b *Backend) Name() string {
	return providerName
}

func (b *Backend) Complete(ctx context.Context, req llm.Request) (string, error) {
	return b.generate(ctx, req.Model, genai.Text(req.Prompt), req.MaxTokens)
}

func (b *Backend) DescribeImage(ctx context.Context, req llm.ImageRequest) (string, error) {
	instruction := req.Instruction
	if instruction == "" {
		instruction = llm.DescribeInstruction
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(instruction),
			genai.NewPartFromBytes(req.Image.Data, req.Image.MediaType),
		}, genai.RoleUser),
	}
	return b.generate(ctx, req.Model, contents, req.MaxTokens)
}

func (b *Backend) generate(ctx context.Context, model string, contents []*genai.Content, maxTokens int) (string, error) {
	var cfg *genai.GenerateContentConfig
	if maxTokens > 0 {
		cfg = &genai.GenerateContentConfig{MaxOutputTokens: int32(maxTokens)}
	}

	resp, err := b.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", toRemote(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", llm.NewRemoteError(llm.ErrorTypeServer, "response has no text").
			WithCode(llm.ErrorCodeEmptyResponse).
			WithProvider(providerName)
	}
	return text, nil
}

// toRemote maps SDK errors onto llm.RemoteError.
func toRemote(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return remoteFromAPI(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return remoteFromAPI(*apiErrPtr)
	}
	return llm.Transport(providerName, err)
}

func remoteFromAPI(e genai.APIError) *llm.RemoteError {
	errType := llm.TypeForStatus(e.Code)
	if e.Status == "RESOURCE_EXHAUSTED" {
		errType = llm.ErrorTypeRateLimit
	}
	return llm.NewRemoteError(errType, e.Message).
		WithStatusCode(e.Code).
		WithProvider(providerName)
}
