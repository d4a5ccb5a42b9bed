// Package openai adapts the OpenAI chat completions client to the llm
// ports.
package openai

import (
	"context"
	"net/http"

	openaiapi "github.com/tahirahmadin/shopify-ai-search-demo/internal/api/openai"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
)

// BackendOption configures the backend.
type BackendOption func(*Backend)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(baseURL string) BackendOption {
	return func(b *Backend) {
		b.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) BackendOption {
	return func(b *Backend) {
		b.httpClient = httpClient
	}
}

// Backend implements llm.Backend on the chat completions endpoint.
type Backend struct {
	client     *openaiapi.Client
	baseURL    string
	httpClient *http.Client
}

var _ llm.Backend = (*Backend)(nil)

// New creates a new OpenAI backend.
func New(apiKey string, opts ...BackendOption) *Backend {
	b := &Backend{}
	for _, opt := range opts {
		opt(b)
	}

	var clientOpts []openaiapi.ClientOption
	if b.baseURL != "" {
		clientOpts = append(clientOpts, openaiapi.WithBaseURL(b.baseURL))
	}
	if b.httpClient != nil {
		clientOpts = append(clientOpts, openaiapi.WithHTTPClient(b.httpClient))
	}

	b.client = openaiapi.NewClient(apiKey, clientOpts...)
	return b
}

func (b *Backend) Name() string {
	return openaiapi.ProviderName
}

// Complete sends the prompt as a single user message.
func (b *Backend) Complete(ctx context.Context, req llm.Request) (string, error) {
	return b.send(ctx, &openaiapi.ChatCompletionRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages: []openaiapi.ChatCompletionMessage{
			{Role: "user", Content: openaiapi.TextContent(req.Prompt)},
		},
	})
}

// DescribeImage sends the instruction and the image as a data URL.
func (b *Backend) DescribeImage(ctx context.Context, req llm.ImageRequest) (string, error) {
	instruction := req.Instruction
	if instruction == "" {
		instruction = llm.DescribeInstruction
	}

	return b.send(ctx, &openaiapi.ChatCompletionRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Messages: []openaiapi.ChatCompletionMessage{
			{
				Role: "user",
				Content: openaiapi.PartsContent(
					openaiapi.ContentPart{Type: "text", Text: instruction},
					openaiapi.ContentPart{Type: "image_url", ImageURL: &openaiapi.ImageURL{URL: req.Image.DataURL()}},
				),
			},
		},
	})
}

func (b *Backend) send(ctx context.Context, req *openaiapi.ChatCompletionRequest) (string, error) {
	resp, err := b.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", llm.NewRemoteError(llm.ErrorTypeServer, "response has no choices").
			WithCode(llm.ErrorCodeEmptyResponse).
			WithProvider(b.Name())
	}
	return resp.Choices[0].Message.Content.String(), nil
}
