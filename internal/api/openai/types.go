// Package openai is a small HTTP client for the OpenAI chat completions
// endpoint, covering text prompts and image inputs.
package openai

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
)

// ChatCompletionRequest represents an OpenAI chat completion request.
type ChatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	Temperature *float32                `json:"temperature,omitempty"`
	User        string                  `json:"user,omitempty"`
}

// ChatCompletionMessage represents a message in the chat completion request/response.
type ChatCompletionMessage struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// ContentPart is one element of a multimodal message.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL references an image by URL or data URL.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// MessageContent is either plain text or a list of parts. It encodes as a
// JSON string when there are no parts.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// TextContent builds plain text content.
func TextContent(text string) MessageContent {
	return MessageContent{Text: text}
}

// PartsContent builds multimodal content.
func PartsContent(parts ...ContentPart) MessageContent {
	return MessageContent{Parts: parts}
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if len(c.Parts) > 0 {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = MessageContent{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &c.Parts)
	}
	return json.Unmarshal(data, &c.Text)
}

// String joins the text of all parts.
func (c MessageContent) String() string {
	if len(c.Parts) == 0 {
		return c.Text
	}
	var b strings.Builder
	for _, p := range c.Parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ChatCompletionResponse represents an OpenAI chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage,omitempty"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int                   `json:"index"`
	Message      ChatCompletionMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse represents an OpenAI API error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError contains error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// ToRemote converts the OpenAI API error to an llm.RemoteError.
func (e *APIError) ToRemote(status int) *llm.RemoteError {
	errType, code := mapOpenAIErrorType(e.Type, e.Code, e.Message, status)
	return llm.NewRemoteError(errType, e.Message).
		WithCode(code).
		WithStatusCode(status).
		WithProvider(ProviderName)
}

// mapOpenAIErrorType maps OpenAI error types/codes to llm error types.
func mapOpenAIErrorType(errType, errCode, message string, status int) (llm.ErrorType, llm.ErrorCode) {
	switch errCode {
	case "context_length_exceeded":
		return llm.ErrorTypeContextLength, llm.ErrorCodeContextLengthExceeded
	case "rate_limit_exceeded":
		return llm.ErrorTypeRateLimit, llm.ErrorCodeRateLimitExceeded
	case "invalid_api_key":
		return llm.ErrorTypeAuthentication, llm.ErrorCodeInvalidAPIKey
	case "model_not_found":
		return llm.ErrorTypeNotFound, llm.ErrorCodeModelNotFound
	}

	msgLower := strings.ToLower(message)
	if strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "context window") {
		return llm.ErrorTypeContextLength, llm.ErrorCodeContextLengthExceeded
	}

	switch errType {
	case "invalid_request_error":
		return llm.ErrorTypeInvalidRequest, ""
	case "authentication_error":
		return llm.ErrorTypeAuthentication, llm.ErrorCodeInvalidAPIKey
	case "permission_denied":
		return llm.ErrorTypePermission, ""
	case "not_found":
		return llm.ErrorTypeNotFound, llm.ErrorCodeModelNotFound
	case "rate_limit_error", "rate_limit_exceeded", "insufficient_quota":
		return llm.ErrorTypeRateLimit, llm.ErrorCodeRateLimitExceeded
	case "service_unavailable":
		return llm.ErrorTypeOverloaded, ""
	case "server_error":
		return llm.ErrorTypeServer, ""
	default:
		return llm.TypeForStatus(status), ""
	}
}

// ParseErrorResponse attempts to parse an error response from JSON.
func ParseErrorResponse(data []byte) (*APIError, error) {
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err != nil {
		return nil, err
	}
	if errResp.Error == nil {
		return nil, errors.New("no error object in response")
	}
	return errResp.Error, nil
}
