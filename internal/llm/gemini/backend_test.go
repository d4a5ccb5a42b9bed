package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
)

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("New() expected error without API key")
	}
}

func newTestBackend(t *testing.T, h http.HandlerFunc) *Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	b, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: srv.URL + "/", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestComplete(t *testing.T) {
	var path string
	var body map[string]any
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"text\":\"Try a latte\",\"items\":[],\"conclusion\":\"\"}"}]}}]}`))
	})

	text, err := b.Complete(context.Background(), llm.Request{Model: "gemini-2.0-flash", Prompt: "coffee?", MaxTokens: 500})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(text, "Try a latte") {
		t.Errorf("Complete() = %q", text)
	}
	if !strings.Contains(path, "gemini-2.0-flash:generateContent") {
		t.Errorf("path = %q", path)
	}
	if body["generationConfig"] == nil {
		t.Error("max tokens not sent as generationConfig")
	}
}

func TestDescribeImageSendsInlineData(t *testing.T) {
	var raw []byte
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"A chocolate donut."}]}}]}`))
	})

	img := llm.Image{MediaType: "image/jpeg", Data: []byte{1, 2, 3}}
	text, err := b.DescribeImage(context.Background(), llm.ImageRequest{Model: "gemini-2.0-flash", Image: img})
	if err != nil {
		t.Fatalf("DescribeImage() error = %v", err)
	}
	if text != "A chocolate donut." {
		t.Errorf("DescribeImage() = %q", text)
	}
	if !strings.Contains(string(raw), "inlineData") || !strings.Contains(string(raw), llm.DescribeInstruction) {
		t.Errorf("request body missing image or instruction: %s", raw)
	}
}

func TestCompleteMapsAPIErrors(t *testing.T) {
	b := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := b.Complete(context.Background(), llm.Request{Model: "gemini-2.0-flash", Prompt: "hi"})

	var re *llm.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("Complete() error = %v, want *llm.RemoteError", err)
	}
	if re.Type != llm.ErrorTypeRateLimit {
		t.Errorf("Type = %s, want rate_limit", re.Type)
	}
}
