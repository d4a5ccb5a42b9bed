// Package assistant turns user queries into recommendation turns by asking a
// language model about the menu.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/intent"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/tokens"
)

// Apology is the assistant turn shown for any failed remote call.
const Apology = "Sorry, something went wrong. Please try again."

// Config selects models and limits.
type Config struct {
	TextModel      string
	TextMaxTokens  int
	ImageModel     string
	ImageMaxTokens int
	// HistoryTokens caps the replayed history. Zero keeps all of it.
	HistoryTokens int
}

// DefaultConfig mirrors the models the assistant was tuned with.
func DefaultConfig() Config {
	return Config{
		TextModel:      "gpt-4o",
		TextMaxTokens:  500,
		ImageModel:     "gpt-4o-mini",
		ImageMaxTokens: 2000,
		HistoryTokens:  2000,
	}
}

// Reconciler builds prompts, calls the model and reconciles its answer
// into a turn.
type Reconciler struct {
	backend llm.Backend
	counter tokens.Counter
	parser  *Parser
	cfg     Config
	logger  *slog.Logger
}

// New creates a reconciler. A nil counter disables history trimming.
func New(backend llm.Backend, counter tokens.Counter, cfg Config, logger *slog.Logger) (*Reconciler, error) {
	if backend == nil {
		return nil, errors.New("assistant requires an llm backend")
	}
	parser, err := NewParser()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		backend: backend,
		counter: counter,
		parser:  parser,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Reconcile answers a text query. It always returns an assistant turn; a
// failed call yields the retryable apology.
func (r *Reconciler) Reconcile(ctx context.Context, text string, history []conversation.Turn, idx *catalog.Index) conversation.Turn {
	prompt, err := r.prompt(history, idx, r.cfg.TextModel, func(menu, hist string) string {
		return buildTextPrompt(menu, hist, text)
	})
	if err != nil {
		return r.failed(err, "build_prompt")
	}

	raw, err := r.backend.Complete(ctx, llm.Request{
		Model:     r.cfg.TextModel,
		Prompt:    prompt,
		MaxTokens: r.cfg.TextMaxTokens,
	})
	if err != nil {
		return r.failed(err, "complete")
	}

	return r.reconcile(raw)
}

// ImageOutcome is the result of an image query. Description is empty when
// the image could not be described.
type ImageOutcome struct {
	Description string
	Turn        conversation.Turn
}

// ReconcileImage describes the image, then answers as if the user had typed
// the description.
func (r *Reconciler) ReconcileImage(ctx context.Context, img llm.Image, history []conversation.Turn, idx *catalog.Index) ImageOutcome {
	description, err := r.backend.DescribeImage(ctx, llm.ImageRequest{
		Model:       r.cfg.ImageModel,
		Image:       img,
		Instruction: llm.DescribeInstruction,
		MaxTokens:   r.cfg.ImageMaxTokens,
	})
	if err != nil {
		return ImageOutcome{Turn: r.failed(err, "describe_image")}
	}
	description = strings.TrimSpace(description)

	prompt, err := r.prompt(history, idx, r.cfg.ImageModel, func(menu, hist string) string {
		return buildImagePrompt(menu, hist, description)
	})
	if err != nil {
		return ImageOutcome{Description: description, Turn: r.failed(err, "build_prompt")}
	}

	raw, err := r.backend.Complete(ctx, llm.Request{
		Model:     r.cfg.ImageModel,
		Prompt:    prompt,
		MaxTokens: r.cfg.ImageMaxTokens,
	})
	if err != nil {
		return ImageOutcome{Description: description, Turn: r.failed(err, "complete")}
	}

	return ImageOutcome{Description: description, Turn: r.reconcile(raw)}
}

func (r *Reconciler) prompt(history []conversation.Turn, idx *catalog.Index, model string, build func(menu, hist string) string) (string, error) {
	if idx == nil {
		return "", errors.New("no catalog loaded")
	}
	menu, err := menuJSON(idx.All())
	if err != nil {
		return "", err
	}
	hist, err := r.trimHistory(history, model)
	if err != nil {
		return "", err
	}
	return build(menu, hist), nil
}

// trimHistory drops the oldest turns until the rest fits the token budget.
func (r *Reconciler) trimHistory(history []conversation.Turn, model string) (string, error) {
	if r.counter == nil || r.cfg.HistoryTokens <= 0 || len(history) == 0 {
		return conversation.FormatHistory(history), nil
	}

	lines := make([]string, len(history))
	for i := range history {
		lines[i] = conversation.FormatHistory(history[i : i+1])
	}

	start, err := tokens.KeepNewest(r.counter, model, lines, r.cfg.HistoryTokens)
	if err != nil {
		return "", err
	}
	if start > 0 {
		r.logger.Debug("trimmed conversation history",
			slog.Int("dropped_turns", start),
			slog.Int("kept_turns", len(history)-start),
		)
	}
	return strings.Join(lines[start:], "\n"), nil
}

// reconcile converts raw model output into an assistant turn. Unparseable
// output is kept verbatim and is not an error.
func (r *Reconciler) reconcile(raw string) conversation.Turn {
	res := r.parser.Parse(raw)
	turn := conversation.Turn{
		From:   conversation.FromAssistant,
		Intent: intent.MenuQuery,
		Raw:    raw,
	}
	if res.Kind == Parsed {
		turn.Recommendation = res.Recommendation
		turn.Text = res.Recommendation.Text
		return turn
	}

	r.logger.Debug("model output kept as raw text", slog.String("method", res.Method))
	turn.Text = raw
	return turn
}

func (r *Reconciler) failed(err error, stage string) conversation.Turn {
	attrs := []any{
		slog.String("stage", stage),
		slog.String("provider", r.backend.Name()),
		slog.String("error", err.Error()),
	}
	var re *llm.RemoteError
	if errors.As(err, &re) {
		attrs = append(attrs, slog.String("error_type", string(re.Type)))
	}
	r.logger.Error("assistant request failed", attrs...)

	return conversation.Turn{
		From:      conversation.FromAssistant,
		Text:      Apology,
		IsError:   true,
		Retryable: true,
	}
}

// Summary renders a recommendation as plain text for terminals.
func Summary(rec *conversation.Recommendation, items []catalog.Entry) string {
	if rec == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(rec.Text)
	for _, e := range items {
		fmt.Fprintf(&b, "\n  [%d] %s  %s", e.ID, e.Name, e.Price.StringFixed(2))
	}
	if rec.Conclusion != "" {
		b.WriteString("\n")
		b.WriteString(rec.Conclusion)
	}
	return b.String()
}
