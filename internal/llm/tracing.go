package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Traced wraps a backend with a span per call.
type Traced struct {
	next   Backend
	tracer trace.Tracer
}

// NewTraced decorates next using the global tracer provider.
func NewTraced(next Backend) *Traced {
	return &Traced{next: next, tracer: otel.Tracer("orderbot/llm")}
}

func (t *Traced) Name() string {
	return t.next.Name()
}

func (t *Traced) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := t.tracer.Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.provider", t.next.Name()),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.max_tokens", req.MaxTokens),
		attribute.Int("llm.prompt_chars", len(req.Prompt)),
	))
	defer span.End()

	text, err := t.next.Complete(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
	return text, nil
}

func (t *Traced) DescribeImage(ctx context.Context, req ImageRequest) (string, error) {
	ctx, span := t.tracer.Start(ctx, "llm.describe_image", trace.WithAttributes(
		attribute.String("llm.provider", t.next.Name()),
		attribute.String("llm.model", req.Model),
		attribute.String("image.media_type", req.Image.MediaType),
		attribute.Int("image.bytes", len(req.Image.Data)),
	))
	defer span.End()

	text, err := t.next.DescribeImage(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return text, nil
}
