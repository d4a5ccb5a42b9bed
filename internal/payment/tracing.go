package payment

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Traced records a span around every payment attempt.
type Traced struct {
	next   Payer
	tracer trace.Tracer
}

func NewTraced(next Payer) *Traced {
	return &Traced{next: next, tracer: otel.Tracer("orderbot/payment")}
}

func (p *Traced) AttemptPayment(ctx context.Context, req Request) (Receipt, error) {
	ctx, span := p.tracer.Start(ctx, "payment.attempt",
		trace.WithAttributes(
			attribute.String("payment.amount", req.Amount.StringFixed(2)),
			attribute.String("payment.currency", req.Currency),
		))
	defer span.End()

	r, err := p.next.AttemptPayment(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return r, err
	}
	span.SetAttributes(attribute.String("payment.reference", r.ShortReference()))
	return r, nil
}
