package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/pkg/clock"
)

// Simulated settles every positive amount without touching a network. It is
// used for local runs where no wallet bridge is configured.
type Simulated struct {
	Clock clock.Clock
}

func (s *Simulated) AttemptPayment(ctx context.Context, req Request) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, &Failure{Reason: "cancelled", Err: err}
	}
	if !req.Amount.IsPositive() {
		return Receipt{}, &Failure{Reason: fmt.Sprintf("invalid amount %s", req.Amount)}
	}

	c := s.Clock
	if c == nil {
		c = clock.NewRealClock()
	}

	return Receipt{
		IdempotencyKey: req.IdempotencyKey,
		Reference:      strings.ReplaceAll(uuid.New().String(), "-", ""),
		Amount:         req.Amount,
		Currency:       req.Currency,
		SettledAt:      c.Now().UTC(),
	}, nil
}
