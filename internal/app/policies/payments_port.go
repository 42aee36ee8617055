package policies

import (
	"context"

	"kloset/internal/domain/shared/money"
)

// PaymentsPort abstracts the payment processor. Authorize places a hold for
// the rental total at request time; Capture charges it on acceptance; Release
// drops an uncaptured hold or pays out a captured one on completion; Refund
// returns a captured amount.
type PaymentsPort interface {
	Authorize(ctx context.Context, rentalID string, amount money.Money) (holdRef string, err error)
	Capture(ctx context.Context, holdRef string) error
	Release(ctx context.Context, holdRef string) error
	Refund(ctx context.Context, holdRef string, amount money.Money) (refundRef string, err error)
}
