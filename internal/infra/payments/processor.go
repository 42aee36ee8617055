package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"kloset/internal/app/policies"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/shared/money"
)

type holdState string

const (
	holdAuthorized holdState = "authorized"
	holdCaptured   holdState = "captured"
	holdReleased   holdState = "released"
	holdRefunded   holdState = "refunded"
)

type hold struct {
	rentalID string
	amount   money.Money
	state    holdState
}

// Processor simulates a card processor. Every hold succeeds and the ledger
// of holds lives in memory; swapping in a real PSP only needs this file.
type Processor struct {
	mu     sync.Mutex
	holds  map[string]*hold
	logger *slog.Logger
}

func NewProcessor(logger *slog.Logger) *Processor {
	return &Processor{
		holds:  make(map[string]*hold),
		logger: logger,
	}
}

func (p *Processor) Authorize(ctx context.Context, rentalID string, amount money.Money) (string, error) {
	if amount.Cents < 0 {
		return "", fault.Validation("payments: amount must not be negative")
	}
	ref := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	p.mu.Lock()
	p.holds[ref] = &hold{rentalID: rentalID, amount: amount, state: holdAuthorized}
	p.mu.Unlock()
	if p.logger != nil {
		p.logger.Info("payment hold placed", "rental_id", rentalID, "hold_ref", ref, "amount_cents", amount.Cents)
	}
	return ref, nil
}

func (p *Processor) Capture(ctx context.Context, holdRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.holds[holdRef]
	if !ok {
		return fault.Dependency(fmt.Sprintf("payments: unknown hold %q", holdRef), nil)
	}
	if h.state != holdAuthorized {
		return fault.Dependency(fmt.Sprintf("payments: hold %q is %s, cannot capture", holdRef, h.state), nil)
	}
	h.state = holdCaptured
	if p.logger != nil {
		p.logger.Info("payment captured", "rental_id", h.rentalID, "hold_ref", holdRef)
	}
	return nil
}

func (p *Processor) Release(ctx context.Context, holdRef string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.holds[holdRef]
	if !ok {
		return fault.Dependency(fmt.Sprintf("payments: unknown hold %q", holdRef), nil)
	}
	switch h.state {
	case holdAuthorized, holdCaptured:
		h.state = holdReleased
	case holdReleased:
		// releasing twice is harmless
	default:
		return fault.Dependency(fmt.Sprintf("payments: hold %q is %s, cannot release", holdRef, h.state), nil)
	}
	if p.logger != nil {
		p.logger.Info("payment hold released", "rental_id", h.rentalID, "hold_ref", holdRef)
	}
	return nil
}

func (p *Processor) Refund(ctx context.Context, holdRef string, amount money.Money) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.holds[holdRef]
	if !ok {
		return "", fault.Dependency(fmt.Sprintf("payments: unknown hold %q", holdRef), nil)
	}
	if h.state != holdCaptured {
		return "", fault.Dependency(fmt.Sprintf("payments: hold %q is %s, cannot refund", holdRef, h.state), nil)
	}
	if amount.Cents > h.amount.Cents {
		return "", fault.Validation("payments: refund exceeds captured amount")
	}
	h.state = holdRefunded
	ref := "re_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if p.logger != nil {
		p.logger.Info("payment refunded", "rental_id", h.rentalID, "hold_ref", holdRef, "refund_ref", ref, "amount_cents", amount.Cents)
	}
	return ref, nil
}

// HoldState reports the current state of a hold; used by tests.
func (p *Processor) HoldState(holdRef string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.holds[holdRef]
	if !ok {
		return "", false
	}
	return string(h.state), true
}

var _ policies.PaymentsPort = (*Processor)(nil)
