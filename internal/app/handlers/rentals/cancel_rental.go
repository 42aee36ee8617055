package rentals

import (
	"context"
	"time"

	"kloset/internal/app/commands"
	"kloset/internal/app/outbox"
	"kloset/internal/app/policies"
	"kloset/internal/app/uow"
	domainrental "kloset/internal/domain/rental"
	"kloset/internal/domain/shared/fault"
	domainuser "kloset/internal/domain/user"
)

const cancelRentalKey = "rental.cancel"

type CancelRentalCommand struct {
	RentalID string
	ActorID  string
	Reason   string
}

func (c CancelRentalCommand) Key() string { return cancelRentalKey }

type CancelRentalResult struct {
	RentalID string `json:"rental_id"`
	Status   string `json:"status"`
}

// CancelRentalHandler withdraws a rental before pickup. Cancelling an
// accepted rental frees the availability block and returns the payment.
type CancelRentalHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *CancelRentalHandler) Handle(ctx context.Context, cmd CancelRentalCommand) (*CancelRentalResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	now := nowOrDefault(h.Now)
	actor := domainuser.ID(cmd.ActorID)
	rental, err := unit.Rentals().ByID(ctx, domainrental.ID(cmd.RentalID))
	if err != nil {
		return nil, err
	}
	wasAccepted := rental.Status == domainrental.StatusAccepted
	if err := rental.Cancel(actor, cmd.Reason, now); err != nil {
		return nil, err
	}

	if wasAccepted {
		ledger, err := unit.Availability().Ledger(ctx, rental.ListingID)
		if err != nil {
			return nil, err
		}
		if ledger.ReleaseRental(string(rental.ID), now) {
			if err := unit.Availability().Save(ctx, ledger); err != nil {
				return nil, err
			}
			if err := drainEvents(ctx, h.Outbox, h.Encoder, ledger); err != nil {
				return nil, err
			}
		}
	}

	if rental.PaymentRef != "" {
		switch rental.PaymentStatus {
		case domainrental.PaymentAuthorized:
			if err := h.Payments.Release(ctx, rental.PaymentRef); err != nil {
				return nil, fault.Dependency("rentals: releasing payment hold failed", err)
			}
			rental.MarkRefunded()
		case domainrental.PaymentCaptured:
			if _, err := h.Payments.Refund(ctx, rental.PaymentRef, rental.Cost.Total); err != nil {
				return nil, fault.Dependency("rentals: refund failed", err)
			}
			rental.MarkRefunded()
		}
	}

	if err := unit.Rentals().Save(ctx, rental); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, rental); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil {
		other := rental.Owner
		if actor == rental.Owner {
			other = rental.Renter
		}
		_ = h.Notifier.Notify(ctx, other, "Rental cancelled",
			"The rental was cancelled by the other party.")
	}

	return &CancelRentalResult{RentalID: string(rental.ID), Status: string(rental.Status)}, nil
}

var _ commands.Handler[CancelRentalCommand, *CancelRentalResult] = (*CancelRentalHandler)(nil)
