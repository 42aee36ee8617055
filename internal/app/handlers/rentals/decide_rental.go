package rentals

import (
	"context"
	"time"

	"kloset/internal/app/commands"
	"kloset/internal/app/outbox"
	"kloset/internal/app/policies"
	"kloset/internal/app/uow"
	domainavailability "kloset/internal/domain/availability"
	domainrental "kloset/internal/domain/rental"
	"kloset/internal/domain/shared/fault"
	domainuser "kloset/internal/domain/user"

	"github.com/google/uuid"
)

const (
	acceptRentalKey = "rental.accept"
	rejectRentalKey = "rental.reject"
)

type AcceptRentalCommand struct {
	RentalID string
	ActorID  string
}

func (c AcceptRentalCommand) Key() string { return acceptRentalKey }

type AcceptRentalResult struct {
	RentalID    string `json:"rental_id"`
	Status      string `json:"status"`
	ContractKey string `json:"contract_key,omitempty"`
}

// AcceptRentalHandler approves a pending request: the availability ledger
// takes the rental-tagged block, the payment hold is captured, and the
// rental agreement is rendered. A ledger conflict aborts the whole step and
// the rental stays pending.
type AcceptRentalHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Contracts  policies.ContractsPort
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *AcceptRentalHandler) Handle(ctx context.Context, cmd AcceptRentalCommand) (*AcceptRentalResult, error) {
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
	rental, err := unit.Rentals().ByID(ctx, domainrental.ID(cmd.RentalID))
	if err != nil {
		return nil, err
	}
	if err := rental.Accept(domainuser.ID(cmd.ActorID), now); err != nil {
		return nil, err
	}

	ledger, err := unit.Availability().Ledger(ctx, rental.ListingID)
	if err != nil {
		return nil, err
	}
	blockID := domainavailability.BlockID(uuid.NewString())
	if err := ledger.Reserve(blockID, rental.Range, string(rental.ID), now); err != nil {
		return nil, err
	}

	if rental.PaymentRef != "" {
		if err := h.Payments.Capture(ctx, rental.PaymentRef); err != nil {
			return nil, fault.Dependency("rentals: payment capture failed", err)
		}
		rental.MarkCaptured()
	}

	if h.Contracts != nil {
		owner, err := unit.Users().ByID(ctx, rental.Owner)
		if err != nil {
			return nil, err
		}
		renter, err := unit.Users().ByID(ctx, rental.Renter)
		if err != nil {
			return nil, err
		}
		listing, err := unit.Listings().ByID(ctx, rental.ListingID)
		if err != nil {
			return nil, err
		}
		key, err := h.Contracts.Render(ctx, rental, owner.Name, renter.Name, listing.Title)
		if err != nil {
			return nil, fault.Dependency("rentals: contract rendering failed", err)
		}
		rental.AttachContract(key)
	}

	if err := unit.Rentals().Save(ctx, rental); err != nil {
		return nil, err
	}
	if err := unit.Availability().Save(ctx, ledger); err != nil {
		return nil, err
	}

	if err := drainEvents(ctx, h.Outbox, h.Encoder, rental, ledger); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil {
		_ = h.Notifier.Notify(ctx, rental.Renter, "Rental request accepted",
			"Your rental request was accepted. The item is reserved for your dates.")
	}

	return &AcceptRentalResult{
		RentalID:    string(rental.ID),
		Status:      string(rental.Status),
		ContractKey: rental.ContractKey,
	}, nil
}

type RejectRentalCommand struct {
	RentalID string
	ActorID  string
	Reason   string
}

func (c RejectRentalCommand) Key() string { return rejectRentalKey }

type RejectRentalResult struct {
	RentalID string `json:"rental_id"`
	Status   string `json:"status"`
}

type RejectRentalHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *RejectRentalHandler) Handle(ctx context.Context, cmd RejectRentalCommand) (*RejectRentalResult, error) {
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
	rental, err := unit.Rentals().ByID(ctx, domainrental.ID(cmd.RentalID))
	if err != nil {
		return nil, err
	}
	if err := rental.Reject(domainuser.ID(cmd.ActorID), cmd.Reason, now); err != nil {
		return nil, err
	}

	if rental.PaymentStatus == domainrental.PaymentAuthorized && rental.PaymentRef != "" {
		if err := h.Payments.Release(ctx, rental.PaymentRef); err != nil {
			return nil, fault.Dependency("rentals: releasing payment hold failed", err)
		}
		rental.MarkRefunded()
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
		_ = h.Notifier.Notify(ctx, rental.Renter, "Rental request declined",
			"The owner declined your rental request. Your payment hold has been released.")
	}

	return &RejectRentalResult{RentalID: string(rental.ID), Status: string(rental.Status)}, nil
}

var _ commands.Handler[AcceptRentalCommand, *AcceptRentalResult] = (*AcceptRentalHandler)(nil)
var _ commands.Handler[RejectRentalCommand, *RejectRentalResult] = (*RejectRentalHandler)(nil)
