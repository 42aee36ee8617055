package rentals

import (
	"context"
	"time"

	"kloset/internal/app/outbox"
	"kloset/internal/app/policies"
	"kloset/internal/app/uow"
	domainrental "kloset/internal/domain/rental"
	"kloset/internal/domain/shared/fault"
	domainuser "kloset/internal/domain/user"
)

const (
	pickupRentalKey   = "rental.pickup"
	returnRentalKey   = "rental.return"
	completeRentalKey = "rental.complete"
)

type PickupRentalCommand struct {
	RentalID string
	ActorID  string
}

func (c PickupRentalCommand) Key() string { return pickupRentalKey }

type ReturnRentalCommand struct {
	RentalID string
	ActorID  string
}

func (c ReturnRentalCommand) Key() string { return returnRentalKey }

type CompleteRentalCommand struct {
	RentalID string
	ActorID  string
}

func (c CompleteRentalCommand) Key() string { return completeRentalKey }

type ProgressRentalResult struct {
	RentalID string `json:"rental_id"`
	Status   string `json:"status"`
}

// ProgressRentalHandler advances a rental through its handover steps:
// pickup flips the listing to rented, return only records the timestamp,
// completion puts the listing back on the marketplace, pays out the
// escrowed charge and unlocks reviews.
type ProgressRentalHandler struct {
	UoWFactory uow.UoWFactory
	Payments   policies.PaymentsPort
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *ProgressRentalHandler) HandlePickup(ctx context.Context, cmd PickupRentalCommand) (*ProgressRentalResult, error) {
	return h.progress(ctx, cmd.RentalID, cmd.ActorID, domainrental.StatusPickedUp)
}

func (h *ProgressRentalHandler) HandleReturn(ctx context.Context, cmd ReturnRentalCommand) (*ProgressRentalResult, error) {
	return h.progress(ctx, cmd.RentalID, cmd.ActorID, domainrental.StatusReturned)
}

func (h *ProgressRentalHandler) HandleComplete(ctx context.Context, cmd CompleteRentalCommand) (*ProgressRentalResult, error) {
	return h.progress(ctx, cmd.RentalID, cmd.ActorID, domainrental.StatusCompleted)
}

func (h *ProgressRentalHandler) progress(ctx context.Context, rentalID, actorID string, target domainrental.Status) (*ProgressRentalResult, error) {
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
	actor := domainuser.ID(actorID)
	rental, err := unit.Rentals().ByID(ctx, domainrental.ID(rentalID))
	if err != nil {
		return nil, err
	}

	switch target {
	case domainrental.StatusPickedUp:
		err = rental.MarkPickedUp(actor, now)
	case domainrental.StatusReturned:
		err = rental.MarkReturned(actor, now)
	case domainrental.StatusCompleted:
		err = rental.Complete(actor, now)
	default:
		err = domainrental.ErrTransition
	}
	if err != nil {
		return nil, err
	}

	// The listing mirrors the rental, not the handover: it stays rented
	// between return and completion while the owner inspects the item.
	switch target {
	case domainrental.StatusPickedUp:
		listing, err := unit.Listings().ByID(ctx, rental.ListingID)
		if err != nil {
			return nil, err
		}
		if err := listing.MarkRented(now); err != nil {
			return nil, err
		}
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return nil, err
		}
	case domainrental.StatusCompleted:
		listing, err := unit.Listings().ByID(ctx, rental.ListingID)
		if err != nil {
			return nil, err
		}
		if err := listing.MarkReturned(now); err != nil {
			return nil, err
		}
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return nil, err
		}
		if h.Payments != nil && rental.PaymentStatus == domainrental.PaymentCaptured && rental.PaymentRef != "" {
			if err := h.Payments.Release(ctx, rental.PaymentRef); err != nil {
				return nil, fault.Dependency("rentals: escrow payout failed", err)
			}
			rental.MarkReleased()
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

	if h.Notifier != nil && target == domainrental.StatusCompleted {
		_ = h.Notifier.Notify(ctx, rental.Renter, "Rental completed",
			"Your rental is complete. You can now review the owner.")
	}

	return &ProgressRentalResult{RentalID: string(rental.ID), Status: string(rental.Status)}, nil
}
