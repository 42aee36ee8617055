package availability

import (
	"context"
	"errors"
	"time"

	"kloset/internal/app/commands"
	"kloset/internal/app/outbox"
	"kloset/internal/app/uow"
	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/events"
	"kloset/internal/domain/shared/fault"
	domainuser "kloset/internal/domain/user"

	"github.com/google/uuid"
)

const (
	blockDatesKey   = "availability.block"
	unblockDatesKey = "availability.unblock"
)

var ErrUnitOfWorkRequired = errors.New("availability: unit of work required")

type BlockDatesCommand struct {
	ListingID string
	ActorID   string
	StartDate string
	EndDate   string
	Reason    string
}

func (c BlockDatesCommand) Key() string { return blockDatesKey }

type BlockDatesResult struct {
	BlockID string `json:"block_id"`
}

// BlockDatesHandler lets the owner mark dates unavailable (personal use,
// maintenance). Rental reservations never go through here.
type BlockDatesHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *BlockDatesHandler) Handle(ctx context.Context, cmd BlockDatesCommand) (*BlockDatesResult, error) {
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

	listing, err := unit.Listings().ByID(ctx, domainlisting.ID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if listing.Owner != domainuser.ID(cmd.ActorID) {
		return nil, domainlisting.ErrNotOwner
	}

	start, err := dates.ParseDay(cmd.StartDate)
	if err != nil {
		return nil, fault.Wrap(fault.KindValidation, "availability: invalid start date", err)
	}
	end, err := dates.ParseDay(cmd.EndDate)
	if err != nil {
		return nil, fault.Wrap(fault.KindValidation, "availability: invalid end date", err)
	}
	blockRange, err := dates.NewRange(start, end)
	if err != nil {
		return nil, fault.Wrap(fault.KindValidation, "availability: invalid date range", err)
	}

	ledger, err := unit.Availability().Ledger(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	blockID := domainavailability.BlockID(uuid.NewString())
	if err := ledger.AddBlock(blockID, blockRange, domainavailability.BlockReason(cmd.Reason), nowOrDefault(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Availability().Save(ctx, ledger); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, ledger); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &BlockDatesResult{BlockID: string(blockID)}, nil
}

type UnblockDatesCommand struct {
	ListingID string
	ActorID   string
	BlockID   string
}

func (c UnblockDatesCommand) Key() string { return unblockDatesKey }

type UnblockDatesResult struct {
	Removed bool `json:"removed"`
}

// UnblockDatesHandler removes an owner block. Blocks written by rentals are
// protected; they disappear only through the rental lifecycle.
type UnblockDatesHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *UnblockDatesHandler) Handle(ctx context.Context, cmd UnblockDatesCommand) (*UnblockDatesResult, error) {
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

	listing, err := unit.Listings().ByID(ctx, domainlisting.ID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if listing.Owner != domainuser.ID(cmd.ActorID) {
		return nil, domainlisting.ErrNotOwner
	}

	ledger, err := unit.Availability().Ledger(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if err := ledger.RemoveBlock(domainavailability.BlockID(cmd.BlockID), nowOrDefault(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Availability().Save(ctx, ledger); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, ledger); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &UnblockDatesResult{Removed: true}, nil
}

type eventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

func drainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...eventSource) error {
	if box == nil {
		for _, src := range sources {
			src.ClearEvents()
		}
		return nil
	}
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	for _, src := range sources {
		pending := src.PendingEvents()
		src.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil {
			return err
		}
	}
	return nil
}

func nowOrDefault(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[BlockDatesCommand, *BlockDatesResult] = (*BlockDatesHandler)(nil)
var _ commands.Handler[UnblockDatesCommand, *UnblockDatesResult] = (*UnblockDatesHandler)(nil)
