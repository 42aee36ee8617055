package rentals

import (
	"context"
	"errors"
	"time"

	"kloset/internal/app/commands"
	"kloset/internal/app/middleware"
	"kloset/internal/app/outbox"
	"kloset/internal/app/policies"
	"kloset/internal/app/uow"
	domainlisting "kloset/internal/domain/listing"
	domainpricing "kloset/internal/domain/pricing"
	domainrental "kloset/internal/domain/rental"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/shared/money"
	domainuser "kloset/internal/domain/user"
)

const requestRentalKey = "rental.request"

var ErrUnitOfWorkRequired = errors.New("rentals: unit of work required")

type RequestRentalCommand struct {
	CommandID       string
	ListingID       string
	RenterID        string
	StartDate       string
	EndDate         string
	AddCleaning     bool
	Notes           string
	IdempotencyKeyV string
}

func (c RequestRentalCommand) Key() string { return requestRentalKey }

func (c RequestRentalCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RequestRentalCommand) Validate() error {
	switch {
	case c.ListingID == "":
		return fault.Validation("rentals: listing id required")
	case c.RenterID == "":
		return fault.Validation("rentals: renter id required")
	case c.StartDate == "" || c.EndDate == "":
		return fault.Validation("rentals: start and end dates required")
	}
	return nil
}

func (c RequestRentalCommand) ResultPrototype() any { return &RequestRentalResult{} }

type RequestRentalResult struct {
	RentalID   string `json:"rental_id"`
	TotalCents int64  `json:"total_cents"`
}

// RequestRentalHandler creates a pending rental request. The insert is the
// atomic check-then-create: the repository re-verifies overlap under its own
// lock, so two racing requests for the same dates produce exactly one rental.
type RequestRentalHandler struct {
	UoWFactory      uow.UoWFactory
	Payments        policies.PaymentsPort
	Outbox          outbox.Outbox
	Encoder         outbox.EventEncoder
	BaseCleaningFee money.Money
	Now             func() time.Time
}

func (h *RequestRentalHandler) Handle(ctx context.Context, cmd RequestRentalCommand) (*RequestRentalResult, error) {
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

	now := h.now()
	rentalRange, err := parseRange(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}
	if rentalRange.Start.Before(dates.DayOf(now)) {
		return nil, fault.Validation("rentals: start date is in the past")
	}

	listing, err := unit.Listings().ByID(ctx, domainlisting.ID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if !listing.Rentable() {
		return nil, domainlisting.ErrNotRentable
	}
	if listing.Owner == domainuser.ID(cmd.RenterID) {
		return nil, domainrental.ErrOwnListing
	}
	days := rentalRange.Days()
	if days < listing.MinDays || days > listing.MaxDays {
		return nil, fault.Newf(fault.KindValidation,
			"rentals: rental length must be between %d and %d days", listing.MinDays, listing.MaxDays)
	}

	// Advisory pre-checks; the repository's Create repeats the rental overlap
	// atomically, and the ledger holds only accepted reservations.
	ledger, err := unit.Availability().Ledger(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if !ledger.IsFree(rentalRange) {
		return nil, domainrental.ErrDatesUnavailable
	}

	cost, err := domainpricing.Quote(domainpricing.QuoteInput{
		DailyRate:       listing.DailyRate,
		Deposit:         listing.Deposit,
		Range:           rentalRange,
		AddCleaning:     cmd.AddCleaning,
		BaseCleaningFee: h.BaseCleaningFee,
	})
	if err != nil {
		return nil, err
	}

	rental, err := domainrental.NewRental(domainrental.CreateParams{
		ID:        domainrental.ID(cmd.CommandID),
		ListingID: listing.ID,
		Owner:     listing.Owner,
		Renter:    domainuser.ID(cmd.RenterID),
		Range:     rentalRange,
		Cost:      cost,
		Notes:     cmd.Notes,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}

	holdRef, err := h.Payments.Authorize(ctx, string(rental.ID), cost.Total)
	if err != nil {
		return nil, fault.Dependency("rentals: payment authorization failed", err)
	}
	rental.MarkAuthorized(holdRef)

	if err := unit.Rentals().Create(ctx, rental); err != nil {
		// The hold must not outlive a failed insert.
		if releaseErr := h.Payments.Release(ctx, holdRef); releaseErr != nil {
			return nil, errors.Join(err, releaseErr)
		}
		return nil, err
	}

	pending := rental.PendingEvents()
	rental.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &RequestRentalResult{
		RentalID:   string(rental.ID),
		TotalCents: cost.Total.Cents,
	}, nil
}

func (h *RequestRentalHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func (h *RequestRentalHandler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func parseRange(start, end string) (dates.Range, error) {
	from, err := dates.ParseDay(start)
	if err != nil {
		return dates.Range{}, fault.Wrap(fault.KindValidation, "rentals: invalid start date", err)
	}
	to, err := dates.ParseDay(end)
	if err != nil {
		return dates.Range{}, fault.Wrap(fault.KindValidation, "rentals: invalid end date", err)
	}
	r, err := dates.NewRange(from, to)
	if err != nil {
		return dates.Range{}, fault.Wrap(fault.KindValidation, "rentals: invalid date range", err)
	}
	return r, nil
}

var _ commands.Handler[RequestRentalCommand, *RequestRentalResult] = (*RequestRentalHandler)(nil)
var _ middleware.IdempotentCommand = (*RequestRentalCommand)(nil)
var _ middleware.SelfValidatingMessage = (*RequestRentalCommand)(nil)
