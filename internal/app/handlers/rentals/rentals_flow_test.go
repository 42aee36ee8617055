package rentals_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rentalapp "kloset/internal/app/handlers/rentals"
	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
	domainrental "kloset/internal/domain/rental"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/shared/money"
	domainuser "kloset/internal/domain/user"
	"kloset/internal/infra/contracts"
	"kloset/internal/infra/notify"
	"kloset/internal/infra/payments"
	"kloset/internal/infra/storage/memory"
)

var frozen = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

type fixture struct {
	factory  memory.Factory
	payments *payments.Processor
	notifier *notify.Recorder
	outbox   *memory.Outbox
	renderer *contracts.Renderer

	listing *domainlisting.Listing
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		factory:  memory.NewFactory(),
		payments: payments.NewProcessor(nil),
		notifier: &notify.Recorder{},
		outbox:   memory.NewOutbox(),
		renderer: contracts.NewRenderer(nil),
	}

	for _, u := range []struct{ id, email, name string }{
		{"owner-1", "owner@example.com", "Amina"},
		{"renter-1", "renter@example.com", "Fatima"},
	} {
		user, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(u.id),
			Email:        u.email,
			Name:         u.name,
			PasswordHash: "x",
			CreatedAt:    frozen,
		})
		require.NoError(t, err)
		require.NoError(t, f.factory.UsersRepo.Save(ctx, user))
	}

	l, err := domainlisting.NewListing(domainlisting.CreateParams{
		ID:        "lst-1",
		Owner:     "owner-1",
		Title:     "Navy embroidered abaya",
		DailyRate: money.Cents(2000),
		Deposit:   money.Cents(5000),
		Location:  "Toronto",
		Now:       frozen,
	})
	require.NoError(t, err)
	require.NoError(t, l.Approve(frozen))
	require.NoError(t, f.factory.ListingsRepo.Save(ctx, l))
	f.listing = l
	return f
}

func (f *fixture) request(t *testing.T, id, renter, start, end string) (*rentalapp.RequestRentalResult, error) {
	t.Helper()
	h := &rentalapp.RequestRentalHandler{
		UoWFactory:      f.factory,
		Payments:        f.payments,
		Outbox:          f.outbox,
		BaseCleaningFee: money.Cents(1500),
		Now:             func() time.Time { return frozen },
	}
	return h.Handle(context.Background(), rentalapp.RequestRentalCommand{
		CommandID: id,
		ListingID: "lst-1",
		RenterID:  renter,
		StartDate: start,
		EndDate:   end,
	})
}

func (f *fixture) accept(t *testing.T, rentalID, actor string) (*rentalapp.AcceptRentalResult, error) {
	t.Helper()
	h := &rentalapp.AcceptRentalHandler{
		UoWFactory: f.factory,
		Payments:   f.payments,
		Contracts:  f.renderer,
		Notifier:   f.notifier,
		Outbox:     f.outbox,
		Now:        func() time.Time { return frozen },
	}
	return h.Handle(context.Background(), rentalapp.AcceptRentalCommand{RentalID: rentalID, ActorID: actor})
}

func (f *fixture) rental(t *testing.T, id string) *domainrental.Rental {
	t.Helper()
	r, err := f.factory.RentalsRepo.ByID(context.Background(), domainrental.ID(id))
	require.NoError(t, err)
	return r
}

func TestRequestCreatesPendingWithQuotedTotal(t *testing.T) {
	f := setup(t)

	res, err := f.request(t, "rnt-1", "renter-1", "2024-01-10", "2024-01-12")
	require.NoError(t, err)
	// 3 days at 20.00 + 50.00 deposit + 5% of subtotal; cleaning is opt-in
	assert.Equal(t, int64(11300), res.TotalCents)

	r := f.rental(t, "rnt-1")
	assert.Equal(t, domainrental.StatusPending, r.Status)
	assert.Equal(t, domainrental.PaymentAuthorized, r.PaymentStatus)
	state, ok := f.payments.HoldState(r.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, "authorized", state)

	// a pending request holds the dates through rental state, not the ledger
	ledger, err := f.factory.AvailabilityRepo.Ledger(context.Background(), "lst-1")
	require.NoError(t, err)
	assert.Empty(t, ledger.Blocks)
}

func TestRequestWithCleaningMatchesCanonicalTotal(t *testing.T) {
	f := setup(t)
	h := &rentalapp.RequestRentalHandler{
		UoWFactory:      f.factory,
		Payments:        f.payments,
		Outbox:          f.outbox,
		BaseCleaningFee: money.Cents(1500),
		Now:             func() time.Time { return frozen },
	}
	res, err := h.Handle(context.Background(), rentalapp.RequestRentalCommand{
		CommandID:   "rnt-1",
		ListingID:   "lst-1",
		RenterID:    "renter-1",
		StartDate:   "2024-01-10",
		EndDate:     "2024-01-12",
		AddCleaning: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12800), res.TotalCents)
}

func TestRequestRejectsOverlapAndReleasesHold(t *testing.T) {
	f := setup(t)

	_, err := f.request(t, "rnt-1", "renter-1", "2024-01-10", "2024-01-12")
	require.NoError(t, err)

	_, err = f.request(t, "rnt-2", "renter-1", "2024-01-12", "2024-01-14")
	assert.ErrorIs(t, err, domainrental.ErrDatesUnavailable)

	_, getErr := f.factory.RentalsRepo.ByID(context.Background(), "rnt-2")
	assert.ErrorIs(t, getErr, domainrental.ErrNotFound)
}

func TestRequestGuards(t *testing.T) {
	f := setup(t)

	// owner renting their own listing
	_, err := f.request(t, "rnt-1", "owner-1", "2024-01-10", "2024-01-12")
	assert.ErrorIs(t, err, domainrental.ErrOwnListing)

	// start in the past
	_, err = f.request(t, "rnt-2", "renter-1", "2024-01-01", "2024-01-03")
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))

	// longer than the listing allows (max defaults to 30)
	_, err = f.request(t, "rnt-3", "renter-1", "2024-02-01", "2024-03-15")
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))

	// unrentable listing
	require.NoError(t, f.listing.Deactivate(frozen))
	require.NoError(t, f.factory.ListingsRepo.Save(context.Background(), f.listing))
	_, err = f.request(t, "rnt-4", "renter-1", "2024-01-10", "2024-01-12")
	assert.ErrorIs(t, err, domainlisting.ErrNotRentable)
}

func TestAcceptReservesDatesCapturesAndRendersContract(t *testing.T) {
	f := setup(t)
	_, err := f.request(t, "rnt-1", "renter-1", "2024-01-10", "2024-01-12")
	require.NoError(t, err)

	res, err := f.accept(t, "rnt-1", "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "accepted", res.Status)
	assert.NotEmpty(t, res.ContractKey)

	r := f.rental(t, "rnt-1")
	assert.Equal(t, domainrental.PaymentCaptured, r.PaymentStatus)

	ledger, err := f.factory.AvailabilityRepo.Ledger(context.Background(), "lst-1")
	require.NoError(t, err)
	require.Len(t, ledger.Blocks, 1)
	assert.Equal(t, domainavailability.ReasonRental, ledger.Blocks[0].Reason)
	assert.Equal(t, "rnt-1", ledger.Blocks[0].RentalID)

	doc, err := f.renderer.Fetch(context.Background(), res.ContractKey)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Navy embroidered abaya")

	require.NotEmpty(t, f.notifier.Sent)
	assert.EqualValues(t, "renter-1", f.notifier.Sent[0].To)
}

func TestAcceptIsOwnerOnly(t *testing.T) {
	f := setup(t)
	_, err := f.request(t, "rnt-1", "renter-1", "2024-01-10", "2024-01-12")
	require.NoError(t, err)

	_, err = f.accept(t, "rnt-1", "renter-1")
	assert.ErrorIs(t, err, domainrental.ErrOnlyOwner)

	r := f.rental(t, "rnt-1")
	assert.Equal(t, domainrental.StatusPending, r.Status)
}

func TestAcceptFailsWhenLedgerTaken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.request(t, "rnt-1", "renter-1", "2024-01-10", "2024-01-12")
	require.NoError(t, err)

	// owner blocks the dates manually before deciding
	ledger, err := f.factory.AvailabilityRepo.Ledger(ctx, "lst-1")
	require.NoError(t, err)
	require.NoError(t, ledger.AddBlock("b1", f.rental(t, "rnt-1").Range, domainavailability.ReasonMaintenance, frozen))
	require.NoError(t, f.factory.AvailabilityRepo.Save(ctx, ledger))

	_, err = f.accept(t, "rnt-1", "owner-1")
	assert.ErrorIs(t, err, domainavailability.ErrOverlappingRange)

	// the aborted accept leaves no trace: the request is still pending and
	// the hold was never captured
	r := f.rental(t, "rnt-1")
	assert.Equal(t, domainrental.StatusPending, r.Status)
	assert.Equal(t, domainrental.PaymentAuthorized, r.PaymentStatus)
	state, ok := f.payments.HoldState(r.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, "authorized", state)
}

func TestRejectReleasesHold(t *testing.T) {
	f := setup(t)
	_, err := f.request(t, "rnt-1", "renter-1", "2024-01-10", "2024-01-12")
	require.NoError(t, err)

	h := &rentalapp.RejectRentalHandler{
		UoWFactory: f.factory,
		Payments:   f.payments,
		Notifier:   f.notifier,
		Outbox:     f.outbox,
		Now:        func() time.Time { return frozen },
	}
	res, err := h.Handle(context.Background(), rentalapp.RejectRentalCommand{
		RentalID: "rnt-1", ActorID: "owner-1", Reason: "not available",
	})
	require.NoError(t, err)
	assert.Equal(t, "rejected", res.Status)

	r := f.rental(t, "rnt-1")
	assert.Equal(t, domainrental.PaymentRefunded, r.PaymentStatus)
	state, ok := f.payments.HoldState(r.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, "released", state)
}

func TestCancelAcceptedFreesBlockAndRefunds(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.request(t, "rnt-1", "renter-1", "2024-01-10", "2024-01-12")
	require.NoError(t, err)
	_, err = f.accept(t, "rnt-1", "owner-1")
	require.NoError(t, err)

	h := &rentalapp.CancelRentalHandler{
		UoWFactory: f.factory,
		Payments:   f.payments,
		Notifier:   f.notifier,
		Outbox:     f.outbox,
		Now:        func() time.Time { return frozen },
	}
	res, err := h.Handle(ctx, rentalapp.CancelRentalCommand{
		RentalID: "rnt-1", ActorID: "renter-1", Reason: "change of plans",
	})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", res.Status)

	ledger, err := f.factory.AvailabilityRepo.Ledger(ctx, "lst-1")
	require.NoError(t, err)
	assert.Empty(t, ledger.Blocks)

	r := f.rental(t, "rnt-1")
	assert.Equal(t, domainrental.PaymentRefunded, r.PaymentStatus)
	state, ok := f.payments.HoldState(r.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, "refunded", state)

	// freed dates accept a new request
	_, err = f.request(t, "rnt-2", "renter-1", "2024-01-10", "2024-01-12")
	assert.NoError(t, err)
}

func TestProgressAndComplete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.request(t, "rnt-1", "renter-1", "2024-01-10", "2024-01-12")
	require.NoError(t, err)
	_, err = f.accept(t, "rnt-1", "owner-1")
	require.NoError(t, err)

	h := &rentalapp.ProgressRentalHandler{
		UoWFactory: f.factory,
		Payments:   f.payments,
		Notifier:   f.notifier,
		Outbox:     f.outbox,
		Now:        func() time.Time { return frozen },
	}

	listingStatus := func() domainlisting.Status {
		l, err := f.factory.ListingsRepo.ByID(ctx, "lst-1")
		require.NoError(t, err)
		return l.Status
	}

	res, err := h.HandlePickup(ctx, rentalapp.PickupRentalCommand{RentalID: "rnt-1", ActorID: "renter-1"})
	require.NoError(t, err)
	assert.Equal(t, "picked_up", res.Status)
	assert.Equal(t, domainlisting.StatusRented, listingStatus())

	// completing before return is refused
	_, err = h.HandleComplete(ctx, rentalapp.CompleteRentalCommand{RentalID: "rnt-1", ActorID: "owner-1"})
	assert.ErrorIs(t, err, domainrental.ErrTransition)

	_, err = h.HandleReturn(ctx, rentalapp.ReturnRentalCommand{RentalID: "rnt-1", ActorID: "owner-1"})
	require.NoError(t, err)

	// the listing stays off the marketplace until the owner signs off
	assert.Equal(t, domainlisting.StatusRented, listingStatus())
	assert.Equal(t, domainrental.PaymentCaptured, f.rental(t, "rnt-1").PaymentStatus)

	// only the owner closes the loop
	_, err = h.HandleComplete(ctx, rentalapp.CompleteRentalCommand{RentalID: "rnt-1", ActorID: "renter-1"})
	assert.ErrorIs(t, err, domainrental.ErrOnlyOwner)

	res, err = h.HandleComplete(ctx, rentalapp.CompleteRentalCommand{RentalID: "rnt-1", ActorID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Status)

	// completion relists the item and pays out the escrowed charge
	assert.Equal(t, domainlisting.StatusActive, listingStatus())
	r := f.rental(t, "rnt-1")
	assert.Equal(t, domainrental.PaymentReleased, r.PaymentStatus)
	state, ok := f.payments.HoldState(r.PaymentRef)
	require.True(t, ok)
	assert.Equal(t, "released", state)
}
