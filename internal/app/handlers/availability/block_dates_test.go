package availability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	availabilityapp "kloset/internal/app/handlers/availability"
	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/shared/money"
	"kloset/internal/infra/storage/memory"
)

var frozen = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func setup(t *testing.T) memory.Factory {
	t.Helper()
	factory := memory.NewFactory()
	l, err := domainlisting.NewListing(domainlisting.CreateParams{
		ID:        "lst-1",
		Owner:     "owner-1",
		Title:     "Navy abaya",
		DailyRate: money.Cents(2000),
		Deposit:   money.Cents(0),
		Location:  "Toronto",
		Now:       frozen,
	})
	require.NoError(t, err)
	require.NoError(t, l.Approve(frozen))
	require.NoError(t, factory.ListingsRepo.Save(context.Background(), l))
	return factory
}

func TestBlockDates(t *testing.T) {
	factory := setup(t)
	h := &availabilityapp.BlockDatesHandler{
		UoWFactory: factory,
		Now:        func() time.Time { return frozen },
	}

	res, err := h.Handle(context.Background(), availabilityapp.BlockDatesCommand{
		ListingID: "lst-1",
		ActorID:   "owner-1",
		StartDate: "2024-01-10",
		EndDate:   "2024-01-12",
		Reason:    "maintenance",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.BlockID)

	ledger, err := factory.AvailabilityRepo.Ledger(context.Background(), "lst-1")
	require.NoError(t, err)
	require.Len(t, ledger.Blocks, 1)
	assert.Equal(t, domainavailability.ReasonMaintenance, ledger.Blocks[0].Reason)

	// overlapping manual block is refused
	_, err = h.Handle(context.Background(), availabilityapp.BlockDatesCommand{
		ListingID: "lst-1",
		ActorID:   "owner-1",
		StartDate: "2024-01-12",
		EndDate:   "2024-01-14",
	})
	assert.ErrorIs(t, err, domainavailability.ErrOverlappingRange)
}

func TestBlockDatesOwnerOnly(t *testing.T) {
	factory := setup(t)
	h := &availabilityapp.BlockDatesHandler{UoWFactory: factory, Now: func() time.Time { return frozen }}

	_, err := h.Handle(context.Background(), availabilityapp.BlockDatesCommand{
		ListingID: "lst-1",
		ActorID:   "someone-else",
		StartDate: "2024-01-10",
		EndDate:   "2024-01-12",
	})
	assert.ErrorIs(t, err, domainlisting.ErrNotOwner)
}

func TestBlockDatesValidation(t *testing.T) {
	factory := setup(t)
	h := &availabilityapp.BlockDatesHandler{UoWFactory: factory, Now: func() time.Time { return frozen }}

	_, err := h.Handle(context.Background(), availabilityapp.BlockDatesCommand{
		ListingID: "lst-1",
		ActorID:   "owner-1",
		StartDate: "not-a-date",
		EndDate:   "2024-01-12",
	})
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))

	_, err = h.Handle(context.Background(), availabilityapp.BlockDatesCommand{
		ListingID: "lst-1",
		ActorID:   "owner-1",
		StartDate: "2024-01-12",
		EndDate:   "2024-01-10",
	})
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))
}

func TestUnblockDates(t *testing.T) {
	factory := setup(t)
	ctx := context.Background()
	block := &availabilityapp.BlockDatesHandler{UoWFactory: factory, Now: func() time.Time { return frozen }}
	unblock := &availabilityapp.UnblockDatesHandler{UoWFactory: factory, Now: func() time.Time { return frozen }}

	res, err := block.Handle(ctx, availabilityapp.BlockDatesCommand{
		ListingID: "lst-1", ActorID: "owner-1",
		StartDate: "2024-01-10", EndDate: "2024-01-12",
	})
	require.NoError(t, err)

	_, err = unblock.Handle(ctx, availabilityapp.UnblockDatesCommand{
		ListingID: "lst-1", ActorID: "intruder", BlockID: res.BlockID,
	})
	assert.ErrorIs(t, err, domainlisting.ErrNotOwner)

	out, err := unblock.Handle(ctx, availabilityapp.UnblockDatesCommand{
		ListingID: "lst-1", ActorID: "owner-1", BlockID: res.BlockID,
	})
	require.NoError(t, err)
	assert.True(t, out.Removed)

	ledger, err := factory.AvailabilityRepo.Ledger(ctx, "lst-1")
	require.NoError(t, err)
	assert.Empty(t, ledger.Blocks)

	_, err = unblock.Handle(ctx, availabilityapp.UnblockDatesCommand{
		ListingID: "lst-1", ActorID: "owner-1", BlockID: "missing",
	})
	assert.ErrorIs(t, err, domainavailability.ErrBlockNotFound)
}

func TestUnblockRefusesRentalBlocks(t *testing.T) {
	factory := setup(t)
	ctx := context.Background()

	ledger, err := factory.AvailabilityRepo.Ledger(ctx, "lst-1")
	require.NoError(t, err)
	require.NoError(t, ledger.Reserve("b-rental", rentalRange(t), "rnt-1", frozen))
	require.NoError(t, factory.AvailabilityRepo.Save(ctx, ledger))

	unblock := &availabilityapp.UnblockDatesHandler{UoWFactory: factory, Now: func() time.Time { return frozen }}
	_, err = unblock.Handle(ctx, availabilityapp.UnblockDatesCommand{
		ListingID: "lst-1", ActorID: "owner-1", BlockID: "b-rental",
	})
	assert.ErrorIs(t, err, domainavailability.ErrRentalBlock)
}

func rentalRange(t *testing.T) dates.Range {
	t.Helper()
	start, err := dates.ParseDay("2024-01-10")
	require.NoError(t, err)
	r, err := dates.NewRange(start, start.AddDays(2))
	require.NoError(t, err)
	return r
}
