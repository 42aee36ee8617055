package reviews_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reviewapp "kloset/internal/app/handlers/reviews"
	domainlisting "kloset/internal/domain/listing"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/infra/storage/memory"
)

var frozen = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

func seedRental(t *testing.T, factory memory.Factory, status domainrental.Status) {
	t.Helper()
	start, _ := dates.ParseDay("2024-01-10")
	end, _ := dates.ParseDay("2024-01-12")
	r, err := dates.NewRange(start, end)
	require.NoError(t, err)

	rnt, err := domainrental.NewRental(domainrental.CreateParams{
		ID:        "rnt-1",
		ListingID: domainlisting.ID("lst-1"),
		Owner:     "owner-1",
		Renter:    "renter-1",
		Range:     r,
		Now:       frozen,
	})
	require.NoError(t, err)

	if status != domainrental.StatusPending {
		require.NoError(t, rnt.Accept("owner-1", frozen))
	}
	if status == domainrental.StatusCompleted {
		require.NoError(t, rnt.MarkPickedUp("renter-1", frozen))
		require.NoError(t, rnt.MarkReturned("renter-1", frozen))
		require.NoError(t, rnt.Complete("owner-1", frozen))
	}
	require.NoError(t, factory.RentalsRepo.Create(context.Background(), rnt))
}

func submit(t *testing.T, factory memory.Factory, cmd reviewapp.SubmitReviewCommand) (*reviewapp.SubmitReviewResult, error) {
	t.Helper()
	h := &reviewapp.SubmitReviewHandler{
		UoWFactory: factory,
		Now:        func() time.Time { return frozen },
	}
	return h.Handle(context.Background(), cmd)
}

func TestSubmitReviewHappyPath(t *testing.T) {
	factory := memory.NewFactory()
	seedRental(t, factory, domainrental.StatusCompleted)

	res, err := submit(t, factory, reviewapp.SubmitReviewCommand{
		CommandID: "rev-1",
		RentalID:  "rnt-1",
		Reviewer:  "renter-1",
		Type:      "renter_to_owner",
		Rating:    5,
		Comment:   "lovely abaya, spotless",
	})
	require.NoError(t, err)
	assert.Equal(t, "rev-1", res.ReviewID)

	saved, err := factory.ReviewsRepo.ListForUser(context.Background(), "owner-1", domainreview.TypeRenterToOwner)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.EqualValues(t, "renter-1", saved[0].Reviewer)
}

func TestSubmitReviewDuplicateRefused(t *testing.T) {
	factory := memory.NewFactory()
	seedRental(t, factory, domainrental.StatusCompleted)

	cmd := reviewapp.SubmitReviewCommand{
		CommandID: "rev-1", RentalID: "rnt-1", Reviewer: "renter-1",
		Type: "renter_to_owner", Rating: 5,
	}
	_, err := submit(t, factory, cmd)
	require.NoError(t, err)

	cmd.CommandID = "rev-2"
	cmd.Rating = 1
	_, err = submit(t, factory, cmd)
	assert.ErrorIs(t, err, domainreview.ErrDuplicate)

	// the counterpart review still goes through
	_, err = submit(t, factory, reviewapp.SubmitReviewCommand{
		CommandID: "rev-3", RentalID: "rnt-1", Reviewer: "owner-1",
		Type: "owner_to_renter", Rating: 4,
	})
	assert.NoError(t, err)
}

func TestSubmitReviewGate(t *testing.T) {
	factory := memory.NewFactory()
	seedRental(t, factory, domainrental.StatusAccepted)

	// not completed yet
	_, err := submit(t, factory, reviewapp.SubmitReviewCommand{
		CommandID: "rev-1", RentalID: "rnt-1", Reviewer: "renter-1",
		Type: "renter_to_owner", Rating: 5,
	})
	assert.ErrorIs(t, err, domainreview.ErrRentalNotComplete)

	factory = memory.NewFactory()
	seedRental(t, factory, domainrental.StatusCompleted)

	// outsider
	_, err = submit(t, factory, reviewapp.SubmitReviewCommand{
		CommandID: "rev-1", RentalID: "rnt-1", Reviewer: "stranger",
		Type: "renter_to_owner", Rating: 5,
	})
	assert.ErrorIs(t, err, domainreview.ErrNotParticipant)

	// wrong direction for the role
	_, err = submit(t, factory, reviewapp.SubmitReviewCommand{
		CommandID: "rev-1", RentalID: "rnt-1", Reviewer: "owner-1",
		Type: "renter_to_owner", Rating: 5,
	})
	assert.ErrorIs(t, err, domainreview.ErrWrongDirection)

	// unknown rental
	_, err = submit(t, factory, reviewapp.SubmitReviewCommand{
		CommandID: "rev-1", RentalID: "rnt-404", Reviewer: "renter-1",
		Type: "renter_to_owner", Rating: 5,
	})
	assert.ErrorIs(t, err, domainrental.ErrNotFound)
}
