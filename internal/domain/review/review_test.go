package review_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kloset/internal/domain/rental"
	"kloset/internal/domain/review"
	"kloset/internal/domain/shared/dates"
)

var now = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

func completedRental(t *testing.T) *rental.Rental {
	t.Helper()
	start, _ := dates.ParseDay("2024-01-10")
	end, _ := dates.ParseDay("2024-01-12")
	r, err := dates.NewRange(start, end)
	require.NoError(t, err)

	rnt, err := rental.NewRental(rental.CreateParams{
		ID:        "rnt-1",
		ListingID: "lst-1",
		Owner:     "owner-1",
		Renter:    "renter-1",
		Range:     r,
		Now:       now,
	})
	require.NoError(t, err)
	require.NoError(t, rnt.Accept("owner-1", now))
	require.NoError(t, rnt.MarkPickedUp("renter-1", now))
	require.NoError(t, rnt.MarkReturned("renter-1", now))
	require.NoError(t, rnt.Complete("owner-1", now))
	return rnt
}

func TestReviewGateRequiresCompletion(t *testing.T) {
	start, _ := dates.ParseDay("2024-01-10")
	end, _ := dates.ParseDay("2024-01-12")
	r, _ := dates.NewRange(start, end)
	rnt, err := rental.NewRental(rental.CreateParams{
		ID: "rnt-1", ListingID: "lst-1", Owner: "owner-1", Renter: "renter-1",
		Range: r, Now: now,
	})
	require.NoError(t, err)

	_, err = review.New(rnt, review.CreateParams{
		ID: "rev-1", Reviewer: "renter-1", Type: review.TypeRenterToOwner, Rating: 5, Now: now,
	})
	assert.ErrorIs(t, err, review.ErrRentalNotComplete)
}

func TestReviewGateRejectsNonParticipants(t *testing.T) {
	rnt := completedRental(t)
	_, err := review.New(rnt, review.CreateParams{
		ID: "rev-1", Reviewer: "stranger", Type: review.TypeRenterToOwner, Rating: 5, Now: now,
	})
	assert.ErrorIs(t, err, review.ErrNotParticipant)
}

func TestReviewDirectionMustMatchRole(t *testing.T) {
	rnt := completedRental(t)

	_, err := review.New(rnt, review.CreateParams{
		ID: "rev-1", Reviewer: "owner-1", Type: review.TypeRenterToOwner, Rating: 5, Now: now,
	})
	assert.ErrorIs(t, err, review.ErrWrongDirection)

	_, err = review.New(rnt, review.CreateParams{
		ID: "rev-1", Reviewer: "renter-1", Type: review.TypeOwnerToRenter, Rating: 5, Now: now,
	})
	assert.ErrorIs(t, err, review.ErrWrongDirection)
}

func TestRevieweeIsTheOtherParty(t *testing.T) {
	rnt := completedRental(t)

	rev, err := review.New(rnt, review.CreateParams{
		ID: "rev-1", Reviewer: "renter-1", Type: review.TypeRenterToOwner, Rating: 4,
		Comment: "  great owner  ", Now: now,
	})
	require.NoError(t, err)
	assert.EqualValues(t, "owner-1", rev.Reviewee)
	assert.Equal(t, "great owner", rev.Comment)

	rev, err = review.New(rnt, review.CreateParams{
		ID: "rev-2", Reviewer: "owner-1", Type: review.TypeOwnerToRenter, Rating: 5, Now: now,
	})
	require.NoError(t, err)
	assert.EqualValues(t, "renter-1", rev.Reviewee)
}

func TestRatingBounds(t *testing.T) {
	rnt := completedRental(t)
	for _, rating := range []int{0, -1, 6} {
		_, err := review.New(rnt, review.CreateParams{
			ID: "rev-1", Reviewer: "renter-1", Type: review.TypeRenterToOwner, Rating: rating, Now: now,
		})
		assert.ErrorIs(t, err, review.ErrRating, "rating %d", rating)
	}
}

func TestSummarizeSkipsHidden(t *testing.T) {
	reviews := []*review.Review{
		{Rating: 5},
		{Rating: 4},
		{Rating: 4},
		{Rating: 1, Hidden: true},
	}
	s := review.Summarize(reviews)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 4.333, s.Average, 0.001)
	assert.Equal(t, [5]int{0, 0, 0, 2, 1}, s.Stars)
}

func TestSummarizeEmpty(t *testing.T) {
	s := review.Summarize(nil)
	assert.Equal(t, 0, s.Count)
	assert.Zero(t, s.Average)
}
