package trust_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	trustapp "kloset/internal/app/handlers/trust"
	domainlisting "kloset/internal/domain/listing"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	"kloset/internal/domain/shared/dates"
	domaintrust "kloset/internal/domain/trust"
	domainuser "kloset/internal/domain/user"
	"kloset/internal/infra/storage/memory"
)

var frozen = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, factory memory.Factory, id string, verified domainuser.Verification) {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(id),
		Email:        id + "@example.com",
		Name:         id,
		PasswordHash: "x",
		CreatedAt:    frozen,
	})
	require.NoError(t, err)
	u.Verified = verified
	require.NoError(t, factory.UsersRepo.Save(context.Background(), u))
}

func seedCompletedRental(t *testing.T, factory memory.Factory, n int, owner string) {
	t.Helper()
	for i := 0; i < n; i++ {
		start, _ := dates.ParseDay(fmt.Sprintf("2024-%02d-01", 1+i%12))
		end := start.AddDays(2)
		r, err := dates.NewRange(start, end)
		require.NoError(t, err)

		rnt, err := domainrental.NewRental(domainrental.CreateParams{
			ID:        domainrental.ID(fmt.Sprintf("rnt-%d", i)),
			ListingID: domainlisting.ID(fmt.Sprintf("lst-%d", i)),
			Owner:     domainuser.ID(owner),
			Renter:    "renter-1",
			Range:     r,
			Now:       frozen,
		})
		require.NoError(t, err)
		require.NoError(t, rnt.Accept(domainuser.ID(owner), frozen))
		require.NoError(t, rnt.MarkPickedUp("renter-1", frozen))
		require.NoError(t, rnt.MarkReturned("renter-1", frozen))
		require.NoError(t, rnt.Complete(domainuser.ID(owner), frozen))
		require.NoError(t, factory.RentalsRepo.Create(context.Background(), rnt))
	}
}

func seedOwnerReviews(t *testing.T, factory memory.Factory, owner string, ratings []int) {
	t.Helper()
	for i, rating := range ratings {
		rev := &domainreview.Review{
			ID:       domainreview.ID(fmt.Sprintf("rev-%d", i)),
			RentalID: domainrental.ID(fmt.Sprintf("rnt-%d", i)),
			Reviewer: "renter-1",
			Reviewee: domainuser.ID(owner),
			Type:     domainreview.TypeRenterToOwner,
			Rating:   rating,
		}
		require.NoError(t, factory.ReviewsRepo.Save(context.Background(), rev))
	}
}

func TestTrustSummaryNewUserDefaults(t *testing.T) {
	factory := memory.NewFactory()
	seedUser(t, factory, "owner-1", domainuser.Verification{})

	h := &trustapp.GetTrustSummaryHandler{UoWFactory: factory}
	s, err := h.Handle(context.Background(), trustapp.GetTrustSummaryQuery{UserID: "owner-1"})
	require.NoError(t, err)

	assert.Equal(t, int(domaintrust.LevelUnverified), s.TrustLevel)
	assert.Empty(t, s.Badges)
	// nobody has asked yet, so the rate is not penalized
	assert.Equal(t, 1.0, s.ResponseRate)
	assert.Nil(t, s.RatingAsOwner)
	assert.False(t, s.IsTopLender)
}

func TestTrustSummaryTopLender(t *testing.T) {
	factory := memory.NewFactory()
	seedUser(t, factory, "owner-1", domainuser.Verification{Email: true, Phone: true})
	seedCompletedRental(t, factory, 10, "owner-1")
	seedOwnerReviews(t, factory, "owner-1", []int{5, 5, 5, 4, 5})

	h := &trustapp.GetTrustSummaryHandler{UoWFactory: factory}
	s, err := h.Handle(context.Background(), trustapp.GetTrustSummaryQuery{UserID: "owner-1"})
	require.NoError(t, err)

	assert.True(t, s.IsTopLender)
	assert.Equal(t, int(domaintrust.LevelTopLender), s.TrustLevel)
	assert.Contains(t, s.Badges, domaintrust.BadgeTopLender)
	assert.Equal(t, 10, s.CompletedRentals)
	require.NotNil(t, s.RatingAsOwner)
	assert.Equal(t, 4.8, *s.RatingAsOwner)
	assert.Equal(t, 1.0, s.ResponseRate)
}

func TestTrustSummaryBelowThresholds(t *testing.T) {
	factory := memory.NewFactory()
	seedUser(t, factory, "owner-1", domainuser.Verification{Email: true})
	seedCompletedRental(t, factory, 9, "owner-1")
	seedOwnerReviews(t, factory, "owner-1", []int{5, 5})

	h := &trustapp.GetTrustSummaryHandler{UoWFactory: factory}
	s, err := h.Handle(context.Background(), trustapp.GetTrustSummaryQuery{UserID: "owner-1"})
	require.NoError(t, err)

	assert.False(t, s.IsTopLender)
	assert.Equal(t, int(domaintrust.LevelEmailVerified), s.TrustLevel)
	assert.Equal(t, 9, s.CompletedRentals)
}

func TestTrustSummaryUnknownUser(t *testing.T) {
	factory := memory.NewFactory()
	h := &trustapp.GetTrustSummaryHandler{UoWFactory: factory}
	_, err := h.Handle(context.Background(), trustapp.GetTrustSummaryQuery{UserID: "ghost"})
	assert.ErrorIs(t, err, domainuser.ErrNotFound)
}
