package listings_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	listingapp "kloset/internal/app/handlers/listings"
	domainlisting "kloset/internal/domain/listing"
	domainrental "kloset/internal/domain/rental"
	"kloset/internal/domain/shared/dates"
	domainuser "kloset/internal/domain/user"
	"kloset/internal/infra/storage/memory"
	"kloset/internal/infra/notify"
)

var frozen = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

type fixture struct {
	factory  memory.Factory
	notifier *notify.Recorder
	submit   *listingapp.SubmitListingHandler
	moderate *listingapp.ModerateListingHandler
	manage   *listingapp.ManageListingHandler
}

func setup(t *testing.T) *fixture {
	t.Helper()
	factory := memory.NewFactory()
	ctx := context.Background()

	seed := func(id string, roles []domainuser.Role) {
		u, err := domainuser.NewUser(domainuser.CreateParams{
			ID:           domainuser.ID(id),
			Email:        id + "@example.com",
			Name:         id,
			PasswordHash: "x",
			Roles:        roles,
			CreatedAt:    frozen,
		})
		require.NoError(t, err)
		require.NoError(t, factory.UsersRepo.Save(ctx, u))
	}
	seed("owner-1", []domainuser.Role{domainuser.RoleMember})
	seed("mod-1", []domainuser.Role{domainuser.RoleMember, domainuser.RoleAdmin})

	notifier := &notify.Recorder{}
	clock := func() time.Time { return frozen }
	return &fixture{
		factory:  factory,
		notifier: notifier,
		submit:   &listingapp.SubmitListingHandler{UoWFactory: factory, Now: clock},
		moderate: &listingapp.ModerateListingHandler{UoWFactory: factory, Notifier: notifier, Now: clock},
		manage:   &listingapp.ManageListingHandler{UoWFactory: factory, Now: clock},
	}
}

func (f *fixture) submitListing(t *testing.T, id string) {
	t.Helper()
	res, err := f.submit.Handle(context.Background(), listingapp.SubmitListingCommand{
		CommandID:      id,
		OwnerID:        "owner-1",
		Title:          "Navy abaya",
		Description:    "Floor length, size M",
		Category:       "abaya",
		DailyRateCents: 2000,
		DepositCents:   5000,
		Location:       "Toronto",
	})
	require.NoError(t, err)
	require.Equal(t, string(domainlisting.StatusPending), res.Status)
}

func (f *fixture) listing(t *testing.T, id string) *domainlisting.Listing {
	t.Helper()
	l, err := f.factory.ListingsRepo.ByID(context.Background(), domainlisting.ID(id))
	require.NoError(t, err)
	return l
}

func TestSubmitListingStartsPending(t *testing.T) {
	f := setup(t)
	f.submitListing(t, "lst-1")

	l := f.listing(t, "lst-1")
	assert.Equal(t, domainlisting.StatusPending, l.Status)
	assert.False(t, l.Approved)
	assert.False(t, l.Rentable())
	// defaults fill in when the owner leaves them out
	assert.Equal(t, 1, l.MinDays)
	assert.Equal(t, 30, l.MaxDays)
}

func TestApproveMakesListingRentable(t *testing.T) {
	f := setup(t)
	f.submitListing(t, "lst-1")
	ctx := context.Background()

	// members cannot moderate
	_, err := f.moderate.HandleApprove(ctx, listingapp.ApproveListingCommand{ListingID: "lst-1", ActorID: "owner-1"})
	require.Error(t, err)

	res, err := f.moderate.HandleApprove(ctx, listingapp.ApproveListingCommand{ListingID: "lst-1", ActorID: "mod-1"})
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Equal(t, string(domainlisting.StatusActive), res.Status)

	l := f.listing(t, "lst-1")
	assert.True(t, l.Rentable())

	// the owner hears about the decision
	require.Len(t, f.notifier.Sent, 1)
	assert.Contains(t, f.notifier.Sent[0].Subject, "approved")

	// approval is single-shot; the listing already left pending
	_, err = f.moderate.HandleApprove(ctx, listingapp.ApproveListingCommand{ListingID: "lst-1", ActorID: "mod-1"})
	assert.ErrorIs(t, err, domainlisting.ErrInvalidState)
}

func TestRejectPullsListing(t *testing.T) {
	f := setup(t)
	f.submitListing(t, "lst-1")
	ctx := context.Background()

	res, err := f.moderate.HandleReject(ctx, listingapp.RejectListingCommand{
		ListingID: "lst-1", ActorID: "mod-1", Reason: "photos too dark",
	})
	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.Equal(t, string(domainlisting.StatusInactive), res.Status)

	// reactivation alone never restores visibility without approval
	_, err = f.manage.HandleReactivate(ctx, listingapp.ReactivateListingCommand{ListingID: "lst-1", ActorID: "owner-1"})
	require.NoError(t, err)
	assert.False(t, f.listing(t, "lst-1").Rentable())
}

func TestOwnerToggles(t *testing.T) {
	f := setup(t)
	f.submitListing(t, "lst-1")
	ctx := context.Background()

	_, err := f.moderate.HandleApprove(ctx, listingapp.ApproveListingCommand{ListingID: "lst-1", ActorID: "mod-1"})
	require.NoError(t, err)

	// only the owner may toggle
	_, err = f.manage.HandleDeactivate(ctx, listingapp.DeactivateListingCommand{ListingID: "lst-1", ActorID: "mod-1"})
	assert.ErrorIs(t, err, domainlisting.ErrNotOwner)

	_, err = f.manage.HandleDeactivate(ctx, listingapp.DeactivateListingCommand{ListingID: "lst-1", ActorID: "owner-1"})
	require.NoError(t, err)
	assert.False(t, f.listing(t, "lst-1").Rentable())

	_, err = f.manage.HandleReactivate(ctx, listingapp.ReactivateListingCommand{ListingID: "lst-1", ActorID: "owner-1"})
	require.NoError(t, err)
	assert.True(t, f.listing(t, "lst-1").Rentable())
}

func TestDeleteListing(t *testing.T) {
	f := setup(t)
	f.submitListing(t, "lst-1")
	ctx := context.Background()

	_, err := f.moderate.HandleApprove(ctx, listingapp.ApproveListingCommand{ListingID: "lst-1", ActorID: "mod-1"})
	require.NoError(t, err)

	// a rental in progress protects the listing
	start, _ := dates.ParseDay("2024-01-10")
	r, err := dates.NewRange(start, start.AddDays(2))
	require.NoError(t, err)
	rnt, err := domainrental.NewRental(domainrental.CreateParams{
		ID:        "rnt-1",
		ListingID: "lst-1",
		Owner:     "owner-1",
		Renter:    "renter-1",
		Range:     r,
		Now:       frozen,
	})
	require.NoError(t, err)
	require.NoError(t, f.factory.RentalsRepo.Create(ctx, rnt))

	_, err = f.manage.HandleDelete(ctx, listingapp.DeleteListingCommand{ListingID: "lst-1", ActorID: "owner-1"})
	assert.ErrorIs(t, err, domainlisting.ErrHasActiveRentals)

	// a settled rental releases it
	rnt.Status = domainrental.StatusCancelled
	require.NoError(t, f.factory.RentalsRepo.Save(ctx, rnt))

	_, err = f.manage.HandleDelete(ctx, listingapp.DeleteListingCommand{ListingID: "lst-1", ActorID: "renter-1"})
	assert.ErrorIs(t, err, domainlisting.ErrNotOwner)

	res, err := f.manage.HandleDelete(ctx, listingapp.DeleteListingCommand{ListingID: "lst-1", ActorID: "owner-1"})
	require.NoError(t, err)
	assert.Equal(t, "deleted", res.Status)

	_, err = f.factory.ListingsRepo.ByID(ctx, "lst-1")
	assert.ErrorIs(t, err, domainlisting.ErrNotFound)
}

func TestUpdateKeepsModerationState(t *testing.T) {
	f := setup(t)
	f.submitListing(t, "lst-1")
	ctx := context.Background()

	_, err := f.moderate.HandleApprove(ctx, listingapp.ApproveListingCommand{ListingID: "lst-1", ActorID: "mod-1"})
	require.NoError(t, err)

	_, err = f.manage.HandleUpdate(ctx, listingapp.UpdateListingCommand{
		ListingID:      "lst-1",
		ActorID:        "owner-1",
		Title:          "Navy abaya, hemmed",
		DailyRateCents: 2500,
		DepositCents:   5000,
		Location:       "Toronto",
	})
	require.NoError(t, err)

	l := f.listing(t, "lst-1")
	assert.Equal(t, "Navy abaya, hemmed", l.Title)
	assert.EqualValues(t, 2500, l.DailyRate.Cents)
	assert.True(t, l.Rentable())
}
