package listing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kloset/internal/domain/listing"
	"kloset/internal/domain/shared/money"
)

var now = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func newPending(t *testing.T) *listing.Listing {
	t.Helper()
	l, err := listing.NewListing(listing.CreateParams{
		ID:        "lst-1",
		Owner:     "owner-1",
		Title:     "Navy embroidered abaya",
		Category:  listing.CategoryAbaya,
		DailyRate: money.Cents(2000),
		Deposit:   money.Cents(5000),
		Location:  "Toronto",
		Now:       now,
	})
	require.NoError(t, err)
	return l
}

func TestNewListingStartsPendingUnapproved(t *testing.T) {
	l := newPending(t)
	assert.Equal(t, listing.StatusPending, l.Status)
	assert.False(t, l.Approved)
	assert.False(t, l.Rentable())
}

func TestNewListingValidation(t *testing.T) {
	base := listing.CreateParams{
		ID:        "lst-1",
		Owner:     "owner-1",
		Title:     "Abaya",
		DailyRate: money.Cents(2000),
		Deposit:   money.Cents(0),
		Location:  "Toronto",
		Now:       now,
	}

	p := base
	p.Title = "  "
	_, err := listing.NewListing(p)
	assert.ErrorIs(t, err, listing.ErrTitleRequired)

	p = base
	p.Location = ""
	_, err = listing.NewListing(p)
	assert.ErrorIs(t, err, listing.ErrLocationRequired)

	p = base
	p.DailyRate = money.Cents(0)
	_, err = listing.NewListing(p)
	assert.ErrorIs(t, err, listing.ErrDailyRate)

	p = base
	p.Deposit = money.Cents(-1)
	_, err = listing.NewListing(p)
	assert.ErrorIs(t, err, listing.ErrDeposit)

	p = base
	p.MinDays = 7
	p.MaxDays = 3
	_, err = listing.NewListing(p)
	assert.ErrorIs(t, err, listing.ErrRentalDaysRange)
}

func TestNewListingDefaults(t *testing.T) {
	l, err := listing.NewListing(listing.CreateParams{
		ID:        "lst-1",
		Owner:     "owner-1",
		Title:     "Abaya",
		DailyRate: money.Cents(2000),
		Deposit:   money.Cents(0),
		Location:  "Toronto",
		Now:       now,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, l.MinDays)
	assert.Equal(t, 30, l.MaxDays)
	assert.Equal(t, listing.ConditionGood, l.Condition)
	assert.Equal(t, listing.CategoryOther, l.Category)
}

func TestRentableRequiresActiveAndApproved(t *testing.T) {
	l := newPending(t)
	require.NoError(t, l.Approve(now))
	assert.Equal(t, listing.StatusActive, l.Status)
	assert.True(t, l.Rentable())

	require.NoError(t, l.Deactivate(now))
	assert.True(t, l.Approved)
	assert.False(t, l.Rentable())

	require.NoError(t, l.Reactivate(now))
	assert.True(t, l.Rentable())
}

func TestApproveOnlyFromPending(t *testing.T) {
	l := newPending(t)
	require.NoError(t, l.Approve(now))
	assert.ErrorIs(t, l.Approve(now), listing.ErrInvalidState)
}

func TestRejectClearsApproval(t *testing.T) {
	l := newPending(t)
	require.NoError(t, l.Approve(now))
	require.NoError(t, l.Deactivate(now))
	require.NoError(t, l.Reactivate(now))

	require.NoError(t, l.Reject("poor photos", now))
	assert.Equal(t, listing.StatusInactive, l.Status)
	assert.False(t, l.Approved)

	// reactivating an admin-rejected listing never restores rentability
	require.NoError(t, l.Reactivate(now))
	assert.False(t, l.Rentable())
}

func TestRentedRoundTrip(t *testing.T) {
	l := newPending(t)
	require.NoError(t, l.Approve(now))

	require.NoError(t, l.MarkRented(now))
	assert.Equal(t, listing.StatusRented, l.Status)
	assert.False(t, l.Rentable())
	assert.ErrorIs(t, l.Deactivate(now), listing.ErrInvalidState)

	require.NoError(t, l.MarkReturned(now))
	assert.True(t, l.Rentable())
	assert.ErrorIs(t, l.MarkReturned(now), listing.ErrInvalidState)
}

func TestUpdateKeepsModerationState(t *testing.T) {
	l := newPending(t)
	require.NoError(t, l.Approve(now))

	err := l.Update(listing.UpdateParams{
		Title:     "Updated abaya",
		DailyRate: money.Cents(2500),
		Deposit:   money.Cents(5000),
		Location:  "Toronto",
		MinDays:   1,
		MaxDays:   14,
		Now:       now,
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated abaya", l.Title)
	assert.Equal(t, listing.StatusActive, l.Status)
	assert.True(t, l.Approved)
}
