package rental_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kloset/internal/domain/rental"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/fault"
)

var now = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func testRange(t *testing.T) dates.Range {
	t.Helper()
	start, err := dates.ParseDay("2024-01-10")
	require.NoError(t, err)
	end, err := dates.ParseDay("2024-01-12")
	require.NoError(t, err)
	r, err := dates.NewRange(start, end)
	require.NoError(t, err)
	return r
}

func newPending(t *testing.T) *rental.Rental {
	t.Helper()
	r, err := rental.NewRental(rental.CreateParams{
		ID:        "rnt-1",
		ListingID: "lst-1",
		Owner:     "owner-1",
		Renter:    "renter-1",
		Range:     testRange(t),
		Now:       now,
	})
	require.NoError(t, err)
	return r
}

func TestNewRentalRejectsOwnListing(t *testing.T) {
	_, err := rental.NewRental(rental.CreateParams{
		ID:        "rnt-1",
		ListingID: "lst-1",
		Owner:     "owner-1",
		Renter:    "owner-1",
		Range:     testRange(t),
		Now:       now,
	})
	assert.ErrorIs(t, err, rental.ErrOwnListing)
	// self-rental is a permission problem, not a malformed request
	assert.Equal(t, fault.KindForbidden, fault.KindOf(err))
}

func TestHappyPath(t *testing.T) {
	r := newPending(t)
	assert.Equal(t, rental.StatusPending, r.Status)

	require.NoError(t, r.Accept("owner-1", now))
	require.NoError(t, r.MarkPickedUp("renter-1", now))
	require.NotNil(t, r.PickedUpAt)
	require.NoError(t, r.MarkReturned("owner-1", now))
	require.NotNil(t, r.ReturnedAt)
	require.NoError(t, r.Complete("owner-1", now))
	assert.Equal(t, rental.StatusCompleted, r.Status)
	assert.True(t, r.Status.Terminal())
}

func TestOwnerOnlyDecisions(t *testing.T) {
	r := newPending(t)
	assert.ErrorIs(t, r.Accept("renter-1", now), rental.ErrOnlyOwner)
	assert.ErrorIs(t, r.Reject("renter-1", "", now), rental.ErrOnlyOwner)
	assert.Equal(t, rental.StatusPending, r.Status)

	require.NoError(t, r.Accept("owner-1", now))
	require.NoError(t, r.MarkPickedUp("renter-1", now))
	require.NoError(t, r.MarkReturned("renter-1", now))
	assert.ErrorIs(t, r.Complete("renter-1", now), rental.ErrOnlyOwner)
	require.NoError(t, r.Complete("owner-1", now))
}

func TestCancelParticipantsOnly(t *testing.T) {
	r := newPending(t)
	assert.ErrorIs(t, r.Cancel("stranger", "", now), rental.ErrNotParticipant)

	require.NoError(t, r.Cancel("renter-1", "changed plans", now))
	assert.Equal(t, rental.StatusCancelled, r.Status)
	assert.Equal(t, "changed plans", r.CancelReason)
}

func TestCancelAfterPickupRefused(t *testing.T) {
	r := newPending(t)
	require.NoError(t, r.Accept("owner-1", now))
	require.NoError(t, r.MarkPickedUp("renter-1", now))
	assert.ErrorIs(t, r.Cancel("renter-1", "", now), rental.ErrTransition)
}

func TestTransitionMatrix(t *testing.T) {
	type step func(r *rental.Rental) error
	accept := func(r *rental.Rental) error { return r.Accept("owner-1", now) }
	reject := func(r *rental.Rental) error { return r.Reject("owner-1", "", now) }
	pickup := func(r *rental.Rental) error { return r.MarkPickedUp("renter-1", now) }
	ret := func(r *rental.Rental) error { return r.MarkReturned("renter-1", now) }
	complete := func(r *rental.Rental) error { return r.Complete("owner-1", now) }
	cancel := func(r *rental.Rental) error { return r.Cancel("renter-1", "", now) }

	advance := map[rental.Status][]step{
		rental.StatusAccepted:  {accept},
		rental.StatusPickedUp:  {accept, pickup},
		rental.StatusReturned:  {accept, pickup, ret},
		rental.StatusCompleted: {accept, pickup, ret, complete},
		rental.StatusRejected:  {reject},
		rental.StatusCancelled: {cancel},
	}

	cases := []struct {
		from    rental.Status
		attempt step
		wantOK  bool
	}{
		{rental.StatusPending, accept, true},
		{rental.StatusPending, reject, true},
		{rental.StatusPending, cancel, true},
		{rental.StatusPending, pickup, false},
		{rental.StatusPending, ret, false},
		{rental.StatusPending, complete, false},
		{rental.StatusAccepted, pickup, true},
		{rental.StatusAccepted, cancel, true},
		{rental.StatusAccepted, accept, false},
		{rental.StatusAccepted, complete, false},
		{rental.StatusPickedUp, ret, true},
		{rental.StatusPickedUp, cancel, false},
		{rental.StatusPickedUp, complete, false},
		{rental.StatusReturned, complete, true},
		{rental.StatusReturned, cancel, false},
		{rental.StatusCompleted, cancel, false},
		{rental.StatusCompleted, complete, false},
		{rental.StatusRejected, accept, false},
		{rental.StatusCancelled, accept, false},
	}

	for _, tc := range cases {
		r := newPending(t)
		for _, s := range advance[tc.from] {
			require.NoError(t, s(r))
		}
		require.Equal(t, tc.from, r.Status)

		err := tc.attempt(r)
		if tc.wantOK {
			assert.NoError(t, err, "from %s", tc.from)
		} else {
			assert.ErrorIs(t, err, rental.ErrTransition, "from %s", tc.from)
			assert.Equal(t, tc.from, r.Status, "failed transition must not mutate")
		}
	}
}

func TestDisputedIsUnreachable(t *testing.T) {
	// disputed is defined but no transition targets it, and nothing leaves it
	assert.True(t, rental.StatusDisputed.Terminal())
	assert.False(t, rental.StatusDisputed.Blocking())
}

func TestBlockingStatuses(t *testing.T) {
	blocking := map[rental.Status]bool{
		rental.StatusPending:  true,
		rental.StatusAccepted: true,
		rental.StatusPickedUp: true,
	}
	all := []rental.Status{
		rental.StatusPending, rental.StatusAccepted, rental.StatusRejected,
		rental.StatusPickedUp, rental.StatusReturned, rental.StatusCompleted,
		rental.StatusCancelled, rental.StatusDisputed,
	}
	for _, s := range all {
		assert.Equal(t, blocking[s], s.Blocking(), "status %s", s)
	}
}

func TestIsLate(t *testing.T) {
	r := newPending(t)
	require.NoError(t, r.Accept("owner-1", now))
	require.NoError(t, r.MarkPickedUp("renter-1", now))

	assert.False(t, r.IsLate(time.Date(2024, 1, 12, 23, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, r.DaysLate(time.Date(2024, 1, 12, 23, 0, 0, 0, time.UTC)))
	assert.True(t, r.IsLate(time.Date(2024, 1, 13, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, r.DaysLate(time.Date(2024, 1, 13, 1, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, r.DaysLate(time.Date(2024, 1, 15, 1, 0, 0, 0, time.UTC)))

	require.NoError(t, r.MarkReturned("renter-1", now))
	assert.False(t, r.IsLate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, r.DaysLate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))
}
