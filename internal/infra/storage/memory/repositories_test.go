package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/money"
	domainuser "kloset/internal/domain/user"
)

var now = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)

func rng(t *testing.T, start, end string) dates.Range {
	t.Helper()
	s, err := dates.ParseDay(start)
	require.NoError(t, err)
	e, err := dates.ParseDay(end)
	require.NoError(t, err)
	r, err := dates.NewRange(s, e)
	require.NoError(t, err)
	return r
}

func pendingRental(t *testing.T, id, listingID, renter string, r dates.Range) *domainrental.Rental {
	t.Helper()
	rnt, err := domainrental.NewRental(domainrental.CreateParams{
		ID:        domainrental.ID(id),
		ListingID: domainlisting.ID(listingID),
		Owner:     "owner-1",
		Renter:    domainuser.ID(renter),
		Range:     r,
		Now:       now,
	})
	require.NoError(t, err)
	return rnt
}

func TestRentalCreateRejectsOverlap(t *testing.T) {
	repo := NewRentalRepository()
	ctx := context.Background()

	first := pendingRental(t, "rnt-1", "lst-1", "renter-1", rng(t, "2024-01-10", "2024-01-12"))
	require.NoError(t, repo.Create(ctx, first))

	// boundary day collides
	second := pendingRental(t, "rnt-2", "lst-1", "renter-2", rng(t, "2024-01-12", "2024-01-14"))
	assert.ErrorIs(t, repo.Create(ctx, second), domainrental.ErrDatesUnavailable)

	// other listing is untouched
	elsewhere := pendingRental(t, "rnt-3", "lst-2", "renter-2", rng(t, "2024-01-10", "2024-01-12"))
	assert.NoError(t, repo.Create(ctx, elsewhere))

	// non-blocking statuses free the dates
	first.Status = domainrental.StatusCancelled
	require.NoError(t, repo.Save(ctx, first))
	again := pendingRental(t, "rnt-4", "lst-1", "renter-2", rng(t, "2024-01-10", "2024-01-12"))
	assert.NoError(t, repo.Create(ctx, again))
}

func TestRentalCreateRaceAdmitsExactlyOne(t *testing.T) {
	ctx := context.Background()
	const trials = 100

	for trial := 0; trial < trials; trial++ {
		repo := NewRentalRepository()
		r1 := pendingRental(t, "rnt-a", "lst-1", "renter-1", rng(t, "2024-01-10", "2024-01-12"))
		r2 := pendingRental(t, "rnt-b", "lst-1", "renter-2", rng(t, "2024-01-11", "2024-01-13"))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() { defer wg.Done(); errs[0] = repo.Create(ctx, r1) }()
		go func() { defer wg.Done(); errs[1] = repo.Create(ctx, r2) }()
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				require.ErrorIs(t, err, domainrental.ErrDatesUnavailable, "trial %d", trial)
			}
		}
		require.Equal(t, 1, succeeded, "trial %d: exactly one create must win", trial)
	}
}

func TestRentalReadsAreCopies(t *testing.T) {
	repo := NewRentalRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pendingRental(t, "rnt-1", "lst-1", "renter-1", rng(t, "2024-01-10", "2024-01-12"))))

	// mutating a loaded aggregate without saving must not touch the store
	loaded, err := repo.ByID(ctx, "rnt-1")
	require.NoError(t, err)
	require.NoError(t, loaded.Accept("owner-1", now))

	stored, err := repo.ByID(ctx, "rnt-1")
	require.NoError(t, err)
	assert.Equal(t, domainrental.StatusPending, stored.Status)
}

func TestListingReadsAreCopies(t *testing.T) {
	repo := NewListingRepository(nil)
	ctx := context.Background()

	l, err := domainlisting.NewListing(domainlisting.CreateParams{
		ID:        "lst-1",
		Owner:     "owner-1",
		Title:     "Silk hijab set",
		DailyRate: money.Cents(1000),
		Location:  "Toronto",
		Now:       now,
	})
	require.NoError(t, err)
	require.NoError(t, l.Approve(now))
	require.NoError(t, repo.Save(ctx, l))

	loaded, err := repo.ByID(ctx, "lst-1")
	require.NoError(t, err)
	require.NoError(t, loaded.Deactivate(now))
	loaded.Tags = append(loaded.Tags, "scratch")

	stored, err := repo.ByID(ctx, "lst-1")
	require.NoError(t, err)
	assert.Equal(t, domainlisting.StatusActive, stored.Status)
	assert.Empty(t, stored.Tags)
}

func TestRentalListForFiltersAndSorts(t *testing.T) {
	repo := NewRentalRepository()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		start := fmt.Sprintf("2024-03-%02d", 1+i*5)
		end := fmt.Sprintf("2024-03-%02d", 3+i*5)
		rnt := pendingRental(t, fmt.Sprintf("rnt-%d", i), "lst-1", "renter-1", rng(t, start, end))
		rnt.CreatedAt = now.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.Create(ctx, rnt))
	}

	asRenter, err := repo.ListFor(ctx, "renter-1", domainrental.ListParams{})
	require.NoError(t, err)
	require.Len(t, asRenter, 3)
	// newest first
	assert.EqualValues(t, "rnt-2", asRenter[0].ID)

	asOwner, err := repo.ListFor(ctx, "owner-1", domainrental.ListParams{AsOwner: true})
	require.NoError(t, err)
	assert.Len(t, asOwner, 3)

	wrongRole, err := repo.ListFor(ctx, "renter-1", domainrental.ListParams{AsOwner: true})
	require.NoError(t, err)
	assert.Empty(t, wrongRole)

	paged, err := repo.ListFor(ctx, "renter-1", domainrental.ListParams{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.EqualValues(t, "rnt-1", paged[0].ID)

	// the maintenance sweep matches every rental with an empty user id
	all, err := repo.ListFor(ctx, "", domainrental.ListParams{Statuses: []domainrental.Status{domainrental.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAvailabilitySaveIsCompareAndSwap(t *testing.T) {
	repo := NewAvailabilityRepository()
	ctx := context.Background()

	first, err := repo.Ledger(ctx, "lst-1")
	require.NoError(t, err)
	second, err := repo.Ledger(ctx, "lst-1")
	require.NoError(t, err)

	require.NoError(t, first.AddBlock("b1", rng(t, "2024-01-10", "2024-01-12"), domainavailability.ReasonBlocked, now))
	require.NoError(t, repo.Save(ctx, first))

	// the second copy is now stale
	require.NoError(t, second.AddBlock("b2", rng(t, "2024-02-01", "2024-02-02"), domainavailability.ReasonBlocked, now))
	assert.ErrorIs(t, repo.Save(ctx, second), ErrConcurrentUpdate)

	reloaded, err := repo.Ledger(ctx, "lst-1")
	require.NoError(t, err)
	require.Len(t, reloaded.Blocks, 1)
	assert.EqualValues(t, "b1", reloaded.Blocks[0].ID)
}

func TestReviewRepositoryUniqueKey(t *testing.T) {
	repo := NewReviewRepository()
	ctx := context.Background()

	rev := &domainreview.Review{
		ID:       "rev-1",
		RentalID: "rnt-1",
		Reviewer: "renter-1",
		Reviewee: "owner-1",
		Type:     domainreview.TypeRenterToOwner,
		Rating:   5,
	}
	require.NoError(t, repo.Save(ctx, rev))

	dup := *rev
	dup.ID = "rev-2"
	assert.ErrorIs(t, repo.Save(ctx, &dup), domainreview.ErrDuplicate)

	// the other direction on the same rental is a different key
	reverse := &domainreview.Review{
		ID:       "rev-3",
		RentalID: "rnt-1",
		Reviewer: "owner-1",
		Reviewee: "renter-1",
		Type:     domainreview.TypeOwnerToRenter,
		Rating:   4,
	}
	require.NoError(t, repo.Save(ctx, reverse))

	exists, err := repo.Exists(ctx, "rnt-1", "renter-1", domainreview.TypeRenterToOwner)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, "rnt-1", "renter-1", domainreview.TypeOwnerToRenter)
	require.NoError(t, err)
	assert.False(t, exists)

	mine, err := repo.ListForUser(ctx, "owner-1", domainreview.TypeRenterToOwner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestListingSearchVisibilityAndFilters(t *testing.T) {
	ledgers := NewAvailabilityRepository()
	repo := NewListingRepository(ledgers)
	ctx := context.Background()

	visible := newListing(t, "lst-1", "Navy abaya", 2000)
	require.NoError(t, visible.Approve(now))
	require.NoError(t, repo.Save(ctx, visible))

	hidden := newListing(t, "lst-2", "Pending thobe", 1500)
	require.NoError(t, repo.Save(ctx, hidden))

	pricey := newListing(t, "lst-3", "Gold set", 9000)
	require.NoError(t, pricey.Approve(now))
	require.NoError(t, repo.Save(ctx, pricey))

	res, err := repo.Search(ctx, domainlisting.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	res, err = repo.Search(ctx, domainlisting.SearchParams{Query: "navy"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.EqualValues(t, "lst-1", res.Items[0].ID)

	res, err = repo.Search(ctx, domainlisting.SearchParams{PriceMaxCents: 5000})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)

	res, err = repo.Search(ctx, domainlisting.SearchParams{Sort: domainlisting.SortByPriceDesc})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.EqualValues(t, "lst-3", res.Items[0].ID)
}

func TestListingSearchAvailabilityWindow(t *testing.T) {
	ledgers := NewAvailabilityRepository()
	repo := NewListingRepository(ledgers)
	ctx := context.Background()

	l := newListing(t, "lst-1", "Navy abaya", 2000)
	require.NoError(t, l.Approve(now))
	require.NoError(t, repo.Save(ctx, l))

	ledger, err := ledgers.Ledger(ctx, "lst-1")
	require.NoError(t, err)
	require.NoError(t, ledger.AddBlock("b1", rng(t, "2024-01-10", "2024-01-12"), domainavailability.ReasonBlocked, now))
	require.NoError(t, ledgers.Save(ctx, ledger))

	from, _ := dates.ParseDay("2024-01-11")
	to, _ := dates.ParseDay("2024-01-13")
	res, err := repo.Search(ctx, domainlisting.SearchParams{AvailableFrom: from, AvailableTo: to})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total)

	from, _ = dates.ParseDay("2024-01-13")
	to, _ = dates.ParseDay("2024-01-15")
	res, err = repo.Search(ctx, domainlisting.SearchParams{AvailableFrom: from, AvailableTo: to})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func newListing(t *testing.T, id, title string, rateCents int64) *domainlisting.Listing {
	t.Helper()
	l, err := domainlisting.NewListing(domainlisting.CreateParams{
		ID:        domainlisting.ID(id),
		Owner:     "owner-1",
		Title:     title,
		DailyRate: money.Cents(rateCents),
		Deposit:   money.Cents(0),
		Location:  "Toronto",
		Now:       now,
	})
	require.NoError(t, err)
	return l
}
