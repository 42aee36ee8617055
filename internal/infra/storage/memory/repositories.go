package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/fault"
	domainuser "kloset/internal/domain/user"
)

// ErrConcurrentUpdate signals a version conflict on save.
var ErrConcurrentUpdate = fault.Conflict("memory: concurrent update")

// ListingRepository is an in-memory implementation used in tests and the
// default dev mode. Reads hand out deep copies: the store only ever
// changes through Save, so a handler that mutates an aggregate and then
// bails out leaves nothing behind.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlisting.ID]*domainlisting.Listing

	// ledgers backs the availability filter in Search.
	ledgers *AvailabilityRepository
}

func NewListingRepository(ledgers *AvailabilityRepository) *ListingRepository {
	return &ListingRepository{
		items:   make(map[domainlisting.ID]*domainlisting.Listing),
		ledgers: ledgers,
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlisting.ErrNotFound
	}
	return cloneListing(listing), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlisting.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	listing.Version++
	r.items[listing.ID] = cloneListing(listing)
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlisting.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return domainlisting.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// Search filters, sorts and pages the catalog.
func (r *ListingRepository) Search(ctx context.Context, params domainlisting.SearchParams) (domainlisting.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domainlisting.Listing, 0, len(r.items))
	for _, listing := range r.items {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return domainlisting.SearchResult{}, ctx.Err()
			default:
			}
		}

		if !opts.IncludeHidden && !listing.Rentable() {
			continue
		}
		if opts.Owner != "" && string(listing.Owner) != opts.Owner {
			continue
		}
		if opts.Status != "" && listing.Status != opts.Status {
			continue
		}
		if opts.Category != "" && listing.Category != opts.Category {
			continue
		}
		if opts.Condition != "" && listing.Condition != opts.Condition {
			continue
		}
		if opts.Size != "" && !strings.EqualFold(listing.Size, opts.Size) {
			continue
		}
		if opts.Location != "" && !strings.Contains(strings.ToLower(listing.Location), opts.Location) {
			continue
		}
		if opts.Query != "" && !matchQuery(listing, opts.Query) {
			continue
		}
		if opts.PriceMinCents > 0 && listing.DailyRate.Cents < opts.PriceMinCents {
			continue
		}
		if opts.PriceMaxCents > 0 && listing.DailyRate.Cents > opts.PriceMaxCents {
			continue
		}
		if opts.Cleaned != nil && listing.Cleaned != *opts.Cleaned {
			continue
		}
		if opts.SmokeFree != nil && listing.SmokeFree != *opts.SmokeFree {
			continue
		}
		if opts.WomenOnlyPickup != nil && listing.WomenOnlyPickup != *opts.WomenOnlyPickup {
			continue
		}
		if opts.Modest != nil && listing.Modest != *opts.Modest {
			continue
		}
		if !tokensMatch(listing.Tags, opts.Tags) {
			continue
		}
		if !r.availableFor(ctx, listing.ID, opts.AvailableFrom, opts.AvailableTo) {
			continue
		}
		matches = append(matches, cloneListing(listing))
	}

	sort.Slice(matches, func(i, j int) bool {
		switch opts.Sort {
		case domainlisting.SortByPriceAsc:
			if matches[i].DailyRate.Cents == matches[j].DailyRate.Cents {
				return matches[i].CreatedAt.After(matches[j].CreatedAt)
			}
			return matches[i].DailyRate.Cents < matches[j].DailyRate.Cents
		case domainlisting.SortByPriceDesc:
			if matches[i].DailyRate.Cents == matches[j].DailyRate.Cents {
				return matches[i].CreatedAt.After(matches[j].CreatedAt)
			}
			return matches[i].DailyRate.Cents > matches[j].DailyRate.Cents
		case domainlisting.SortByViews:
			if matches[i].ViewCount == matches[j].ViewCount {
				return matches[i].CreatedAt.After(matches[j].CreatedAt)
			}
			return matches[i].ViewCount > matches[j].ViewCount
		default:
			if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
				return matches[i].ID < matches[j].ID
			}
			return matches[i].CreatedAt.After(matches[j].CreatedAt)
		}
	})

	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	return domainlisting.SearchResult{
		Items: matches[start:end],
		Total: total,
	}, nil
}

func (r *ListingRepository) availableFor(ctx context.Context, id domainlisting.ID, from, to dates.Day) bool {
	if from.IsZero() || to.IsZero() || r.ledgers == nil {
		return true
	}
	wanted, err := dates.NewRange(from, to)
	if err != nil {
		return true
	}
	ledger, err := r.ledgers.Ledger(ctx, id)
	if err != nil {
		return true
	}
	return ledger.IsFree(wanted)
}

func matchQuery(listing *domainlisting.Listing, needle string) bool {
	full := strings.ToLower(strings.Join([]string{
		listing.Title,
		listing.Description,
		listing.Brand,
		listing.Color,
		strings.Join(listing.Tags, " "),
	}, " "))
	return strings.Contains(full, needle)
}

func tokensMatch(values []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	if len(values) == 0 {
		return false
	}
	index := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = strings.TrimSpace(strings.ToLower(value))
		if value == "" {
			continue
		}
		index[value] = struct{}{}
	}
	for _, token := range required {
		if _, ok := index[token]; !ok {
			return false
		}
	}
	return true
}

// AvailabilityRepository keeps per-listing ledgers in memory. Save uses a
// version compare-and-swap: a stale writer gets ErrConcurrentUpdate.
type AvailabilityRepository struct {
	mu      sync.Mutex
	ledgers map[domainlisting.ID]*domainavailability.Ledger
}

func NewAvailabilityRepository() *AvailabilityRepository {
	return &AvailabilityRepository{
		ledgers: make(map[domainlisting.ID]*domainavailability.Ledger),
	}
}

// Ledger retrieves a listing's ledger, lazily creating an empty one.
func (r *AvailabilityRepository) Ledger(ctx context.Context, id domainlisting.ID) (*domainavailability.Ledger, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ledger, ok := r.ledgers[id]; ok {
		return cloneLedger(ledger), nil
	}
	ledger := domainavailability.NewLedger(id)
	r.ledgers[id] = ledger
	return cloneLedger(ledger), nil
}

func (r *AvailabilityRepository) Save(ctx context.Context, ledger *domainavailability.Ledger) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.ledgers[ledger.ListingID]; ok && current.Version != ledger.Version {
		return ErrConcurrentUpdate
	}
	stored := cloneLedger(ledger)
	stored.Version++
	r.ledgers[ledger.ListingID] = stored
	ledger.Version = stored.Version
	return nil
}

func cloneLedger(l *domainavailability.Ledger) *domainavailability.Ledger {
	out := &domainavailability.Ledger{
		ListingID: l.ListingID,
		Blocks:    append([]domainavailability.Block(nil), l.Blocks...),
		Version:   l.Version,
	}
	return out
}

func cloneListing(l *domainlisting.Listing) *domainlisting.Listing {
	out := *l
	out.Tags = append([]string(nil), l.Tags...)
	out.Images = append([]domainlisting.Image(nil), l.Images...)
	if l.SellPrice != nil {
		price := *l.SellPrice
		out.SellPrice = &price
	}
	out.ClearEvents()
	return &out
}

func cloneRental(r *domainrental.Rental) *domainrental.Rental {
	out := *r
	if r.PickedUpAt != nil {
		at := *r.PickedUpAt
		out.PickedUpAt = &at
	}
	if r.ReturnedAt != nil {
		at := *r.ReturnedAt
		out.ReturnedAt = &at
	}
	out.ClearEvents()
	return &out
}

// RentalRepository stores rentals in memory. Create is the atomic
// check-then-insert: the overlap re-check and the write happen under one
// lock, so two racing overlapping requests cannot both succeed. Reads hand
// out deep copies for the same reason as ListingRepository.
type RentalRepository struct {
	mu    sync.Mutex
	items map[domainrental.ID]*domainrental.Rental
}

func NewRentalRepository() *RentalRepository {
	return &RentalRepository{items: make(map[domainrental.ID]*domainrental.Rental)}
}

func (r *RentalRepository) ByID(ctx context.Context, id domainrental.ID) (*domainrental.Rental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rental, ok := r.items[id]
	if !ok {
		return nil, domainrental.ErrNotFound
	}
	return cloneRental(rental), nil
}

func (r *RentalRepository) Create(ctx context.Context, rental *domainrental.Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[rental.ID]; exists {
		return fault.Conflict("memory: rental id already exists")
	}
	for _, existing := range r.items {
		if existing.ListingID != rental.ListingID {
			continue
		}
		if !existing.Status.Blocking() {
			continue
		}
		if existing.Range.Overlaps(rental.Range) {
			return domainrental.ErrDatesUnavailable
		}
	}
	rental.Version++
	r.items[rental.ID] = cloneRental(rental)
	return nil
}

func (r *RentalRepository) Save(ctx context.Context, rental *domainrental.Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rental.Version++
	r.items[rental.ID] = cloneRental(rental)
	return nil
}

func (r *RentalRepository) ListFor(ctx context.Context, userID domainuser.ID, params domainrental.ListParams) ([]*domainrental.Rental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domainrental.Rental, 0)
	for _, rental := range r.items {
		if userID != "" {
			if params.AsOwner && rental.Owner != userID {
				continue
			}
			if !params.AsOwner && rental.Renter != userID {
				continue
			}
		}
		if len(params.Statuses) > 0 && !statusIncluded(rental.Status, params.Statuses) {
			continue
		}
		matches = append(matches, rental)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if params.Offset > 0 || params.Limit > 0 {
		start := params.Offset
		if start > len(matches) {
			start = len(matches)
		}
		end := len(matches)
		if params.Limit > 0 && start+params.Limit < end {
			end = start + params.Limit
		}
		matches = matches[start:end]
	}
	result := make([]*domainrental.Rental, len(matches))
	for i, m := range matches {
		result[i] = cloneRental(m)
	}
	return result, nil
}

func (r *RentalRepository) OverlappingFor(ctx context.Context, listingID domainlisting.ID, wanted dates.Range) ([]*domainrental.Rental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domainrental.Rental, 0)
	for _, rental := range r.items {
		if rental.ListingID != listingID {
			continue
		}
		if !rental.Status.Blocking() {
			continue
		}
		if rental.Range.Overlaps(wanted) {
			matches = append(matches, cloneRental(rental))
		}
	}
	return matches, nil
}

func (r *RentalRepository) BlockingForListing(ctx context.Context, listingID domainlisting.ID) ([]*domainrental.Rental, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*domainrental.Rental, 0)
	for _, rental := range r.items {
		if rental.ListingID == listingID && rental.Status.Blocking() {
			matches = append(matches, cloneRental(rental))
		}
	}
	return matches, nil
}

func statusIncluded(status domainrental.Status, allowed []domainrental.Status) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}

// ReviewRepository keeps reviews indexed by the unique
// (rental, reviewer, type) key.
type ReviewRepository struct {
	mu     sync.RWMutex
	byID   map[domainreview.ID]*domainreview.Review
	byKey  map[string]domainreview.ID
}

func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{
		byID:  make(map[domainreview.ID]*domainreview.Review),
		byKey: make(map[string]domainreview.ID),
	}
}

func (r *ReviewRepository) ByID(ctx context.Context, id domainreview.ID) (*domainreview.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	review, ok := r.byID[id]
	if !ok {
		return nil, domainreview.ErrNotFound
	}
	return review, nil
}

func (r *ReviewRepository) Save(ctx context.Context, review *domainreview.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reviewKey(review.RentalID, review.Reviewer, review.Type)
	if existingID, ok := r.byKey[key]; ok && existingID != review.ID {
		return domainreview.ErrDuplicate
	}
	r.byKey[key] = review.ID
	r.byID[review.ID] = review
	return nil
}

func (r *ReviewRepository) Exists(ctx context.Context, rentalID domainrental.ID, reviewer domainuser.ID, t domainreview.Type) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byKey[reviewKey(rentalID, reviewer, t)]
	return ok, nil
}

func (r *ReviewRepository) ListForUser(ctx context.Context, reviewee domainuser.ID, t domainreview.Type) ([]*domainreview.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainreview.Review, 0)
	for _, review := range r.byID {
		if review.Reviewee != reviewee {
			continue
		}
		if t != "" && review.Type != t {
			continue
		}
		matches = append(matches, review)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (r *ReviewRepository) ListForRental(ctx context.Context, rentalID domainrental.ID) ([]*domainreview.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainreview.Review, 0)
	for _, review := range r.byID {
		if review.RentalID == rentalID {
			matches = append(matches, review)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func reviewKey(rentalID domainrental.ID, reviewer domainuser.ID, t domainreview.Type) string {
	return string(rentalID) + ":" + string(reviewer) + ":" + string(t)
}

var _ domainlisting.Repository = (*ListingRepository)(nil)
var _ domainavailability.Repository = (*AvailabilityRepository)(nil)
var _ domainrental.Repository = (*RentalRepository)(nil)
var _ domainreview.Repository = (*ReviewRepository)(nil)
