package rental

import (
	"context"
	"strings"
	"time"

	"kloset/internal/domain/listing"
	"kloset/internal/domain/pricing"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/events"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/user"
)

var (
	ErrNotFound         = fault.NotFound("rental: not found")
	ErrNotParticipant   = fault.Forbidden("rental: caller is not a participant")
	ErrOnlyOwner        = fault.Forbidden("rental: only the owner may do this")
	ErrTransition       = fault.InvalidState("rental: transition not allowed from current status")
	ErrDatesUnavailable = fault.Conflict("rental: requested dates are no longer available")
	ErrOwnListing       = fault.Forbidden("rental: cannot rent your own listing")
)

type ID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusPickedUp  Status = "picked_up"
	StatusReturned  Status = "returned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	// StatusDisputed is reserved for a moderation flow that is not wired to
	// any transition yet; no rental can reach it today.
	StatusDisputed Status = "disputed"
)

// transitions is the closed adjacency list of the state machine. Anything
// absent here is rejected with ErrTransition; there is no wildcard path.
var transitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted: {StatusPickedUp, StatusCancelled},
	StatusPickedUp: {StatusReturned},
	StatusReturned: {StatusCompleted},
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition leaves the status.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// BlockingStatuses are the rental statuses that hold the listing's dates: a
// new request overlapping any rental in one of these must be refused.
var BlockingStatuses = []Status{StatusPending, StatusAccepted, StatusPickedUp}

func (s Status) Blocking() bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentCaptured   PaymentStatus = "captured"
	PaymentReleased   PaymentStatus = "released"
	PaymentRefunded   PaymentStatus = "refunded"
)

type Rental struct {
	ID        ID
	ListingID listing.ID
	Owner     user.ID
	Renter    user.ID
	Range     dates.Range

	// Cost is snapshotted at request time; later listing edits never change it.
	Cost pricing.Breakdown

	Status        Status
	PaymentStatus PaymentStatus
	PaymentRef    string
	ContractKey   string

	Notes        string
	CancelReason string
	CancelledBy  user.ID

	PickedUpAt *time.Time
	ReturnedAt *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	events.EventRecorder
}

// ListParams filter a participant's rentals.
type ListParams struct {
	AsOwner  bool
	Statuses []Status
	Limit    int
	Offset   int
}

// Repository persists rentals. Create is the write that enforces the
// no-double-booking rule: inside one atomic step it must verify that no
// rental in a blocking status overlaps the same listing and dates, then
// insert. Two racing creates for overlapping ranges must resolve to exactly
// one success; the loser gets ErrDatesUnavailable.
type Repository interface {
	ByID(ctx context.Context, id ID) (*Rental, error)
	Create(ctx context.Context, rental *Rental) error
	Save(ctx context.Context, rental *Rental) error
	// ListFor returns the user's rentals in the requested role, newest
	// first. An empty userID matches every rental; maintenance jobs use it.
	ListFor(ctx context.Context, userID user.ID, params ListParams) ([]*Rental, error)
	// OverlappingFor returns rentals in blocking statuses for the listing
	// whose ranges intersect r; used for calendar views and pre-checks.
	OverlappingFor(ctx context.Context, listingID listing.ID, r dates.Range) ([]*Rental, error)
	// BlockingForListing returns every rental in a blocking status that
	// references the listing, regardless of dates.
	BlockingForListing(ctx context.Context, listingID listing.ID) ([]*Rental, error)
}

type CreateParams struct {
	ID        ID
	ListingID listing.ID
	Owner     user.ID
	Renter    user.ID
	Range     dates.Range
	Cost      pricing.Breakdown
	Notes     string
	Now       time.Time
}

// NewRental builds a pending request. The availability and rentability
// preconditions are the caller's job; renter identity is not.
func NewRental(params CreateParams) (*Rental, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, fault.Validation("rental: id is required")
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, fault.Validation("rental: listing is required")
	}
	if strings.TrimSpace(string(params.Renter)) == "" {
		return nil, fault.Validation("rental: renter is required")
	}
	if params.Renter == params.Owner {
		return nil, ErrOwnListing
	}
	if err := params.Range.Validate(); err != nil {
		return nil, fault.Wrap(fault.KindValidation, "rental: invalid date range", err)
	}
	now := params.Now.UTC()

	r := &Rental{
		ID:            params.ID,
		ListingID:     params.ListingID,
		Owner:         params.Owner,
		Renter:        params.Renter,
		Range:         params.Range,
		Cost:          params.Cost,
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		Notes:         strings.TrimSpace(params.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.Record(RequestedEvent{RentalID: r.ID, ListingID: r.ListingID, Renter: r.Renter, Range: r.Range, At: now})
	return r, nil
}

// Participant reports whether the user is the owner or the renter.
func (r *Rental) Participant(id user.ID) bool {
	return id == r.Owner || id == r.Renter
}

// Accept approves a pending request; owner only.
func (r *Rental) Accept(actor user.ID, now time.Time) error {
	if actor != r.Owner {
		return ErrOnlyOwner
	}
	if !canTransition(r.Status, StatusAccepted) {
		return ErrTransition
	}
	r.Status = StatusAccepted
	r.touch(now)
	r.Record(AcceptedEvent{RentalID: r.ID, ListingID: r.ListingID, Range: r.Range, At: r.UpdatedAt})
	return nil
}

// Reject declines a pending request; owner only. Any payment hold is
// released by the caller.
func (r *Rental) Reject(actor user.ID, reason string, now time.Time) error {
	if actor != r.Owner {
		return ErrOnlyOwner
	}
	if !canTransition(r.Status, StatusRejected) {
		return ErrTransition
	}
	r.Status = StatusRejected
	r.CancelReason = strings.TrimSpace(reason)
	r.touch(now)
	r.Record(RejectedEvent{RentalID: r.ID, ListingID: r.ListingID, Reason: r.CancelReason, At: r.UpdatedAt})
	return nil
}

// Cancel withdraws a rental before pickup; either participant may call it.
func (r *Rental) Cancel(actor user.ID, reason string, now time.Time) error {
	if !r.Participant(actor) {
		return ErrNotParticipant
	}
	if !canTransition(r.Status, StatusCancelled) {
		return ErrTransition
	}
	r.Status = StatusCancelled
	r.CancelReason = strings.TrimSpace(reason)
	r.CancelledBy = actor
	r.touch(now)
	r.Record(CancelledEvent{RentalID: r.ID, ListingID: r.ListingID, By: actor, Reason: r.CancelReason, At: r.UpdatedAt})
	return nil
}

// MarkPickedUp records the handover; either participant may confirm it.
func (r *Rental) MarkPickedUp(actor user.ID, now time.Time) error {
	if !r.Participant(actor) {
		return ErrNotParticipant
	}
	if !canTransition(r.Status, StatusPickedUp) {
		return ErrTransition
	}
	r.Status = StatusPickedUp
	at := now.UTC()
	r.PickedUpAt = &at
	r.touch(now)
	r.Record(PickedUpEvent{RentalID: r.ID, ListingID: r.ListingID, At: at})
	return nil
}

// MarkReturned records the item coming back; either participant may confirm.
func (r *Rental) MarkReturned(actor user.ID, now time.Time) error {
	if !r.Participant(actor) {
		return ErrNotParticipant
	}
	if !canTransition(r.Status, StatusReturned) {
		return ErrTransition
	}
	r.Status = StatusReturned
	at := now.UTC()
	r.ReturnedAt = &at
	r.touch(now)
	r.Record(ReturnedEvent{RentalID: r.ID, ListingID: r.ListingID, At: at})
	return nil
}

// Complete closes a returned rental after the owner inspects the item;
// owner only. Completion is what unlocks reviews.
func (r *Rental) Complete(actor user.ID, now time.Time) error {
	if actor != r.Owner {
		return ErrOnlyOwner
	}
	if !canTransition(r.Status, StatusCompleted) {
		return ErrTransition
	}
	r.Status = StatusCompleted
	r.touch(now)
	r.Record(CompletedEvent{RentalID: r.ID, ListingID: r.ListingID, Owner: r.Owner, Renter: r.Renter, At: r.UpdatedAt})
	return nil
}

// MarkAuthorized records a successful payment hold.
func (r *Rental) MarkAuthorized(ref string) {
	r.PaymentStatus = PaymentAuthorized
	r.PaymentRef = ref
}

// MarkCaptured records the hold being charged on acceptance.
func (r *Rental) MarkCaptured() {
	r.PaymentStatus = PaymentCaptured
}

// MarkReleased records the escrowed charge being paid out on completion.
func (r *Rental) MarkReleased() {
	r.PaymentStatus = PaymentReleased
}

// MarkRefunded records the hold or charge being returned.
func (r *Rental) MarkRefunded() {
	r.PaymentStatus = PaymentRefunded
}

// AttachContract stores the key of the rendered rental agreement.
func (r *Rental) AttachContract(key string) {
	r.ContractKey = key
}

// IsLate reports whether a picked-up item is out past its end date.
func (r *Rental) IsLate(now time.Time) bool {
	if r.Status != StatusPickedUp {
		return false
	}
	return dates.DayOf(now).After(r.Range.End)
}

// DaysLate counts full days past the end date; zero when not late.
func (r *Rental) DaysLate(now time.Time) int {
	if !r.IsLate(now) {
		return 0
	}
	return r.Range.End.DaysUntil(dates.DayOf(now))
}

func (r *Rental) touch(now time.Time) {
	r.UpdatedAt = now.UTC()
}
