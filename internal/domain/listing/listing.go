package listing

import (
	"context"
	"strings"
	"time"

	"kloset/internal/domain/shared/events"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/shared/money"
	"kloset/internal/domain/user"
)

var (
	ErrTitleRequired    = fault.Validation("listing: title is required")
	ErrLocationRequired = fault.Validation("listing: location is required")
	ErrDailyRate        = fault.Validation("listing: daily rate must be positive")
	ErrDeposit          = fault.Validation("listing: deposit cannot be negative")
	ErrSellPrice        = fault.Validation("listing: sell price cannot be negative")
	ErrRentalDaysRange  = fault.Validation("listing: min rental days must be <= max rental days")
	ErrInvalidState     = fault.InvalidState("listing: invalid state transition")
	ErrNotRentable      = fault.InvalidState("listing: not available for rental")
	ErrNotFound         = fault.NotFound("listing: not found")
	ErrNotOwner         = fault.Forbidden("listing: caller is not the owner")
	ErrHasActiveRentals = fault.Conflict("listing: rentals in progress reference this listing")
)

type ID string

type Status string

const (
	// StatusPending awaits admin approval.
	StatusPending Status = "pending"
	// StatusActive is approved and rentable.
	StatusActive Status = "active"
	// StatusRented is mid-rental; set by the rental state machine on pickup.
	StatusRented Status = "rented"
	// StatusInactive is deactivated by the owner or rejected by an admin.
	StatusInactive Status = "inactive"
)

type Condition string

const (
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
)

type Category string

const (
	CategoryAbaya       Category = "abaya"
	CategoryThobe       Category = "thobe"
	CategoryHijab       Category = "hijab"
	CategoryJewelry     Category = "jewelry"
	CategoryDecor       Category = "decor"
	CategoryPrayerItems Category = "prayer_items"
	CategoryEventWear   Category = "event_wear"
	CategoryKids        Category = "kids"
	CategoryOther       Category = "other"
)

type Image struct {
	URL          string
	DisplayOrder int
}

type Listing struct {
	ID          ID
	Owner       user.ID
	Title       string
	Description string
	Category    Category
	Subcategory string
	Size        string
	Color       string
	Brand       string
	Condition   Condition

	DailyRate money.Money
	Deposit   money.Money
	SellPrice *money.Money
	MinDays   int
	MaxDays   int

	Cleaned         bool
	SmokeFree       bool
	PetFree         bool
	Modest          bool
	Tags            []string
	Location        string
	Latitude        float64
	Longitude       float64
	PickupNotes     string
	WomenOnlyPickup bool

	Status    Status
	Approved  bool
	ViewCount int64
	Images    []Image

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ID) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateParams struct {
	ID          ID
	Owner       user.ID
	Title       string
	Description string
	Category    Category
	Subcategory string
	Size        string
	Color       string
	Brand       string
	Condition   Condition

	DailyRate money.Money
	Deposit   money.Money
	SellPrice *money.Money
	MinDays   int
	MaxDays   int

	Cleaned         bool
	SmokeFree       bool
	PetFree         bool
	Modest          bool
	Tags            []string
	Location        string
	Latitude        float64
	Longitude       float64
	PickupNotes     string
	WomenOnlyPickup bool
	Images          []Image

	Now time.Time
}

// NewListing creates a submission awaiting approval: status pending, not approved.
func NewListing(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, fault.Validation("listing: id is required")
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, fault.Validation("listing: owner is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(params.Location) == "" {
		return nil, ErrLocationRequired
	}
	if params.DailyRate.Cents <= 0 {
		return nil, ErrDailyRate
	}
	if params.Deposit.IsNegative() {
		return nil, ErrDeposit
	}
	if params.SellPrice != nil && params.SellPrice.IsNegative() {
		return nil, ErrSellPrice
	}
	minDays, maxDays := params.MinDays, params.MaxDays
	if minDays < 1 {
		minDays = 1
	}
	if maxDays < 1 {
		maxDays = 30
	}
	if minDays > maxDays {
		return nil, ErrRentalDaysRange
	}
	condition := params.Condition
	if condition == "" {
		condition = ConditionGood
	}
	category := params.Category
	if category == "" {
		category = CategoryOther
	}
	now := params.Now.UTC()

	l := &Listing{
		ID:              params.ID,
		Owner:           params.Owner,
		Title:           strings.TrimSpace(params.Title),
		Description:     strings.TrimSpace(params.Description),
		Category:        category,
		Subcategory:     strings.TrimSpace(params.Subcategory),
		Size:            strings.TrimSpace(params.Size),
		Color:           strings.TrimSpace(params.Color),
		Brand:           strings.TrimSpace(params.Brand),
		Condition:       condition,
		DailyRate:       params.DailyRate,
		Deposit:         params.Deposit,
		SellPrice:       params.SellPrice,
		MinDays:         minDays,
		MaxDays:         maxDays,
		Cleaned:         params.Cleaned,
		SmokeFree:       params.SmokeFree,
		PetFree:         params.PetFree,
		Modest:          params.Modest,
		Tags:            append([]string(nil), params.Tags...),
		Location:        strings.TrimSpace(params.Location),
		Latitude:        params.Latitude,
		Longitude:       params.Longitude,
		PickupNotes:     strings.TrimSpace(params.PickupNotes),
		WomenOnlyPickup: params.WomenOnlyPickup,
		Status:          StatusPending,
		Approved:        false,
		Images:          append([]Image(nil), params.Images...),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	l.Record(SubmittedEvent{ListingID: l.ID, Owner: l.Owner, At: now})
	return l, nil
}

// Rentable reports whether rental requests may target this listing.
func (l *Listing) Rentable() bool {
	return l.Status == StatusActive && l.Approved
}

// Approve moves a pending listing to active; admin operation.
func (l *Listing) Approve(now time.Time) error {
	if l.Status != StatusPending {
		return ErrInvalidState
	}
	l.Status = StatusActive
	l.Approved = true
	l.UpdatedAt = now.UTC()
	l.Record(ApprovedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// Reject deactivates a listing and clears approval; admin operation.
func (l *Listing) Reject(reason string, now time.Time) error {
	l.Status = StatusInactive
	l.Approved = false
	l.UpdatedAt = now.UTC()
	l.Record(RejectedEvent{ListingID: l.ID, Reason: reason, At: l.UpdatedAt})
	return nil
}

// MarkRented flips an active listing to rented; called by the rental state
// machine on pickup, never by owners directly.
func (l *Listing) MarkRented(now time.Time) error {
	if l.Status != StatusActive {
		return ErrInvalidState
	}
	l.Status = StatusRented
	l.UpdatedAt = now.UTC()
	return nil
}

// MarkReturned flips a rented listing back to active on rental completion.
func (l *Listing) MarkReturned(now time.Time) error {
	if l.Status != StatusRented {
		return ErrInvalidState
	}
	l.Status = StatusActive
	l.UpdatedAt = now.UTC()
	return nil
}

// Deactivate lets the owner pull an active listing from the marketplace.
func (l *Listing) Deactivate(now time.Time) error {
	if l.Status != StatusActive {
		return ErrInvalidState
	}
	l.Status = StatusInactive
	l.UpdatedAt = now.UTC()
	l.Record(DeactivatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// Reactivate restores an inactive listing through an owner edit. Approval is
// kept: an admin-rejected listing stays unapproved and thus not rentable.
func (l *Listing) Reactivate(now time.Time) error {
	if l.Status != StatusInactive {
		return ErrInvalidState
	}
	l.Status = StatusActive
	l.UpdatedAt = now.UTC()
	return nil
}

// RecordView bumps the view counter; owner views are filtered by the caller.
func (l *Listing) RecordView() {
	l.ViewCount++
}

type UpdateParams struct {
	Title       string
	Description string
	Category    Category
	Subcategory string
	Size        string
	Color       string
	Brand       string
	Condition   Condition

	DailyRate money.Money
	Deposit   money.Money
	SellPrice *money.Money
	MinDays   int
	MaxDays   int

	Cleaned         bool
	SmokeFree       bool
	PetFree         bool
	Modest          bool
	Tags            []string
	Location        string
	Latitude        float64
	Longitude       float64
	PickupNotes     string
	WomenOnlyPickup bool
	Images          []Image

	Now time.Time
}

// Update rewrites the owner-editable attributes. Pricing changes never touch
// existing rentals, which snapshot their cost at creation time.
func (l *Listing) Update(params UpdateParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(params.Location) == "" {
		return ErrLocationRequired
	}
	if params.DailyRate.Cents <= 0 {
		return ErrDailyRate
	}
	if params.Deposit.IsNegative() {
		return ErrDeposit
	}
	if params.SellPrice != nil && params.SellPrice.IsNegative() {
		return ErrSellPrice
	}
	if params.MinDays > params.MaxDays {
		return ErrRentalDaysRange
	}

	l.Title = strings.TrimSpace(params.Title)
	l.Description = strings.TrimSpace(params.Description)
	if params.Category != "" {
		l.Category = params.Category
	}
	l.Subcategory = strings.TrimSpace(params.Subcategory)
	l.Size = strings.TrimSpace(params.Size)
	l.Color = strings.TrimSpace(params.Color)
	l.Brand = strings.TrimSpace(params.Brand)
	if params.Condition != "" {
		l.Condition = params.Condition
	}
	l.DailyRate = params.DailyRate
	l.Deposit = params.Deposit
	l.SellPrice = params.SellPrice
	if params.MinDays >= 1 {
		l.MinDays = params.MinDays
	}
	if params.MaxDays >= 1 {
		l.MaxDays = params.MaxDays
	}
	l.Cleaned = params.Cleaned
	l.SmokeFree = params.SmokeFree
	l.PetFree = params.PetFree
	l.Modest = params.Modest
	l.Tags = append([]string(nil), params.Tags...)
	l.Location = strings.TrimSpace(params.Location)
	l.Latitude = params.Latitude
	l.Longitude = params.Longitude
	l.PickupNotes = strings.TrimSpace(params.PickupNotes)
	l.WomenOnlyPickup = params.WomenOnlyPickup
	l.Images = append([]Image(nil), params.Images...)
	l.UpdatedAt = params.Now.UTC()
	l.Record(UpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}
