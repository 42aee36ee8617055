package memory

import (
	"context"
	"errors"

	"kloset/internal/app/uow"
	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
	domainmessaging "kloset/internal/domain/messaging"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	domainuser "kloset/internal/domain/user"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	UsersRepo         domainuser.Repository
	ListingsRepo      domainlisting.Repository
	AvailabilityRepo  domainavailability.Repository
	RentalsRepo       domainrental.Repository
	ReviewsRepo       domainreview.Repository
	ConversationsRepo domainmessaging.Repository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// NewFactory builds a factory over a fresh set of in-memory stores.
func NewFactory() Factory {
	ledgers := NewAvailabilityRepository()
	return Factory{
		UsersRepo:         NewUserRepository(),
		ListingsRepo:      NewListingRepository(ledgers),
		AvailabilityRepo:  ledgers,
		RentalsRepo:       NewRentalRepository(),
		ReviewsRepo:       NewReviewRepository(),
		ConversationsRepo: NewConversationRepository(),
	}
}

// Begin starts a lightweight transaction boundary. No isolation is provided
// but the abstraction matches the application ports; atomicity of the
// critical writes lives in the repositories themselves.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.UsersRepo == nil || f.ListingsRepo == nil || f.AvailabilityRepo == nil ||
		f.RentalsRepo == nil || f.ReviewsRepo == nil || f.ConversationsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		users:         f.UsersRepo,
		listings:      f.ListingsRepo,
		availability:  f.AvailabilityRepo,
		rentals:       f.RentalsRepo,
		reviews:       f.ReviewsRepo,
		conversations: f.ConversationsRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	users         domainuser.Repository
	listings      domainlisting.Repository
	availability  domainavailability.Repository
	rentals       domainrental.Repository
	reviews       domainreview.Repository
	conversations domainmessaging.Repository
}

func (u *Unit) Users() domainuser.Repository {
	return u.users
}

func (u *Unit) Listings() domainlisting.Repository {
	return u.listings
}

func (u *Unit) Availability() domainavailability.Repository {
	return u.availability
}

func (u *Unit) Rentals() domainrental.Repository {
	return u.rentals
}

func (u *Unit) Reviews() domainreview.Repository {
	return u.reviews
}

func (u *Unit) Conversations() domainmessaging.Repository {
	return u.conversations
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
