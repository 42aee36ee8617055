package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kloset/internal/app/uow"
	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
	domainmessaging "kloset/internal/domain/messaging"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	domainuser "kloset/internal/domain/user"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	UsersRepo         domainuser.Repository
	ListingsRepo      domainlisting.Repository
	AvailabilityRepo  domainavailability.Repository
	RentalsRepo       domainrental.Repository
	ReviewsRepo       domainreview.Repository
	ConversationsRepo domainmessaging.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:            f.DB,
		session:       session,
		users:         f.UsersRepo,
		listings:      f.ListingsRepo,
		availability:  f.AvailabilityRepo,
		rentals:       f.RentalsRepo,
		reviews:       f.ReviewsRepo,
		conversations: f.ConversationsRepo,
	}, nil
}

type Unit struct {
	db      *mongo.Database
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
