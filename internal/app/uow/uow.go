package uow

import (
	"context"

	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
	domainmessaging "kloset/internal/domain/messaging"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	domainuser "kloset/internal/domain/user"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Users() domainuser.Repository
	Listings() domainlisting.Repository
	Availability() domainavailability.Repository
	Rentals() domainrental.Repository
	Reviews() domainreview.Repository
	Conversations() domainmessaging.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}
