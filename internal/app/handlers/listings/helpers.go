package listings

import (
	"context"
	"time"

	"kloset/internal/app/outbox"
	"kloset/internal/app/uow"
	domainlisting "kloset/internal/domain/listing"
	"kloset/internal/domain/shared/events"
	"kloset/internal/domain/shared/fault"
	domainuser "kloset/internal/domain/user"
)

var errAdminRequired = fault.Forbidden("listings: admin role required")

type eventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

func drainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...eventSource) error {
	if box == nil {
		for _, src := range sources {
			src.ClearEvents()
		}
		return nil
	}
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	for _, src := range sources {
		pending := src.PendingEvents()
		src.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil {
			return err
		}
	}
	return nil
}

func nowOrDefault(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}

// ownedListing loads a listing and verifies the actor owns it.
func ownedListing(ctx context.Context, unit uow.UnitOfWork, listingID, actorID string) (*domainlisting.Listing, error) {
	listing, err := unit.Listings().ByID(ctx, domainlisting.ID(listingID))
	if err != nil {
		return nil, err
	}
	if listing.Owner != domainuser.ID(actorID) {
		return nil, domainlisting.ErrNotOwner
	}
	return listing, nil
}

// requireAdmin verifies the actor holds the admin role.
func requireAdmin(ctx context.Context, unit uow.UnitOfWork, actorID string) error {
	actor, err := unit.Users().ByID(ctx, domainuser.ID(actorID))
	if err != nil {
		return err
	}
	if !actor.HasRole(domainuser.RoleAdmin) {
		return errAdminRequired
	}
	return nil
}
