package listings

import (
	"context"
	"time"

	"kloset/internal/app/outbox"
	"kloset/internal/app/policies"
	"kloset/internal/app/uow"
	domainlisting "kloset/internal/domain/listing"
)

const (
	approveListingKey = "listing.approve"
	rejectListingKey  = "listing.reject"
)

type ApproveListingCommand struct {
	ListingID string
	ActorID   string
}

func (c ApproveListingCommand) Key() string { return approveListingKey }

type RejectListingCommand struct {
	ListingID string
	ActorID   string
	Reason    string
}

func (c RejectListingCommand) Key() string { return rejectListingKey }

type ModerateListingResult struct {
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
	Approved  bool   `json:"approved"`
}

// ModerateListingHandler is the admin approval queue: approve makes a
// pending listing rentable, reject pulls it from the marketplace.
type ModerateListingHandler struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.NotifierPort
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *ModerateListingHandler) HandleApprove(ctx context.Context, cmd ApproveListingCommand) (*ModerateListingResult, error) {
	return h.moderate(ctx, cmd.ListingID, cmd.ActorID, func(listing *domainlisting.Listing) error {
		return listing.Approve(nowOrDefault(h.Now))
	}, "Listing approved", "Your listing was approved and is now live.")
}

func (h *ModerateListingHandler) HandleReject(ctx context.Context, cmd RejectListingCommand) (*ModerateListingResult, error) {
	return h.moderate(ctx, cmd.ListingID, cmd.ActorID, func(listing *domainlisting.Listing) error {
		return listing.Reject(cmd.Reason, nowOrDefault(h.Now))
	}, "Listing rejected", "Your listing did not pass moderation.")
}

func (h *ModerateListingHandler) moderate(ctx context.Context, listingID, actorID string, mutate func(*domainlisting.Listing) error, subject, body string) (*ModerateListingResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	if err := requireAdmin(ctx, unit, actorID); err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, domainlisting.ID(listingID))
	if err != nil {
		return nil, err
	}
	if err := mutate(listing); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if err := drainEvents(ctx, h.Outbox, h.Encoder, listing); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	if h.Notifier != nil {
		_ = h.Notifier.Notify(ctx, listing.Owner, subject, body)
	}

	return &ModerateListingResult{
		ListingID: string(listing.ID),
		Status:    string(listing.Status),
		Approved:  listing.Approved,
	}, nil
}
