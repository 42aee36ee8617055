package listings

import (
	"context"
	"time"

	"kloset/internal/app/outbox"
	"kloset/internal/app/uow"
	domainlisting "kloset/internal/domain/listing"
	"kloset/internal/domain/shared/money"
)

const (
	updateListingKey     = "listing.update"
	deactivateListingKey = "listing.deactivate"
	reactivateListingKey = "listing.reactivate"
	deleteListingKey     = "listing.delete"
)

type UpdateListingCommand struct {
	ListingID   string
	ActorID     string
	Title       string
	Description string
	Category    string
	Subcategory string
	Size        string
	Color       string
	Brand       string
	Condition   string

	DailyRateCents int64
	DepositCents   int64
	SellPriceCents *int64
	Currency       string
	MinDays        int
	MaxDays        int

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
	Images          []ListingImageInput
}

func (c UpdateListingCommand) Key() string { return updateListingKey }

type DeactivateListingCommand struct {
	ListingID string
	ActorID   string
}

func (c DeactivateListingCommand) Key() string { return deactivateListingKey }

type ReactivateListingCommand struct {
	ListingID string
	ActorID   string
}

func (c ReactivateListingCommand) Key() string { return reactivateListingKey }

type DeleteListingCommand struct {
	ListingID string
	ActorID   string
}

func (c DeleteListingCommand) Key() string { return deleteListingKey }

type ManageListingResult struct {
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
}

// ManageListingHandler covers the owner's edits and visibility toggles.
type ManageListingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *ManageListingHandler) HandleUpdate(ctx context.Context, cmd UpdateListingCommand) (*ManageListingResult, error) {
	return h.withOwnedListing(ctx, cmd.ListingID, cmd.ActorID, func(listing *domainlisting.Listing) error {
		currency := cmd.Currency
		if currency == "" {
			currency = money.DefaultCurrency
		}
		var sellPrice *money.Money
		if cmd.SellPriceCents != nil {
			value, err := money.New(*cmd.SellPriceCents, currency)
			if err != nil {
				return err
			}
			sellPrice = &value
		}
		images := make([]domainlisting.Image, 0, len(cmd.Images))
		for _, img := range cmd.Images {
			images = append(images, domainlisting.Image{URL: img.URL, DisplayOrder: img.DisplayOrder})
		}
		return listing.Update(domainlisting.UpdateParams{
			Title:           cmd.Title,
			Description:     cmd.Description,
			Category:        domainlisting.Category(cmd.Category),
			Subcategory:     cmd.Subcategory,
			Size:            cmd.Size,
			Color:           cmd.Color,
			Brand:           cmd.Brand,
			Condition:       domainlisting.Condition(cmd.Condition),
			DailyRate:       money.Money{Cents: cmd.DailyRateCents, Currency: currency},
			Deposit:         money.Money{Cents: cmd.DepositCents, Currency: currency},
			SellPrice:       sellPrice,
			MinDays:         cmd.MinDays,
			MaxDays:         cmd.MaxDays,
			Cleaned:         cmd.Cleaned,
			SmokeFree:       cmd.SmokeFree,
			PetFree:         cmd.PetFree,
			Modest:          cmd.Modest,
			Tags:            cmd.Tags,
			Location:        cmd.Location,
			Latitude:        cmd.Latitude,
			Longitude:       cmd.Longitude,
			PickupNotes:     cmd.PickupNotes,
			WomenOnlyPickup: cmd.WomenOnlyPickup,
			Images:          images,
			Now:             nowOrDefault(h.Now),
		})
	})
}

func (h *ManageListingHandler) HandleDeactivate(ctx context.Context, cmd DeactivateListingCommand) (*ManageListingResult, error) {
	return h.withOwnedListing(ctx, cmd.ListingID, cmd.ActorID, func(listing *domainlisting.Listing) error {
		return listing.Deactivate(nowOrDefault(h.Now))
	})
}

func (h *ManageListingHandler) HandleReactivate(ctx context.Context, cmd ReactivateListingCommand) (*ManageListingResult, error) {
	return h.withOwnedListing(ctx, cmd.ListingID, cmd.ActorID, func(listing *domainlisting.Listing) error {
		return listing.Reactivate(nowOrDefault(h.Now))
	})
}

// HandleDelete removes a listing outright. Refused while any rental in a
// blocking status still references it.
func (h *ManageListingHandler) HandleDelete(ctx context.Context, cmd DeleteListingCommand) (*ManageListingResult, error) {
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

	listing, err := ownedListing(ctx, unit, cmd.ListingID, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	active, err := unit.Rentals().BlockingForListing(ctx, listing.ID)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, domainlisting.ErrHasActiveRentals
	}
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &ManageListingResult{ListingID: string(listing.ID), Status: "deleted"}, nil
}

func (h *ManageListingHandler) withOwnedListing(ctx context.Context, listingID, actorID string, mutate func(*domainlisting.Listing) error) (*ManageListingResult, error) {
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

	listing, err := ownedListing(ctx, unit, listingID, actorID)
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

	return &ManageListingResult{ListingID: string(listing.ID), Status: string(listing.Status)}, nil
}
