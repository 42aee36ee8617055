package listings

import (
	"context"
	"errors"
	"time"

	"kloset/internal/app/commands"
	"kloset/internal/app/middleware"
	"kloset/internal/app/outbox"
	"kloset/internal/app/uow"
	domainlisting "kloset/internal/domain/listing"
	"kloset/internal/domain/shared/money"
	domainuser "kloset/internal/domain/user"
)

const submitListingKey = "listing.submit"

var ErrUnitOfWorkRequired = errors.New("listings: unit of work required")

type ListingImageInput struct {
	URL          string
	DisplayOrder int
}

type SubmitListingCommand struct {
	CommandID   string
	OwnerID     string
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

	IdempotencyKeyV string
}

func (c SubmitListingCommand) Key() string { return submitListingKey }

func (c SubmitListingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitListingCommand) ResultPrototype() any { return &SubmitListingResult{} }

type SubmitListingResult struct {
	ListingID string `json:"listing_id"`
	Status    string `json:"status"`
}

// SubmitListingHandler registers a new listing awaiting moderation.
type SubmitListingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *SubmitListingHandler) Handle(ctx context.Context, cmd SubmitListingCommand) (*SubmitListingResult, error) {
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

	currency := cmd.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	var sellPrice *money.Money
	if cmd.SellPriceCents != nil {
		value, err := money.New(*cmd.SellPriceCents, currency)
		if err != nil {
			return nil, err
		}
		sellPrice = &value
	}
	images := make([]domainlisting.Image, 0, len(cmd.Images))
	for _, img := range cmd.Images {
		images = append(images, domainlisting.Image{URL: img.URL, DisplayOrder: img.DisplayOrder})
	}

	listing, err := domainlisting.NewListing(domainlisting.CreateParams{
		ID:              domainlisting.ID(cmd.CommandID),
		Owner:           domainuser.ID(cmd.OwnerID),
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
	if err != nil {
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

	return &SubmitListingResult{
		ListingID: string(listing.ID),
		Status:    string(listing.Status),
	}, nil
}

var _ commands.Handler[SubmitListingCommand, *SubmitListingResult] = (*SubmitListingHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitListingCommand)(nil)
