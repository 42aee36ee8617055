package mongo

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "kloset/internal/domain/listing"
	"kloset/internal/domain/shared/money"
	domainuser "kloset/internal/domain/user"
)

type ListingRepository struct {
	col     *mongo.Collection
	ledgers *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	col := db.Collection("agg_listing")
	idx := mongo.IndexModel{Keys: bson.D{
		{Key: "status", Value: 1},
		{Key: "approved", Value: 1},
		{Key: "category", Value: 1},
	}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &ListingRepository{col: col, ledgers: db.Collection("agg_availability")}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ID) (*domainlisting.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlisting.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlisting.Listing) error {
	doc := newListingDocument(listing)
	filter := bson.M{"_id": doc.ID, "version": listing.Version}
	doc.Version = listing.Version + 1
	opts := options.Update().SetUpsert(listing.Version == 0)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	listing.Version = doc.Version
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id domainlisting.ID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainlisting.ErrNotFound
	}
	// the listing's calendar goes with it
	_, _ = r.ledgers.DeleteOne(ctx, bson.M{"_id": string(id)})
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlisting.SearchParams) (domainlisting.SearchResult, error) {
	filter, err := r.searchFilter(ctx, params)
	if err != nil {
		return domainlisting.SearchResult{}, err
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainlisting.SearchResult{}, err
	}
	opts := options.Find().
		SetSort(sortFor(params.Sort)).
		SetSkip(int64(params.Offset)).
		SetLimit(int64(params.Limit))
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return domainlisting.SearchResult{}, err
	}
	defer cursor.Close(ctx)
	result := domainlisting.SearchResult{Total: int(total)}
	for cursor.Next(ctx) {
		var doc listingDocument
		if err := cursor.Decode(&doc); err != nil {
			return domainlisting.SearchResult{}, err
		}
		result.Items = append(result.Items, doc.toAggregate())
	}
	return result, cursor.Err()
}

func (r *ListingRepository) searchFilter(ctx context.Context, params domainlisting.SearchParams) (bson.M, error) {
	filter := bson.M{}
	if !params.IncludeHidden {
		filter["status"] = string(domainlisting.StatusActive)
		filter["approved"] = true
	} else if params.Status != "" {
		filter["status"] = string(params.Status)
	}
	if params.Owner != "" {
		filter["owner_id"] = params.Owner
	}
	if params.Category != "" {
		filter["category"] = string(params.Category)
	}
	if params.Condition != "" {
		filter["condition"] = string(params.Condition)
	}
	if params.Size != "" {
		filter["size"] = params.Size
	}
	if params.Location != "" {
		filter["location"] = bson.M{"$regex": regexp.QuoteMeta(params.Location), "$options": "i"}
	}
	if params.Query != "" {
		pattern := regexp.QuoteMeta(params.Query)
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"brand": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"tags": params.Query},
		}
	}
	price := bson.M{}
	if params.PriceMinCents > 0 {
		price["$gte"] = params.PriceMinCents
	}
	if params.PriceMaxCents > 0 {
		price["$lte"] = params.PriceMaxCents
	}
	if len(price) > 0 {
		filter["daily_rate.cents"] = price
	}
	if params.Cleaned != nil {
		filter["cleaned"] = *params.Cleaned
	}
	if params.SmokeFree != nil {
		filter["smoke_free"] = *params.SmokeFree
	}
	if params.WomenOnlyPickup != nil {
		filter["women_only_pickup"] = *params.WomenOnlyPickup
	}
	if params.Modest != nil {
		filter["modest"] = *params.Modest
	}
	if len(params.Tags) > 0 {
		filter["tags"] = bson.M{"$all": params.Tags}
	}
	if !params.AvailableFrom.IsZero() && !params.AvailableTo.IsZero() {
		busy, err := r.busyListings(ctx, params.AvailableFrom.Time().UnixMilli(), params.AvailableTo.Time().UnixMilli())
		if err != nil {
			return nil, err
		}
		if len(busy) > 0 {
			filter["_id"] = bson.M{"$nin": busy}
		}
	}
	return filter, nil
}

// busyListings returns the ids of listings whose ledger has a block touching
// the closed [from, to] window.
func (r *ListingRepository) busyListings(ctx context.Context, from, to int64) ([]string, error) {
	filter := bson.M{"blocks": bson.M{"$elemMatch": bson.M{
		"range.start": bson.M{"$lte": to},
		"range.end":   bson.M{"$gte": from},
	}}}
	cursor, err := r.ledgers.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

func sortFor(sort domainlisting.CatalogSort) bson.D {
	switch sort {
	case domainlisting.SortByPriceAsc:
		return bson.D{{Key: "daily_rate.cents", Value: 1}}
	case domainlisting.SortByPriceDesc:
		return bson.D{{Key: "daily_rate.cents", Value: -1}}
	case domainlisting.SortByViews:
		return bson.D{{Key: "view_count", Value: -1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}}
	}
}

type listingDocument struct {
	ID          string `bson:"_id"`
	OwnerID     string `bson:"owner_id"`
	Title       string `bson:"title"`
	Description string `bson:"description"`
	Category    string `bson:"category"`
	Subcategory string `bson:"subcategory"`
	Size        string `bson:"size"`
	Color       string `bson:"color"`
	Brand       string `bson:"brand"`
	Condition   string `bson:"condition"`

	DailyRate moneyDocument  `bson:"daily_rate"`
	Deposit   moneyDocument  `bson:"deposit"`
	SellPrice *moneyDocument `bson:"sell_price,omitempty"`
	MinDays   int            `bson:"min_days"`
	MaxDays   int            `bson:"max_days"`

	Cleaned         bool            `bson:"cleaned"`
	SmokeFree       bool            `bson:"smoke_free"`
	PetFree         bool            `bson:"pet_free"`
	Modest          bool            `bson:"modest"`
	Tags            []string        `bson:"tags"`
	Location        string          `bson:"location"`
	Latitude        float64         `bson:"latitude"`
	Longitude       float64         `bson:"longitude"`
	PickupNotes     string          `bson:"pickup_notes"`
	WomenOnlyPickup bool            `bson:"women_only_pickup"`
	Images          []imageDocument `bson:"images"`

	Status    string `bson:"status"`
	Approved  bool   `bson:"approved"`
	ViewCount int64  `bson:"view_count"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
	Version   int64  `bson:"version"`
}

type imageDocument struct {
	URL          string `bson:"url"`
	DisplayOrder int    `bson:"display_order"`
}

func newListingDocument(l *domainlisting.Listing) listingDocument {
	doc := listingDocument{
		ID:              string(l.ID),
		OwnerID:         string(l.Owner),
		Title:           l.Title,
		Description:     l.Description,
		Category:        string(l.Category),
		Subcategory:     l.Subcategory,
		Size:            l.Size,
		Color:           l.Color,
		Brand:           l.Brand,
		Condition:       string(l.Condition),
		DailyRate:       newMoneyDocument(l.DailyRate),
		Deposit:         newMoneyDocument(l.Deposit),
		MinDays:         l.MinDays,
		MaxDays:         l.MaxDays,
		Cleaned:         l.Cleaned,
		SmokeFree:       l.SmokeFree,
		PetFree:         l.PetFree,
		Modest:          l.Modest,
		Tags:            l.Tags,
		Location:        l.Location,
		Latitude:        l.Latitude,
		Longitude:       l.Longitude,
		PickupNotes:     l.PickupNotes,
		WomenOnlyPickup: l.WomenOnlyPickup,
		Status:          string(l.Status),
		Approved:        l.Approved,
		ViewCount:       l.ViewCount,
		CreatedAt:       l.CreatedAt.UnixMilli(),
		UpdatedAt:       l.UpdatedAt.UnixMilli(),
		Version:         l.Version,
	}
	if l.SellPrice != nil {
		sp := newMoneyDocument(*l.SellPrice)
		doc.SellPrice = &sp
	}
	for _, img := range l.Images {
		doc.Images = append(doc.Images, imageDocument{URL: img.URL, DisplayOrder: img.DisplayOrder})
	}
	return doc
}

func (d listingDocument) toAggregate() *domainlisting.Listing {
	l := &domainlisting.Listing{
		ID:              domainlisting.ID(d.ID),
		Owner:           domainuser.ID(d.OwnerID),
		Title:           d.Title,
		Description:     d.Description,
		Category:        domainlisting.Category(d.Category),
		Subcategory:     d.Subcategory,
		Size:            d.Size,
		Color:           d.Color,
		Brand:           d.Brand,
		Condition:       domainlisting.Condition(d.Condition),
		DailyRate:       d.DailyRate.toMoney(),
		Deposit:         d.Deposit.toMoney(),
		MinDays:         d.MinDays,
		MaxDays:         d.MaxDays,
		Cleaned:         d.Cleaned,
		SmokeFree:       d.SmokeFree,
		PetFree:         d.PetFree,
		Modest:          d.Modest,
		Tags:            d.Tags,
		Location:        d.Location,
		Latitude:        d.Latitude,
		Longitude:       d.Longitude,
		PickupNotes:     d.PickupNotes,
		WomenOnlyPickup: d.WomenOnlyPickup,
		Status:          domainlisting.Status(d.Status),
		Approved:        d.Approved,
		ViewCount:       d.ViewCount,
		CreatedAt:       time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt:       time.UnixMilli(d.UpdatedAt).UTC(),
		Version:         d.Version,
	}
	if d.SellPrice != nil {
		sp := money.Money{Cents: d.SellPrice.Cents, Currency: d.SellPrice.Currency}
		l.SellPrice = &sp
	}
	for _, img := range d.Images {
		l.Images = append(l.Images, domainlisting.Image{URL: img.URL, DisplayOrder: img.DisplayOrder})
	}
	return l
}

var _ domainlisting.Repository = (*ListingRepository)(nil)
