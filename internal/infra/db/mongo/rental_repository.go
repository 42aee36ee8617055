package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlisting "kloset/internal/domain/listing"
	domainrental "kloset/internal/domain/rental"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/fault"
	domainuser "kloset/internal/domain/user"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type RentalRepository struct {
	col     *mongo.Collection
	ledgers *mongo.Collection
}

func NewRentalRepository(db *mongo.Database) *RentalRepository {
	col := db.Collection("agg_rental")
	idx := mongo.IndexModel{Keys: bson.D{
		{Key: "listing_id", Value: 1},
		{Key: "status", Value: 1},
		{Key: "range.start", Value: 1},
	}}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &RentalRepository{col: col, ledgers: db.Collection("agg_availability")}
}

func (r *RentalRepository) ByID(ctx context.Context, id domainrental.ID) (*domainrental.Rental, error) {
	var doc rentalDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrental.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Create runs the overlap check and the insert inside the ambient Mongo
// transaction; two racing requests for the same dates cannot both commit.
func (r *RentalRepository) Create(ctx context.Context, rental *domainrental.Rental) error {
	// A count-then-insert is not enough on its own: two transactions can
	// both count zero and both insert without ever writing the same
	// document. Bumping the listing's ledger document first makes every
	// create for a listing write one shared document, so the transaction
	// machinery aborts one of the racers.
	touch := bson.M{"$inc": bson.M{"version": int64(1)}}
	if _, err := r.ledgers.UpdateOne(ctx, bson.M{"_id": string(rental.ListingID)}, touch,
		options.Update().SetUpsert(true)); err != nil {
		return err
	}

	blocking := make([]string, 0, len(domainrental.BlockingStatuses))
	for _, s := range domainrental.BlockingStatuses {
		blocking = append(blocking, string(s))
	}
	filter := bson.M{
		"listing_id":  string(rental.ListingID),
		"status":      bson.M{"$in": blocking},
		"range.start": bson.M{"$lte": rental.Range.End.Time().UnixMilli()},
		"range.end":   bson.M{"$gte": rental.Range.Start.Time().UnixMilli()},
	}
	count, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return err
	}
	if count > 0 {
		return domainrental.ErrDatesUnavailable
	}
	doc := newRentalDocument(rental)
	doc.Version = rental.Version + 1
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fault.Conflict("rental: id already exists")
		}
		return err
	}
	rental.Version = doc.Version
	return nil
}

func (r *RentalRepository) Save(ctx context.Context, rental *domainrental.Rental) error {
	doc := newRentalDocument(rental)
	filter := bson.M{"_id": doc.ID, "version": rental.Version}
	doc.Version = rental.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	rental.Version = doc.Version
	return nil
}

func (r *RentalRepository) ListFor(ctx context.Context, userID domainuser.ID, params domainrental.ListParams) ([]*domainrental.Rental, error) {
	filter := bson.M{}
	if userID != "" {
		if params.AsOwner {
			filter["owner_id"] = string(userID)
		} else {
			filter["renter_id"] = string(userID)
		}
	}
	if len(params.Statuses) > 0 {
		statuses := make([]string, 0, len(params.Statuses))
		for _, s := range params.Statuses {
			statuses = append(statuses, string(s))
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if params.Offset > 0 {
		opts = opts.SetSkip(int64(params.Offset))
	}
	if params.Limit > 0 {
		opts = opts.SetLimit(int64(params.Limit))
	}
	return r.findAll(ctx, filter, opts)
}

func (r *RentalRepository) OverlappingFor(ctx context.Context, listingID domainlisting.ID, rng dates.Range) ([]*domainrental.Rental, error) {
	blocking := make([]string, 0, len(domainrental.BlockingStatuses))
	for _, s := range domainrental.BlockingStatuses {
		blocking = append(blocking, string(s))
	}
	filter := bson.M{
		"listing_id":  string(listingID),
		"status":      bson.M{"$in": blocking},
		"range.start": bson.M{"$lte": rng.End.Time().UnixMilli()},
		"range.end":   bson.M{"$gte": rng.Start.Time().UnixMilli()},
	}
	return r.findAll(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}}))
}

func (r *RentalRepository) BlockingForListing(ctx context.Context, listingID domainlisting.ID) ([]*domainrental.Rental, error) {
	blocking := make([]string, 0, len(domainrental.BlockingStatuses))
	for _, s := range domainrental.BlockingStatuses {
		blocking = append(blocking, string(s))
	}
	filter := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$in": blocking},
	}
	return r.findAll(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.start", Value: 1}}))
}

func (r *RentalRepository) findAll(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainrental.Rental, error) {
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainrental.Rental
	for cursor.Next(ctx) {
		var doc rentalDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type rentalDocument struct {
	ID            string            `bson:"_id"`
	ListingID     string            `bson:"listing_id"`
	OwnerID       string            `bson:"owner_id"`
	RenterID      string            `bson:"renter_id"`
	Range         rangeDocument     `bson:"range"`
	Cost          breakdownDocument `bson:"cost"`
	Status        string            `bson:"status"`
	PaymentStatus string            `bson:"payment_status"`
	PaymentRef    string            `bson:"payment_ref"`
	ContractKey   string            `bson:"contract_key"`
	Notes         string            `bson:"notes"`
	CancelReason  string            `bson:"cancel_reason"`
	CancelledBy   string            `bson:"cancelled_by"`
	PickedUpAt    *int64            `bson:"picked_up_at,omitempty"`
	ReturnedAt    *int64            `bson:"returned_at,omitempty"`
	CreatedAt     int64             `bson:"created_at"`
	UpdatedAt     int64             `bson:"updated_at"`
	Version       int64             `bson:"version"`
}

func newRentalDocument(rental *domainrental.Rental) rentalDocument {
	doc := rentalDocument{
		ID:            string(rental.ID),
		ListingID:     string(rental.ListingID),
		OwnerID:       string(rental.Owner),
		RenterID:      string(rental.Renter),
		Range:         newRangeDocument(rental.Range),
		Cost:          newBreakdownDocument(rental.Cost),
		Status:        string(rental.Status),
		PaymentStatus: string(rental.PaymentStatus),
		PaymentRef:    rental.PaymentRef,
		ContractKey:   rental.ContractKey,
		Notes:         rental.Notes,
		CancelReason:  rental.CancelReason,
		CancelledBy:   string(rental.CancelledBy),
		CreatedAt:     rental.CreatedAt.UnixMilli(),
		UpdatedAt:     rental.UpdatedAt.UnixMilli(),
		Version:       rental.Version,
	}
	if rental.PickedUpAt != nil {
		ms := rental.PickedUpAt.UnixMilli()
		doc.PickedUpAt = &ms
	}
	if rental.ReturnedAt != nil {
		ms := rental.ReturnedAt.UnixMilli()
		doc.ReturnedAt = &ms
	}
	return doc
}

func (d rentalDocument) toAggregate() *domainrental.Rental {
	agg := &domainrental.Rental{
		ID:            domainrental.ID(d.ID),
		ListingID:     domainlisting.ID(d.ListingID),
		Owner:         domainuser.ID(d.OwnerID),
		Renter:        domainuser.ID(d.RenterID),
		Range:         d.Range.toRange(),
		Cost:          d.Cost.toBreakdown(),
		Status:        domainrental.Status(d.Status),
		PaymentStatus: domainrental.PaymentStatus(d.PaymentStatus),
		PaymentRef:    d.PaymentRef,
		ContractKey:   d.ContractKey,
		Notes:         d.Notes,
		CancelReason:  d.CancelReason,
		CancelledBy:   domainuser.ID(d.CancelledBy),
		CreatedAt:     time.UnixMilli(d.CreatedAt).UTC(),
		UpdatedAt:     time.UnixMilli(d.UpdatedAt).UTC(),
		Version:       d.Version,
	}
	if d.PickedUpAt != nil {
		t := time.UnixMilli(*d.PickedUpAt).UTC()
		agg.PickedUpAt = &t
	}
	if d.ReturnedAt != nil {
		t := time.UnixMilli(*d.ReturnedAt).UTC()
		agg.ReturnedAt = &t
	}
	return agg
}

var _ domainrental.Repository = (*RentalRepository)(nil)
