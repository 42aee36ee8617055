package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainavailability "kloset/internal/domain/availability"
	domainlisting "kloset/internal/domain/listing"
)

type AvailabilityRepository struct {
	col *mongo.Collection
}

func NewAvailabilityRepository(db *mongo.Database) *AvailabilityRepository {
	return &AvailabilityRepository{col: db.Collection("agg_availability")}
}

// Ledger loads the listing's ledger; a listing without one yet gets an empty
// ledger at version zero so the first Save can upsert it.
func (r *AvailabilityRepository) Ledger(ctx context.Context, id domainlisting.ID) (*domainavailability.Ledger, error) {
	var doc ledgerDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewLedger(id), nil
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save writes the whole ledger with a version compare-and-swap; a stale
// writer gets ErrConcurrentUpdate instead of silently double-booking.
func (r *AvailabilityRepository) Save(ctx context.Context, ledger *domainavailability.Ledger) error {
	doc := newLedgerDocument(ledger)
	filter := bson.M{"_id": doc.ID, "version": ledger.Version}
	doc.Version = ledger.Version + 1
	opts := options.Update().SetUpsert(ledger.Version == 0)
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
	ledger.Version = doc.Version
	return nil
}

type ledgerDocument struct {
	ID      string          `bson:"_id"`
	Blocks  []blockDocument `bson:"blocks"`
	Version int64           `bson:"version"`
}

type blockDocument struct {
	ID        string        `bson:"_id"`
	Range     rangeDocument `bson:"range"`
	Reason    string        `bson:"reason"`
	RentalID  string        `bson:"rental_id,omitempty"`
	CreatedAt int64         `bson:"created_at"`
}

func newLedgerDocument(ledger *domainavailability.Ledger) ledgerDocument {
	blocks := make([]blockDocument, 0, len(ledger.Blocks))
	for _, b := range ledger.Blocks {
		blocks = append(blocks, blockDocument{
			ID:        string(b.ID),
			Range:     newRangeDocument(b.Range),
			Reason:    string(b.Reason),
			RentalID:  b.RentalID,
			CreatedAt: b.CreatedAt.UnixMilli(),
		})
	}
	return ledgerDocument{ID: string(ledger.ListingID), Blocks: blocks, Version: ledger.Version}
}

func (d ledgerDocument) toAggregate() *domainavailability.Ledger {
	ledger := domainavailability.NewLedger(domainlisting.ID(d.ID))
	ledger.Version = d.Version
	for _, b := range d.Blocks {
		ledger.Blocks = append(ledger.Blocks, domainavailability.Block{
			ID:        domainavailability.BlockID(b.ID),
			Range:     b.Range.toRange(),
			Reason:    domainavailability.BlockReason(b.Reason),
			RentalID:  b.RentalID,
			CreatedAt: time.UnixMilli(b.CreatedAt).UTC(),
		})
	}
	return ledger
}

var _ domainavailability.Repository = (*AvailabilityRepository)(nil)
