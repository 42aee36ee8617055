package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	domainuser "kloset/internal/domain/user"
)

type ReviewRepository struct {
	col *mongo.Collection
}

// NewReviewRepository keeps one review per (rental, reviewer, type); the
// unique index is what turns a racing duplicate into ErrDuplicate.
func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	col := db.Collection("agg_review")
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "rental_id", Value: 1}, {Key: "reviewer_id", Value: 1}, {Key: "type", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, _ = col.Indexes().CreateOne(context.Background(), idx)
	return &ReviewRepository{col: col}
}

func (r *ReviewRepository) ByID(ctx context.Context, id domainreview.ID) (*domainreview.Review, error) {
	var doc reviewDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreview.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReviewRepository) Save(ctx context.Context, review *domainreview.Review) error {
	doc := newReviewDocument(review)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainreview.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *ReviewRepository) Exists(ctx context.Context, rentalID domainrental.ID, reviewer domainuser.ID, t domainreview.Type) (bool, error) {
	filter := bson.M{
		"rental_id":   string(rentalID),
		"reviewer_id": string(reviewer),
		"type":        string(t),
	}
	count, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ReviewRepository) ListForUser(ctx context.Context, reviewee domainuser.ID, t domainreview.Type) ([]*domainreview.Review, error) {
	filter := bson.M{"reviewee_id": string(reviewee)}
	if t != "" {
		filter["type"] = string(t)
	}
	return r.findAll(ctx, filter)
}

func (r *ReviewRepository) ListForRental(ctx context.Context, rentalID domainrental.ID) ([]*domainreview.Review, error) {
	return r.findAll(ctx, bson.M{"rental_id": string(rentalID)})
}

func (r *ReviewRepository) findAll(ctx context.Context, filter bson.M) ([]*domainreview.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []*domainreview.Review
	for cursor.Next(ctx) {
		var doc reviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cursor.Err()
}

type reviewDocument struct {
	ID         string `bson:"_id"`
	RentalID   string `bson:"rental_id"`
	ReviewerID string `bson:"reviewer_id"`
	RevieweeID string `bson:"reviewee_id"`
	Type       string `bson:"type"`
	Rating     int    `bson:"rating"`
	Comment    string `bson:"comment"`
	Hidden     bool   `bson:"hidden"`
	CreatedAt  int64  `bson:"created_at"`
}

func newReviewDocument(review *domainreview.Review) reviewDocument {
	return reviewDocument{
		ID:         string(review.ID),
		RentalID:   string(review.RentalID),
		ReviewerID: string(review.Reviewer),
		RevieweeID: string(review.Reviewee),
		Type:       string(review.Type),
		Rating:     review.Rating,
		Comment:    review.Comment,
		Hidden:     review.Hidden,
		CreatedAt:  review.CreatedAt.UnixMilli(),
	}
}

func (d reviewDocument) toAggregate() *domainreview.Review {
	return &domainreview.Review{
		ID:        domainreview.ID(d.ID),
		RentalID:  domainrental.ID(d.RentalID),
		Reviewer:  domainuser.ID(d.ReviewerID),
		Reviewee:  domainuser.ID(d.RevieweeID),
		Type:      domainreview.Type(d.Type),
		Rating:    d.Rating,
		Comment:   d.Comment,
		Hidden:    d.Hidden,
		CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
	}
}

var _ domainreview.Repository = (*ReviewRepository)(nil)
