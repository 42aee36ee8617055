package review

import (
	"context"
	"strings"
	"time"

	"kloset/internal/domain/rental"
	"kloset/internal/domain/shared/fault"
	"kloset/internal/domain/user"
)

var (
	ErrNotFound          = fault.NotFound("review: not found")
	ErrRentalNotComplete = fault.InvalidState("review: rental is not completed")
	ErrNotParticipant    = fault.Forbidden("review: reviewer did not take part in the rental")
	ErrWrongDirection    = fault.Forbidden("review: review type does not match reviewer's role")
	ErrDuplicate         = fault.Conflict("review: already reviewed this rental")
	ErrRating            = fault.Validation("review: rating must be between 1 and 5")
)

type ID string

// Type gives the direction of a review within a rental.
type Type string

const (
	TypeRenterToOwner Type = "renter_to_owner"
	TypeOwnerToRenter Type = "owner_to_renter"
)

type Review struct {
	ID       ID
	RentalID rental.ID
	Reviewer user.ID
	Reviewee user.ID
	Type     Type
	Rating   int
	Comment  string
	Hidden   bool

	CreatedAt time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Review, error)
	Save(ctx context.Context, review *Review) error
	// Exists reports whether the reviewer already wrote this direction's
	// review for the rental; the (rental, reviewer, type) key is unique.
	Exists(ctx context.Context, rentalID rental.ID, reviewer user.ID, t Type) (bool, error)
	ListForUser(ctx context.Context, reviewee user.ID, t Type) ([]*Review, error)
	ListForRental(ctx context.Context, rentalID rental.ID) ([]*Review, error)
}

type CreateParams struct {
	ID       ID
	Reviewer user.ID
	Type     Type
	Rating   int
	Comment  string
	Now      time.Time
}

// New runs the review gate against the rental and builds the review. The
// duplicate check is storage-backed and stays with the caller.
func New(r *rental.Rental, params CreateParams) (*Review, error) {
	if r.Status != rental.StatusCompleted {
		return nil, ErrRentalNotComplete
	}
	if !r.Participant(params.Reviewer) {
		return nil, ErrNotParticipant
	}
	reviewee, err := revieweeFor(r, params.Reviewer, params.Type)
	if err != nil {
		return nil, err
	}
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrRating
	}

	return &Review{
		ID:        params.ID,
		RentalID:  r.ID,
		Reviewer:  params.Reviewer,
		Reviewee:  reviewee,
		Type:      params.Type,
		Rating:    params.Rating,
		Comment:   strings.TrimSpace(params.Comment),
		CreatedAt: params.Now.UTC(),
	}, nil
}

// revieweeFor enforces direction: renters write renter_to_owner, owners write
// owner_to_renter, and the reviewee is always the other party.
func revieweeFor(r *rental.Rental, reviewer user.ID, t Type) (user.ID, error) {
	switch t {
	case TypeRenterToOwner:
		if reviewer != r.Renter {
			return "", ErrWrongDirection
		}
		return r.Owner, nil
	case TypeOwnerToRenter:
		if reviewer != r.Owner {
			return "", ErrWrongDirection
		}
		return r.Renter, nil
	default:
		return "", fault.Validation("review: unknown review type")
	}
}

// Summary aggregates the visible reviews received by one user in one direction.
type Summary struct {
	Count   int
	Average float64
	// Stars[i] counts (i+1)-star reviews.
	Stars [5]int
}

// Summarize folds reviews into a Summary, skipping hidden ones.
func Summarize(reviews []*Review) Summary {
	var s Summary
	total := 0
	for _, r := range reviews {
		if r.Hidden || r.Rating < 1 || r.Rating > 5 {
			continue
		}
		s.Count++
		s.Stars[r.Rating-1]++
		total += r.Rating
	}
	if s.Count > 0 {
		s.Average = float64(total) / float64(s.Count)
	}
	return s
}
