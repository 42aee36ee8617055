package reviews

import (
	"context"
	"errors"
	"time"

	"kloset/internal/app/commands"
	"kloset/internal/app/outbox"
	"kloset/internal/app/uow"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	domainuser "kloset/internal/domain/user"
)

const submitReviewKey = "review.submit"

var ErrUnitOfWorkRequired = errors.New("reviews: unit of work required")

type SubmitReviewCommand struct {
	CommandID string
	RentalID  string
	Reviewer  string
	Type      string
	Rating    int
	Comment   string
}

func (c SubmitReviewCommand) Key() string { return submitReviewKey }

type SubmitReviewResult struct {
	ReviewID string `json:"review_id"`
}

// SubmitReviewHandler runs the review gate: completed rental, participant
// reviewer, direction matching the reviewer's role, one review per
// (rental, reviewer, type).
type SubmitReviewHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Now        func() time.Time
}

func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (*SubmitReviewResult, error) {
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

	rental, err := unit.Rentals().ByID(ctx, domainrental.ID(cmd.RentalID))
	if err != nil {
		return nil, err
	}

	reviewType := domainreview.Type(cmd.Type)
	reviewer := domainuser.ID(cmd.Reviewer)
	exists, err := unit.Reviews().Exists(ctx, rental.ID, reviewer, reviewType)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domainreview.ErrDuplicate
	}

	now := time.Now().UTC()
	if h.Now != nil {
		now = h.Now().UTC()
	}
	review, err := domainreview.New(rental, domainreview.CreateParams{
		ID:       domainreview.ID(cmd.CommandID),
		Reviewer: reviewer,
		Type:     reviewType,
		Rating:   cmd.Rating,
		Comment:  cmd.Comment,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Reviews().Save(ctx, review); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &SubmitReviewResult{ReviewID: string(review.ID)}, nil
}

var _ commands.Handler[SubmitReviewCommand, *SubmitReviewResult] = (*SubmitReviewHandler)(nil)
