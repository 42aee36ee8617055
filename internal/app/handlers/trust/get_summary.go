package trust

import (
	"context"

	"kloset/internal/app/dto"
	"kloset/internal/app/handlers/support"
	"kloset/internal/app/queries"
	"kloset/internal/app/uow"
	domainrental "kloset/internal/domain/rental"
	domainreview "kloset/internal/domain/review"
	domaintrust "kloset/internal/domain/trust"
	domainuser "kloset/internal/domain/user"
)

const trustSummaryKey = "trust.summary"

// respondedStatuses are the rental outcomes that count as the owner having
// answered a request. A renter cancelling a still-pending request does not.
var respondedStatuses = []domainrental.Status{
	domainrental.StatusAccepted,
	domainrental.StatusRejected,
	domainrental.StatusPickedUp,
	domainrental.StatusReturned,
	domainrental.StatusCompleted,
}

type GetTrustSummaryQuery struct {
	UserID string
}

func (q GetTrustSummaryQuery) Key() string { return trustSummaryKey }

// GetTrustSummaryHandler gathers the raw counts from storage and hands
// them to the pure evaluator.
type GetTrustSummaryHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetTrustSummaryHandler) Handle(ctx context.Context, q GetTrustSummaryQuery) (*dto.TrustSummary, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	userID := domainuser.ID(q.UserID)
	profile, err := unit.Users().ByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	asOwner, err := unit.Rentals().ListFor(ctx, userID, domainrental.ListParams{AsOwner: true})
	if err != nil {
		return nil, err
	}
	completed := 0
	responded := 0
	for _, r := range asOwner {
		if r.Status == domainrental.StatusCompleted {
			completed++
		}
		for _, s := range respondedStatuses {
			if r.Status == s {
				responded++
				break
			}
		}
	}

	ownerReviews, err := unit.Reviews().ListForUser(ctx, userID, domainreview.TypeRenterToOwner)
	if err != nil {
		return nil, err
	}
	renterReviews, err := unit.Reviews().ListForUser(ctx, userID, domainreview.TypeOwnerToRenter)
	if err != nil {
		return nil, err
	}

	summary := domaintrust.Evaluate(domaintrust.Input{
		Verification:      profile.Verified,
		CompletedAsOwner:  completed,
		OwnerRatings:      visibleRatings(ownerReviews),
		RenterRatings:     visibleRatings(renterReviews),
		RequestsReceived:  len(asOwner),
		RequestsResponded: responded,
	})
	mapped := dto.MapTrustSummary(summary)
	return &mapped, nil
}

func visibleRatings(reviews []*domainreview.Review) []int {
	out := make([]int, 0, len(reviews))
	for _, r := range reviews {
		if r.Hidden {
			continue
		}
		out = append(out, r.Rating)
	}
	return out
}

var _ queries.Handler[GetTrustSummaryQuery, *dto.TrustSummary] = (*GetTrustSummaryHandler)(nil)
