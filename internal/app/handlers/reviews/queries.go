package reviews

import (
	"context"

	"kloset/internal/app/dto"
	"kloset/internal/app/handlers/support"
	"kloset/internal/app/queries"
	"kloset/internal/app/uow"
	domainreview "kloset/internal/domain/review"
	domainuser "kloset/internal/domain/user"
)

const (
	listReviewsKey   = "review.list"
	reviewSummaryKey = "review.summary"
)

type ListReviewsQuery struct {
	RevieweeID string
	Type       string
}

func (q ListReviewsQuery) Key() string { return listReviewsKey }

type ListReviewsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListReviewsHandler) Handle(ctx context.Context, q ListReviewsQuery) (*dto.ReviewCollection, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	items, err := unit.Reviews().ListForUser(ctx, domainuser.ID(q.RevieweeID), domainreview.Type(q.Type))
	if err != nil {
		return nil, err
	}
	out := dto.ReviewCollection{Items: make([]dto.ReviewDetail, 0, len(items))}
	for _, r := range items {
		if r.Hidden {
			continue
		}
		out.Items = append(out.Items, dto.MapReviewDetail(r))
	}
	return &out, nil
}

type ReviewSummaryQuery struct {
	RevieweeID string
	Type       string
}

func (q ReviewSummaryQuery) Key() string { return reviewSummaryKey }

type ReviewSummaryHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ReviewSummaryHandler) Handle(ctx context.Context, q ReviewSummaryQuery) (*dto.ReviewSummary, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	items, err := unit.Reviews().ListForUser(ctx, domainuser.ID(q.RevieweeID), domainreview.Type(q.Type))
	if err != nil {
		return nil, err
	}
	summary := dto.MapReviewSummary(domainreview.Summarize(items))
	return &summary, nil
}

var _ queries.Handler[ListReviewsQuery, *dto.ReviewCollection] = (*ListReviewsHandler)(nil)
var _ queries.Handler[ReviewSummaryQuery, *dto.ReviewSummary] = (*ReviewSummaryHandler)(nil)
