package dto

import (
	"time"

	domainreview "kloset/internal/domain/review"
)

type ReviewDetail struct {
	ID         string    `json:"id"`
	RentalID   string    `json:"rental_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Type       string    `json:"type"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type ReviewCollection struct {
	Items []ReviewDetail `json:"items"`
}

type ReviewSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Stars   [5]int  `json:"stars"`
}

func MapReviewDetail(r *domainreview.Review) ReviewDetail {
	if r == nil {
		return ReviewDetail{}
	}
	return ReviewDetail{
		ID:         string(r.ID),
		RentalID:   string(r.RentalID),
		ReviewerID: string(r.Reviewer),
		RevieweeID: string(r.Reviewee),
		Type:       string(r.Type),
		Rating:     r.Rating,
		Comment:    r.Comment,
		CreatedAt:  r.CreatedAt,
	}
}

func MapReviewSummary(s domainreview.Summary) ReviewSummary {
	return ReviewSummary{Count: s.Count, Average: s.Average, Stars: s.Stars}
}
