package dto

import domaintrust "kloset/internal/domain/trust"

type TrustBadge struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type TrustSummary struct {
	TrustLevel       int          `json:"trust_level"`
	Badges           []string     `json:"badges"`
	BadgesDisplay    []TrustBadge `json:"badges_display"`
	ResponseRate     float64      `json:"response_rate"`
	CompletedRentals int          `json:"completed_rentals"`
	IsTopLender      bool         `json:"is_top_lender"`
	RatingAsOwner    *float64     `json:"rating_as_owner"`
	RatingAsRenter   *float64     `json:"rating_as_renter"`
	TotalReviews     int          `json:"total_reviews"`
}

func MapTrustSummary(s domaintrust.Summary) TrustSummary {
	badges := s.Badges
	if badges == nil {
		badges = []string{}
	}
	display := make([]TrustBadge, 0, len(badges))
	for _, b := range domaintrust.DisplayBadges(badges) {
		display = append(display, TrustBadge{Code: b.Code, Name: b.Name, Description: b.Description})
	}
	return TrustSummary{
		TrustLevel:       int(s.Level),
		Badges:           badges,
		BadgesDisplay:    display,
		ResponseRate:     s.ResponseRate,
		CompletedRentals: s.CompletedAsOwner,
		IsTopLender:      s.IsTopLender,
		RatingAsOwner:    s.RatingAsOwner,
		RatingAsRenter:   s.RatingAsRenter,
		TotalReviews:     s.TotalReviews,
	}
}
