package trust

import (
	"math"

	"kloset/internal/domain/user"
)

// Level orders the verification tiers; a user holds the highest tier earned.
type Level int

const (
	LevelUnverified        Level = 0
	LevelEmailVerified     Level = 1
	LevelPhoneVerified     Level = 2
	LevelCommunityVerified Level = 3
	LevelTopLender         Level = 4
)

const (
	BadgeEmailVerified     = "email_verified"
	BadgePhoneVerified     = "phone_verified"
	BadgeCommunityVerified = "community_verified"
	BadgeTopLender         = "top_lender"
)

const (
	// TopLenderMinRentals and TopLenderMinRating gate the top tier: at least
	// this many completed rentals as owner and at least this mean rating from
	// renters.
	TopLenderMinRentals = 10
	TopLenderMinRating  = 4.5
)

// Input carries the raw counts the evaluator needs; gathering them from
// storage is the caller's job, so Evaluate stays pure and testable.
type Input struct {
	Verification user.Verification

	// CompletedAsOwner counts rentals the user completed as the lender.
	CompletedAsOwner int
	// OwnerRatings are the renter_to_owner ratings the user received.
	OwnerRatings []int
	// RenterRatings are the owner_to_renter ratings the user received.
	RenterRatings []int

	// RequestsReceived counts every rental request the user got as owner;
	// RequestsResponded those the user accepted or rejected (any status past
	// pending except a renter cancellation).
	RequestsReceived  int
	RequestsResponded int
}

type Summary struct {
	Level            Level
	Badges           []string
	ResponseRate     float64
	CompletedAsOwner int
	IsTopLender      bool
	RatingAsOwner    *float64
	RatingAsRenter   *float64
	TotalReviews     int
}

// Evaluate computes the trust tier, badges and response rate from raw counts.
func Evaluate(in Input) Summary {
	s := Summary{
		Level:            LevelUnverified,
		CompletedAsOwner: in.CompletedAsOwner,
		TotalReviews:     len(in.OwnerRatings) + len(in.RenterRatings),
	}

	if in.Verification.Email {
		s.Badges = append(s.Badges, BadgeEmailVerified)
		s.Level = max(s.Level, LevelEmailVerified)
	}
	if in.Verification.Phone {
		s.Badges = append(s.Badges, BadgePhoneVerified)
		s.Level = max(s.Level, LevelPhoneVerified)
	}
	if in.Verification.Community {
		s.Badges = append(s.Badges, BadgeCommunityVerified)
		s.Level = max(s.Level, LevelCommunityVerified)
	}

	s.RatingAsOwner = meanOf(in.OwnerRatings)
	s.RatingAsRenter = meanOf(in.RenterRatings)

	if in.CompletedAsOwner >= TopLenderMinRentals &&
		s.RatingAsOwner != nil && *s.RatingAsOwner >= TopLenderMinRating {
		s.Badges = append(s.Badges, BadgeTopLender)
		s.Level = max(s.Level, LevelTopLender)
		s.IsTopLender = true
	}

	s.ResponseRate = ResponseRate(in.RequestsReceived, in.RequestsResponded)
	return s
}

// ResponseRate is responded/received rounded to two decimals. Users with no
// requests yet default to 1.0 rather than being penalized for inactivity.
func ResponseRate(received, responded int) float64 {
	if received <= 0 {
		return 1.0
	}
	return math.Round(float64(responded)/float64(received)*100) / 100
}

// BadgeDisplay is the presentation form of a badge code.
type BadgeDisplay struct {
	Code        string
	Name        string
	Description string
}

var badgeCatalog = map[string]BadgeDisplay{
	BadgeEmailVerified: {
		Code: BadgeEmailVerified, Name: "Email Verified",
		Description: "Email address has been verified",
	},
	BadgePhoneVerified: {
		Code: BadgePhoneVerified, Name: "Phone Verified",
		Description: "Phone number has been verified",
	},
	BadgeCommunityVerified: {
		Code: BadgeCommunityVerified, Name: "Community Member",
		Description: "Verified through a community invite code",
	},
	BadgeTopLender: {
		Code: BadgeTopLender, Name: "Top Lender",
		Description: "10+ completed rentals with 4.5+ rating",
	},
}

// DisplayBadges maps badge codes to display entries, keeping order.
func DisplayBadges(codes []string) []BadgeDisplay {
	out := make([]BadgeDisplay, 0, len(codes))
	for _, code := range codes {
		if info, ok := badgeCatalog[code]; ok {
			out = append(out, info)
			continue
		}
		out = append(out, BadgeDisplay{Code: code, Name: code})
	}
	return out
}

func meanOf(ratings []int) *float64 {
	if len(ratings) == 0 {
		return nil
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	// one decimal, matching what profiles show
	mean := math.Round(float64(total)/float64(len(ratings))*10) / 10
	return &mean
}
