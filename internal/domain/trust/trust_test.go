package trust_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kloset/internal/domain/trust"
	"kloset/internal/domain/user"
)

func ratings(value int, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestLevelsFollowVerification(t *testing.T) {
	s := trust.Evaluate(trust.Input{})
	assert.Equal(t, trust.LevelUnverified, s.Level)
	assert.Empty(t, s.Badges)

	s = trust.Evaluate(trust.Input{Verification: user.Verification{Email: true}})
	assert.Equal(t, trust.LevelEmailVerified, s.Level)
	assert.Contains(t, s.Badges, trust.BadgeEmailVerified)

	s = trust.Evaluate(trust.Input{Verification: user.Verification{Email: true, Phone: true}})
	assert.Equal(t, trust.LevelPhoneVerified, s.Level)

	s = trust.Evaluate(trust.Input{Verification: user.Verification{Community: true}})
	assert.Equal(t, trust.LevelCommunityVerified, s.Level)
}

func TestTopLenderThresholds(t *testing.T) {
	// both thresholds met
	s := trust.Evaluate(trust.Input{
		CompletedAsOwner: 10,
		OwnerRatings:     ratings(5, 4),
	})
	assert.True(t, s.IsTopLender)
	assert.Equal(t, trust.LevelTopLender, s.Level)
	assert.Contains(t, s.Badges, trust.BadgeTopLender)

	// one completed rental short
	s = trust.Evaluate(trust.Input{
		CompletedAsOwner: 9,
		OwnerRatings:     ratings(5, 4),
	})
	assert.False(t, s.IsTopLender)

	// rating below 4.5
	s = trust.Evaluate(trust.Input{
		CompletedAsOwner: 20,
		OwnerRatings:     ratings(4, 10),
	})
	assert.False(t, s.IsTopLender)

	// exactly 4.5 qualifies
	s = trust.Evaluate(trust.Input{
		CompletedAsOwner: 10,
		OwnerRatings:     append(ratings(4, 5), ratings(5, 5)...),
	})
	assert.True(t, s.IsTopLender)

	// completions without any owner ratings never qualify
	s = trust.Evaluate(trust.Input{CompletedAsOwner: 50})
	assert.False(t, s.IsTopLender)
}

func TestRatingsRoundedToOneDecimal(t *testing.T) {
	s := trust.Evaluate(trust.Input{
		OwnerRatings:  []int{5, 4, 4}, // 4.333...
		RenterRatings: []int{3, 4},    // 3.5
	})
	require.NotNil(t, s.RatingAsOwner)
	assert.Equal(t, 4.3, *s.RatingAsOwner)
	require.NotNil(t, s.RatingAsRenter)
	assert.Equal(t, 3.5, *s.RatingAsRenter)
	assert.Equal(t, 5, s.TotalReviews)

	s = trust.Evaluate(trust.Input{})
	assert.Nil(t, s.RatingAsOwner)
	assert.Nil(t, s.RatingAsRenter)
}

func TestResponseRate(t *testing.T) {
	// no requests yet defaults to 1.0
	assert.Equal(t, 1.0, trust.ResponseRate(0, 0))
	assert.Equal(t, 1.0, trust.ResponseRate(-1, 0))

	assert.Equal(t, 0.0, trust.ResponseRate(4, 0))
	assert.Equal(t, 0.67, trust.ResponseRate(3, 2))
	assert.Equal(t, 0.33, trust.ResponseRate(3, 1))
	assert.Equal(t, 1.0, trust.ResponseRate(7, 7))
}

func TestDisplayBadges(t *testing.T) {
	out := trust.DisplayBadges([]string{trust.BadgeTopLender, "mystery"})
	require.Len(t, out, 2)
	assert.Equal(t, "Top Lender", out[0].Name)
	assert.Equal(t, "mystery", out[1].Name)
}
