package dates_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kloset/internal/domain/shared/dates"
)

func day(s string) dates.Day {
	d, err := dates.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mustRange(start, end string) dates.Range {
	r, err := dates.NewRange(day(start), day(end))
	if err != nil {
		panic(err)
	}
	return r
}

func TestDayOfTruncatesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 23:30 local is already the next day in UTC
	d := dates.DayOf(time.Date(2024, 1, 9, 23, 30, 0, 0, loc))
	assert.Equal(t, "2024-01-10", d.String())
}

func TestRangeValidation(t *testing.T) {
	_, err := dates.NewRange(day("2024-01-12"), day("2024-01-10"))
	assert.ErrorIs(t, err, dates.ErrInvalidRange)

	r, err := dates.NewRange(day("2024-01-10"), day("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Days())
}

func TestDaysIsInclusive(t *testing.T) {
	assert.Equal(t, 3, mustRange("2024-01-10", "2024-01-12").Days())
	assert.Equal(t, 1, mustRange("2024-01-10", "2024-01-10").Days())
	assert.Equal(t, 31, mustRange("2024-01-01", "2024-01-31").Days())
}

func TestOverlapsClosedInterval(t *testing.T) {
	base := mustRange("2024-01-10", "2024-01-12")

	// shared boundary day counts as a conflict
	assert.True(t, base.Overlaps(mustRange("2024-01-12", "2024-01-15")))
	assert.True(t, base.Overlaps(mustRange("2024-01-08", "2024-01-10")))

	assert.True(t, base.Overlaps(mustRange("2024-01-11", "2024-01-11")))
	assert.True(t, base.Overlaps(mustRange("2024-01-01", "2024-01-31")))

	assert.False(t, base.Overlaps(mustRange("2024-01-13", "2024-01-15")))
	assert.False(t, base.Overlaps(mustRange("2024-01-07", "2024-01-09")))
}

func TestContainsDay(t *testing.T) {
	r := mustRange("2024-01-10", "2024-01-12")
	assert.True(t, r.ContainsDay(day("2024-01-10")))
	assert.True(t, r.ContainsDay(day("2024-01-12")))
	assert.False(t, r.ContainsDay(day("2024-01-13")))
}
