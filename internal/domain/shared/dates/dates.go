package dates

import (
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("dates: end must not be before start")

// Day is a calendar date pinned to midnight UTC. Rentals are priced and
// blocked at day granularity; wall-clock time never enters the comparison.
type Day struct {
	t time.Time
}

// DayOf truncates an instant to its UTC calendar date.
func DayOf(t time.Time) Day {
	t = t.UTC()
	return Day{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// NewDay builds a Day from components.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

func (d Day) Time() time.Time     { return d.t }
func (d Day) IsZero() bool        { return d.t.IsZero() }
func (d Day) Before(o Day) bool   { return d.t.Before(o.t) }
func (d Day) After(o Day) bool    { return d.t.After(o.t) }
func (d Day) Equal(o Day) bool    { return d.t.Equal(o.t) }
func (d Day) AddDays(n int) Day   { return Day{t: d.t.AddDate(0, 0, n)} }
func (d Day) String() string      { return d.t.Format("2006-01-02") }
func (d Day) DaysUntil(o Day) int { return int(o.t.Sub(d.t).Hours() / 24) }

// Range is a closed interval [Start, End]: both boundary days are occupied.
// Two ranges that merely touch on a boundary day therefore overlap.
type Range struct {
	Start Day
	End   Day
}

// NewRange validates and builds a closed day range.
func NewRange(start, end Day) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return ErrInvalidRange
	}
	if r.End.Before(r.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days counts the days in the range inclusively; a single-day range is 1.
func (r Range) Days() int {
	return r.Start.DaysUntil(r.End) + 1
}

// Overlaps applies the closed-interval test: start1 <= end2 && start2 <= end1.
func (r Range) Overlaps(other Range) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// ContainsDay reports whether d falls inside the range, boundaries included.
func (r Range) ContainsDay(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}
