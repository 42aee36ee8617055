package availability

import (
	"time"

	"kloset/internal/domain/listing"
	"kloset/internal/domain/shared/dates"
)

type BlockedEvent struct {
	ListingID listing.ID
	Range     dates.Range
	Reason    BlockReason
	RentalID  string
	At        time.Time
}

func (e BlockedEvent) EventName() string     { return "availability.blocked" }
func (e BlockedEvent) AggregateID() string   { return string(e.ListingID) }
func (e BlockedEvent) OccurredAt() time.Time { return e.At }

type ReleasedEvent struct {
	ListingID listing.ID
	Range     dates.Range
	Reason    BlockReason
	RentalID  string
	At        time.Time
}

func (e ReleasedEvent) EventName() string     { return "availability.released" }
func (e ReleasedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ReleasedEvent) OccurredAt() time.Time { return e.At }

type DoubleBookingPreventedEvent struct {
	ListingID listing.ID
	Range     dates.Range
	RentalID  string
	At        time.Time
}

func (e DoubleBookingPreventedEvent) EventName() string     { return "availability.double_booking_prevented" }
func (e DoubleBookingPreventedEvent) AggregateID() string   { return string(e.ListingID) }
func (e DoubleBookingPreventedEvent) OccurredAt() time.Time { return e.At }
