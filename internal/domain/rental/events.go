package rental

import (
	"time"

	"kloset/internal/domain/listing"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/user"
)

type RequestedEvent struct {
	RentalID  ID
	ListingID listing.ID
	Renter    user.ID
	Range     dates.Range
	At        time.Time
}

func (e RequestedEvent) EventName() string     { return "rental.requested" }
func (e RequestedEvent) AggregateID() string   { return string(e.RentalID) }
func (e RequestedEvent) OccurredAt() time.Time { return e.At }

type AcceptedEvent struct {
	RentalID  ID
	ListingID listing.ID
	Range     dates.Range
	At        time.Time
}

func (e AcceptedEvent) EventName() string     { return "rental.accepted" }
func (e AcceptedEvent) AggregateID() string   { return string(e.RentalID) }
func (e AcceptedEvent) OccurredAt() time.Time { return e.At }

type RejectedEvent struct {
	RentalID  ID
	ListingID listing.ID
	Reason    string
	At        time.Time
}

func (e RejectedEvent) EventName() string     { return "rental.rejected" }
func (e RejectedEvent) AggregateID() string   { return string(e.RentalID) }
func (e RejectedEvent) OccurredAt() time.Time { return e.At }

type CancelledEvent struct {
	RentalID  ID
	ListingID listing.ID
	By        user.ID
	Reason    string
	At        time.Time
}

func (e CancelledEvent) EventName() string     { return "rental.cancelled" }
func (e CancelledEvent) AggregateID() string   { return string(e.RentalID) }
func (e CancelledEvent) OccurredAt() time.Time { return e.At }

type PickedUpEvent struct {
	RentalID  ID
	ListingID listing.ID
	At        time.Time
}

func (e PickedUpEvent) EventName() string     { return "rental.picked_up" }
func (e PickedUpEvent) AggregateID() string   { return string(e.RentalID) }
func (e PickedUpEvent) OccurredAt() time.Time { return e.At }

type ReturnedEvent struct {
	RentalID  ID
	ListingID listing.ID
	At        time.Time
}

func (e ReturnedEvent) EventName() string     { return "rental.returned" }
func (e ReturnedEvent) AggregateID() string   { return string(e.RentalID) }
func (e ReturnedEvent) OccurredAt() time.Time { return e.At }

type CompletedEvent struct {
	RentalID  ID
	ListingID listing.ID
	Owner     user.ID
	Renter    user.ID
	At        time.Time
}

func (e CompletedEvent) EventName() string     { return "rental.completed" }
func (e CompletedEvent) AggregateID() string   { return string(e.RentalID) }
func (e CompletedEvent) OccurredAt() time.Time { return e.At }
