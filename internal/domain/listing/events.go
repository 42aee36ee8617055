package listing

import (
	"time"

	"kloset/internal/domain/user"
)

type SubmittedEvent struct {
	ListingID ID
	Owner     user.ID
	At        time.Time
}

func (e SubmittedEvent) EventName() string     { return "listing.submitted" }
func (e SubmittedEvent) AggregateID() string   { return string(e.ListingID) }
func (e SubmittedEvent) OccurredAt() time.Time { return e.At }

type ApprovedEvent struct {
	ListingID ID
	At        time.Time
}

func (e ApprovedEvent) EventName() string     { return "listing.approved" }
func (e ApprovedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ApprovedEvent) OccurredAt() time.Time { return e.At }

type RejectedEvent struct {
	ListingID ID
	Reason    string
	At        time.Time
}

func (e RejectedEvent) EventName() string     { return "listing.rejected" }
func (e RejectedEvent) AggregateID() string   { return string(e.ListingID) }
func (e RejectedEvent) OccurredAt() time.Time { return e.At }

type DeactivatedEvent struct {
	ListingID ID
	At        time.Time
}

func (e DeactivatedEvent) EventName() string     { return "listing.deactivated" }
func (e DeactivatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e DeactivatedEvent) OccurredAt() time.Time { return e.At }

type UpdatedEvent struct {
	ListingID ID
	At        time.Time
}

func (e UpdatedEvent) EventName() string     { return "listing.updated" }
func (e UpdatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e UpdatedEvent) OccurredAt() time.Time { return e.At }
