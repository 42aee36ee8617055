package dto

import (
	"time"

	domainavailability "kloset/internal/domain/availability"
)

type CalendarBlock struct {
	ID        string    `json:"id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    string    `json:"reason"`
	RentalID  string    `json:"rental_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Calendar struct {
	ListingID string          `json:"listing_id"`
	Blocks    []CalendarBlock `json:"blocks"`
}

func MapCalendar(ledger *domainavailability.Ledger) Calendar {
	if ledger == nil {
		return Calendar{}
	}
	blocks := make([]CalendarBlock, 0, len(ledger.Blocks))
	for _, b := range ledger.Blocks {
		blocks = append(blocks, CalendarBlock{
			ID:        string(b.ID),
			StartDate: b.Range.Start.String(),
			EndDate:   b.Range.End.String(),
			Reason:    string(b.Reason),
			RentalID:  b.RentalID,
			CreatedAt: b.CreatedAt,
		})
	}
	return Calendar{ListingID: string(ledger.ListingID), Blocks: blocks}
}
