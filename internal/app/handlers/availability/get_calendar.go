package availability

import (
	"context"

	"kloset/internal/app/dto"
	"kloset/internal/app/handlers/support"
	"kloset/internal/app/queries"
	"kloset/internal/app/uow"
	domainlisting "kloset/internal/domain/listing"
)

const getCalendarKey = "availability.calendar"

type GetCalendarQuery struct {
	ListingID string
}

func (q GetCalendarQuery) Key() string { return getCalendarKey }

// GetCalendarHandler returns every block on a listing's calendar, rental
// reservations included, so renters can see which dates are taken.
type GetCalendarHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCalendarHandler) Handle(ctx context.Context, q GetCalendarQuery) (*dto.Calendar, error) {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if _, err := unit.Listings().ByID(ctx, domainlisting.ID(q.ListingID)); err != nil {
		return nil, err
	}
	ledger, err := unit.Availability().Ledger(ctx, domainlisting.ID(q.ListingID))
	if err != nil {
		return nil, err
	}
	calendar := dto.MapCalendar(ledger)
	return &calendar, nil
}

var _ queries.Handler[GetCalendarQuery, *dto.Calendar] = (*GetCalendarHandler)(nil)
