package rentals

import (
	"context"
	"time"

	"kloset/internal/app/outbox"
	"kloset/internal/domain/shared/events"
)

type eventSource interface {
	PendingEvents() []events.DomainEvent
	ClearEvents()
}

// drainEvents moves pending domain events from aggregates into the outbox.
func drainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, sources ...eventSource) error {
	if box == nil {
		for _, src := range sources {
			src.ClearEvents()
		}
		return nil
	}
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	for _, src := range sources {
		pending := src.PendingEvents()
		src.ClearEvents()
		if err := outbox.RecordDomainEvents(ctx, box, encoder, pending); err != nil {
			return err
		}
	}
	return nil
}

func nowOrDefault(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}
