package schedule

import (
	"context"
	"log/slog"
	"time"

	"kloset/internal/app/policies"
	"kloset/internal/app/uow"
	domainrental "kloset/internal/domain/rental"
	domainuser "kloset/internal/domain/user"
)

// LateRentalSweeper periodically scans picked-up rentals that are out past
// their end date and nudges the renter. It never mutates rental state;
// returns are always confirmed by a participant.
type LateRentalSweeper struct {
	UoWFactory uow.UoWFactory
	Notifier   policies.NotifierPort
	Interval   time.Duration
	Logger     *slog.Logger

	notified map[domainrental.ID]time.Time
}

func (s *LateRentalSweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil && s.Logger != nil {
				s.Logger.Error("late rental sweep failed", "error", err)
			}
		}
	}
}

func (s *LateRentalSweeper) sweep(ctx context.Context) error {
	unit, err := s.UoWFactory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer func() { _ = unit.Rollback(ctx) }()

	now := time.Now().UTC()
	active, err := unit.Rentals().ListFor(ctx, domainuser.ID(""), domainrental.ListParams{
		Statuses: []domainrental.Status{domainrental.StatusPickedUp},
	})
	if err != nil {
		return err
	}
	if s.notified == nil {
		s.notified = make(map[domainrental.ID]time.Time)
	}
	for _, r := range active {
		if !r.IsLate(now) {
			continue
		}
		// at most one nudge per day per rental
		if last, ok := s.notified[r.ID]; ok && now.Sub(last) < 24*time.Hour {
			continue
		}
		s.notified[r.ID] = now
		if s.Notifier != nil {
			_ = s.Notifier.Notify(ctx, r.Renter, "Rental overdue",
				"Your rental period has ended. Please arrange the return with the owner.")
		}
		if s.Logger != nil {
			s.Logger.Info("late rental flagged", "rental_id", r.ID, "days_late", r.DaysLate(now))
		}
	}
	return nil
}
