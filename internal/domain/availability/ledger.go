package availability

import (
	"context"
	"time"

	"kloset/internal/domain/listing"
	"kloset/internal/domain/shared/dates"
	"kloset/internal/domain/shared/events"
	"kloset/internal/domain/shared/fault"
)

var (
	ErrOverlappingRange = fault.Conflict("availability: range overlaps an existing block")
	ErrBlockNotFound    = fault.NotFound("availability: block not found")
	ErrRentalBlock      = fault.Forbidden("availability: rental blocks cannot be removed manually")
)

type BlockReason string

const (
	// ReasonRental marks blocks written by the rental state machine on
	// acceptance; they carry the rental id and only the state machine may
	// remove them (on cancellation before pickup).
	ReasonRental      BlockReason = "rental"
	ReasonBlocked     BlockReason = "blocked"
	ReasonMaintenance BlockReason = "maintenance"
)

type BlockID string

type Block struct {
	ID        BlockID
	Range     dates.Range
	Reason    BlockReason
	RentalID  string
	CreatedAt time.Time
}

// Ledger holds every blocked range of one listing. It is the unit of
// persistence: saves use a version compare-and-swap so a concurrent writer
// loses rather than double-books (see the repository contract).
type Ledger struct {
	ListingID listing.ID
	Blocks    []Block
	Version   int64
	events.EventRecorder
}

// Repository persists ledgers. Save must be atomic with respect to Version:
// a stale version must fail with a conflict, never silently overwrite.
type Repository interface {
	Ledger(ctx context.Context, id listing.ID) (*Ledger, error)
	Save(ctx context.Context, ledger *Ledger) error
}

func NewLedger(id listing.ID) *Ledger {
	return &Ledger{ListingID: id}
}

// IsFree reports whether the closed range collides with no existing block.
// Boundary days count: a block ending on a range's start day is a conflict.
func (l *Ledger) IsFree(r dates.Range) bool {
	for _, block := range l.Blocks {
		if block.Range.Overlaps(r) {
			return false
		}
	}
	return true
}

// AddBlock appends a manual or maintenance block after the overlap check.
func (l *Ledger) AddBlock(id BlockID, r dates.Range, reason BlockReason, now time.Time) error {
	if reason == "" {
		reason = ReasonBlocked
	}
	if reason == ReasonRental {
		return fault.Validation("availability: rental blocks require a rental reference")
	}
	if !l.IsFree(r) {
		return ErrOverlappingRange
	}
	l.Blocks = append(l.Blocks, Block{ID: id, Range: r, Reason: reason, CreatedAt: now.UTC()})
	l.Record(BlockedEvent{ListingID: l.ListingID, Range: r, Reason: reason, At: now.UTC()})
	return nil
}

// Reserve writes the rental-tagged block on acceptance.
func (l *Ledger) Reserve(id BlockID, r dates.Range, rentalID string, now time.Time) error {
	if !l.IsFree(r) {
		l.Record(DoubleBookingPreventedEvent{ListingID: l.ListingID, Range: r, RentalID: rentalID, At: now.UTC()})
		return ErrOverlappingRange
	}
	l.Blocks = append(l.Blocks, Block{ID: id, Range: r, Reason: ReasonRental, RentalID: rentalID, CreatedAt: now.UTC()})
	l.Record(BlockedEvent{ListingID: l.ListingID, Range: r, Reason: ReasonRental, RentalID: rentalID, At: now.UTC()})
	return nil
}

// RemoveBlock deletes an owner-authored block. Rental blocks are refused;
// those come off only through ReleaseRental.
func (l *Ledger) RemoveBlock(id BlockID, now time.Time) error {
	idx := l.indexOf(id)
	if idx == -1 {
		return ErrBlockNotFound
	}
	if l.Blocks[idx].Reason == ReasonRental {
		return ErrRentalBlock
	}
	removed := l.Blocks[idx]
	l.Blocks = append(l.Blocks[:idx], l.Blocks[idx+1:]...)
	l.Record(ReleasedEvent{ListingID: l.ListingID, Range: removed.Range, Reason: removed.Reason, At: now.UTC()})
	return nil
}

// ReleaseRental removes the block tied to a rental; used by the state
// machine on cancellation before pickup. Releasing a rental with no block is
// a no-op: a pending rental never wrote one.
func (l *Ledger) ReleaseRental(rentalID string, now time.Time) bool {
	for i, block := range l.Blocks {
		if block.Reason == ReasonRental && block.RentalID == rentalID {
			l.Blocks = append(l.Blocks[:i], l.Blocks[i+1:]...)
			l.Record(ReleasedEvent{ListingID: l.ListingID, Range: block.Range, Reason: block.Reason, RentalID: rentalID, At: now.UTC()})
			return true
		}
	}
	return false
}

func (l *Ledger) indexOf(id BlockID) int {
	for i, block := range l.Blocks {
		if block.ID == id {
			return i
		}
	}
	return -1
}
