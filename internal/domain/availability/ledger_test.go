package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kloset/internal/domain/availability"
	"kloset/internal/domain/shared/dates"
)

var now = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

func rng(start, end string) dates.Range {
	s, err := dates.ParseDay(start)
	if err != nil {
		panic(err)
	}
	e, err := dates.ParseDay(end)
	if err != nil {
		panic(err)
	}
	r, err := dates.NewRange(s, e)
	if err != nil {
		panic(err)
	}
	return r
}

func TestAddBlockRejectsOverlap(t *testing.T) {
	l := availability.NewLedger("lst-1")
	require.NoError(t, l.AddBlock("b1", rng("2024-01-10", "2024-01-12"), availability.ReasonBlocked, now))

	err := l.AddBlock("b2", rng("2024-01-12", "2024-01-14"), availability.ReasonMaintenance, now)
	assert.ErrorIs(t, err, availability.ErrOverlappingRange)

	// adjacent but not touching is fine
	require.NoError(t, l.AddBlock("b3", rng("2024-01-13", "2024-01-14"), availability.ReasonMaintenance, now))
	assert.Len(t, l.Blocks, 2)
}

func TestAddBlockDefaultsReason(t *testing.T) {
	l := availability.NewLedger("lst-1")
	require.NoError(t, l.AddBlock("b1", rng("2024-01-10", "2024-01-12"), "", now))
	assert.Equal(t, availability.ReasonBlocked, l.Blocks[0].Reason)
}

func TestAddBlockRefusesRentalReason(t *testing.T) {
	l := availability.NewLedger("lst-1")
	err := l.AddBlock("b1", rng("2024-01-10", "2024-01-12"), availability.ReasonRental, now)
	assert.Error(t, err)
	assert.Empty(t, l.Blocks)
}

func TestReserveWritesRentalBlock(t *testing.T) {
	l := availability.NewLedger("lst-1")
	require.NoError(t, l.Reserve("b1", rng("2024-01-10", "2024-01-12"), "rnt-1", now))
	assert.Equal(t, availability.ReasonRental, l.Blocks[0].Reason)
	assert.Equal(t, "rnt-1", l.Blocks[0].RentalID)

	err := l.Reserve("b2", rng("2024-01-11", "2024-01-15"), "rnt-2", now)
	assert.ErrorIs(t, err, availability.ErrOverlappingRange)

	var prevented bool
	for _, ev := range l.PendingEvents() {
		if ev.EventName() == "availability.double_booking_prevented" {
			prevented = true
		}
	}
	assert.True(t, prevented)
}

func TestRemoveBlockProtectsRentalBlocks(t *testing.T) {
	l := availability.NewLedger("lst-1")
	require.NoError(t, l.Reserve("b1", rng("2024-01-10", "2024-01-12"), "rnt-1", now))
	require.NoError(t, l.AddBlock("b2", rng("2024-02-01", "2024-02-03"), availability.ReasonBlocked, now))

	err := l.RemoveBlock("b1", now)
	assert.ErrorIs(t, err, availability.ErrRentalBlock)

	require.NoError(t, l.RemoveBlock("b2", now))
	assert.Len(t, l.Blocks, 1)

	err = l.RemoveBlock("missing", now)
	assert.ErrorIs(t, err, availability.ErrBlockNotFound)
}

func TestReleaseRental(t *testing.T) {
	l := availability.NewLedger("lst-1")
	require.NoError(t, l.Reserve("b1", rng("2024-01-10", "2024-01-12"), "rnt-1", now))

	assert.True(t, l.ReleaseRental("rnt-1", now))
	assert.Empty(t, l.Blocks)
	assert.True(t, l.IsFree(rng("2024-01-10", "2024-01-12")))

	// releasing a rental that never wrote a block is a no-op
	assert.False(t, l.ReleaseRental("rnt-1", now))
	assert.False(t, l.ReleaseRental("rnt-unknown", now))
}
