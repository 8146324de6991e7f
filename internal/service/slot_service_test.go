package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusq/queuedesk/internal/model"
)

func TestGetOrCreateSlotsTemplate(t *testing.T) {
	f := newFixture()
	counter := f.counter("Admissions")
	ctx := context.Background()

	slots, err := f.slots.GetOrCreateSlots(ctx, counter.ID, f.clock.TodayStart())
	require.NoError(t, err)
	require.Len(t, slots, 6)

	starts := make([]string, 0, len(slots))
	for _, slot := range slots {
		starts = append(starts, slot.StartTime)
		assert.Equal(t, testCapacity, slot.MaxCapacity)
		assert.Equal(t, 0, slot.CurrentBookings)
		assert.True(t, slot.IsActive)
	}
	assert.Equal(t, []string{"10:00", "11:00", "12:00", "14:00", "15:00", "16:00"}, starts)
}

func TestGetOrCreateSlotsIdempotent(t *testing.T) {
	f := newFixture()
	counter := f.counter("Admissions")
	ctx := context.Background()

	first, err := f.slots.GetOrCreateSlots(ctx, counter.ID, f.clock.TodayStart())
	require.NoError(t, err)

	second, err := f.slots.GetOrCreateSlots(ctx, counter.ID, f.clock.TodayStart())
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestGetOrCreateSlotsPastDate(t *testing.T) {
	f := newFixture()
	counter := f.counter("Admissions")

	yesterday := f.clock.TodayStart().AddDate(0, 0, -1)
	_, err := f.slots.GetOrCreateSlots(context.Background(), counter.ID, yesterday)
	assert.ErrorIs(t, err, ErrPastDate)
}

func TestGetOrCreateSlotsInactiveCounter(t *testing.T) {
	f := newFixture()
	counter := f.store.addCounter(&model.Counter{Name: "Closed", Number: 99, IsActive: false})

	_, err := f.slots.GetOrCreateSlots(context.Background(), counter.ID, f.clock.TodayStart())
	assert.ErrorIs(t, err, ErrCounterInactive)

	_, err = f.slots.GetOrCreateSlots(context.Background(), counter.ID+1000, f.clock.TodayStart())
	assert.ErrorIs(t, err, ErrCounterInactive)
}

func TestListAvailability(t *testing.T) {
	f := newFixture()
	f.counter("Admissions")
	f.counter("Fees")
	f.store.addCounter(&model.Counter{Name: "Closed", Number: 50, IsActive: false})

	availability, err := f.slots.ListAvailability(context.Background(), f.clock.TodayStart())
	require.NoError(t, err)

	require.Len(t, availability, 2)
	for _, entry := range availability {
		assert.Len(t, entry.Slots, 6)
	}
}
