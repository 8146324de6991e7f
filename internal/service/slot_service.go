package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusq/queuedesk/internal/clock"
	"github.com/campusq/queuedesk/internal/model"
	"github.com/campusq/queuedesk/internal/repository"
)

// templateWindow is one entry of the fixed daily slot template.
type templateWindow struct {
	Start string
	End   string
}

// dailyTemplate lists the six one-hour windows a counter offers each day.
// 13:00-14:00 is the lunch break and is intentionally absent.
var dailyTemplate = []templateWindow{
	{"10:00", "11:00"},
	{"11:00", "12:00"},
	{"12:00", "13:00"},
	{"14:00", "15:00"},
	{"15:00", "16:00"},
	{"16:00", "17:00"},
}

type SlotService struct {
	slots    SlotStore
	counters CounterStore
	clock    clock.Clock
	capacity int
	logger   *zap.Logger
}

func NewSlotService(slots SlotStore, counters CounterStore, clk clock.Clock, capacity int, logger *zap.Logger) *SlotService {
	return &SlotService{
		slots:    slots,
		counters: counters,
		clock:    clk,
		capacity: capacity,
		logger:   logger,
	}
}

// GetOrCreateSlots returns the counter's slots for a calendar date,
// creating the daily template on first access. Creation is keyed on the
// compound (counter, date, start time) tuple, so racing callers for the
// same day converge on one set of slots.
func (s *SlotService) GetOrCreateSlots(ctx context.Context, counterID int64, date time.Time) ([]*model.Slot, error) {
	counter, err := s.counters.GetByID(ctx, counterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCounterInactive
		}
		return nil, fmt.Errorf("get counter: %w", err)
	}
	if !counter.IsActive {
		return nil, ErrCounterInactive
	}

	civil := s.clock.CivilDate(date)
	if beforeDay(civil, s.clock.TodayStart()) {
		return nil, ErrPastDate
	}

	template := make([]*model.Slot, 0, len(dailyTemplate))
	for _, window := range dailyTemplate {
		template = append(template, &model.Slot{
			CounterID:   counterID,
			SlotDate:    civil,
			StartTime:   window.Start,
			EndTime:     window.End,
			MaxCapacity: s.capacity,
			IsActive:    true,
		})
	}

	if err := s.slots.CreateIfAbsent(ctx, template); err != nil {
		return nil, fmt.Errorf("create daily slots: %w", err)
	}

	slots, err := s.slots.ListByCounterDate(ctx, counterID, civil)
	if err != nil {
		return nil, fmt.Errorf("list daily slots: %w", err)
	}

	return slots, nil
}

// CounterAvailability pairs a counter with its slots for one date.
type CounterAvailability struct {
	Counter *model.Counter
	Slots   []*model.Slot
}

// ListAvailability returns slot availability for every active counter on a
// date, creating each counter's daily template as needed.
func (s *SlotService) ListAvailability(ctx context.Context, date time.Time) ([]CounterAvailability, error) {
	counters, err := s.counters.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}

	availability := make([]CounterAvailability, 0, len(counters))
	for _, counter := range counters {
		slots, err := s.GetOrCreateSlots(ctx, counter.ID, date)
		if err != nil {
			return nil, err
		}
		availability = append(availability, CounterAvailability{Counter: counter, Slots: slots})
	}

	return availability, nil
}
