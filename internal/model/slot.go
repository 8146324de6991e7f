package model

import "time"

// Slot is one bookable time window at one counter on one calendar date.
// Start and end times are wall-clock "HH:MM" strings in the civil timezone;
// SlotDate carries the calendar date only.
type Slot struct {
	ID              int64     `json:"id"`
	CounterID       int64     `json:"counter_id"`
	SlotDate        time.Time `json:"slot_date"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	MaxCapacity     int       `json:"max_capacity"`
	CurrentBookings int       `json:"current_bookings"`
	BookedStudents  []int64   `json:"booked_students"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// RemainingCapacity returns the number of seats still open.
func (s *Slot) RemainingCapacity() int {
	return s.MaxCapacity - s.CurrentBookings
}

// IsAvailable reports whether the slot can still take a reservation.
func (s *Slot) IsAvailable() bool {
	return s.IsActive && s.CurrentBookings < s.MaxCapacity
}

// IsFull reports whether capacity is exhausted.
func (s *Slot) IsFull() bool {
	return s.CurrentBookings >= s.MaxCapacity
}
