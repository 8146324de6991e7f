package model

import "time"

type EnquiryAction string

const (
	EnquiryActionBookingCancelled EnquiryAction = "booking_cancelled"
	EnquiryActionSlotSkipped      EnquiryAction = "slot_skipped"
	EnquiryActionFalseEmergency   EnquiryAction = "false_emergency"
)

// EnquiryLogEntry is one immutable record of a policy-relevant negative
// action by a student. Entries are append-only and feed the rolling-window
// fake-enquiry count; they are never updated or deleted.
type EnquiryLogEntry struct {
	ID        int64         `json:"id"`
	StudentID int64         `json:"student_id"`
	Action    EnquiryAction `json:"action"`
	SlotID    *int64        `json:"slot_id"`
	CounterID *int64        `json:"counter_id"`
	BookingID *int64        `json:"booking_id"`
	Reason    string        `json:"reason"`
	CreatedAt time.Time     `json:"created_at"`
}
