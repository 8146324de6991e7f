package model

import "time"

type NotificationKind string

const (
	NotificationBookingConfirmed  NotificationKind = "booking_confirmed"
	NotificationBookingCancelled  NotificationKind = "booking_cancelled"
	NotificationEmergencyAlert    NotificationKind = "emergency_alert"
	NotificationEmergencyApproved NotificationKind = "emergency_approved"
	NotificationEmergencyRejected NotificationKind = "emergency_rejected"
	NotificationWarningAlert      NotificationKind = "warning_alert"
	NotificationSystemAlert       NotificationKind = "system_alert"
)

// RelatedRefs carries optional links from a notification to the records it
// is about.
type RelatedRefs struct {
	BookingID   *int64
	EmergencyID *int64
}

type Notification struct {
	ID                 string           `json:"id"`
	UserID             int64            `json:"user_id"`
	Kind               NotificationKind `json:"kind"`
	Title              string           `json:"title"`
	Message            string           `json:"message"`
	RelatedBookingID   *int64           `json:"related_booking_id"`
	RelatedEmergencyID *int64           `json:"related_emergency_id"`
	IsRead             bool             `json:"is_read"`
	CreatedAt          time.Time        `json:"created_at"`
}
