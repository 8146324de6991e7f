package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusMissed    BookingStatus = "missed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Work type categories a booking can be made for.
const (
	WorkTypeAdmission             = "Admission"
	WorkTypeScholarship           = "Scholarship"
	WorkTypeDocumentVerification  = "Document Verification"
	WorkTypeFeesPayment           = "Fees Payment"
	WorkTypeCertificateCollection = "Certificate Collection"
	WorkTypeGeneralEnquiry        = "General Enquiry"
	WorkTypeOther                 = "Other"
)

// FacultyFeedback records the faculty stamp applied when a booking is
// marked completed or missed.
type FacultyFeedback struct {
	MarkedBy int64     `json:"marked_by"`
	MarkedAt time.Time `json:"marked_at"`
	Action   string    `json:"action"` // "completed" or "missed"
	Notes    string    `json:"notes"`
}

type Booking struct {
	ID               int64            `json:"id"`
	StudentID        int64            `json:"student_id"`
	SlotID           int64            `json:"slot_id"`
	CounterID        int64            `json:"counter_id"`
	SlotDate         time.Time        `json:"slot_date"`
	StartTime        string           `json:"start_time"`
	EndTime          string           `json:"end_time"`
	WorkType         string           `json:"work_type"`
	WorkDescription  string           `json:"work_description"`
	Status           BookingStatus    `json:"status"`
	TokenNumber      int              `json:"token_number"`
	IsParentRequest  bool             `json:"is_parent_request"`
	VerificationData string           `json:"verification_data"`
	Feedback         *FacultyFeedback `json:"faculty_feedback,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// IsActive reports whether the booking still claims a seat.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusConfirmed || b.Status == BookingStatusPending
}

// bookingTransitions maps a target status to the statuses it may be reached
// from. Terminal states have no outgoing edges.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusConfirmed: {BookingStatusPending},
	BookingStatusCompleted: {BookingStatusConfirmed},
	BookingStatusMissed:    {BookingStatusConfirmed},
	BookingStatusCancelled: {BookingStatusConfirmed, BookingStatusPending},
}

// ValidBookingTransition reports whether a booking may move from one status
// to another. Transitions only go forward; terminal states never leave.
func ValidBookingTransition(from, to BookingStatus) bool {
	allowed, ok := bookingTransitions[to]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}
