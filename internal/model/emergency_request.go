package model

import "time"

type EmergencyStatus string

const (
	EmergencyStatusPending      EmergencyStatus = "pending"
	EmergencyStatusApproved     EmergencyStatus = "approved"
	EmergencyStatusRejected     EmergencyStatus = "rejected"
	EmergencyStatusAutoRejected EmergencyStatus = "auto_rejected"
)

// Emergency work type categories.
const (
	EmergencyWorkDocument    = "Emergency Document"
	EmergencyWorkScholarship = "Urgent Scholarship Issue"
	EmergencyWorkDeadline    = "Deadline Submission"
	EmergencyWorkOther       = "Other Emergency"
)

// AutoRejectReason is the fixed reason stamped by the daily cutoff sweep.
const AutoRejectReason = "Counter closing time reached (5:00 PM)"

// EmergencyRequest is a student's petition for an expedited out-of-band
// booking, resolved by faculty or by the daily cutoff sweep.
type EmergencyRequest struct {
	ID                int64           `json:"id"`
	StudentID         int64           `json:"student_id"`
	CounterID         int64           `json:"counter_id"`
	RequestedDate     time.Time       `json:"requested_date"`
	RequestedTime     string          `json:"requested_time"`
	Deadline          string          `json:"deadline"`
	ProofDocument     string          `json:"proof_document"`
	WorkType          string          `json:"work_type"`
	Description       string          `json:"description"`
	Status            EmergencyStatus `json:"status"`
	RespondedBy       *int64          `json:"responded_by"`
	RespondedAt       *time.Time      `json:"responded_at"`
	RejectionReason   string          `json:"rejection_reason"`
	ApprovedBookingID *int64          `json:"approved_booking_id"`
	CreatedAt         time.Time       `json:"created_at"`
}

// IsPending reports whether the request is still awaiting a decision.
func (r *EmergencyRequest) IsPending() bool {
	return r.Status == EmergencyStatusPending
}

var emergencyTransitions = map[EmergencyStatus][]EmergencyStatus{
	EmergencyStatusApproved:     {EmergencyStatusPending},
	EmergencyStatusRejected:     {EmergencyStatusPending},
	EmergencyStatusAutoRejected: {EmergencyStatusPending},
}

// ValidEmergencyTransition reports whether a request may move from one
// status to another. Only pending requests transition; all other states
// are terminal.
func ValidEmergencyTransition(from, to EmergencyStatus) bool {
	allowed, ok := emergencyTransitions[to]
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
