package model

import "time"

type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeFaculty UserType = "faculty"
	UserTypeParent  UserType = "parent"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusFlagged   AccountStatus = "flagged"
	AccountStatusSuspended AccountStatus = "suspended"
)

type WarningStatus string

const (
	WarningStatusNone WarningStatus = "none"
	WarningStatus1    WarningStatus = "warning_1"
	WarningStatus2    WarningStatus = "warning_2"
)

type User struct {
	ID                  int64         `json:"id"`
	FullName            string        `json:"full_name"`
	Email               string        `json:"email"`
	UserType            UserType      `json:"user_type"`
	LinkedStudentID     *int64        `json:"linked_student_id"` // set for parents only
	AccountStatus       AccountStatus `json:"account_status"`
	WarningStatus       WarningStatus `json:"warning_status"`
	WarningIssuedAt     *time.Time    `json:"warning_issued_at"`
	FakeEnquiryCount    int           `json:"fake_enquiry_count"`
	LastFakeEnquiryDate *time.Time    `json:"last_fake_enquiry_date"`
	CreatedAt           time.Time     `json:"created_at"`
}

// IsRestricted reports whether the account is refused service.
func (u *User) IsRestricted() bool {
	return u.AccountStatus == AccountStatusFlagged || u.AccountStatus == AccountStatusSuspended
}

// NextWarning returns the next step on the warning ladder. The second value
// is false once the ladder is exhausted and the account must be flagged
// instead of warned again.
func (u *User) NextWarning() (WarningStatus, bool) {
	switch u.WarningStatus {
	case WarningStatusNone:
		return WarningStatus1, true
	case WarningStatus1:
		return WarningStatus2, true
	default:
		return u.WarningStatus, false
	}
}

// ActingStudentID resolves the student whose records an authenticated caller
// operates on. Parents act on behalf of their linked student.
func (u *User) ActingStudentID() int64 {
	if u.UserType == UserTypeParent && u.LinkedStudentID != nil {
		return *u.LinkedStudentID
	}
	return u.ID
}
