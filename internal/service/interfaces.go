package service

import (
	"context"
	"time"

	"github.com/campusq/queuedesk/internal/model"
)

// Store contracts the services depend on. The repository package provides
// the postgres implementations; tests provide in-memory ones.

type SlotStore interface {
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	ListByCounterDate(ctx context.Context, counterID int64, date time.Time) ([]*model.Slot, error)
	CreateIfAbsent(ctx context.Context, slots []*model.Slot) error
	GetByCounterDateStart(ctx context.Context, counterID int64, date time.Time, startTime string) (*model.Slot, error)
	Reserve(ctx context.Context, slotID, studentID int64) (int, error)
	Release(ctx context.Context, slotID, studentID int64) error
}

type BookingStore interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	GetActiveForStudent(ctx context.Context, bookingID, studentID int64) (*model.Booking, error)
	HasActiveOnSlot(ctx context.Context, studentID, slotID int64) (bool, error)
	HasActiveAtTime(ctx context.Context, studentID int64, date time.Time, startTime string) (bool, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.Booking, error)
	ListForCounterDay(ctx context.Context, counterID *int64, date time.Time) ([]*model.Booking, error)
	TransitionStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) error
	TransitionWithFeedback(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus, fb *model.FacultyFeedback) error
}

type EmergencyStore interface {
	Create(ctx context.Context, req *model.EmergencyRequest) error
	GetByID(ctx context.Context, id int64) (*model.EmergencyRequest, error)
	HasPending(ctx context.Context, studentID int64) (bool, error)
	ListPending(ctx context.Context, counterID *int64) ([]*model.EmergencyRequest, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*model.EmergencyRequest, error)
	MarkApproved(ctx context.Context, id, facultyID, bookingID int64, at time.Time) error
	MarkRejected(ctx context.Context, id, facultyID int64, reason string, at time.Time) error
	SweepAutoReject(ctx context.Context, upTo time.Time, reason string, at time.Time) ([]*model.EmergencyRequest, error)
}

type EnquiryLogStore interface {
	Append(ctx context.Context, entry *model.EnquiryLogEntry) error
	CountSince(ctx context.Context, studentID int64, since time.Time) (int, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	UpdateEnquiryStats(ctx context.Context, id int64, count int, at time.Time) error
	EscalateWarning(ctx context.Context, id int64, status model.WarningStatus, count int, at time.Time) error
	FlagAccount(ctx context.Context, id int64) error
	ResetWarnings(ctx context.Context, id int64) error
	ListFaculty(ctx context.Context, ids []int64) ([]*model.User, error)
}

type CounterStore interface {
	GetByID(ctx context.Context, id int64) (*model.Counter, error)
	ListActive(ctx context.Context) ([]*model.Counter, error)
}

// Notifier is the boundary to the notification emitter. Delivery failures
// never abort the triggering operation.
type Notifier interface {
	Emit(ctx context.Context, userID int64, kind model.NotificationKind, title, message string, refs model.RelatedRefs) error
}

// AbuseRecorder is the booking lifecycle's view of the fake-enquiry policy.
type AbuseRecorder interface {
	Record(ctx context.Context, studentID int64, action model.EnquiryAction, details EnquiryDetails) (*EscalationResult, error)
}
