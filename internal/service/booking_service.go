package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusq/queuedesk/internal/clock"
	"github.com/campusq/queuedesk/internal/model"
	"github.com/campusq/queuedesk/internal/repository"
)

type BookingService struct {
	slots    SlotStore
	bookings BookingStore
	counters CounterStore
	users    UserStore
	abuse    AbuseRecorder
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

func NewBookingService(
	slots SlotStore,
	bookings BookingStore,
	counters CounterStore,
	users UserStore,
	abuse AbuseRecorder,
	notifier Notifier,
	clk clock.Clock,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		slots:    slots,
		bookings: bookings,
		counters: counters,
		users:    users,
		abuse:    abuse,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// CreateInput is the caller's side of a booking request. Caller identity is
// already authenticated and role-checked upstream.
type CreateInput struct {
	Caller          *model.User
	SlotID          int64
	WorkType        string
	WorkDescription string
}

// Create books one seat on a slot for the acting student. Exactly one
// capacity increment and one booking row result from a successful call; a
// failed call leaves both untouched.
func (s *BookingService) Create(ctx context.Context, input CreateInput) (*model.Booking, error) {
	if input.Caller.UserType == model.UserTypeFaculty {
		return nil, ErrNotStudent
	}
	if input.Caller.IsRestricted() {
		return nil, ErrAccountRestricted
	}

	studentID := input.Caller.ActingStudentID()

	slot, err := s.slots.GetByID(ctx, input.SlotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}

	duplicate, err := s.bookings.HasActiveOnSlot(ctx, studentID, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("check duplicate booking: %w", err)
	}
	if duplicate {
		return nil, ErrDuplicateBooking
	}

	conflict, err := s.bookings.HasActiveAtTime(ctx, studentID, slot.SlotDate, slot.StartTime)
	if err != nil {
		return nil, fmt.Errorf("check time conflict: %w", err)
	}
	if conflict {
		return nil, ErrTimeConflict
	}

	token, err := s.slots.Reserve(ctx, slot.ID, studentID)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		StudentID:       studentID,
		SlotID:          slot.ID,
		CounterID:       slot.CounterID,
		SlotDate:        slot.SlotDate,
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		WorkType:        input.WorkType,
		WorkDescription: input.WorkDescription,
		Status:          model.BookingStatusConfirmed,
		TokenNumber:     token,
		IsParentRequest: input.Caller.UserType == model.UserTypeParent,
	}
	booking.VerificationData = encodeVerification(booking)

	if err := s.bookings.Create(ctx, booking); err != nil {
		// The seat is already taken in the slot; give it back rather than
		// leaving the counter and the booking table disagreeing.
		if relErr := s.slots.Release(ctx, slot.ID, studentID); relErr != nil {
			s.logger.Error("Failed to release seat after booking persist failure",
				zap.Int64("slot_id", slot.ID),
				zap.Int64("student_id", studentID),
				zap.Error(relErr),
			)
		}
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	s.notifyBooking(ctx, booking)

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("slot_id", slot.ID),
		zap.Int("token_number", token),
	)

	return booking, nil
}

// Cancel releases the acting student's booking. Only student callers feed
// the fake-enquiry policy; parent-initiated cancellations do not. Returns
// whether a warning was issued by the policy.
func (s *BookingService) Cancel(ctx context.Context, caller *model.User, bookingID int64) (bool, error) {
	studentID := caller.ActingStudentID()

	booking, err := s.bookings.GetActiveForStudent(ctx, bookingID, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("get booking: %w", err)
	}

	if beforeDay(booking.SlotDate, s.clock.TodayStart()) {
		return false, ErrPastBooking
	}

	if err := s.bookings.TransitionStatus(ctx, booking.ID,
		[]model.BookingStatus{model.BookingStatusConfirmed, model.BookingStatusPending},
		model.BookingStatusCancelled,
	); err != nil {
		return false, err
	}

	if err := s.slots.Release(ctx, booking.SlotID, studentID); err != nil {
		// The booking is already cancelled; a failed release means the seat
		// count is stale, which the log surfaces for manual compensation.
		s.logger.Error("Failed to release seat on cancellation",
			zap.Int64("slot_id", booking.SlotID),
			zap.Int64("student_id", studentID),
			zap.Error(err),
		)
	}

	warned := false
	if caller.UserType == model.UserTypeStudent {
		result, err := s.abuse.Record(ctx, studentID, model.EnquiryActionBookingCancelled, EnquiryDetails{
			SlotID:    &booking.SlotID,
			CounterID: &booking.CounterID,
			BookingID: &booking.ID,
			Reason:    "Booking cancelled by user",
		})
		if err != nil {
			s.logger.Error("Failed to record cancellation with abuse detector",
				zap.Int64("student_id", studentID),
				zap.Error(err),
			)
		} else {
			warned = result.Escalated
		}
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("student_id", studentID),
	)

	return warned, nil
}

// MarkCompleted records that the student was served.
func (s *BookingService) MarkCompleted(ctx context.Context, faculty *model.User, bookingID int64, notes string) (*model.Booking, error) {
	return s.markOutcome(ctx, faculty, bookingID, model.BookingStatusCompleted, notes)
}

// MarkMissed records a no-show and feeds the fake-enquiry policy.
func (s *BookingService) MarkMissed(ctx context.Context, faculty *model.User, bookingID int64, notes string) (*model.Booking, error) {
	booking, err := s.markOutcome(ctx, faculty, bookingID, model.BookingStatusMissed, notes)
	if err != nil {
		return nil, err
	}

	if _, err := s.abuse.Record(ctx, booking.StudentID, model.EnquiryActionSlotSkipped, EnquiryDetails{
		SlotID:    &booking.SlotID,
		CounterID: &booking.CounterID,
		BookingID: &booking.ID,
		Reason:    "Student did not show up for appointment",
	}); err != nil {
		s.logger.Error("Failed to record no-show with abuse detector",
			zap.Int64("student_id", booking.StudentID),
			zap.Error(err),
		)
	}

	return booking, nil
}

func (s *BookingService) markOutcome(ctx context.Context, faculty *model.User, bookingID int64, target model.BookingStatus, notes string) (*model.Booking, error) {
	if faculty.UserType != model.UserTypeFaculty {
		return nil, ErrNotFaculty
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}

	if booking.Status == target {
		return nil, ErrAlreadyInTargetState
	}
	if !model.ValidBookingTransition(booking.Status, target) {
		return nil, ErrAlreadyProcessed
	}

	feedback := &model.FacultyFeedback{
		MarkedBy: faculty.ID,
		MarkedAt: s.clock.Now(),
		Action:   string(target),
		Notes:    notes,
	}

	if err := s.bookings.TransitionWithFeedback(ctx, booking.ID,
		[]model.BookingStatus{model.BookingStatusConfirmed},
		target, feedback,
	); err != nil {
		return nil, err
	}

	booking.Status = target
	booking.Feedback = feedback

	s.logger.Info("Booking outcome recorded",
		zap.Int64("booking_id", booking.ID),
		zap.String("status", string(target)),
		zap.Int64("marked_by", faculty.ID),
	)

	return booking, nil
}

// QueryFilter selects which of the caller's bookings to return.
type QueryFilter string

const (
	FilterUpcoming QueryFilter = "upcoming"
	FilterPast     QueryFilter = "past"
	FilterAll      QueryFilter = "all"
)

// BookingPartitions splits a student's bookings into the live current set
// and everything else.
type BookingPartitions struct {
	Current []*model.Booking
	History []*model.Booking
}

// Query returns the acting student's bookings partitioned into current
// (active status and slot date today or later) and history.
func (s *BookingService) Query(ctx context.Context, caller *model.User, filter QueryFilter) (*BookingPartitions, error) {
	studentID := caller.ActingStudentID()

	bookings, err := s.bookings.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	today := s.clock.TodayStart()
	parts := &BookingPartitions{}
	for _, booking := range bookings {
		current := booking.IsActive() && onOrAfterDay(booking.SlotDate, today)
		switch filter {
		case FilterUpcoming:
			if !current {
				continue
			}
		case FilterPast:
			if current {
				continue
			}
		}
		if current {
			parts.Current = append(parts.Current, booking)
		} else {
			parts.History = append(parts.History, booking)
		}
	}

	return parts, nil
}

// ListForCounterDay returns a day's bookings for the faculty desk view.
func (s *BookingService) ListForCounterDay(ctx context.Context, faculty *model.User, counterID *int64, date time.Time) ([]*model.Booking, error) {
	if faculty.UserType != model.UserTypeFaculty {
		return nil, ErrNotFaculty
	}
	return s.bookings.ListForCounterDay(ctx, counterID, s.clock.CivilDate(date))
}

// GetByID returns one booking.
func (s *BookingService) GetByID(ctx context.Context, bookingID int64) (*model.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return booking, nil
}

// verificationPayload is the content the excluded QR layer renders; the
// core only produces the encoded form.
type verificationPayload struct {
	BookingID   int64  `json:"booking_id,omitempty"`
	Code        string `json:"code"`
	StudentID   int64  `json:"student_id"`
	CounterID   int64  `json:"counter_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	WorkType    string `json:"work_type"`
	TokenNumber int    `json:"token_number"`
}

func encodeVerification(b *model.Booking) string {
	payload := verificationPayload{
		BookingID:   b.ID,
		Code:        uuid.NewString(),
		StudentID:   b.StudentID,
		CounterID:   b.CounterID,
		Date:        b.SlotDate.Format("2006-01-02"),
		Time:        b.StartTime,
		WorkType:    b.WorkType,
		TokenNumber: b.TokenNumber,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func (s *BookingService) notifyBooking(ctx context.Context, booking *model.Booking) {
	counterName := "the counter"
	if counter, err := s.counters.GetByID(ctx, booking.CounterID); err == nil {
		counterName = counter.Name
	}

	message := fmt.Sprintf("Your booking at %s for %s at %s has been confirmed. Token #%d",
		counterName, booking.SlotDate.Format("02 Jan 2006"), booking.StartTime, booking.TokenNumber)

	if err := s.notifier.Emit(ctx, booking.StudentID, model.NotificationBookingConfirmed,
		"Booking Confirmed", message, model.RelatedRefs{BookingID: &booking.ID}); err != nil {
		s.logger.Error("Failed to emit booking notification",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err),
		)
	}
}
