package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusq/queuedesk/internal/clock"
	"github.com/campusq/queuedesk/internal/model"
	"github.com/campusq/queuedesk/internal/repository"
)

// defaultEmergencyTime is the slot time used when the student does not ask
// for a specific hour.
const defaultEmergencyTime = "10:00"

type EmergencyService struct {
	requests EmergencyStore
	slots    SlotStore
	bookings BookingStore
	counters CounterStore
	users    UserStore
	notifier Notifier
	clock    clock.Clock
	capacity int
	logger   *zap.Logger
}

func NewEmergencyService(
	requests EmergencyStore,
	slots SlotStore,
	bookings BookingStore,
	counters CounterStore,
	users UserStore,
	notifier Notifier,
	clk clock.Clock,
	capacity int,
	logger *zap.Logger,
) *EmergencyService {
	return &EmergencyService{
		requests: requests,
		slots:    slots,
		bookings: bookings,
		counters: counters,
		users:    users,
		notifier: notifier,
		clock:    clk,
		capacity: capacity,
		logger:   logger,
	}
}

// SubmitInput is a student's emergency petition.
type SubmitInput struct {
	Caller        *model.User
	CounterID     int64
	RequestedDate time.Time
	RequestedTime string
	Deadline      string
	WorkType      string
	Description   string
	ProofDocument string
}

// Submit files an emergency request. A student may have at most one
// pending request in flight, regardless of counter.
func (s *EmergencyService) Submit(ctx context.Context, input SubmitInput) (*model.EmergencyRequest, error) {
	if input.Caller.UserType != model.UserTypeStudent {
		return nil, ErrNotStudent
	}
	if input.Caller.IsRestricted() {
		return nil, ErrAccountRestricted
	}
	if strings.TrimSpace(input.ProofDocument) == "" {
		return nil, ErrMissingProof
	}

	counter, err := s.counters.GetByID(ctx, input.CounterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCounterInactive
		}
		return nil, fmt.Errorf("get counter: %w", err)
	}
	if !counter.IsActive {
		return nil, ErrCounterInactive
	}

	pending, err := s.requests.HasPending(ctx, input.Caller.ID)
	if err != nil {
		return nil, fmt.Errorf("check pending request: %w", err)
	}
	if pending {
		return nil, ErrAlreadyPending
	}

	requestedTime := input.RequestedTime
	if requestedTime == "" {
		requestedTime = defaultEmergencyTime
	}

	request := &model.EmergencyRequest{
		StudentID:     input.Caller.ID,
		CounterID:     input.CounterID,
		RequestedDate: s.clock.CivilDate(input.RequestedDate),
		RequestedTime: requestedTime,
		Deadline:      input.Deadline,
		ProofDocument: input.ProofDocument,
		WorkType:      input.WorkType,
		Description:   input.Description,
		Status:        model.EmergencyStatusPending,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, err
	}

	s.notifyFaculty(ctx, counter, input.Caller, request)

	s.logger.Info("Emergency request submitted",
		zap.Int64("request_id", request.ID),
		zap.Int64("student_id", input.Caller.ID),
		zap.Int64("counter_id", input.CounterID),
	)

	return request, nil
}

// Approve grants a pending request: the responding faculty picks (or
// defaults to) a slot time, an ad-hoc slot is synthesized when none exists,
// and the same reserve-then-book path as a normal booking runs. Reusing an
// existing slot at capacity fails with SlotFull and leaves the request
// pending rather than over-booking.
func (s *EmergencyService) Approve(ctx context.Context, faculty *model.User, requestID int64, slotTime string) (*model.Booking, error) {
	if faculty.UserType != model.UserTypeFaculty {
		return nil, ErrNotFaculty
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if !request.IsPending() {
		return nil, ErrAlreadyProcessed
	}

	startTime := slotTime
	if startTime == "" {
		startTime = request.RequestedTime
	}

	slot, err := s.resolveSlot(ctx, request.CounterID, request.RequestedDate, startTime)
	if err != nil {
		return nil, err
	}

	token, err := s.slots.Reserve(ctx, slot.ID, request.StudentID)
	if err != nil {
		// SlotFull comes straight back to the responder; the request stays
		// pending so another time can be chosen.
		return nil, err
	}

	booking := &model.Booking{
		StudentID:       request.StudentID,
		SlotID:          slot.ID,
		CounterID:       request.CounterID,
		SlotDate:        slot.SlotDate,
		StartTime:       slot.StartTime,
		EndTime:         slot.EndTime,
		WorkType:        request.WorkType,
		WorkDescription: "Emergency: " + request.Description,
		Status:          model.BookingStatusConfirmed,
		TokenNumber:     token,
	}
	booking.VerificationData = encodeVerification(booking)

	if err := s.bookings.Create(ctx, booking); err != nil {
		if relErr := s.slots.Release(ctx, slot.ID, request.StudentID); relErr != nil {
			s.logger.Error("Failed to release seat after emergency booking persist failure",
				zap.Int64("slot_id", slot.ID),
				zap.Error(relErr),
			)
		}
		return nil, fmt.Errorf("persist emergency booking: %w", err)
	}

	if err := s.requests.MarkApproved(ctx, request.ID, faculty.ID, booking.ID, s.clock.Now()); err != nil {
		// Another responder processed the request while we were booking;
		// back out the seat and the booking before surfacing the conflict.
		if errors.Is(err, repository.ErrAlreadyProcessed) {
			if relErr := s.slots.Release(ctx, slot.ID, request.StudentID); relErr != nil {
				s.logger.Error("Failed to release seat after approval conflict",
					zap.Int64("slot_id", slot.ID),
					zap.Error(relErr),
				)
			}
			_ = s.bookings.TransitionStatus(ctx, booking.ID,
				[]model.BookingStatus{model.BookingStatusConfirmed},
				model.BookingStatusCancelled,
			)
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}

	message := fmt.Sprintf("Your emergency request has been approved. Your appointment is at %s on %s. Token #%d",
		slot.StartTime, slot.SlotDate.Format("02 Jan 2006"), token)
	s.emit(ctx, request.StudentID, model.NotificationEmergencyApproved, "Emergency Request Approved", message,
		model.RelatedRefs{BookingID: &booking.ID, EmergencyID: &request.ID})

	s.logger.Info("Emergency request approved",
		zap.Int64("request_id", request.ID),
		zap.Int64("booking_id", booking.ID),
		zap.Int64("responded_by", faculty.ID),
	)

	return booking, nil
}

// Reject declines a pending request with a mandatory reason.
func (s *EmergencyService) Reject(ctx context.Context, faculty *model.User, requestID int64, reason string) error {
	if faculty.UserType != model.UserTypeFaculty {
		return ErrNotFaculty
	}
	if strings.TrimSpace(reason) == "" {
		return ErrEmptyReason
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get request: %w", err)
	}
	if !request.IsPending() {
		return ErrAlreadyProcessed
	}

	if err := s.requests.MarkRejected(ctx, request.ID, faculty.ID, reason, s.clock.Now()); err != nil {
		return err
	}

	s.emit(ctx, request.StudentID, model.NotificationEmergencyRejected, "Emergency Request Rejected",
		fmt.Sprintf("Your emergency request has been rejected. Reason: %s", reason),
		model.RelatedRefs{EmergencyID: &request.ID})

	s.logger.Info("Emergency request rejected",
		zap.Int64("request_id", request.ID),
		zap.Int64("responded_by", faculty.ID),
	)

	return nil
}

// SweepAutoReject transitions every pending request dated up to today to
// auto_rejected and notifies the affected students. Safe to run repeatedly:
// the pending guard makes the transition naturally idempotent.
func (s *EmergencyService) SweepAutoReject(ctx context.Context) (int, error) {
	swept, err := s.requests.SweepAutoReject(ctx, s.clock.TodayStart(), model.AutoRejectReason, s.clock.Now())
	if err != nil {
		return 0, err
	}

	for _, request := range swept {
		s.emit(ctx, request.StudentID, model.NotificationEmergencyRejected, "Emergency Request Auto-Rejected",
			"Your emergency request was automatically rejected as the counter closing time was reached.",
			model.RelatedRefs{EmergencyID: &request.ID})
	}

	if len(swept) > 0 {
		s.logger.Info("Auto-rejected pending emergency requests", zap.Int("count", len(swept)))
	}

	return len(swept), nil
}

// ListPending returns pending requests for faculty review.
func (s *EmergencyService) ListPending(ctx context.Context, faculty *model.User, counterID *int64) ([]*model.EmergencyRequest, error) {
	if faculty.UserType != model.UserTypeFaculty {
		return nil, ErrNotFaculty
	}
	return s.requests.ListPending(ctx, counterID)
}

// ListByStudent returns the acting student's request history.
func (s *EmergencyService) ListByStudent(ctx context.Context, caller *model.User) ([]*model.EmergencyRequest, error) {
	return s.requests.ListByStudent(ctx, caller.ActingStudentID())
}

// resolveSlot finds the slot at the compound key or synthesizes an ad-hoc
// one-hour window, bypassing the daily template. The create-if-absent
// insert keyed on (counter, date, start) keeps racing approvals off
// duplicate slots.
func (s *EmergencyService) resolveSlot(ctx context.Context, counterID int64, date time.Time, startTime string) (*model.Slot, error) {
	start, err := clock.ParseWallClock(startTime)
	if err != nil {
		return nil, fmt.Errorf("invalid slot time: %w", err)
	}

	slot, err := s.slots.GetByCounterDateStart(ctx, counterID, date, start.String())
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	adhoc := &model.Slot{
		CounterID:   counterID,
		SlotDate:    date,
		StartTime:   start.String(),
		EndTime:     start.AddHours(1).String(),
		MaxCapacity: s.capacity,
		IsActive:    true,
	}
	if err := s.slots.CreateIfAbsent(ctx, []*model.Slot{adhoc}); err != nil {
		return nil, fmt.Errorf("create ad-hoc slot: %w", err)
	}

	return s.slots.GetByCounterDateStart(ctx, counterID, date, start.String())
}

func (s *EmergencyService) notifyFaculty(ctx context.Context, counter *model.Counter, student *model.User, request *model.EmergencyRequest) {
	faculty, err := s.users.ListFaculty(ctx, counter.AssignedFaculty)
	if err != nil {
		s.logger.Error("Failed to list faculty for emergency alert", zap.Error(err))
		return
	}
	if len(faculty) == 0 {
		// Nobody assigned to the counter: alert every faculty member.
		faculty, err = s.users.ListFaculty(ctx, nil)
		if err != nil {
			s.logger.Error("Failed to list faculty for emergency alert", zap.Error(err))
			return
		}
	}

	message := fmt.Sprintf("Student %s has submitted an emergency request for %s. Deadline: %s",
		student.FullName, counter.Name, request.Deadline)
	for _, f := range faculty {
		s.emit(ctx, f.ID, model.NotificationEmergencyAlert, "New Emergency Request", message,
			model.RelatedRefs{EmergencyID: &request.ID})
	}
}

func (s *EmergencyService) emit(ctx context.Context, userID int64, kind model.NotificationKind, title, message string, refs model.RelatedRefs) {
	if err := s.notifier.Emit(ctx, userID, kind, title, message, refs); err != nil {
		s.logger.Error("Failed to emit notification",
			zap.Int64("user_id", userID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}
