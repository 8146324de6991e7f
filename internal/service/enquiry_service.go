package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campusq/queuedesk/internal/clock"
	"github.com/campusq/queuedesk/internal/model"
)

// EnquiryDetails carries the context of one policy-relevant action.
type EnquiryDetails struct {
	SlotID    *int64
	CounterID *int64
	BookingID *int64
	Reason    string
}

// EscalationResult reports what a Record call did to the account.
type EscalationResult struct {
	Escalated     bool
	Flagged       bool
	WarningStatus model.WarningStatus
	CurrentCount  int
}

// EnquiryService implements the fake-enquiry policy: an append-only log of
// cancellations and no-shows, counted over a trailing window, escalating
// the account through warning levels to a flagged state.
type EnquiryService struct {
	log       EnquiryLogStore
	users     UserStore
	notifier  Notifier
	clock     clock.Clock
	threshold int
	window    time.Duration
	logger    *zap.Logger
}

func NewEnquiryService(log EnquiryLogStore, users UserStore, notifier Notifier, clk clock.Clock, threshold int, window time.Duration, logger *zap.Logger) *EnquiryService {
	return &EnquiryService{
		log:       log,
		users:     users,
		notifier:  notifier,
		clock:     clk,
		threshold: threshold,
		window:    window,
		logger:    logger,
	}
}

// Record appends one log entry and re-evaluates the rolling-window count,
// inclusive of the new entry. The count is always recomputed from the log;
// the cached counter on the account is display only. Escalation is
// monotonic: crossing the threshold at warning_1 moves to warning_2, and
// crossing it at warning_2 flags the account instead.
func (s *EnquiryService) Record(ctx context.Context, studentID int64, action model.EnquiryAction, details EnquiryDetails) (*EscalationResult, error) {
	user, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if user.UserType != model.UserTypeStudent {
		return &EscalationResult{WarningStatus: user.WarningStatus}, nil
	}

	now := s.clock.Now()

	entry := &model.EnquiryLogEntry{
		StudentID: studentID,
		Action:    action,
		SlotID:    details.SlotID,
		CounterID: details.CounterID,
		BookingID: details.BookingID,
		Reason:    details.Reason,
	}
	if err := s.log.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append log entry: %w", err)
	}

	count, err := s.log.CountSince(ctx, studentID, now.Add(-s.window))
	if err != nil {
		return nil, fmt.Errorf("count window entries: %w", err)
	}

	if count < s.threshold {
		if err := s.users.UpdateEnquiryStats(ctx, studentID, count, now); err != nil {
			return nil, fmt.Errorf("update enquiry stats: %w", err)
		}
		return &EscalationResult{WarningStatus: user.WarningStatus, CurrentCount: count}, nil
	}

	next, ok := user.NextWarning()
	if !ok {
		// Ladder exhausted: flag the account, leave the warning where it is.
		if err := s.users.FlagAccount(ctx, studentID); err != nil {
			return nil, fmt.Errorf("flag account: %w", err)
		}
		s.notifyWarning(ctx, studentID, warningKeyFlagged)

		s.logger.Warn("Account flagged for repeated fake enquiries",
			zap.Int64("student_id", studentID),
			zap.Int("window_count", count),
		)

		return &EscalationResult{
			Escalated:     true,
			Flagged:       true,
			WarningStatus: user.WarningStatus,
			CurrentCount:  count,
		}, nil
	}

	if err := s.users.EscalateWarning(ctx, studentID, next, count, now); err != nil {
		return nil, fmt.Errorf("escalate warning: %w", err)
	}
	s.notifyWarning(ctx, studentID, string(next))

	s.logger.Warn("Warning issued for fake enquiries",
		zap.Int64("student_id", studentID),
		zap.String("warning_status", string(next)),
		zap.Int("window_count", count),
	)

	return &EscalationResult{
		Escalated:     true,
		WarningStatus: next,
		CurrentCount:  count,
	}, nil
}

// Reset is the administrative escape hatch clearing the student's count,
// warning ladder and account flag.
func (s *EnquiryService) Reset(ctx context.Context, studentID int64) error {
	if err := s.users.ResetWarnings(ctx, studentID); err != nil {
		return fmt.Errorf("reset warnings: %w", err)
	}

	s.logger.Info("Fake-enquiry state reset", zap.Int64("student_id", studentID))
	return nil
}

const warningKeyFlagged = "flagged"

// warningMessages holds the distinct text for each escalation step.
var warningMessages = map[string]struct {
	Title   string
	Message string
}{
	string(model.WarningStatus1): {
		Title:   "Warning: Excessive Cancellations",
		Message: "You have made multiple cancellations recently. Please book slots only when you intend to attend. Further violations may result in account restrictions.",
	},
	string(model.WarningStatus2): {
		Title:   "Final Warning: Account at Risk",
		Message: "This is your final warning. You have repeatedly violated booking policies. One more violation will result in account suspension.",
	},
	warningKeyFlagged: {
		Title:   "Account Flagged",
		Message: "Your account has been flagged due to repeated policy violations. Please contact the administration to resolve this issue.",
	},
}

func (s *EnquiryService) notifyWarning(ctx context.Context, studentID int64, level string) {
	msg, ok := warningMessages[level]
	if !ok {
		return
	}
	if err := s.notifier.Emit(ctx, studentID, model.NotificationWarningAlert, msg.Title, msg.Message, model.RelatedRefs{}); err != nil {
		s.logger.Error("Failed to emit warning notification",
			zap.Int64("student_id", studentID),
			zap.Error(err),
		)
	}
}
