// Package notify records user-facing alerts. Actual delivery transports
// (email, SMS, push) live outside this system; the emitter persists the
// in-app row and logs a delivery stand-in line.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusq/queuedesk/internal/model"
	"github.com/campusq/queuedesk/internal/repository"
)

type Notifier struct {
	repo   *repository.NotificationRepository
	logger *zap.Logger
}

func New(repo *repository.NotificationRepository, logger *zap.Logger) *Notifier {
	return &Notifier{repo: repo, logger: logger}
}

// Emit persists one notification for the user and logs the stand-in
// delivery. Failures are reported to the caller but are not expected to
// abort the operation that triggered the alert.
func (n *Notifier) Emit(ctx context.Context, userID int64, kind model.NotificationKind, title, message string, refs model.RelatedRefs) error {
	notification := &model.Notification{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Kind:               kind,
		Title:              title,
		Message:            message,
		RelatedBookingID:   refs.BookingID,
		RelatedEmergencyID: refs.EmergencyID,
	}

	if err := n.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("emit notification: %w", err)
	}

	n.logger.Info("Notification sent",
		zap.Int64("user_id", userID),
		zap.String("kind", string(kind)),
		zap.String("title", title),
	)

	return nil
}

// Inbox returns the user's notifications, newest first.
func (n *Notifier) Inbox(ctx context.Context, userID int64) ([]*model.Notification, error) {
	return n.repo.ListByUser(ctx, userID)
}

// MarkRead marks one of the user's notifications as read.
func (n *Notifier) MarkRead(ctx context.Context, userID int64, id string) error {
	return n.repo.MarkRead(ctx, id, userID)
}
