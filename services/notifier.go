package services

import (
	"context"
	"log/slog"

	"github.com/Dosada05/sports-competitions/models"
	"github.com/Dosada05/sports-competitions/repositories"
)

// Notifier stores in-app notifications on behalf of other operations.
// A failed notification never fails the operation that triggered it.
type Notifier struct {
	notifications repositories.NotificationRepository
	logger        *slog.Logger
}

func NewNotifier(notifications repositories.NotificationRepository, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{notifications: notifications, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, in models.NotificationInput) {
	if n == nil || n.notifications == nil {
		return
	}
	if _, err := n.notifications.CreateNotification(ctx, in); err != nil {
		n.logger.Warn("failed to create notification",
			slog.String("userId", in.UserID),
			slog.String("category", string(in.Category)),
			slog.Any("error", err),
		)
	}
}

func (n *Notifier) NotifyMany(ctx context.Context, userIDs []string, in models.NotificationInput) {
	if n == nil || n.notifications == nil || len(userIDs) == 0 {
		return
	}
	if _, err := n.notifications.CreateForUsers(ctx, userIDs, in); err != nil {
		n.logger.Warn("failed to create notifications",
			slog.Int("recipients", len(userIDs)),
			slog.Any("error", err),
		)
	}
}

// Related builds the RelatedID/RelatedType pair of a notification.
func Related(id string, kind models.RelatedType) (*string, *models.RelatedType) {
	return &id, &kind
}
