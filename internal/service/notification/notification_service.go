// internal/service/notification/notification_service.go
package notification

import (
	"context"
	"fmt"
	"time"

	"licentra-service/internal/config"
	"licentra-service/internal/domain/subscription"
	"licentra-service/internal/domain/user"

	"go.uber.org/zap"
)

type SubscriptionStore interface {
	FindExpiringBetween(ctx context.Context, from, to time.Time) ([]subscription.Subscription, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
}

type Mailer interface {
	Send(to, subject, body string) error
}

// NotificationService emits expiry reminders for subscriptions approaching
// their expiry date. Reminders are best-effort: a failed send is logged and
// skipped, never retried within the same run.
type NotificationService struct {
	subs     SubscriptionStore
	users    UserStore
	mailer   Mailer
	cfg      config.EngineConfig
	reminder time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewNotificationService(subs SubscriptionStore, users UserStore, mailer Mailer, cfg config.EngineConfig, reminderDays int, logger *zap.Logger) *NotificationService {
	if reminderDays <= 0 {
		reminderDays = 3
	}
	return &NotificationService{
		subs:     subs,
		users:    users,
		mailer:   mailer,
		cfg:      cfg,
		reminder: time.Duration(reminderDays) * 24 * time.Hour,
		logger:   logger,
		now:      time.Now,
	}
}

// SendExpiryReminders mails every user whose active paid subscription expires
// within the reminder window. Returns the number of reminders sent.
func (s *NotificationService) SendExpiryReminders(ctx context.Context) (int, error) {
	now := s.now()

	expiring, err := s.subs.FindExpiringBetween(ctx, now, now.Add(s.reminder))
	if err != nil {
		return 0, fmt.Errorf("failed to find expiring subscriptions: %w", err)
	}

	sent := 0
	for i := range expiring {
		sub := &expiring[i]
		if sub.LicenseKey == s.cfg.BasicLicenseKey || s.cfg.IsProtectedKey(sub.LicenseKey) {
			continue
		}

		u, err := s.users.FindByID(ctx, sub.UserID)
		if err != nil {
			s.logger.Warn("failed to load user for expiry reminder",
				zap.Int64("user_id", sub.UserID),
				zap.Error(err),
			)
			continue
		}

		subject := fmt.Sprintf("Your %s subscription expires on %s", sub.LicenseKey, sub.ExpiryDate.Format("2 Jan 2006"))
		body := fmt.Sprintf(
			"Hi %s,\n\nYour %s subscription expires on %s. Renew before then to keep your current access level.\n",
			u.FullName, sub.LicenseKey, sub.ExpiryDate.Format("2 January 2006"),
		)

		if err := s.mailer.Send(u.Email, subject, body); err != nil {
			s.logger.Warn("failed to send expiry reminder",
				zap.Int64("user_id", u.ID),
				zap.Int64("subscription_id", sub.ID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	if sent > 0 {
		s.logger.Info("expiry reminders sent", zap.Int("count", sent))
	}

	return sent, nil
}
