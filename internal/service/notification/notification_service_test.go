// internal/service/notification/notification_service_test.go
package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"licentra-service/internal/config"
	"licentra-service/internal/domain/subscription"
	"licentra-service/internal/domain/user"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubStore struct {
	expiring []subscription.Subscription
}

func (f *fakeSubStore) FindExpiringBetween(_ context.Context, _, _ time.Time) ([]subscription.Subscription, error) {
	return f.expiring, nil
}

type fakeUsers struct {
	users map[int64]*user.User
}

func (f *fakeUsers) FindByID(_ context.Context, id int64) (*user.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, xerrors.ErrNotFound
}

type recordingMailer struct {
	sent    []string
	failFor string
}

func (m *recordingMailer) Send(to, _, _ string) error {
	if to == m.failFor {
		return errors.New("smtp refused")
	}
	m.sent = append(m.sent, to)
	return nil
}

func TestSendExpiryReminders(t *testing.T) {
	now := time.Now()
	subs := &fakeSubStore{expiring: []subscription.Subscription{
		{ID: 1, UserID: 7, LicenseKey: "PRO", IsActive: true, ExpiryDate: now.AddDate(0, 0, 2)},
		{ID: 2, UserID: 8, LicenseKey: "BASIC", IsActive: true, ExpiryDate: now.AddDate(0, 0, 2)},
		{ID: 3, UserID: 9, LicenseKey: "PARTNER", IsActive: true, ExpiryDate: now.AddDate(0, 0, 2)},
		{ID: 4, UserID: 10, LicenseKey: "TEAM", IsActive: true, ExpiryDate: now.AddDate(0, 0, 1)},
	}}
	users := &fakeUsers{users: map[int64]*user.User{
		7:  {ID: 7, Email: "pro@example.com", FullName: "Pro User"},
		10: {ID: 10, Email: "team@example.com", FullName: "Team User"},
	}}
	mailer := &recordingMailer{}

	cfg := config.EngineConfig{
		BasicLicenseKey:      "BASIC",
		ProtectedLicenseKeys: []string{"ADMIN", "PARTNER", "BASIC"},
	}
	svc := NewNotificationService(subs, users, mailer, cfg, 3, zap.NewNop())

	sent, err := svc.SendExpiryReminders(context.Background())
	require.NoError(t, err)

	// BASIC and protected licenses never get reminders.
	assert.Equal(t, 2, sent)
	assert.ElementsMatch(t, []string{"pro@example.com", "team@example.com"}, mailer.sent)
}

func TestSendExpiryRemindersBestEffort(t *testing.T) {
	now := time.Now()
	subs := &fakeSubStore{expiring: []subscription.Subscription{
		{ID: 1, UserID: 7, LicenseKey: "PRO", IsActive: true, ExpiryDate: now.AddDate(0, 0, 2)},
		{ID: 2, UserID: 10, LicenseKey: "TEAM", IsActive: true, ExpiryDate: now.AddDate(0, 0, 1)},
	}}
	users := &fakeUsers{users: map[int64]*user.User{
		7:  {ID: 7, Email: "pro@example.com", FullName: "Pro User"},
		10: {ID: 10, Email: "team@example.com", FullName: "Team User"},
	}}
	mailer := &recordingMailer{failFor: "pro@example.com"}

	cfg := config.EngineConfig{BasicLicenseKey: "BASIC"}
	svc := NewNotificationService(subs, users, mailer, cfg, 3, zap.NewNop())

	sent, err := svc.SendExpiryReminders(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{"team@example.com"}, mailer.sent)
}
