// internal/service/subscription/lifecycle_service.go
package subscription

import (
	"context"
	"fmt"
	"time"

	"licentra-service/internal/config"
	"licentra-service/internal/domain/license"
	"licentra-service/internal/domain/subscription"
	xerrors "licentra-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type Store interface {
	Create(ctx context.Context, s *subscription.Subscription) error
	FindByID(ctx context.Context, id int64) (*subscription.Subscription, error)
	FindActiveByUser(ctx context.Context, userID int64) ([]subscription.Subscription, error)
	FindLatestByUserAndKey(ctx context.Context, userID int64, licenseKey string) (*subscription.Subscription, error)
	UpdateStatus(ctx context.Context, id int64, active bool) error
	UpdateSchedule(ctx context.Context, id int64, start, expiry time.Time, active bool) error
	FindExpiredActive(ctx context.Context, excludeKeys []string) ([]subscription.Subscription, error)
	List(ctx context.Context, filters *subscription.SubscriptionListFilters) ([]subscription.Subscription, int64, error)
	Delete(ctx context.Context, id int64) error
}

type LicenseStore interface {
	FindByKey(ctx context.Context, key string) (*license.License, error)
}

type UserStore interface {
	CurrentSubscriptionID(ctx context.Context, userID int64) (int64, bool, error)
	SetCurrentSubscription(ctx context.Context, userID int64, subscriptionID *int64) error
}

// LifecycleService owns the subscription invariants: at most one
// primary-active non-protected subscription per user, protected grants immune
// to auto-deactivation, and a guaranteed active fallback entitlement. Every
// mutating path re-reads current state and re-runs fallback assignment, so
// racing callers converge on the invariant rather than a specific winner.
type LifecycleService struct {
	subs     Store
	licenses LicenseStore
	users    UserStore
	cfg      config.EngineConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewLifecycleService(subs Store, licenses LicenseStore, users UserStore, cfg config.EngineConfig, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		subs:     subs,
		licenses: licenses,
		users:    users,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Create provisions a subscription after settlement resolved price and
// duration. A non-BASIC creation first deactivates every other active
// non-protected subscription; a BASIC creation leaves existing primaries
// alone.
func (s *LifecycleService) Create(ctx context.Context, userID int64, lic *license.License, durationDays int) (*subscription.Subscription, error) {
	if durationDays <= 0 {
		durationDays = lic.DurationDays
	}

	now := s.now()
	isBasic := lic.Key == s.cfg.BasicLicenseKey

	if !isBasic {
		if err := s.deactivateOthers(ctx, userID, 0, false); err != nil {
			return nil, err
		}
	}

	sub := &subscription.Subscription{
		UserID:     userID,
		LicenseID:  lic.ID,
		LicenseKey: lic.Key,
		IsActive:   true,
		StartDate:  now,
		ExpiryDate: now.AddDate(0, 0, durationDays),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	// A BASIC created next to a live primary stays secondary: the pointer
	// keeps referencing the primary.
	updatePointer := true
	if isBasic {
		if primary, err := s.activePrimary(ctx, userID, sub.ID); err != nil {
			return nil, err
		} else if primary != nil {
			updatePointer = false
		}
	}
	if updatePointer {
		if err := s.users.SetCurrentSubscription(ctx, userID, &sub.ID); err != nil {
			return nil, fmt.Errorf("failed to update subscription pointer: %w", err)
		}
	}

	s.logger.Info("subscription created",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", userID),
		zap.String("license_key", lic.Key),
		zap.Int("duration_days", durationDays),
	)

	return sub, nil
}

// Activate turns an existing subscription back on. The subscription must
// belong to the user and its license must still be active in the catalog.
// A BASIC target deactivates other non-protected non-BASIC subscriptions; a
// non-BASIC target deactivates every other non-protected one, BASIC included.
func (s *LifecycleService) Activate(ctx context.Context, userID, subscriptionID int64, expiryOverride *time.Time) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, xerrors.ErrNotFound
	}

	lic, err := s.licenses.FindByKey(ctx, sub.LicenseKey)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.Consistency("activate subscription", fmt.Errorf("license %s vanished from catalog", sub.LicenseKey))
		}
		return nil, err
	}
	if !lic.IsActive {
		return nil, xerrors.Validationf("cannot activate subscription: license %s is not active", sub.LicenseKey)
	}

	isBasic := sub.LicenseKey == s.cfg.BasicLicenseKey
	if err := s.deactivateOthers(ctx, userID, sub.ID, isBasic); err != nil {
		return nil, err
	}

	now := s.now()
	start := sub.StartDate
	expiry := sub.ExpiryDate
	if sub.IsExpired(now) {
		start = now
		expiry = now.AddDate(0, 0, lic.DurationDays)
	}
	if expiryOverride != nil {
		expiry = *expiryOverride
	}

	if err := s.subs.UpdateSchedule(ctx, sub.ID, start, expiry, true); err != nil {
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}
	sub.StartDate = start
	sub.ExpiryDate = expiry
	sub.IsActive = true

	if err := s.users.SetCurrentSubscription(ctx, userID, &sub.ID); err != nil {
		return nil, fmt.Errorf("failed to update subscription pointer: %w", err)
	}

	s.logger.Info("subscription activated",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", userID),
		zap.String("license_key", sub.LicenseKey),
		zap.Time("expiry_date", expiry),
	)

	return sub, nil
}

// Deactivate turns a subscription off and restores the fallback guarantee.
// Protected licenses are rejected; an already-inactive subscription is a
// no-op that still re-runs fallback assignment.
func (s *LifecycleService) Deactivate(ctx context.Context, subscriptionID int64) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	if s.cfg.IsProtectedKey(sub.LicenseKey) {
		return nil, xerrors.Validationf("cannot deactivate protected license %s", sub.LicenseKey)
	}

	if !sub.IsActive {
		if _, err := s.AssignFreeIfNeeded(ctx, sub.UserID); err != nil {
			return nil, err
		}
		return sub, nil
	}

	if err := s.subs.UpdateStatus(ctx, sub.ID, false); err != nil {
		return nil, fmt.Errorf("failed to deactivate subscription: %w", err)
	}
	sub.IsActive = false

	pointerID, ok, err := s.users.CurrentSubscriptionID(ctx, sub.UserID)
	if err != nil {
		return nil, xerrors.Consistency("deactivate subscription", err)
	}
	if ok && pointerID == sub.ID {
		if err := s.users.SetCurrentSubscription(ctx, sub.UserID, nil); err != nil {
			return nil, xerrors.Consistency("deactivate subscription", err)
		}
	}

	if _, err := s.AssignFreeIfNeeded(ctx, sub.UserID); err != nil {
		return nil, err
	}

	s.logger.Info("subscription deactivated",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", sub.UserID),
		zap.String("license_key", sub.LicenseKey),
	)

	return sub, nil
}

// AssignFreeIfNeeded restores the "never entitlement-less" invariant. Safe
// to call repeatedly from any trigger; it never creates a duplicate active
// BASIC record.
func (s *LifecycleService) AssignFreeIfNeeded(ctx context.Context, userID int64) (*subscription.Subscription, error) {
	now := s.now()

	active, err := s.subs.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range active {
		sub := &active[i]
		if sub.LicenseKey != s.cfg.BasicLicenseKey && !sub.IsExpired(now) {
			if err := s.ensurePointer(ctx, userID, sub.ID); err != nil {
				return nil, err
			}
			return sub, nil
		}
	}

	// Any non-protected non-BASIC record still active here has lapsed; turn
	// it off so the fallback becomes the sole primary.
	for i := range active {
		sub := &active[i]
		if sub.LicenseKey == s.cfg.BasicLicenseKey || s.cfg.IsProtectedKey(sub.LicenseKey) {
			continue
		}
		if err := s.subs.UpdateStatus(ctx, sub.ID, false); err != nil {
			return nil, fmt.Errorf("failed to deactivate lapsed subscription %d: %w", sub.ID, err)
		}
	}

	basic, err := s.subs.FindLatestByUserAndKey(ctx, userID, s.cfg.BasicLicenseKey)
	if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	if basic != nil {
		if basic.IsActive && !basic.IsExpired(now) {
			if err := s.ensurePointer(ctx, userID, basic.ID); err != nil {
				return nil, err
			}
			return basic, nil
		}

		expiry := now.AddDate(0, 0, s.cfg.BasicDurationDays)
		if err := s.subs.UpdateSchedule(ctx, basic.ID, now, expiry, true); err != nil {
			return nil, fmt.Errorf("failed to reactivate fallback subscription: %w", err)
		}
		basic.StartDate = now
		basic.ExpiryDate = expiry
		basic.IsActive = true

		if err := s.users.SetCurrentSubscription(ctx, userID, &basic.ID); err != nil {
			return nil, fmt.Errorf("failed to update subscription pointer: %w", err)
		}

		s.logger.Info("fallback subscription reactivated",
			zap.Int64("subscription_id", basic.ID),
			zap.Int64("user_id", userID),
		)

		return basic, nil
	}

	lic, err := s.licenses.FindByKey(ctx, s.cfg.BasicLicenseKey)
	if err != nil {
		return nil, xerrors.Consistency("assign fallback", fmt.Errorf("fallback license %s missing from catalog: %w", s.cfg.BasicLicenseKey, err))
	}

	duration := lic.DurationDays
	if duration <= 0 {
		duration = s.cfg.BasicDurationDays
	}

	sub := &subscription.Subscription{
		UserID:     userID,
		LicenseID:  lic.ID,
		LicenseKey: lic.Key,
		IsActive:   true,
		StartDate:  now,
		ExpiryDate: now.AddDate(0, 0, duration),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create fallback subscription: %w", err)
	}

	if err := s.users.SetCurrentSubscription(ctx, userID, &sub.ID); err != nil {
		return nil, fmt.Errorf("failed to update subscription pointer: %w", err)
	}

	s.logger.Info("fallback subscription created",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", userID),
	)

	return sub, nil
}

// Renew extends a subscription from max(current expiry, now), reactivating
// it if necessary, and re-establishes the single-primary invariant.
func (s *LifecycleService) Renew(ctx context.Context, subscriptionID int64, durationDays int) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	lic, err := s.licenses.FindByKey(ctx, sub.LicenseKey)
	if err != nil {
		return nil, xerrors.Consistency("renew subscription", fmt.Errorf("license %s vanished from catalog: %w", sub.LicenseKey, err))
	}
	if durationDays <= 0 {
		durationDays = lic.DurationDays
	}

	now := s.now()
	base := sub.ExpiryDate
	start := sub.StartDate
	if base.Before(now) {
		base = now
		start = now
	}
	expiry := base.AddDate(0, 0, durationDays)

	if err := s.subs.UpdateSchedule(ctx, sub.ID, start, expiry, true); err != nil {
		return nil, xerrors.Consistency("renew subscription", err)
	}
	sub.StartDate = start
	sub.ExpiryDate = expiry
	sub.IsActive = true

	if !s.cfg.IsProtectedKey(sub.LicenseKey) {
		if err := s.deactivateOthers(ctx, sub.UserID, sub.ID, false); err != nil {
			return nil, xerrors.Consistency("renew subscription", err)
		}
	}

	if err := s.users.SetCurrentSubscription(ctx, sub.UserID, &sub.ID); err != nil {
		return nil, xerrors.Consistency("renew subscription", err)
	}

	s.logger.Info("subscription renewed",
		zap.Int64("subscription_id", sub.ID),
		zap.Int64("user_id", sub.UserID),
		zap.Time("expiry_date", expiry),
	)

	return sub, nil
}

// SweepExpired deactivates every active, expired, non-protected, non-BASIC
// subscription through the normal Deactivate path so fallback assignment
// runs uniformly. Returns the number of subscriptions swept.
func (s *LifecycleService) SweepExpired(ctx context.Context) (int, error) {
	excludeKeys := append([]string{}, s.cfg.ProtectedLicenseKeys...)
	if !s.cfg.IsProtectedKey(s.cfg.BasicLicenseKey) {
		excludeKeys = append(excludeKeys, s.cfg.BasicLicenseKey)
	}

	expired, err := s.subs.FindExpiredActive(ctx, excludeKeys)
	if err != nil {
		return 0, fmt.Errorf("failed to find expired subscriptions: %w", err)
	}

	count := 0
	for i := range expired {
		if _, err := s.Deactivate(ctx, expired[i].ID); err != nil {
			s.logger.Warn("failed to sweep expired subscription",
				zap.Int64("subscription_id", expired[i].ID),
				zap.Error(err),
			)
			continue
		}
		count++
	}

	if count > 0 {
		s.logger.Info("expired subscriptions swept", zap.Int("count", count))
	}

	return count, nil
}

// Get retrieves a subscription, enforcing ownership unless the caller is an
// admin.
func (s *LifecycleService) Get(ctx context.Context, userID, subscriptionID int64, isAdmin bool) (*subscription.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && sub.UserID != userID {
		return nil, xerrors.ErrNotFound
	}
	return sub, nil
}

// List retrieves subscriptions with filters.
func (s *LifecycleService) List(ctx context.Context, filters *subscription.SubscriptionListFilters) (*subscription.SubscriptionListResponse, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	subs, total, err := s.subs.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &subscription.SubscriptionListResponse{
		Subscriptions: subs,
		Total:         total,
		Page:          filters.Page,
		PageSize:      filters.PageSize,
		TotalPages:    totalPages,
	}, nil
}

// Delete removes a terminal subscription record (admin only). Active
// subscriptions must be deactivated first.
func (s *LifecycleService) Delete(ctx context.Context, subscriptionID int64) error {
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.IsActive {
		return xerrors.Validationf("cannot delete active subscription %d", subscriptionID)
	}

	if err := s.subs.Delete(ctx, subscriptionID); err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}

	s.logger.Info("subscription deleted", zap.Int64("subscription_id", subscriptionID))
	return nil
}

// deactivateOthers turns off the user's other active subscriptions, always
// sparing protected licenses, and sparing BASIC when keepBasic is set.
func (s *LifecycleService) deactivateOthers(ctx context.Context, userID, exceptID int64, keepBasic bool) error {
	active, err := s.subs.FindActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load active subscriptions: %w", err)
	}

	for i := range active {
		sub := &active[i]
		if sub.ID == exceptID {
			continue
		}
		if s.cfg.IsProtectedKey(sub.LicenseKey) {
			continue
		}
		if keepBasic && sub.LicenseKey == s.cfg.BasicLicenseKey {
			continue
		}
		if err := s.subs.UpdateStatus(ctx, sub.ID, false); err != nil {
			return fmt.Errorf("failed to deactivate subscription %d: %w", sub.ID, err)
		}
	}

	return nil
}

// activePrimary returns the user's active, non-expired, non-BASIC
// subscription other than exceptID, if any.
func (s *LifecycleService) activePrimary(ctx context.Context, userID, exceptID int64) (*subscription.Subscription, error) {
	active, err := s.subs.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i := range active {
		sub := &active[i]
		if sub.ID == exceptID || sub.LicenseKey == s.cfg.BasicLicenseKey {
			continue
		}
		if !sub.IsExpired(now) {
			return sub, nil
		}
	}
	return nil, nil
}

// ensurePointer points the user record at the subscription if it does not
// already.
func (s *LifecycleService) ensurePointer(ctx context.Context, userID, subscriptionID int64) error {
	pointerID, ok, err := s.users.CurrentSubscriptionID(ctx, userID)
	if err != nil {
		return err
	}
	if ok && pointerID == subscriptionID {
		return nil
	}
	return s.users.SetCurrentSubscription(ctx, userID, &subscriptionID)
}
