// internal/service/broker/broker_service.go
package broker

import (
	"context"
	"crypto/rand"
	"fmt"

	"licentra-service/internal/config"
	"licentra-service/internal/domain/broker"
	xerrors "licentra-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	codeLength      = 4
	codeCharset     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 10
)

type Store interface {
	Create(ctx context.Context, b *broker.Broker) error
	FindByUserID(ctx context.Context, userID int64) (*broker.Broker, error)
	FindByCode(ctx context.Context, code string) (*broker.Broker, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

type UserStore interface {
	UpdateReferralCode(ctx context.Context, userID int64, code *string) error
}

// BrokerService maintains referral-code associations. One broker record per
// user; the user's referral_code mirrors the active broker code.
type BrokerService struct {
	store  Store
	users  UserStore
	cfg    config.EngineConfig
	logger *zap.Logger
}

func NewBrokerService(store Store, users UserStore, cfg config.EngineConfig, logger *zap.Logger) *BrokerService {
	return &BrokerService{store: store, users: users, cfg: cfg, logger: logger}
}

// GenerateCode produces a unique 4-character alphanumeric code, retrying on
// collision.
func (s *BrokerService) GenerateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := randomCode(codeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate broker code: %w", err)
		}

		exists, err := s.store.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check broker code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique broker code after %d attempts", maxCodeAttempts)
}

// Enroll creates a broker record for the user, or reactivates an existing
// one. Idempotent: an already-active broker is returned unchanged.
func (s *BrokerService) Enroll(ctx context.Context, userID int64) (*broker.Broker, error) {
	existing, err := s.store.FindByUserID(ctx, userID)
	if err == nil {
		if !existing.IsActive {
			if err := s.store.SetActive(ctx, existing.ID, true); err != nil {
				return nil, fmt.Errorf("failed to reactivate broker: %w", err)
			}
			existing.IsActive = true
			s.logger.Info("broker reactivated",
				zap.Int64("broker_id", existing.ID),
				zap.Int64("user_id", userID),
			)
		}
		if err := s.users.UpdateReferralCode(ctx, userID, &existing.BrokerCode); err != nil {
			return nil, fmt.Errorf("failed to mirror referral code: %w", err)
		}
		return existing, nil
	}
	if !xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	code, err := s.GenerateCode(ctx)
	if err != nil {
		return nil, err
	}

	b := &broker.Broker{
		UserID:     userID,
		BrokerCode: code,
		IsActive:   true,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to create broker: %w", err)
	}

	if err := s.users.UpdateReferralCode(ctx, userID, &b.BrokerCode); err != nil {
		return nil, fmt.Errorf("failed to mirror referral code: %w", err)
	}

	s.logger.Info("broker enrolled",
		zap.Int64("broker_id", b.ID),
		zap.Int64("user_id", userID),
		zap.String("broker_code", b.BrokerCode),
	)

	return b, nil
}

// ValidateCode reports whether the code belongs to an active broker.
func (s *BrokerService) ValidateCode(ctx context.Context, code string) (bool, error) {
	b, err := s.store.FindByCode(ctx, code)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return b.IsActive, nil
}

// GetByUser retrieves a user's broker record.
func (s *BrokerService) GetByUser(ctx context.Context, userID int64) (*broker.Broker, error) {
	return s.store.FindByUserID(ctx, userID)
}

// Deactivate disables a user's broker record and clears the referral code
// mirror. Protected broker accounts are rejected.
func (s *BrokerService) Deactivate(ctx context.Context, userID int64) error {
	if s.cfg.IsProtectedBroker(userID) {
		return xerrors.Validationf("cannot deactivate protected broker account %d", userID)
	}

	b, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if b.IsActive {
		if err := s.store.SetActive(ctx, b.ID, false); err != nil {
			return fmt.Errorf("failed to deactivate broker: %w", err)
		}
	}

	if err := s.users.UpdateReferralCode(ctx, userID, nil); err != nil {
		return fmt.Errorf("failed to clear referral code: %w", err)
	}

	s.logger.Info("broker deactivated",
		zap.Int64("broker_id", b.ID),
		zap.Int64("user_id", userID),
	)

	return nil
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = codeCharset[int(buf[i])%len(codeCharset)]
	}
	return string(buf), nil
}
