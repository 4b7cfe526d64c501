// internal/service/pricing/calculator_test.go
package pricing

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"licentra-service/internal/config"
	"licentra-service/internal/domain/broker"
	"licentra-service/internal/domain/license"
	"licentra-service/internal/domain/promotion"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBrokerStore struct {
	brokers map[string]*broker.Broker
}

func (s *stubBrokerStore) FindByCode(_ context.Context, code string) (*broker.Broker, error) {
	if b, ok := s.brokers[strings.ToUpper(code)]; ok {
		return b, nil
	}
	return nil, xerrors.ErrNotFound
}

type stubPromotionStore struct {
	promotions map[string]*promotion.Promotion
}

func (s *stubPromotionStore) FindByCode(_ context.Context, code string) (*promotion.Promotion, error) {
	if p, ok := s.promotions[strings.ToUpper(code)]; ok {
		return p, nil
	}
	return nil, xerrors.ErrNotFound
}

func testConfig() config.EngineConfig {
	return config.EngineConfig{
		BasicLicenseKey:       "BASIC",
		ProtectedLicenseKeys:  []string{"ADMIN", "PARTNER", "BASIC"},
		BrokerDiscountPercent: 10,
		BasicDurationDays:     36500,
	}
}

func newTestCalculator(brokers map[string]*broker.Broker, promotions map[string]*promotion.Promotion) *Calculator {
	return NewCalculator(
		&stubBrokerStore{brokers: brokers},
		&stubPromotionStore{promotions: promotions},
		testConfig(),
	)
}

func proLicense() *license.License {
	return &license.License{ID: 1, Key: "PRO", Name: "Pro", Price: 100, DurationDays: 30, IsActive: true}
}

func activeBroker(code string) *broker.Broker {
	return &broker.Broker{ID: 1, UserID: 42, BrokerCode: code, IsActive: true}
}

func percentPromo(code string, value float64) *promotion.Promotion {
	return &promotion.Promotion{ID: 1, PromotionCode: code, DiscountType: promotion.DiscountPercentage, DiscountValue: value, IsActive: true}
}

func TestPriceNoDiscounts(t *testing.T) {
	calc := newTestCalculator(nil, nil)

	quote, err := calc.Price(context.Background(), Input{License: proLicense()})
	require.NoError(t, err)

	assert.Equal(t, 100.0, quote.OriginalPrice)
	assert.Zero(t, quote.TotalDiscount)
	assert.Equal(t, 100.0, quote.FinalAmount)
}

func TestPriceBrokerDiscountOnly(t *testing.T) {
	calc := newTestCalculator(map[string]*broker.Broker{"AB12": activeBroker("AB12")}, nil)

	quote, err := calc.Price(context.Background(), Input{
		License:    proLicense(),
		BrokerCode: "AB12",
	})
	require.NoError(t, err)

	assert.Equal(t, "AB12", quote.BrokerCode)
	assert.Equal(t, 10.0, quote.BrokerDiscount)
	assert.Equal(t, 90.0, quote.FinalAmount)
}

func TestPriceStackedDiscounts(t *testing.T) {
	calc := newTestCalculator(
		map[string]*broker.Broker{"AB12": activeBroker("AB12")},
		map[string]*promotion.Promotion{"SAVE20": percentPromo("SAVE20", 20)},
	)

	quote, err := calc.Price(context.Background(), Input{
		License:       proLicense(),
		BrokerCode:    "AB12",
		PromotionCode: "SAVE20",
	})
	require.NoError(t, err)

	// Promotion applies to the post-broker price: 20% of 90.
	assert.Equal(t, 10.0, quote.BrokerDiscount)
	assert.Equal(t, 18.0, quote.PromotionDiscount)
	assert.Equal(t, 28.0, quote.TotalDiscount)
	assert.Equal(t, 72.0, quote.FinalAmount)
}

func TestPriceFixedPromotionCapped(t *testing.T) {
	promo := &promotion.Promotion{
		ID: 2, PromotionCode: "BIG", DiscountType: promotion.DiscountFixed, DiscountValue: 200, IsActive: true,
	}
	calc := newTestCalculator(nil, map[string]*promotion.Promotion{"BIG": promo})

	quote, err := calc.Price(context.Background(), Input{
		License:       proLicense(),
		PromotionCode: "BIG",
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, quote.PromotionDiscount)
	assert.Zero(t, quote.FinalAmount)
}

func TestPriceProtectedLicenseNoDiscount(t *testing.T) {
	calc := newTestCalculator(
		map[string]*broker.Broker{"AB12": activeBroker("AB12")},
		map[string]*promotion.Promotion{"SAVE20": percentPromo("SAVE20", 20)},
	)

	lic := &license.License{ID: 9, Key: "PARTNER", Price: 100, DurationDays: 365, IsActive: true, IsProtected: true}
	quote, err := calc.Price(context.Background(), Input{
		License:       lic,
		BrokerCode:    "AB12",
		PromotionCode: "SAVE20",
	})
	require.NoError(t, err)

	// Codes are kept for attribution, but no discount lands.
	assert.Equal(t, "AB12", quote.BrokerCode)
	assert.Equal(t, "SAVE20", quote.PromotionCode)
	assert.Zero(t, quote.TotalDiscount)
	assert.Equal(t, 100.0, quote.FinalAmount)
}

func TestPriceBrokerCodePriority(t *testing.T) {
	brokers := map[string]*broker.Broker{
		"OVER": activeBroker("OVER"),
		"SUPP": activeBroker("SUPP"),
		"REFF": activeBroker("REFF"),
	}
	calc := newTestCalculator(brokers, nil)

	override := "OVER"
	quote, err := calc.Price(context.Background(), Input{
		License:            proLicense(),
		BuyerReferralCode:  "REFF",
		BrokerCode:         "SUPP",
		BrokerCodeOverride: &override,
	})
	require.NoError(t, err)
	assert.Equal(t, "OVER", quote.BrokerCode)

	quote, err = calc.Price(context.Background(), Input{
		License:           proLicense(),
		BuyerReferralCode: "REFF",
		BrokerCode:        "SUPP",
	})
	require.NoError(t, err)
	assert.Equal(t, "SUPP", quote.BrokerCode)

	quote, err = calc.Price(context.Background(), Input{
		License:           proLicense(),
		BuyerReferralCode: "REFF",
	})
	require.NoError(t, err)
	assert.Equal(t, "REFF", quote.BrokerCode)
}

func TestPriceEmptyOverrideClearsBroker(t *testing.T) {
	calc := newTestCalculator(map[string]*broker.Broker{"REFF": activeBroker("REFF")}, nil)

	empty := ""
	quote, err := calc.Price(context.Background(), Input{
		License:            proLicense(),
		BuyerReferralCode:  "REFF",
		BrokerCodeOverride: &empty,
	})
	require.NoError(t, err)

	assert.Empty(t, quote.BrokerCode)
	assert.Zero(t, quote.BrokerDiscount)
	assert.Equal(t, 100.0, quote.FinalAmount)
}

func TestPriceUnknownBrokerCodeRejected(t *testing.T) {
	calc := newTestCalculator(nil, nil)

	_, err := calc.Price(context.Background(), Input{
		License:    proLicense(),
		BrokerCode: "NOPE",
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestPriceInactiveBrokerCodeRejected(t *testing.T) {
	inactive := activeBroker("GONE")
	inactive.IsActive = false
	calc := newTestCalculator(map[string]*broker.Broker{"GONE": inactive}, nil)

	_, err := calc.Price(context.Background(), Input{
		License:    proLicense(),
		BrokerCode: "GONE",
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestPriceInvalidPromotionUserRejected(t *testing.T) {
	calc := newTestCalculator(nil, nil)

	_, err := calc.Price(context.Background(), Input{
		License:       proLicense(),
		PromotionCode: "NOPE",
	})
	require.Error(t, err)
	assert.True(t, xerrors.IsValidation(err))
}

func TestPriceInvalidPromotionAdminIgnored(t *testing.T) {
	calc := newTestCalculator(nil, nil)

	quote, err := calc.Price(context.Background(), Input{
		License:        proLicense(),
		PromotionCode:  "NOPE",
		AdminInitiated: true,
	})
	require.NoError(t, err)

	assert.Empty(t, quote.PromotionCode)
	assert.Equal(t, 100.0, quote.FinalAmount)
}

func TestValidatePromotion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("inactive", func(t *testing.T) {
		p := percentPromo("P", 10)
		p.IsActive = false
		assert.Error(t, ValidatePromotion(p, "PRO", now))
	})

	t.Run("not yet valid", func(t *testing.T) {
		p := percentPromo("P", 10)
		p.StartDate = sql.NullTime{Time: now.AddDate(0, 0, 1), Valid: true}
		assert.Error(t, ValidatePromotion(p, "PRO", now))
	})

	t.Run("expired", func(t *testing.T) {
		p := percentPromo("P", 10)
		p.EndDate = sql.NullTime{Time: now.AddDate(0, 0, -1), Valid: true}
		assert.Error(t, ValidatePromotion(p, "PRO", now))
	})

	t.Run("exhausted", func(t *testing.T) {
		p := percentPromo("P", 10)
		p.UsageLimit = sql.NullInt32{Int32: 5, Valid: true}
		p.UsageCount = 5
		assert.Error(t, ValidatePromotion(p, "PRO", now))
	})

	t.Run("wrong license", func(t *testing.T) {
		p := percentPromo("P", 10)
		p.ApplicableLicenseKeys = []string{"ENTERPRISE"}
		assert.Error(t, ValidatePromotion(p, "PRO", now))
	})

	t.Run("valid", func(t *testing.T) {
		p := percentPromo("P", 10)
		p.ApplicableLicenseKeys = []string{"PRO"}
		assert.NoError(t, ValidatePromotion(p, "PRO", now))
	})
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.0, Round2(9.999))
	assert.Equal(t, 9.99, Round2(9.994))
	assert.Equal(t, 0.1, Round2(0.1))
	assert.Equal(t, 33.33, Round2(100.0/3))
}
