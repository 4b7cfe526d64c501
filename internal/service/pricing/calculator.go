// internal/service/pricing/calculator.go
package pricing

import (
	"context"
	"math"
	"time"

	"licentra-service/internal/config"
	"licentra-service/internal/domain/broker"
	"licentra-service/internal/domain/license"
	"licentra-service/internal/domain/promotion"
	xerrors "licentra-service/internal/pkg/errors"
)

type brokerStore interface {
	FindByCode(ctx context.Context, code string) (*broker.Broker, error)
}

type promotionStore interface {
	FindByCode(ctx context.Context, code string) (*promotion.Promotion, error)
}

// Calculator prices a purchase or renewal by stacking at most one broker
// discount and one promotion discount, broker first. It has no persistence
// side effects; promotion usage accounting belongs to settlement.
type Calculator struct {
	brokers    brokerStore
	promotions promotionStore
	cfg        config.EngineConfig
}

func NewCalculator(brokers brokerStore, promotions promotionStore, cfg config.EngineConfig) *Calculator {
	return &Calculator{brokers: brokers, promotions: promotions, cfg: cfg}
}

// Input carries everything pricing needs. BrokerCodeOverride takes priority
// over BrokerCode, which takes priority over the buyer's stored referral
// code; an empty-string override clears broker attribution entirely.
type Input struct {
	License            *license.License
	BuyerReferralCode  string
	BrokerCode         string
	BrokerCodeOverride *string
	PromotionCode      string

	// AdminInitiated makes invalid promotion codes a silent no-op instead of
	// a hard error.
	AdminInitiated bool

	Now time.Time
}

// Quote is the priced outcome. Codes are recorded even for protected
// licenses (attribution), but protected licenses always carry zero discount.
type Quote struct {
	OriginalPrice     float64
	BrokerCode        string
	BrokerDiscount    float64
	Promotion         *promotion.Promotion
	PromotionCode     string
	PromotionDiscount float64
	TotalDiscount     float64
	FinalAmount       float64
}

// Price computes the quote for the given input.
func (c *Calculator) Price(ctx context.Context, in Input) (*Quote, error) {
	if in.License == nil {
		return nil, xerrors.Validationf("license is required for pricing")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	price := in.License.Price
	quote := &Quote{OriginalPrice: price}

	brokerCode, err := c.resolveBrokerCode(ctx, in)
	if err != nil {
		return nil, err
	}
	quote.BrokerCode = brokerCode

	if !in.License.IsProtected && brokerCode != "" {
		quote.BrokerDiscount = Round2(price * c.cfg.BrokerDiscountPercent / 100)
	}
	priceAfterBroker := price - quote.BrokerDiscount
	if priceAfterBroker < 0 {
		priceAfterBroker = 0
	}

	if in.PromotionCode != "" {
		promo, err := c.resolvePromotion(ctx, in.PromotionCode, in.License.Key, now, in.AdminInitiated)
		if err != nil {
			return nil, err
		}
		if promo != nil {
			quote.Promotion = promo
			quote.PromotionCode = promo.PromotionCode
			if !in.License.IsProtected {
				quote.PromotionDiscount = promotionDiscount(promo, priceAfterBroker)
			}
		}
	}

	quote.TotalDiscount = Round2(quote.BrokerDiscount + quote.PromotionDiscount)
	if quote.TotalDiscount > price {
		quote.TotalDiscount = price
	}
	quote.FinalAmount = Round2(price - quote.TotalDiscount)
	if quote.FinalAmount < 0 {
		quote.FinalAmount = 0
	}

	return quote, nil
}

// resolveBrokerCode picks the code to apply and verifies it belongs to an
// active broker. An empty result means no broker attribution.
func (c *Calculator) resolveBrokerCode(ctx context.Context, in Input) (string, error) {
	var code string
	switch {
	case in.BrokerCodeOverride != nil:
		code = *in.BrokerCodeOverride
	case in.BrokerCode != "":
		code = in.BrokerCode
	default:
		code = in.BuyerReferralCode
	}

	if code == "" {
		return "", nil
	}

	b, err := c.brokers.FindByCode(ctx, code)
	if err != nil {
		return "", xerrors.Validationf("broker code %s is not recognized", code)
	}
	if !b.IsActive {
		return "", xerrors.Validationf("broker code %s is not active", code)
	}

	return b.BrokerCode, nil
}

// resolvePromotion validates the supplied code. Admin-initiated pricing
// swallows invalid codes; end-user pricing rejects them.
func (c *Calculator) resolvePromotion(ctx context.Context, code, licenseKey string, now time.Time, adminInitiated bool) (*promotion.Promotion, error) {
	promo, err := c.promotions.FindByCode(ctx, code)
	if err != nil {
		if adminInitiated {
			return nil, nil
		}
		return nil, xerrors.Validationf("promotion code %s is not recognized", code)
	}

	if err := ValidatePromotion(promo, licenseKey, now); err != nil {
		if adminInitiated {
			return nil, nil
		}
		return nil, err
	}

	return promo, nil
}

// ValidatePromotion checks a promotion against a license key at an instant.
func ValidatePromotion(p *promotion.Promotion, licenseKey string, now time.Time) error {
	if !p.IsActive {
		return xerrors.Validationf("promotion code %s is not active", p.PromotionCode)
	}
	if p.StartDate.Valid && now.Before(p.StartDate.Time) {
		return xerrors.Validationf("promotion code %s is not yet valid", p.PromotionCode)
	}
	if p.EndDate.Valid && now.After(p.EndDate.Time) {
		return xerrors.Validationf("promotion code %s expired", p.PromotionCode)
	}
	if p.Exhausted() {
		return xerrors.Validationf("promotion code %s usage limit reached", p.PromotionCode)
	}
	if licenseKey != "" && !p.AppliesTo(licenseKey) {
		return xerrors.Validationf("promotion code %s not applicable to license %s", p.PromotionCode, licenseKey)
	}
	return nil
}

// promotionDiscount computes the promotion's discount on the post-broker
// price, capped so the result cannot go negative.
func promotionDiscount(p *promotion.Promotion, priceAfterBroker float64) float64 {
	var discount float64
	switch p.DiscountType {
	case promotion.DiscountPercentage:
		discount = priceAfterBroker * p.DiscountValue / 100
	case promotion.DiscountFixed:
		discount = p.DiscountValue
	}
	if discount > priceAfterBroker {
		discount = priceAfterBroker
	}
	return Round2(discount)
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
