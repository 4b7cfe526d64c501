// internal/service/promotion/promotion_service_test.go
package promotion

import (
	"context"
	"strings"
	"testing"
	"time"

	"licentra-service/internal/domain/promotion"
	xerrors "licentra-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memPromotionStore struct {
	seq    int64
	byCode map[string]*promotion.Promotion
}

func newMemPromotionStore() *memPromotionStore {
	return &memPromotionStore{byCode: make(map[string]*promotion.Promotion)}
}

func (m *memPromotionStore) Create(_ context.Context, p *promotion.Promotion) error {
	m.seq++
	p.ID = m.seq
	m.byCode[p.PromotionCode] = p
	return nil
}

func (m *memPromotionStore) FindByCode(_ context.Context, code string) (*promotion.Promotion, error) {
	if p, ok := m.byCode[strings.ToUpper(code)]; ok {
		return p, nil
	}
	return nil, xerrors.ErrNotFound
}

func (m *memPromotionStore) List(_ context.Context, activeOnly bool) ([]promotion.Promotion, error) {
	var out []promotion.Promotion
	for _, p := range m.byCode {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memPromotionStore) SetActive(_ context.Context, id int64, active bool) error {
	for _, p := range m.byCode {
		if p.ID == id {
			p.IsActive = active
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (m *memPromotionStore) IncrementUsage(_ context.Context, id int64) error {
	for _, p := range m.byCode {
		if p.ID == id {
			p.UsageCount++
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func TestCreateNormalizesCode(t *testing.T) {
	store := newMemPromotionStore()
	svc := NewPromotionService(store, zap.NewNop())

	p, err := svc.Create(context.Background(), &promotion.CreatePromotionRequest{
		PromotionCode: "  save20 ",
		DiscountType:  promotion.DiscountPercentage,
		DiscountValue: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, "SAVE20", p.PromotionCode)
	assert.True(t, p.IsActive)
}

func TestCreateValidation(t *testing.T) {
	svc := NewPromotionService(newMemPromotionStore(), zap.NewNop())

	_, err := svc.Create(context.Background(), &promotion.CreatePromotionRequest{
		PromotionCode: "X", DiscountType: promotion.DiscountPercentage, DiscountValue: 0,
	})
	assert.True(t, xerrors.IsValidation(err))

	_, err = svc.Create(context.Background(), &promotion.CreatePromotionRequest{
		PromotionCode: "X", DiscountType: "BOGUS", DiscountValue: 5,
	})
	assert.True(t, xerrors.IsValidation(err))

	start := time.Now()
	end := start.AddDate(0, 0, -1)
	_, err = svc.Create(context.Background(), &promotion.CreatePromotionRequest{
		PromotionCode: "X", DiscountType: promotion.DiscountFixed, DiscountValue: 5,
		StartDate: &start, EndDate: &end,
	})
	assert.True(t, xerrors.IsValidation(err))
}

func TestValidateCode(t *testing.T) {
	store := newMemPromotionStore()
	svc := NewPromotionService(store, zap.NewNop())

	_, err := svc.Create(context.Background(), &promotion.CreatePromotionRequest{
		PromotionCode:         "SAVE20",
		DiscountType:          promotion.DiscountPercentage,
		DiscountValue:         20,
		ApplicableLicenseKeys: []string{"PRO"},
	})
	require.NoError(t, err)

	p, err := svc.ValidateCode(context.Background(), "save20", "PRO")
	require.NoError(t, err)
	assert.Equal(t, "SAVE20", p.PromotionCode)

	_, err = svc.ValidateCode(context.Background(), "save20", "TEAM")
	assert.True(t, xerrors.IsValidation(err))

	_, err = svc.ValidateCode(context.Background(), "NOPE", "PRO")
	assert.True(t, xerrors.IsValidation(err))
}

func TestDeactivate(t *testing.T) {
	store := newMemPromotionStore()
	svc := NewPromotionService(store, zap.NewNop())

	_, err := svc.Create(context.Background(), &promotion.CreatePromotionRequest{
		PromotionCode: "SAVE20",
		DiscountType:  promotion.DiscountPercentage,
		DiscountValue: 20,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(context.Background(), "SAVE20"))
	assert.False(t, store.byCode["SAVE20"].IsActive)

	_, err = svc.ValidateCode(context.Background(), "SAVE20", "")
	assert.True(t, xerrors.IsValidation(err))
}
