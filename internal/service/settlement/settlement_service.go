// internal/service/settlement/settlement_service.go
package settlement

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"licentra-service/internal/domain/license"
	"licentra-service/internal/domain/subscription"
	"licentra-service/internal/domain/transaction"
	"licentra-service/internal/domain/user"
	xerrors "licentra-service/internal/pkg/errors"
	"licentra-service/internal/service/pricing"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

type TxStore interface {
	Create(ctx context.Context, t *transaction.Transaction) error
	FindByID(ctx context.Context, id int64) (*transaction.Transaction, error)
	UpdatePricing(ctx context.Context, t *transaction.Transaction) error
	MarkSucceeded(ctx context.Context, t *transaction.Transaction) error
	MarkCanceled(ctx context.Context, id int64) error
	List(ctx context.Context, filters *transaction.TransactionListFilters) ([]transaction.Transaction, int64, error)
	GetStats(ctx context.Context) (*transaction.TransactionStats, error)
}

// Catalog is the license lookup boundary; returned licenses carry the
// resolved protection flag.
type Catalog interface {
	GetByKey(ctx context.Context, key string) (*license.License, error)
}

// Lifecycle is the subscription side of settlement.
type Lifecycle interface {
	Create(ctx context.Context, userID int64, lic *license.License, durationDays int) (*subscription.Subscription, error)
	Renew(ctx context.Context, subscriptionID int64, durationDays int) (*subscription.Subscription, error)
	Get(ctx context.Context, userID, subscriptionID int64, isAdmin bool) (*subscription.Subscription, error)
}

type Pricer interface {
	Price(ctx context.Context, in pricing.Input) (*pricing.Quote, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id int64) (*user.User, error)
}

type PromotionStore interface {
	IncrementUsage(ctx context.Context, id int64) error
}

// SettlementService drives the transaction state machine. A record is born
// PENDING with a fully derived price; pricing stays mutable while PENDING;
// Confirm and Cancel race on a conditional status flip so exactly one
// terminal transition wins.
type SettlementService struct {
	txns       TxStore
	catalog    Catalog
	lifecycle  Lifecycle
	pricer     Pricer
	users      UserStore
	promotions PromotionStore
	logger     *zap.Logger
}

func NewSettlementService(
	txns TxStore,
	catalog Catalog,
	lifecycle Lifecycle,
	pricer Pricer,
	users UserStore,
	promotions PromotionStore,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		txns:       txns,
		catalog:    catalog,
		lifecycle:  lifecycle,
		pricer:     pricer,
		users:      users,
		promotions: promotions,
		logger:     logger,
	}
}

// NewReference mints a transaction reference.
func NewReference() string {
	return "TXN-" + ulid.Make().String()
}

// Create opens a PENDING transaction with the derived price. Non-admin
// callers can only buy for themselves and cannot touch protected licenses.
func (s *SettlementService) Create(ctx context.Context, actorID int64, isAdmin bool, req *transaction.CreateTransactionRequest) (*transaction.Transaction, error) {
	buyerID := req.BuyerUserID
	if buyerID == 0 {
		buyerID = actorID
	}
	if buyerID != actorID && !isAdmin {
		return nil, xerrors.ErrForbidden
	}

	var (
		lic       *license.License
		targetSub sql.NullInt64
	)

	switch req.Type {
	case transaction.TypeNewPurchase:
		if req.LicenseKey == "" {
			return nil, xerrors.Validationf("license key is required for a new purchase")
		}
		var err error
		lic, err = s.catalog.GetByKey(ctx, strings.ToUpper(req.LicenseKey))
		if err != nil {
			if xerrors.Is(err, xerrors.ErrNotFound) {
				return nil, xerrors.Validationf("license %s is not recognized", req.LicenseKey)
			}
			return nil, err
		}
		if !lic.IsActive {
			return nil, xerrors.Validationf("license %s is not available for purchase", lic.Key)
		}
	case transaction.TypeRenewal:
		if req.SubscriptionID == 0 {
			return nil, xerrors.Validationf("subscription id is required for a renewal")
		}
		sub, err := s.lifecycle.Get(ctx, buyerID, req.SubscriptionID, isAdmin)
		if err != nil {
			return nil, err
		}
		if sub.UserID != buyerID {
			return nil, xerrors.Validationf("subscription %d does not belong to buyer %d", sub.ID, buyerID)
		}
		lic, err = s.catalog.GetByKey(ctx, sub.LicenseKey)
		if err != nil {
			return nil, xerrors.Consistency("create transaction", fmt.Errorf("license %s vanished from catalog: %w", sub.LicenseKey, err))
		}
		targetSub = sql.NullInt64{Int64: sub.ID, Valid: true}
	default:
		return nil, xerrors.Validationf("unknown transaction type %s", req.Type)
	}

	if lic.IsProtected && !isAdmin {
		return nil, xerrors.ErrForbidden
	}

	buyer, err := s.users.FindByID(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	// Privileged accounts get their entitlements through admin grants, not
	// self-service checkout.
	if !isAdmin && buyer.IsPrivileged() {
		return nil, xerrors.ErrForbidden
	}

	quote, err := s.pricer.Price(ctx, pricing.Input{
		License:           lic,
		BuyerReferralCode: buyer.ReferralCode.String,
		BrokerCode:        req.BrokerCode,
		PromotionCode:     req.PromotionCode,
		AdminInitiated:    isAdmin,
	})
	if err != nil {
		return nil, err
	}

	duration := req.DurationDays
	if duration <= 0 {
		duration = lic.DurationDays
	}

	t := &transaction.Transaction{
		Reference:             NewReference(),
		BuyerUserID:           buyerID,
		LicenseID:             lic.ID,
		LicenseKey:            lic.Key,
		TransactionType:       req.Type,
		OriginalLicensePrice:  quote.OriginalPrice,
		PurchasedDurationDays: duration,
		PaymentStatus:         transaction.StatusPending,
		TargetSubscriptionID:  targetSub,
	}
	applyQuote(t, quote)

	if err := s.txns.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("transaction created",
		zap.String("reference", t.Reference),
		zap.Int64("buyer_user_id", buyerID),
		zap.String("license_key", lic.Key),
		zap.String("transaction_type", string(req.Type)),
		zap.Float64("amount", t.TransactionAmount),
	)

	return t, nil
}

// UpdatePending re-derives the price of a PENDING record under admin
// overrides. Nil fields keep current values; an empty broker override clears
// broker attribution.
func (s *SettlementService) UpdatePending(ctx context.Context, id int64, req *transaction.UpdateTransactionRequest) (*transaction.Transaction, error) {
	t, err := s.txns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.PaymentStatus != transaction.StatusPending {
		return nil, xerrors.ErrNotPending
	}

	lic, err := s.catalog.GetByKey(ctx, t.LicenseKey)
	if err != nil {
		return nil, xerrors.Consistency("update transaction", fmt.Errorf("license %s vanished from catalog: %w", t.LicenseKey, err))
	}

	in := pricing.Input{
		License:        lic,
		BrokerCode:     t.BrokerCodeApplied.String,
		PromotionCode:  t.PromotionCodeApplied.String,
		AdminInitiated: true,
	}
	if req.BrokerCodeOverride != nil {
		in.BrokerCodeOverride = req.BrokerCodeOverride
	}
	if req.PromotionCode != nil {
		in.PromotionCode = *req.PromotionCode
	}

	quote, err := s.pricer.Price(ctx, in)
	if err != nil {
		return nil, err
	}
	applyQuote(t, quote)

	if req.DurationDays != nil {
		if *req.DurationDays <= 0 {
			return nil, xerrors.Validationf("duration must be positive")
		}
		t.PurchasedDurationDays = *req.DurationDays
	}
	if req.Notes != nil {
		t.Notes = sql.NullString{String: *req.Notes, Valid: *req.Notes != ""}
	}

	if err := s.txns.UpdatePricing(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("transaction repriced",
		zap.String("reference", t.Reference),
		zap.Float64("amount", t.TransactionAmount),
	)

	return t, nil
}

// Confirm settles a PENDING record: provisions or extends the subscription,
// then flips the status with a conditional update so a concurrent settler
// cannot double-apply. Admin only.
func (s *SettlementService) Confirm(ctx context.Context, id int64, req *transaction.ConfirmTransactionRequest) (*transaction.Transaction, error) {
	t, err := s.txns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.PaymentStatus != transaction.StatusPending {
		return nil, xerrors.ErrNotPending
	}

	if req.AmountOverride != nil {
		if *req.AmountOverride < 0 {
			return nil, xerrors.Validationf("amount override cannot be negative")
		}
		t.TransactionAmount = pricing.Round2(*req.AmountOverride)
	}
	if req.DurationOverride != nil {
		if *req.DurationOverride <= 0 {
			return nil, xerrors.Validationf("duration override must be positive")
		}
		t.PurchasedDurationDays = *req.DurationOverride
	}
	if req.AdminNotes != "" {
		// Admin notes append to whatever is already on the record.
		notes := req.AdminNotes
		if t.Notes.Valid && t.Notes.String != "" {
			notes = t.Notes.String + "\n" + req.AdminNotes
		}
		t.Notes = sql.NullString{String: notes, Valid: true}
	}

	lic, err := s.catalog.GetByKey(ctx, t.LicenseKey)
	if err != nil {
		return nil, xerrors.Consistency("confirm transaction", fmt.Errorf("license %s vanished from catalog: %w", t.LicenseKey, err))
	}

	var sub *subscription.Subscription
	switch t.TransactionType {
	case transaction.TypeNewPurchase:
		sub, err = s.lifecycle.Create(ctx, t.BuyerUserID, lic, t.PurchasedDurationDays)
		if err != nil {
			return nil, xerrors.Consistency("confirm transaction", err)
		}
	case transaction.TypeRenewal:
		if !t.TargetSubscriptionID.Valid {
			return nil, xerrors.Consistency("confirm transaction", fmt.Errorf("renewal %s has no target subscription", t.Reference))
		}
		sub, err = s.lifecycle.Renew(ctx, t.TargetSubscriptionID.Int64, t.PurchasedDurationDays)
		if err != nil {
			return nil, xerrors.Consistency("confirm transaction", err)
		}
	default:
		return nil, xerrors.Consistency("confirm transaction", fmt.Errorf("unknown transaction type %s", t.TransactionType))
	}

	t.TargetSubscriptionID = sql.NullInt64{Int64: sub.ID, Valid: true}

	if err := s.txns.MarkSucceeded(ctx, t); err != nil {
		if xerrors.Is(err, xerrors.ErrNotPending) {
			return nil, xerrors.Consistency("confirm transaction", fmt.Errorf("transaction %s settled concurrently", t.Reference))
		}
		return nil, xerrors.Consistency("confirm transaction", err)
	}
	t.PaymentStatus = transaction.StatusSucceeded

	if t.PromotionID.Valid && !lic.IsProtected {
		if err := s.promotions.IncrementUsage(ctx, t.PromotionID.Int64); err != nil {
			return nil, xerrors.Consistency("confirm transaction", fmt.Errorf("failed to record promotion usage: %w", err))
		}
	}

	s.logger.Info("transaction settled",
		zap.String("reference", t.Reference),
		zap.Int64("buyer_user_id", t.BuyerUserID),
		zap.Int64("subscription_id", sub.ID),
		zap.Float64("amount", t.TransactionAmount),
	)

	return t, nil
}

// Cancel flips a PENDING record to CANCELED. No subscription effects. Admin
// only.
func (s *SettlementService) Cancel(ctx context.Context, id int64) (*transaction.Transaction, error) {
	t, err := s.txns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.txns.MarkCanceled(ctx, id); err != nil {
		return nil, err
	}
	t.PaymentStatus = transaction.StatusCanceled

	s.logger.Info("transaction canceled",
		zap.String("reference", t.Reference),
		zap.Int64("buyer_user_id", t.BuyerUserID),
	)

	return t, nil
}

// Get retrieves a transaction, enforcing ownership for non-admins.
func (s *SettlementService) Get(ctx context.Context, actorID int64, isAdmin bool, id int64) (*transaction.Transaction, error) {
	t, err := s.txns.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && t.BuyerUserID != actorID {
		return nil, xerrors.ErrNotFound
	}
	return t, nil
}

// List retrieves transactions. Non-admins only see their own.
func (s *SettlementService) List(ctx context.Context, actorID int64, isAdmin bool, filters *transaction.TransactionListFilters) (*transaction.TransactionListResponse, error) {
	if !isAdmin {
		filters.BuyerUserID = actorID
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize < 1 {
		filters.PageSize = 20
	}
	if filters.PageSize > 100 {
		filters.PageSize = 100
	}

	txns, total, err := s.txns.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	totalPages := int(total) / filters.PageSize
	if int(total)%filters.PageSize > 0 {
		totalPages++
	}

	return &transaction.TransactionListResponse{
		Transactions: txns,
		Total:        total,
		Page:         filters.Page,
		PageSize:     filters.PageSize,
		TotalPages:   totalPages,
	}, nil
}

// Stats aggregates transaction counts and revenue. Admin only.
func (s *SettlementService) Stats(ctx context.Context) (*transaction.TransactionStats, error) {
	return s.txns.GetStats(ctx)
}

// applyQuote copies a pricing outcome onto the record.
func applyQuote(t *transaction.Transaction, q *pricing.Quote) {
	t.OriginalLicensePrice = q.OriginalPrice
	t.BrokerDiscountAmount = q.BrokerDiscount
	t.PromotionDiscountAmount = q.PromotionDiscount
	t.TotalDiscountAmount = q.TotalDiscount
	t.TransactionAmount = q.FinalAmount

	t.BrokerCodeApplied = sql.NullString{String: q.BrokerCode, Valid: q.BrokerCode != ""}
	t.PromotionCodeApplied = sql.NullString{String: q.PromotionCode, Valid: q.PromotionCode != ""}
	if q.Promotion != nil {
		t.PromotionID = sql.NullInt64{Int64: q.Promotion.ID, Valid: true}
	} else {
		t.PromotionID = sql.NullInt64{}
	}
}
