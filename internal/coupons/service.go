package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/internal/pricing"
	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
)

// Service resolves and redeems coupons. Preview never consumes a use; only
// Redeem, called inside order creation, moves the counter.
type Service interface {
	Preview(ctx context.Context, code string, subtotalCents int64) (*PreviewResult, error)
	FindEligible(ctx context.Context, code string, subtotalCents int64, now time.Time) (*models.Coupon, int64, error)
	RedeemTx(ctx context.Context, tx *gorm.DB, code string, now time.Time) error
	Create(ctx context.Context, input CreateInput) (*models.Coupon, error)
}

// PreviewResult is the quoted effect of applying a coupon.
type PreviewResult struct {
	Code          string `json:"code"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
}

// CreateInput carries admin coupon creation fields.
type CreateInput struct {
	Code             string
	DiscountRate     int
	MaxDiscountCents int64
	MinPurchaseCents int64
	UsageLimit       *int
	ExpiresAt        *time.Time
}

type service struct {
	repo Repository
}

// NewService builds a coupon service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Preview(ctx context.Context, code string, subtotalCents int64) (*PreviewResult, error) {
	coupon, discount, err := s.FindEligible(ctx, code, subtotalCents, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &PreviewResult{
		Code:          coupon.Code,
		DiscountCents: discount,
		TotalCents:    subtotalCents - discount,
	}, nil
}

// FindEligible loads the coupon, checks every redemption precondition and
// computes the discount without consuming a use.
func (s *service) FindEligible(ctx context.Context, code string, subtotalCents int64, now time.Time) (*models.Coupon, int64, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if coupon.Status != enums.CouponStatusActive {
		return nil, 0, pkgerrors.New(pkgerrors.CodeConflict, "coupon is not active")
	}
	if coupon.ExpiresAt != nil && !coupon.ExpiresAt.After(now) {
		return nil, 0, pkgerrors.New(pkgerrors.CodeConflict, "coupon has expired")
	}
	if coupon.UsageLimit != nil && coupon.UsedBy >= *coupon.UsageLimit {
		return nil, 0, pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}

	discount, err := pricing.CouponDiscount(coupon, subtotalCents)
	if err != nil {
		return nil, 0, err
	}
	return coupon, discount, nil
}

// RedeemTx consumes one use inside the caller's transaction. A conflict error
// means a concurrent checkout took the last use or the coupon lapsed between
// preview and commit.
func (s *service) RedeemTx(ctx context.Context, tx *gorm.DB, code string, now time.Time) error {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	ok, err := s.repo.WithTx(tx).Redeem(ctx, normalized, now)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem coupon")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon no longer redeemable")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(input.Code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if input.DiscountRate <= 0 || input.DiscountRate > 100 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount rate must be between 1 and 100")
	}
	if input.MaxDiscountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max discount must be positive")
	}
	if input.MinPurchaseCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "min purchase cannot be negative")
	}

	coupon := models.Coupon{
		ID:               uuid.New(),
		Code:             code,
		DiscountRate:     input.DiscountRate,
		MaxDiscountCents: input.MaxDiscountCents,
		MinPurchaseCents: input.MinPurchaseCents,
		UsageLimit:       input.UsageLimit,
		Status:           enums.CouponStatusActive,
		ExpiresAt:        input.ExpiresAt,
	}
	if err := s.repo.Create(ctx, &coupon); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create coupon")
	}
	return &coupon, nil
}
