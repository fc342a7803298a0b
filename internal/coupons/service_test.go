package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
)

func setupCouponTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:coupons_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	coupons := `
CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_rate INTEGER NOT NULL,
  max_discount_cents INTEGER NOT NULL,
  min_purchase_cents INTEGER NOT NULL DEFAULT 0,
  usage_limit INTEGER,
  used_by INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active',
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(coupons).Error)
	return db
}

func seedCoupon(t *testing.T, db *gorm.DB, coupon models.Coupon) models.Coupon {
	t.Helper()
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	if coupon.Status == "" {
		coupon.Status = enums.CouponStatusActive
	}
	require.NoError(t, db.Create(&coupon).Error)
	return coupon
}

func newCouponService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestPreview_ComputesDiscountWithoutConsumingUse(t *testing.T) {
	t.Parallel()

	db := setupCouponTestDB(t)
	svc := newCouponService(t, db)
	ctx := context.Background()

	seedCoupon(t, db, models.Coupon{
		Code:             "SAVE20",
		DiscountRate:     20,
		MaxDiscountCents: 1500,
	})

	result, err := svc.Preview(ctx, "save20", 10000)
	require.NoError(t, err)
	require.Equal(t, int64(1500), result.DiscountCents, "discount must cap at the maximum")
	require.Equal(t, int64(8500), result.TotalCents)

	var stored models.Coupon
	require.NoError(t, db.Where("code = ?", "SAVE20").First(&stored).Error)
	require.Zero(t, stored.UsedBy, "preview must not consume a use")
}

func TestPreview_RejectsBelowMinPurchase(t *testing.T) {
	t.Parallel()

	db := setupCouponTestDB(t)
	svc := newCouponService(t, db)

	seedCoupon(t, db, models.Coupon{
		Code:             "BIGSPEND",
		DiscountRate:     10,
		MaxDiscountCents: 5000,
		MinPurchaseCents: 50000,
	})

	_, err := svc.Preview(context.Background(), "BIGSPEND", 10000)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestPreview_RejectsExpiredAndInactive(t *testing.T) {
	t.Parallel()

	db := setupCouponTestDB(t)
	svc := newCouponService(t, db)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	seedCoupon(t, db, models.Coupon{
		Code:             "EXPIRED",
		DiscountRate:     10,
		MaxDiscountCents: 1000,
		ExpiresAt:        &past,
	})
	seedCoupon(t, db, models.Coupon{
		Code:             "DISABLED",
		DiscountRate:     10,
		MaxDiscountCents: 1000,
		Status:           enums.CouponStatusInactive,
	})

	_, err := svc.Preview(ctx, "EXPIRED", 10000)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())

	_, err = svc.Preview(ctx, "DISABLED", 10000)
	require.Error(t, err)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestRedeemTx_ConsumesOneUse(t *testing.T) {
	t.Parallel()

	db := setupCouponTestDB(t)
	svc := newCouponService(t, db)
	ctx := context.Background()

	limit := 2
	seedCoupon(t, db, models.Coupon{
		Code:             "LIMITED",
		DiscountRate:     10,
		MaxDiscountCents: 1000,
		UsageLimit:       &limit,
	})

	now := time.Now().UTC()
	require.NoError(t, svc.RedeemTx(ctx, db, "LIMITED", now))
	require.NoError(t, svc.RedeemTx(ctx, db, "LIMITED", now))

	err := svc.RedeemTx(ctx, db, "LIMITED", now)
	require.Error(t, err, "third redemption must fail at limit 2")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var stored models.Coupon
	require.NoError(t, db.Where("code = ?", "LIMITED").First(&stored).Error)
	require.Equal(t, 2, stored.UsedBy)
}

func TestFindEligible_UnknownCode(t *testing.T) {
	t.Parallel()

	db := setupCouponTestDB(t)
	svc := newCouponService(t, db)

	_, _, err := svc.FindEligible(context.Background(), "NOPE", 10000, time.Now().UTC())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
