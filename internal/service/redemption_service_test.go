package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/couponstore/internal/constants"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type redemptionTestEnv struct {
	db          *gorm.DB
	couponSvc   *CouponService
	redemption  *RedemptionService
	couponRepo  repository.CouponRepository
	redemptRepo repository.RedemptionRepository
}

func setupRedemptionServiceTest(t *testing.T) *redemptionTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}, &models.Redemption{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db

	couponRepo := repository.NewCouponRepository(db)
	redemptRepo := repository.NewRedemptionRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	couponSvc := NewCouponService(couponRepo, redemptRepo, orderRepo)
	return &redemptionTestEnv{
		db:          db,
		couponSvc:   couponSvc,
		redemption:  NewRedemptionService(couponRepo, redemptRepo, orderRepo, couponSvc),
		couponRepo:  couponRepo,
		redemptRepo: redemptRepo,
	}
}

func mustCreateCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	now := time.Now()
	coupon := &models.Coupon{
		Code:          "SAVE20",
		Title:         "20% off",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
		MinOrderValue: models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		IsPublic:      true,
		MaxUses:       10,
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(24 * time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	return coupon
}

func moneyFromInt(v int64) models.Money {
	return models.NewMoneyFromDecimal(decimal.NewFromInt(v))
}

func TestRedeemSuccess(t *testing.T) {
	env := setupRedemptionServiceTest(t)
	coupon := mustCreateCoupon(t, env.db, nil)

	record, err := env.redemption.Redeem(RedeemInput{UserID: 1, Code: "save20", OrderAmount: moneyFromInt(200)})
	if err != nil {
		t.Fatalf("redeem failed: %v", err)
	}
	if !record.DiscountApplied.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("discount want 40 got %s", record.DiscountApplied.String())
	}
	if !record.FinalAmount.Decimal.Equal(decimal.NewFromInt(160)) {
		t.Fatalf("final want 160 got %s", record.FinalAmount.String())
	}

	var stored models.Coupon
	if err := env.db.First(&stored, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if stored.CurrentUses != 1 {
		t.Fatalf("current_uses want 1 got %d", stored.CurrentUses)
	}

	var count int64
	env.db.Model(&models.Redemption{}).Where("user_id = ? AND coupon_id = ?", 1, coupon.ID).Count(&count)
	if count != 1 {
		t.Fatalf("ledger rows want 1 got %d", count)
	}
}

func TestRedeemTwiceReportsAlreadyRedeemed(t *testing.T) {
	env := setupRedemptionServiceTest(t)
	mustCreateCoupon(t, env.db, nil)

	input := RedeemInput{UserID: 7, Code: "SAVE20", OrderAmount: moneyFromInt(100)}
	if _, err := env.redemption.Redeem(input); err != nil {
		t.Fatalf("first redeem failed: %v", err)
	}

	_, reasons, err := env.redemption.RedeemWithReasons(input)
	if !errors.Is(err, ErrCouponNotEligible) {
		t.Fatalf("want ErrCouponNotEligible got %v", err)
	}
	found := false
	for _, r := range reasons {
		if r == constants.ReasonAlreadyRedeemed {
			found = true
		}
	}
	if !found {
		t.Fatalf("reasons missing already_redeemed: %v", reasons)
	}
}

func TestRedeemUsageExhausted(t *testing.T) {
	env := setupRedemptionServiceTest(t)
	mustCreateCoupon(t, env.db, func(c *models.Coupon) {
		c.MaxUses = 1
		c.CurrentUses = 1
	})

	_, reasons, err := env.redemption.RedeemWithReasons(RedeemInput{UserID: 2, Code: "SAVE20", OrderAmount: moneyFromInt(100)})
	if !errors.Is(err, ErrCouponNotEligible) {
		t.Fatalf("want ErrCouponNotEligible got %v", err)
	}
	if len(reasons) != 1 || reasons[0] != constants.ReasonUsageLimitReached {
		t.Fatalf("reasons want [usage_limit_reached] got %v", reasons)
	}
}

func TestRedeemUnknownCode(t *testing.T) {
	env := setupRedemptionServiceTest(t)
	if _, err := env.redemption.Redeem(RedeemInput{UserID: 1, Code: "NOPE", OrderAmount: moneyFromInt(100)}); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("want ErrCouponNotFound got %v", err)
	}
}

func TestRedeemInvalidAmount(t *testing.T) {
	env := setupRedemptionServiceTest(t)
	mustCreateCoupon(t, env.db, nil)
	if _, err := env.redemption.Redeem(RedeemInput{UserID: 1, Code: "SAVE20", OrderAmount: moneyFromInt(0)}); !errors.Is(err, ErrOrderAmountInvalid) {
		t.Fatalf("want ErrOrderAmountInvalid got %v", err)
	}
}

func TestRedeemPrivateCouponRejected(t *testing.T) {
	env := setupRedemptionServiceTest(t)
	mustCreateCoupon(t, env.db, func(c *models.Coupon) {
		c.Code = "FLAT15"
		c.IsPublic = false
	})

	_, reasons, err := env.redemption.RedeemWithReasons(RedeemInput{UserID: 1, Code: "FLAT15", OrderAmount: moneyFromInt(100)})
	if !errors.Is(err, ErrCouponNotEligible) {
		t.Fatalf("want ErrCouponNotEligible got %v", err)
	}
	if len(reasons) != 1 || reasons[0] != constants.ReasonCouponNotPublic {
		t.Fatalf("reasons want [coupon_not_public] got %v", reasons)
	}
}

func TestHistoryByUserTotalSaved(t *testing.T) {
	env := setupRedemptionServiceTest(t)
	mustCreateCoupon(t, env.db, nil)
	mustCreateCoupon(t, env.db, func(c *models.Coupon) {
		c.Code = "FLAT15"
		c.DiscountType = constants.DiscountTypeFixed
		c.DiscountValue = moneyFromInt(15)
		c.MinOrderValue = moneyFromInt(0)
	})

	if _, err := env.redemption.Redeem(RedeemInput{UserID: 3, Code: "SAVE20", OrderAmount: moneyFromInt(100)}); err != nil {
		t.Fatalf("redeem SAVE20 failed: %v", err)
	}
	if _, err := env.redemption.Redeem(RedeemInput{UserID: 3, Code: "FLAT15", OrderAmount: moneyFromInt(100)}); err != nil {
		t.Fatalf("redeem FLAT15 failed: %v", err)
	}

	view, total, err := env.redemption.HistoryByUser(3, 1, 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("total want 2 got %d", total)
	}
	// 20% of 100 = 20, 再加固定 15
	if !view.TotalSaved.Decimal.Equal(decimal.NewFromInt(35)) {
		t.Fatalf("total saved want 35 got %s", view.TotalSaved.String())
	}
}

func TestValidateForUser(t *testing.T) {
	env := setupRedemptionServiceTest(t)
	mustCreateCoupon(t, env.db, nil)

	view, err := env.couponSvc.ValidateForUser(1, "SAVE20", decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !view.Result.Valid {
		t.Fatalf("expected valid, reasons: %v", view.Result.Reasons)
	}
	if view.Discount == nil || !view.Discount.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("discount want 40 got %v", view.Discount)
	}

	view, err = env.couponSvc.ValidateForUser(1, "SAVE20", decimal.NewFromInt(30))
	if err != nil {
		t.Fatalf("validate below-min failed: %v", err)
	}
	if view.Result.Valid {
		t.Fatalf("expected invalid below minimum")
	}
	if len(view.Result.Reasons) != 1 || view.Result.Reasons[0] != constants.ReasonBelowMinimumOrder {
		t.Fatalf("reasons want [below_minimum_order] got %v", view.Result.Reasons)
	}
	if view.Discount != nil {
		t.Fatalf("expected nil discount when invalid")
	}
}
