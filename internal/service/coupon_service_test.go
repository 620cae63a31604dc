package service

import (
	"reflect"
	"testing"
	"time"

	"github.com/couponstore/internal/constants"
	"github.com/couponstore/internal/models"

	"github.com/shopspring/decimal"
)

func baseCoupon(now time.Time) *models.Coupon {
	return &models.Coupon{
		ID:            1,
		Code:          "SAVE20",
		Title:         "20% off electronics",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
		MinOrderValue: models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		Categories:    models.StringArray{"electronics"},
		IsPublic:      true,
		MaxUses:       100,
		CurrentUses:   0,
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(time.Hour),
		IsActive:      true,
	}
}

func TestEvaluateValid(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	now := time.Now()
	coupon := baseCoupon(now)
	lines := []CartLine{
		{ProductID: 1, Category: "electronics", UnitPrice: decimal.NewFromInt(60), Quantity: 1},
	}

	result := svc.Evaluate(coupon, EvaluationFacts{}, decimal.NewFromInt(60), lines, now, EvaluationOptions{RequirePublic: true})
	if !result.Valid {
		t.Fatalf("expected valid, reasons: %v", result.Reasons)
	}
	if len(result.Reasons) != 0 {
		t.Fatalf("expected no reasons, got %v", result.Reasons)
	}
}

func TestEvaluateCollectsAllReasons(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	now := time.Now()
	coupon := baseCoupon(now)
	coupon.IsActive = false
	coupon.IsPublic = false
	coupon.EndsAt = now.Add(-time.Minute)
	coupon.CurrentUses = coupon.MaxUses
	coupon.FirstTimeOnly = true
	lines := []CartLine{
		{ProductID: 5, Category: "lifestyle", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
	}
	facts := EvaluationFacts{AlreadyRedeemed: true, PriorOrderCount: 3}

	result := svc.Evaluate(coupon, facts, decimal.NewFromInt(10), lines, now, EvaluationOptions{RequirePublic: true})
	if result.Valid {
		t.Fatalf("expected invalid")
	}
	want := []string{
		constants.ReasonCouponInactive,
		constants.ReasonCouponExpired,
		constants.ReasonUsageLimitReached,
		constants.ReasonCouponNotPublic,
		constants.ReasonAlreadyRedeemed,
		constants.ReasonNotFirstTimeUser,
		constants.ReasonBelowMinimumOrder,
		constants.ReasonNoApplicableItems,
	}
	if !reflect.DeepEqual(result.Reasons, want) {
		t.Fatalf("reasons mismatch\nwant %v\ngot  %v", want, result.Reasons)
	}
}

func TestEvaluateNotStarted(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	now := time.Now()
	coupon := baseCoupon(now)
	coupon.StartsAt = now.Add(time.Hour)
	coupon.EndsAt = now.Add(2 * time.Hour)

	result := svc.Evaluate(coupon, EvaluationFacts{}, decimal.NewFromInt(100), nil, now, EvaluationOptions{})
	if result.Valid {
		t.Fatalf("expected invalid")
	}
	if len(result.Reasons) != 1 || result.Reasons[0] != constants.ReasonCouponNotStarted {
		t.Fatalf("expected only not_started, got %v", result.Reasons)
	}
}

func TestEvaluateCategoryScopeSkippedWithoutLines(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	now := time.Now()
	coupon := baseCoupon(now)

	// 单金额校验没有明细可比对，分类限制不应报 no_applicable_items
	result := svc.Evaluate(coupon, EvaluationFacts{}, decimal.NewFromInt(60), nil, now, EvaluationOptions{RequirePublic: true})
	if !result.Valid {
		t.Fatalf("expected valid, reasons: %v", result.Reasons)
	}
}

func TestEvaluateNilCoupon(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	result := svc.Evaluate(nil, EvaluationFacts{}, decimal.NewFromInt(10), nil, time.Now(), EvaluationOptions{})
	if result.Valid {
		t.Fatalf("expected invalid for nil coupon")
	}
}

func TestComputeDiscountPercentageWithCap(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	now := time.Now()
	coupon := baseCoupon(now)
	cap := models.NewMoneyFromDecimal(decimal.NewFromInt(100))
	coupon.MaxDiscountAmount = &cap
	lines := []CartLine{
		{ProductID: 1, Category: "electronics", UnitPrice: decimal.NewFromInt(300), Quantity: 2},
		{ProductID: 2, Category: "lifestyle", UnitPrice: decimal.NewFromInt(100), Quantity: 1},
	}
	subtotal := decimal.NewFromInt(700)

	// 整车小计 700，20% 为 140，封顶 100
	result := svc.ComputeDiscount(coupon, subtotal, lines)
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("discount want 100 got %s", result.Discount.String())
	}
	if !reflect.DeepEqual(result.AppliedIDs, []uint{1, 2}) {
		t.Fatalf("applied ids want [1 2] got %v", result.AppliedIDs)
	}
}

func TestComputeDiscountCategoryGateKeepsFullSubtotalBasis(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	now := time.Now()
	coupon := baseCoupon(now)
	lines := []CartLine{
		{ProductID: 1, Category: "electronics", UnitPrice: decimal.NewFromInt(600), Quantity: 1},
		{ProductID: 2, Category: "lifestyle", UnitPrice: decimal.NewFromInt(100), Quantity: 1},
	}

	// 分类限制只决定资格，不缩小折扣基数：20% 按 700 算
	result := svc.ComputeDiscount(coupon, decimal.NewFromInt(700), lines)
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(140)) {
		t.Fatalf("discount want 140 got %s", result.Discount.String())
	}
	if !reflect.DeepEqual(result.AppliedIDs, []uint{1, 2}) {
		t.Fatalf("applied ids want [1 2] got %v", result.AppliedIDs)
	}
}

func TestComputeDiscountPercentageNoCap(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	now := time.Now()
	coupon := baseCoupon(now)
	coupon.Categories = models.StringArray{}
	lines := []CartLine{
		{ProductID: 1, Category: "electronics", UnitPrice: decimal.NewFromInt(80), Quantity: 1},
	}

	result := svc.ComputeDiscount(coupon, decimal.NewFromInt(80), lines)
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(16)) {
		t.Fatalf("discount want 16 got %s", result.Discount.String())
	}
}

func TestComputeDiscountFixedClampedToSubtotal(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	now := time.Now()
	coupon := baseCoupon(now)
	coupon.DiscountType = constants.DiscountTypeFixed
	coupon.DiscountValue = models.NewMoneyFromDecimal(decimal.NewFromInt(15))
	lines := []CartLine{
		{ProductID: 1, Category: "electronics", UnitPrice: decimal.NewFromInt(10), Quantity: 1},
	}

	// 固定金额不得超过小计
	result := svc.ComputeDiscount(coupon, decimal.NewFromInt(10), lines)
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("discount want 10 got %s", result.Discount.String())
	}
}

func TestComputeDiscountNilCoupon(t *testing.T) {
	svc := NewCouponService(nil, nil, nil)
	result := svc.ComputeDiscount(nil, decimal.NewFromInt(100), nil)
	if !result.Discount.Decimal.Equal(decimal.Zero) {
		t.Fatalf("discount want 0 got %s", result.Discount.String())
	}
}

func TestNormalizeCouponCode(t *testing.T) {
	if got := NormalizeCouponCode("  save20 "); got != "SAVE20" {
		t.Fatalf("want SAVE20 got %s", got)
	}
	if got := NormalizeCouponCode(""); got != "" {
		t.Fatalf("want empty got %s", got)
	}
}
