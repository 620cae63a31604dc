package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/couponstore/internal/constants"
	"github.com/couponstore/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCouponRepositoryTest(t *testing.T) (*gorm.DB, *GormCouponRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db, NewCouponRepository(db)
}

func seedCoupon(t *testing.T, db *gorm.DB, code string, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	now := time.Now()
	coupon := &models.Coupon{
		Code:          code,
		Title:         "Coupon " + code,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		IsPublic:      true,
		MaxUses:       5,
		StartsAt:      now.Add(-time.Hour),
		EndsAt:        now.Add(24 * time.Hour),
		IsActive:      true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("seed coupon %s failed: %v", code, err)
	}
	return coupon
}

func TestIncrementCurrentUsesToExhaustion(t *testing.T) {
	db, repo := setupCouponRepositoryTest(t)
	coupon := seedCoupon(t, db, "LIMIT2", func(c *models.Coupon) { c.MaxUses = 2 })

	// 核销路径走裸 UpdateColumns，需要自己带上 updated_at
	stale := time.Now().Add(-time.Hour)
	if err := db.Model(&models.Coupon{}).Where("id = ?", coupon.ID).
		UpdateColumn("updated_at", stale).Error; err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		affected, err := repo.IncrementCurrentUses(coupon.ID)
		if err != nil {
			t.Fatalf("increment %d failed: %v", i, err)
		}
		if affected != 1 {
			t.Fatalf("increment %d: affected want 1 got %d", i, affected)
		}
	}

	affected, err := repo.IncrementCurrentUses(coupon.ID)
	if err != nil {
		t.Fatalf("increment at limit failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("affected at limit want 0 got %d", affected)
	}

	var stored models.Coupon
	if err := db.First(&stored, coupon.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.CurrentUses != 2 {
		t.Fatalf("current_uses want 2 got %d", stored.CurrentUses)
	}
	if !stored.UpdatedAt.After(stale) {
		t.Fatalf("updated_at should advance on increment, got %s", stored.UpdatedAt)
	}
}

func TestDeactivateExpired(t *testing.T) {
	db, repo := setupCouponRepositoryTest(t)
	now := time.Now()
	seedCoupon(t, db, "EXPIRED1", func(c *models.Coupon) { c.EndsAt = now.Add(-time.Hour) })
	seedCoupon(t, db, "EXPIRED2", func(c *models.Coupon) { c.EndsAt = now.Add(-time.Minute) })
	live := seedCoupon(t, db, "LIVE", nil)

	affected, err := repo.DeactivateExpired(now)
	if err != nil {
		t.Fatalf("deactivate expired failed: %v", err)
	}
	if affected != 2 {
		t.Fatalf("affected want 2 got %d", affected)
	}

	var stored models.Coupon
	if err := db.First(&stored, live.ID).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !stored.IsActive {
		t.Fatalf("live coupon must stay active")
	}
}

func TestListPublicAvailable(t *testing.T) {
	db, repo := setupCouponRepositoryTest(t)
	now := time.Now()
	seedCoupon(t, db, "OK", nil)
	seedCoupon(t, db, "PRIVATE", func(c *models.Coupon) { c.IsPublic = false })
	seedCoupon(t, db, "INACTIVE", func(c *models.Coupon) { c.IsActive = false })
	seedCoupon(t, db, "EXPIRED", func(c *models.Coupon) { c.EndsAt = now.Add(-time.Hour) })
	seedCoupon(t, db, "FUTURE", func(c *models.Coupon) {
		c.StartsAt = now.Add(time.Hour)
		c.EndsAt = now.Add(48 * time.Hour)
	})
	seedCoupon(t, db, "USEDUP", func(c *models.Coupon) {
		c.MaxUses = 1
		c.CurrentUses = 1
	})

	coupons, err := repo.ListPublicAvailable(now)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(coupons) != 1 || coupons[0].Code != "OK" {
		t.Fatalf("want only OK, got %d coupons", len(coupons))
	}
}

func TestSearchCoupons(t *testing.T) {
	db, repo := setupCouponRepositoryTest(t)
	now := time.Now()
	seedCoupon(t, db, "SAVE20", func(c *models.Coupon) {
		c.Title = "Electronics sale"
		c.DiscountValue = models.NewMoneyFromDecimal(decimal.NewFromInt(20))
	})
	seedCoupon(t, db, "FLAT15", func(c *models.Coupon) {
		c.Title = "Flat fifteen"
		c.DiscountType = constants.DiscountTypeFixed
		c.DiscountValue = models.NewMoneyFromDecimal(decimal.NewFromInt(15))
	})

	coupons, err := repo.Search(CouponSearchFilter{Keyword: "electronics", Now: now})
	if err != nil {
		t.Fatalf("search keyword failed: %v", err)
	}
	if len(coupons) != 1 || coupons[0].Code != "SAVE20" {
		t.Fatalf("keyword search want SAVE20, got %d", len(coupons))
	}

	coupons, err = repo.Search(CouponSearchFilter{DiscountType: constants.DiscountTypeFixed, Now: now})
	if err != nil {
		t.Fatalf("search type failed: %v", err)
	}
	if len(coupons) != 1 || coupons[0].Code != "FLAT15" {
		t.Fatalf("type search want FLAT15, got %d", len(coupons))
	}

	coupons, err = repo.Search(CouponSearchFilter{SortBy: constants.CouponSortDiscount, Now: now})
	if err != nil {
		t.Fatalf("search sort failed: %v", err)
	}
	if len(coupons) != 2 || coupons[0].Code != "SAVE20" {
		t.Fatalf("discount sort want SAVE20 first, got %v", couponCodes(coupons))
	}
}

func couponCodes(coupons []models.Coupon) []string {
	codes := make([]string, 0, len(coupons))
	for _, c := range coupons {
		codes = append(codes, c.Code)
	}
	return codes
}

func TestCountByCodeExcludeID(t *testing.T) {
	db, repo := setupCouponRepositoryTest(t)
	coupon := seedCoupon(t, db, "SAVE20", nil)

	count, err := repo.CountByCode("SAVE20", 0)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count want 1 got %d", count)
	}

	count, err = repo.CountByCode("SAVE20", coupon.ID)
	if err != nil {
		t.Fatalf("count exclude failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("count with exclude want 0 got %d", count)
	}
}

func TestGetByCodeNotFound(t *testing.T) {
	_, repo := setupCouponRepositoryTest(t)
	coupon, err := repo.GetByCode("MISSING")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if coupon != nil {
		t.Fatalf("want nil coupon got %+v", coupon)
	}
}
