package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/couponstore/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupRedemptionRepositoryTest(t *testing.T) (*gorm.DB, *GormRedemptionRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Coupon{}, &models.Redemption{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return db, NewRedemptionRepository(db)
}

func newRedemption(userID, couponID uint, discount int64) *models.Redemption {
	return &models.Redemption{
		UserID:          userID,
		CouponID:        couponID,
		DiscountApplied: models.NewMoneyFromDecimal(decimal.NewFromInt(discount)),
		OriginalAmount:  models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		FinalAmount:     models.NewMoneyFromDecimal(decimal.NewFromInt(100 - discount)),
		RedeemedAt:      time.Now(),
	}
}

func TestRedemptionUniquePerUserCoupon(t *testing.T) {
	_, repo := setupRedemptionRepositoryTest(t)

	if err := repo.Create(newRedemption(1, 10, 20)); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err := repo.Create(newRedemption(1, 10, 20))
	if err == nil {
		t.Fatalf("duplicate create must fail")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "unique") {
		t.Fatalf("want unique constraint error, got %v", err)
	}

	// 不同用户、不同券不受影响
	if err := repo.Create(newRedemption(2, 10, 20)); err != nil {
		t.Fatalf("other user create failed: %v", err)
	}
	if err := repo.Create(newRedemption(1, 11, 20)); err != nil {
		t.Fatalf("other coupon create failed: %v", err)
	}
}

func TestExistsByUserAndCoupon(t *testing.T) {
	_, repo := setupRedemptionRepositoryTest(t)
	if err := repo.Create(newRedemption(1, 10, 20)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	exists, err := repo.ExistsByUserAndCoupon(1, 10)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Fatalf("want exists=true")
	}

	exists, err = repo.ExistsByUserAndCoupon(1, 99)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatalf("want exists=false")
	}
}

func TestRedemptionListByUserPagination(t *testing.T) {
	_, repo := setupRedemptionRepositoryTest(t)
	for i := uint(1); i <= 5; i++ {
		record := newRedemption(1, 100+i, 10)
		record.RedeemedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if err := repo.Create(record); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	page1, total, err := repo.ListByUser(RedemptionListFilter{UserID: 1, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("total want 5 got %d", total)
	}
	if len(page1) != 2 {
		t.Fatalf("page size want 2 got %d", len(page1))
	}
	// 按核销时间倒序
	if page1[0].CouponID != 105 {
		t.Fatalf("first row want coupon 105 got %d", page1[0].CouponID)
	}

	page3, _, err := repo.ListByUser(RedemptionListFilter{UserID: 1, Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("list page 3 failed: %v", err)
	}
	if len(page3) != 1 {
		t.Fatalf("last page want 1 got %d", len(page3))
	}
}

func TestCountByCoupon(t *testing.T) {
	_, repo := setupRedemptionRepositoryTest(t)
	if err := repo.Create(newRedemption(1, 10, 20)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := repo.Create(newRedemption(2, 10, 20)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	count, err := repo.CountByCoupon(10)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count want 2 got %d", count)
	}
}
