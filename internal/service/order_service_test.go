package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/couponstore/internal/constants"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type orderTestEnv struct {
	db       *gorm.DB
	orderSvc *OrderService
	cartSvc  *CartService
}

func setupOrderServiceTest(t *testing.T) *orderTestEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.CartItem{}, &models.CartCoupon{}, &models.Coupon{}, &models.Redemption{}, &models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	models.DB = db

	orderRepo := repository.NewOrderRepository(db)
	cartRepo := repository.NewCartRepository(db)
	productRepo := repository.NewProductRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	redemptRepo := repository.NewRedemptionRepository(db)
	couponSvc := NewCouponService(couponRepo, redemptRepo, orderRepo)
	return &orderTestEnv{
		db:       db,
		orderSvc: NewOrderService(orderRepo, cartRepo, productRepo, couponRepo, redemptRepo, couponSvc, nil),
		cartSvc:  NewCartService(cartRepo, productRepo, couponSvc, nil),
	}
}

func mustCreateProduct(t *testing.T, db *gorm.DB, sku string, price int64, stock int, active bool) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:          "Product " + sku,
		Price:         models.NewMoneyFromDecimal(decimal.NewFromInt(price)),
		Category:      "electronics",
		SKU:           sku,
		StockQuantity: stock,
		IsActive:      active,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func mustAddCartItem(t *testing.T, db *gorm.DB, userID, productID uint, quantity int) {
	t.Helper()
	if err := db.Create(&models.CartItem{UserID: userID, ProductID: productID, Quantity: quantity}).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}
}

func TestCheckoutSuccess(t *testing.T) {
	env := setupOrderServiceTest(t)
	p1 := mustCreateProduct(t, env.db, "SKU-1", 100, 5, true)
	p2 := mustCreateProduct(t, env.db, "SKU-2", 40, 10, true)
	mustAddCartItem(t, env.db, 1, p1.ID, 2)
	mustAddCartItem(t, env.db, 1, p2.ID, 1)

	order, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{
		UserID:          1,
		ShippingAddress: "123 Main St",
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("status want pending got %s", order.Status)
	}
	if !strings.HasPrefix(order.OrderNo, "CS") {
		t.Fatalf("order no want CS prefix got %s", order.OrderNo)
	}
	if !order.Subtotal.Decimal.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("subtotal want 240 got %s", order.Subtotal.String())
	}
	if !order.FinalTotal.Decimal.Equal(decimal.NewFromInt(240)) {
		t.Fatalf("final want 240 got %s", order.FinalTotal.String())
	}

	var stored models.Product
	if err := env.db.First(&stored, p1.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 3 {
		t.Fatalf("stock want 3 got %d", stored.StockQuantity)
	}

	var remaining int64
	env.db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("cart items want 0 got %d", remaining)
	}

	var itemCount int64
	env.db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&itemCount)
	if itemCount != 2 {
		t.Fatalf("order items want 2 got %d", itemCount)
	}
}

func TestCheckoutAppliesCoupon(t *testing.T) {
	env := setupOrderServiceTest(t)
	p1 := mustCreateProduct(t, env.db, "SKU-1", 100, 5, true)
	p2 := &models.Product{
		Name:          "Tote Bag",
		Price:         models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		Category:      "lifestyle",
		SKU:           "SKU-2",
		StockQuantity: 5,
		IsActive:      true,
	}
	if err := env.db.Create(p2).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	coupon := mustCreateCoupon(t, env.db, func(c *models.Coupon) {
		c.Categories = models.StringArray{"electronics"}
	})
	mustAddCartItem(t, env.db, 1, p1.ID, 2)
	mustAddCartItem(t, env.db, 1, p2.ID, 1)

	applied, err := env.cartSvc.ApplyCoupon(context.Background(), 1, "save20")
	if err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}
	if !applied.Result.Valid {
		t.Fatalf("apply should be valid, reasons: %v", applied.Result.Reasons)
	}
	// 分类限制只是资格门槛，20% 按整车小计 250 计算
	if !applied.Discount.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("apply discount want 50 got %s", applied.Discount.String())
	}

	order, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{
		UserID:          1,
		ShippingAddress: "123 Main St",
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !order.DiscountAmount.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("discount want 50 got %s", order.DiscountAmount.String())
	}
	if !order.FinalTotal.Decimal.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("final want 200 got %s", order.FinalTotal.String())
	}
	if order.CouponCodeUsed != "SAVE20" || order.CouponID == nil || *order.CouponID != coupon.ID {
		t.Fatalf("coupon linkage missing: code=%q id=%v", order.CouponCodeUsed, order.CouponID)
	}

	var record models.Redemption
	if err := env.db.Where("user_id = ? AND coupon_id = ?", 1, coupon.ID).First(&record).Error; err != nil {
		t.Fatalf("load redemption failed: %v", err)
	}
	if record.OrderID == nil || *record.OrderID != order.ID {
		t.Fatalf("redemption should link order %d, got %v", order.ID, record.OrderID)
	}
	if !record.DiscountApplied.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("redemption discount want 50 got %s", record.DiscountApplied.String())
	}
	if len(record.ProductsApplied) != 2 {
		t.Fatalf("products applied want 2 lines got %v", record.ProductsApplied)
	}

	var stored models.Coupon
	if err := env.db.First(&stored, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if stored.CurrentUses != 1 {
		t.Fatalf("current uses want 1 got %d", stored.CurrentUses)
	}

	var stateCount int64
	env.db.Model(&models.CartCoupon{}).Where("user_id = ?", 1).Count(&stateCount)
	if stateCount != 0 {
		t.Fatalf("applied coupon state should be cleared, got %d", stateCount)
	}
}

func TestCheckoutCouponExhaustedAfterApply(t *testing.T) {
	env := setupOrderServiceTest(t)
	p := mustCreateProduct(t, env.db, "SKU-1", 100, 5, true)
	coupon := mustCreateCoupon(t, env.db, nil)
	mustAddCartItem(t, env.db, 1, p.ID, 2)

	if _, err := env.cartSvc.ApplyCoupon(context.Background(), 1, "SAVE20"); err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}

	// 应用与结算之间名额被抢完，事务内复核必须拦下
	if err := env.db.Model(&models.Coupon{}).Where("id = ?", coupon.ID).
		Update("current_uses", coupon.MaxUses).Error; err != nil {
		t.Fatalf("exhaust coupon failed: %v", err)
	}

	if _, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{UserID: 1}); !errors.Is(err, ErrCouponNotEligible) {
		t.Fatalf("want ErrCouponNotEligible got %v", err)
	}

	var orderCount, redemptionCount int64
	env.db.Model(&models.Order{}).Count(&orderCount)
	env.db.Model(&models.Redemption{}).Count(&redemptionCount)
	if orderCount != 0 || redemptionCount != 0 {
		t.Fatalf("rollback incomplete: orders=%d redemptions=%d", orderCount, redemptionCount)
	}
}

func TestCheckoutWithCouponStockFailureRollsBack(t *testing.T) {
	env := setupOrderServiceTest(t)
	p := mustCreateProduct(t, env.db, "SKU-1", 100, 2, true)
	coupon := mustCreateCoupon(t, env.db, nil)
	mustAddCartItem(t, env.db, 1, p.ID, 2)

	if _, err := env.cartSvc.ApplyCoupon(context.Background(), 1, "SAVE20"); err != nil {
		t.Fatalf("apply coupon failed: %v", err)
	}

	// 应用后库存被其它订单吃掉
	if err := env.db.Model(&models.Product{}).Where("id = ?", p.ID).
		Update("stock_quantity", 1).Error; err != nil {
		t.Fatalf("drain stock failed: %v", err)
	}

	if _, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{UserID: 1}); !errors.Is(err, ErrProductStockExceeded) {
		t.Fatalf("want ErrProductStockExceeded got %v", err)
	}

	var orderCount, redemptionCount int64
	env.db.Model(&models.Order{}).Count(&orderCount)
	env.db.Model(&models.Redemption{}).Count(&redemptionCount)
	if orderCount != 0 || redemptionCount != 0 {
		t.Fatalf("rollback incomplete: orders=%d redemptions=%d", orderCount, redemptionCount)
	}

	var stored models.Coupon
	if err := env.db.First(&stored, coupon.ID).Error; err != nil {
		t.Fatalf("reload coupon failed: %v", err)
	}
	if stored.CurrentUses != 0 {
		t.Fatalf("current uses want 0 got %d", stored.CurrentUses)
	}

	// 结算失败后购物车与已应用状态原样保留，用户可重试
	var cartCount, stateCount int64
	env.db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&cartCount)
	env.db.Model(&models.CartCoupon{}).Where("user_id = ?", 1).Count(&stateCount)
	if cartCount != 1 || stateCount != 1 {
		t.Fatalf("cart should survive failed checkout: items=%d state=%d", cartCount, stateCount)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := setupOrderServiceTest(t)
	if _, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{UserID: 1}); !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("want ErrCartEmpty got %v", err)
	}
}

func TestCheckoutStockExceeded(t *testing.T) {
	env := setupOrderServiceTest(t)
	p := mustCreateProduct(t, env.db, "SKU-1", 50, 1, true)
	mustAddCartItem(t, env.db, 1, p.ID, 3)

	if _, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{UserID: 1}); !errors.Is(err, ErrProductStockExceeded) {
		t.Fatalf("want ErrProductStockExceeded got %v", err)
	}

	// 回滚后不应残留订单
	var count int64
	env.db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Fatalf("orders want 0 got %d", count)
	}
}

func TestCheckoutInactiveProduct(t *testing.T) {
	env := setupOrderServiceTest(t)
	p := mustCreateProduct(t, env.db, "SKU-1", 50, 10, false)
	mustAddCartItem(t, env.db, 1, p.ID, 1)

	if _, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{UserID: 1}); !errors.Is(err, ErrProductNotAvailable) {
		t.Fatalf("want ErrProductNotAvailable got %v", err)
	}
}

func TestListByUser(t *testing.T) {
	env := setupOrderServiceTest(t)
	p := mustCreateProduct(t, env.db, "SKU-1", 20, 10, true)
	mustAddCartItem(t, env.db, 9, p.ID, 1)
	if _, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{UserID: 9}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	orders, total, err := env.orderSvc.ListByUser(9, 1, 10, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("want 1 order got total=%d len=%d", total, len(orders))
	}

	_, total, err = env.orderSvc.ListByUser(9, 1, 10, constants.OrderStatusPaid)
	if err != nil {
		t.Fatalf("list by status failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("paid orders want 0 got %d", total)
	}
}

func TestGetByIDAndUser(t *testing.T) {
	env := setupOrderServiceTest(t)
	p := mustCreateProduct(t, env.db, "SKU-1", 20, 10, true)
	mustAddCartItem(t, env.db, 4, p.ID, 1)
	order, err := env.orderSvc.Checkout(context.Background(), CheckoutInput{UserID: 4})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	got, err := env.orderSvc.GetByIDAndUser(order.ID, 4)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.OrderNo != order.OrderNo {
		t.Fatalf("order no mismatch: %s vs %s", got.OrderNo, order.OrderNo)
	}

	if _, err := env.orderSvc.GetByIDAndUser(order.ID, 5); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("want ErrOrderNotFound for other user, got %v", err)
	}
}
