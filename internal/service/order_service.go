package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/couponstore/internal/cache"
	"github.com/couponstore/internal/constants"
	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/queue"
	"github.com/couponstore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutInput 结算输入
type CheckoutInput struct {
	UserID          uint
	ShippingAddress string
	PaymentMethod   string
}

// OrderService 订单服务：购物车结算与订单查询
type OrderService struct {
	orderRepo      repository.OrderRepository
	cartRepo       repository.CartRepository
	productRepo    repository.ProductRepository
	couponRepo     repository.CouponRepository
	redemptionRepo repository.RedemptionRepository
	couponService  *CouponService
	queueClient    *queue.Client
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	redemptionRepo repository.RedemptionRepository,
	couponService *CouponService,
	queueClient *queue.Client,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		cartRepo:       cartRepo,
		productRepo:    productRepo,
		couponRepo:     couponRepo,
		redemptionRepo: redemptionRepo,
		couponService:  couponService,
		queueClient:    queueClient,
	}
}

// Checkout 购物车结算：单事务内创建订单、扣库存、核销优惠券。
//
// 事务内重新读商品与优惠券（优惠券加行锁），应用时算出的折扣一律不信任，
// 以复核结果为准；库存扣减与用量递增都是条件更新并检查受影响行数。
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidCredentials
	}

	cartItems, err := s.cartRepo.ListByUser(input.UserID)
	if err != nil {
		return nil, err
	}
	if len(cartItems) == 0 {
		return nil, ErrCartEmpty
	}

	// 已应用优惠券以落库状态为准；读失败直接失败，绝不静默按无券结算
	appliedState, err := s.cartRepo.GetAppliedCoupon(input.UserID)
	if err != nil {
		return nil, err
	}
	var appliedCode string
	if appliedState != nil {
		appliedCode = appliedState.Code
	}

	now := time.Now()
	var order *models.Order

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		couponRepo := s.couponRepo.WithTx(tx)
		redemptionRepo := s.redemptionRepo.WithTx(tx)

		// 事务内重读商品，构建订单项
		subtotal := decimal.Zero
		lines := make([]CartLine, 0, len(cartItems))
		orderItems := make([]models.OrderItem, 0, len(cartItems))
		for _, item := range cartItems {
			product, err := productRepo.GetByID(item.ProductID)
			if err != nil {
				return err
			}
			if product == nil || !product.IsActive {
				return ErrProductNotAvailable
			}
			if product.StockQuantity < item.Quantity {
				return ErrProductStockExceeded
			}
			lineTotal := product.Price.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))
			subtotal = subtotal.Add(lineTotal)
			lines = append(lines, CartLine{
				ProductID: product.ID,
				Category:  product.Category,
				UnitPrice: product.Price.Decimal,
				Quantity:  item.Quantity,
			})
			orderItems = append(orderItems, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Category:    product.Category,
				UnitPrice:   product.Price,
				Quantity:    item.Quantity,
				LineTotal:   models.NewMoneyFromDecimal(lineTotal),
				CreatedAt:   now,
			})
		}

		// 复核优惠券：加锁读取后重新走完整校验
		var appliedCoupon *models.Coupon
		discountAmount := decimal.Zero
		var appliedIDs models.UintArray
		if appliedCode != "" {
			coupon, err := couponRepo.GetByCodeForUpdate(appliedCode)
			if err != nil {
				return err
			}
			if coupon == nil {
				return ErrCouponNotFound
			}
			facts, err := s.couponService.collectFactsWith(redemptionRepo, orderRepo, input.UserID, coupon)
			if err != nil {
				return err
			}
			result := s.couponService.Evaluate(coupon, facts, subtotal, lines, now, EvaluationOptions{RequirePublic: true})
			if !result.Valid {
				return ErrCouponNotEligible
			}
			computed := s.couponService.ComputeDiscount(coupon, subtotal, lines)
			appliedCoupon = coupon
			discountAmount = computed.Discount.Decimal
			appliedIDs = models.UintArray(computed.AppliedIDs)
		}

		finalTotal := subtotal.Sub(discountAmount)
		if finalTotal.LessThan(decimal.Zero) {
			finalTotal = decimal.Zero
		}

		order = &models.Order{
			OrderNo:         generateOrderNo(),
			UserID:          input.UserID,
			Status:          constants.OrderStatusPending,
			Subtotal:        models.NewMoneyFromDecimal(subtotal),
			DiscountAmount:  models.NewMoneyFromDecimal(discountAmount),
			FinalTotal:      models.NewMoneyFromDecimal(finalTotal),
			ShippingAddress: strings.TrimSpace(input.ShippingAddress),
			PaymentMethod:   strings.TrimSpace(input.PaymentMethod),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if appliedCoupon != nil {
			order.CouponID = &appliedCoupon.ID
			order.CouponCodeUsed = appliedCoupon.Code
		}
		if err := orderRepo.Create(order, orderItems); err != nil {
			return err
		}

		// 条件扣库存，抢不到即回滚
		for _, line := range lines {
			affected, err := productRepo.DecrementStock(line.ProductID, line.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrProductStockExceeded
			}
		}

		// 核销记录 + 用量递增，与订单同事务
		if appliedCoupon != nil {
			record := &models.Redemption{
				UserID:          input.UserID,
				CouponID:        appliedCoupon.ID,
				OrderID:         &order.ID,
				DiscountApplied: models.NewMoneyFromDecimal(discountAmount),
				OriginalAmount:  models.NewMoneyFromDecimal(subtotal),
				FinalAmount:     models.NewMoneyFromDecimal(finalTotal),
				ProductsApplied: appliedIDs,
				RedeemedAt:      now,
			}
			if err := redemptionRepo.Create(record); err != nil {
				if isUniqueViolation(err) {
					return ErrCouponAlreadyRedeemed
				}
				return err
			}
			affected, err := couponRepo.IncrementCurrentUses(appliedCoupon.ID)
			if err != nil {
				return err
			}
			if affected == 0 {
				return ErrCouponUsageLimit
			}
		}

		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotAvailable),
			errors.Is(err, ErrProductStockExceeded),
			errors.Is(err, ErrCouponNotFound),
			errors.Is(err, ErrCouponNotEligible),
			errors.Is(err, ErrCouponAlreadyRedeemed),
			errors.Is(err, ErrCouponUsageLimit):
			return nil, err
		}
		logger.Errorw("checkout_failed", "user_id", input.UserID, "error", err)
		return nil, ErrOrderCreateFailed
	}

	// 提交后清理：失败只记日志，不影响已落库的订单
	if err := s.cartRepo.ClearByUser(input.UserID); err != nil {
		logger.Warnw("checkout_cart_clear_failed", "user_id", input.UserID, "order_id", order.ID, "error", err)
	}
	if err := s.cartRepo.ClearAppliedCoupon(input.UserID); err != nil {
		logger.Warnw("checkout_coupon_state_clear_failed", "user_id", input.UserID, "order_id", order.ID, "error", err)
	}
	if err := cache.DelCartCouponPreview(ctx, input.UserID); err != nil {
		logger.Warnw("checkout_preview_clear_failed", "user_id", input.UserID, "error", err)
	}
	if err := s.queueClient.EnqueueOrderReceipt(queue.OrderReceiptPayload{
		OrderID: order.ID,
		UserID:  order.UserID,
		OrderNo: order.OrderNo,
	}); err != nil {
		logger.Warnw("order_receipt_enqueue_failed", "order_id", order.ID, "error", err)
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", order.UserID,
		"final_total", order.FinalTotal.String(),
	)
	return order, nil
}

// ListByUser 用户订单列表
func (s *OrderService) ListByUser(userID uint, page, pageSize int, status string) ([]models.Order, int64, error) {
	if userID == 0 {
		return nil, 0, ErrInvalidCredentials
	}
	return s.orderRepo.ListByUser(repository.OrderListFilter{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
		Status:   status,
	})
}

// GetByIDAndUser 获取用户订单详情
func (s *OrderService) GetByIDAndUser(orderID, userID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func generateOrderNo() string {
	now := time.Now().Format("20060102150405")
	return fmt.Sprintf("CS%s%s", now, randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}
