package service

import (
	"errors"
	"strings"
	"time"

	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RedeemInput 独立核销输入（不关联订单）
type RedeemInput struct {
	UserID      uint
	Code        string
	OrderAmount models.Money
}

// RedemptionService 核销台账服务
type RedemptionService struct {
	couponRepo     repository.CouponRepository
	redemptionRepo repository.RedemptionRepository
	orderRepo      repository.OrderRepository
	couponService  *CouponService
}

// NewRedemptionService 创建核销台账服务
func NewRedemptionService(couponRepo repository.CouponRepository, redemptionRepo repository.RedemptionRepository, orderRepo repository.OrderRepository, couponService *CouponService) *RedemptionService {
	return &RedemptionService{
		couponRepo:     couponRepo,
		redemptionRepo: redemptionRepo,
		orderRepo:      orderRepo,
		couponService:  couponService,
	}
}

// Redeem 独立核销：单事务内完成校验、记账与用量递增。
//
// 事务内重新加锁读取并复核资格，核销记录插入依赖 (user_id, coupon_id)
// 唯一索引兜底，用量递增为条件更新并检查受影响行数；任一步失败整体回滚。
func (s *RedemptionService) Redeem(input RedeemInput) (*models.Redemption, error) {
	if input.UserID == 0 {
		return nil, ErrInvalidCredentials
	}
	code := NormalizeCouponCode(input.Code)
	if code == "" {
		return nil, ErrCouponNotFound
	}
	if input.OrderAmount.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrOrderAmountInvalid
	}

	var redemption *models.Redemption
	var evalResult EvaluationResult

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		couponRepo := s.couponRepo.WithTx(tx)
		redemptionRepo := s.redemptionRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		coupon, err := couponRepo.GetByCodeForUpdate(code)
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

		now := time.Now()
		evalResult = s.couponService.Evaluate(coupon, facts, input.OrderAmount.Decimal, nil, now, EvaluationOptions{RequirePublic: true})
		if !evalResult.Valid {
			return ErrCouponNotEligible
		}

		discount := s.couponService.ComputeDiscount(coupon, input.OrderAmount.Decimal, nil)
		final := models.NewMoneyFromDecimal(input.OrderAmount.Decimal.Sub(discount.Discount.Decimal))

		record := &models.Redemption{
			UserID:          input.UserID,
			CouponID:        coupon.ID,
			DiscountApplied: discount.Discount,
			OriginalAmount:  input.OrderAmount,
			FinalAmount:     final,
			ProductsApplied: models.UintArray{},
			RedeemedAt:      now,
		}
		if err := redemptionRepo.Create(record); err != nil {
			if isUniqueViolation(err) {
				return ErrCouponAlreadyRedeemed
			}
			return err
		}

		affected, err := couponRepo.IncrementCurrentUses(coupon.ID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrCouponUsageLimit
		}

		redemption = record
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrCouponNotFound),
			errors.Is(err, ErrCouponNotEligible),
			errors.Is(err, ErrCouponAlreadyRedeemed),
			errors.Is(err, ErrCouponUsageLimit):
			return nil, err
		}
		logger.Errorw("coupon_redeem_failed", "user_id", input.UserID, "code", code, "error", err)
		return nil, ErrRedemptionFailed
	}

	logger.Infow("coupon_redeemed",
		"user_id", input.UserID,
		"code", code,
		"discount", redemption.DiscountApplied.String(),
	)
	return redemption, nil
}

// EligibilityReasons 取出最近一次核销失败的校验原因
//
// 核销失败时调用方需要向前端透出全部未通过项，Redeem 返回 ErrCouponNotEligible
// 时携带的原因通过 RedeemWithReasons 获取。
func (s *RedemptionService) RedeemWithReasons(input RedeemInput) (*models.Redemption, []string, error) {
	redemption, err := s.Redeem(input)
	if err != nil {
		if errors.Is(err, ErrCouponNotEligible) {
			reasons, reasonErr := s.explainFailure(input)
			if reasonErr == nil {
				return nil, reasons, err
			}
		}
		return nil, nil, err
	}
	return redemption, nil, nil
}

// explainFailure 事务外重跑一次只读校验，拿到完整原因列表
func (s *RedemptionService) explainFailure(input RedeemInput) ([]string, error) {
	code := NormalizeCouponCode(input.Code)
	coupon, err := s.couponRepo.GetByCode(code)
	if err != nil || coupon == nil {
		return nil, ErrCouponNotFound
	}
	facts, err := s.couponService.CollectFacts(input.UserID, coupon)
	if err != nil {
		return nil, err
	}
	result := s.couponService.Evaluate(coupon, facts, input.OrderAmount.Decimal, nil, time.Now(), EvaluationOptions{RequirePublic: true})
	return result.Reasons, nil
}

// HistoryView 用户核销历史
type HistoryView struct {
	Redemptions []models.Redemption `json:"redemptions"`
	TotalSaved  models.Money        `json:"total_saved"`
}

// HistoryByUser 获取用户核销历史与累计节省金额
func (s *RedemptionService) HistoryByUser(userID uint, page, pageSize int) (*HistoryView, int64, error) {
	if userID == 0 {
		return nil, 0, ErrInvalidCredentials
	}
	redemptions, total, err := s.redemptionRepo.ListByUser(repository.RedemptionListFilter{
		UserID:   userID,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	saved := decimal.Zero
	for _, r := range redemptions {
		saved = saved.Add(r.DiscountApplied.Decimal)
	}
	return &HistoryView{
		Redemptions: redemptions,
		TotalSaved:  models.NewMoneyFromDecimal(saved),
	}, total, nil
}

// isUniqueViolation 唯一索引冲突，兼容 sqlite 与 postgres 的报错文案
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate key")
}
