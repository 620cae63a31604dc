package service

import (
	"strings"
	"time"

	"github.com/couponstore/internal/constants"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"

	"github.com/shopspring/decimal"
)

// CartLine 参与资格校验与折扣计算的购物车行
type CartLine struct {
	ProductID uint
	Category  string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal 行小计
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// EvaluationFacts 资格校验需要的外部事实，由调用方在同一事务内查好后传入
type EvaluationFacts struct {
	AlreadyRedeemed bool  // 该用户是否已核销过该券
	PriorOrderCount int64 // 该用户历史订单数（首单判定）
}

// EvaluationOptions 资格校验选项
type EvaluationOptions struct {
	RequirePublic bool // 非管理员调用要求券为公开券
}

// EvaluationResult 资格校验结果；Reasons 收集全部未通过项
type EvaluationResult struct {
	Valid   bool     `json:"valid"`
	Reasons []string `json:"reasons"`
}

// DiscountResult 折扣计算结果
type DiscountResult struct {
	Discount   models.Money
	AppliedIDs []uint
}

// CouponService 优惠券服务
type CouponService struct {
	couponRepo     repository.CouponRepository
	redemptionRepo repository.RedemptionRepository
	orderRepo      repository.OrderRepository
}

// NewCouponService 创建优惠券服务
func NewCouponService(couponRepo repository.CouponRepository, redemptionRepo repository.RedemptionRepository, orderRepo repository.OrderRepository) *CouponService {
	return &CouponService{
		couponRepo:     couponRepo,
		redemptionRepo: redemptionRepo,
		orderRepo:      orderRepo,
	}
}

// Evaluate 资格校验：依次执行所有规则并收集全部未通过原因，不做短路。
//
// 纯内存计算，不做任何 I/O；核销事务内复核与预览路径共用此入口。
func (s *CouponService) Evaluate(coupon *models.Coupon, facts EvaluationFacts, subtotal decimal.Decimal, lines []CartLine, now time.Time, opts EvaluationOptions) EvaluationResult {
	reasons := make([]string, 0, 4)

	if coupon == nil {
		return EvaluationResult{Valid: false, Reasons: []string{constants.ReasonCouponInactive}}
	}

	if !coupon.IsActive {
		reasons = append(reasons, constants.ReasonCouponInactive)
	}
	if now.Before(coupon.StartsAt) {
		reasons = append(reasons, constants.ReasonCouponNotStarted)
	}
	if now.After(coupon.EndsAt) {
		reasons = append(reasons, constants.ReasonCouponExpired)
	}
	if coupon.CurrentUses >= coupon.MaxUses {
		reasons = append(reasons, constants.ReasonUsageLimitReached)
	}
	if opts.RequirePublic && !coupon.IsPublic {
		reasons = append(reasons, constants.ReasonCouponNotPublic)
	}
	if facts.AlreadyRedeemed {
		reasons = append(reasons, constants.ReasonAlreadyRedeemed)
	}
	if coupon.FirstTimeOnly && facts.PriorOrderCount > 0 {
		reasons = append(reasons, constants.ReasonNotFirstTimeUser)
	}
	if coupon.MinOrderValue.Decimal.GreaterThan(decimal.Zero) && subtotal.LessThan(coupon.MinOrderValue.Decimal) {
		reasons = append(reasons, constants.ReasonBelowMinimumOrder)
	}
	// 分类限制只对携带明细的购物车场景生效；单金额核销无明细可比对
	if set := coupon.CategorySet(); len(set) > 0 && len(lines) > 0 {
		matched := false
		for _, line := range lines {
			if _, ok := set[line.Category]; ok {
				matched = true
				break
			}
		}
		if !matched {
			reasons = append(reasons, constants.ReasonNoApplicableItems)
		}
	}

	return EvaluationResult{Valid: len(reasons) == 0, Reasons: reasons}
}

// ComputeDiscount 折扣计算
//
// 分类限制只是资格门槛（见 Evaluate），折扣始终按整车小计计算：
// 百分比券按小计乘比例并受封顶金额约束，固定金额券不超过小计。
// 计算全程保留原始精度，只在生成 Money 时舍入。
func (s *CouponService) ComputeDiscount(coupon *models.Coupon, subtotal decimal.Decimal, lines []CartLine) DiscountResult {
	if coupon == nil {
		return DiscountResult{Discount: models.MoneyZero(), AppliedIDs: []uint{}}
	}

	appliedIDs := make([]uint, 0, len(lines))
	for _, line := range lines {
		appliedIDs = append(appliedIDs, line.ProductID)
	}

	var discount decimal.Decimal
	switch strings.ToLower(strings.TrimSpace(coupon.DiscountType)) {
	case constants.DiscountTypePercentage:
		percent := coupon.DiscountValue.Decimal.Div(decimal.NewFromInt(100))
		discount = subtotal.Mul(percent)
		if coupon.MaxDiscountAmount != nil && coupon.MaxDiscountAmount.Decimal.GreaterThan(decimal.Zero) &&
			discount.GreaterThan(coupon.MaxDiscountAmount.Decimal) {
			discount = coupon.MaxDiscountAmount.Decimal
		}
	case constants.DiscountTypeFixed:
		discount = coupon.DiscountValue.Decimal
	default:
		discount = decimal.Zero
	}

	// 折扣不得超过小计，避免订单总额为负
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.LessThan(decimal.Zero) {
		discount = decimal.Zero
	}

	return DiscountResult{
		Discount:   models.NewMoneyFromDecimal(discount),
		AppliedIDs: appliedIDs,
	}
}

// CollectFacts 查询资格校验所需事实
func (s *CouponService) CollectFacts(userID uint, coupon *models.Coupon) (EvaluationFacts, error) {
	return s.collectFactsWith(s.redemptionRepo, s.orderRepo, userID, coupon)
}

func (s *CouponService) collectFactsWith(redemptionRepo repository.RedemptionRepository, orderRepo repository.OrderRepository, userID uint, coupon *models.Coupon) (EvaluationFacts, error) {
	facts := EvaluationFacts{}
	if coupon == nil || userID == 0 {
		return facts, nil
	}
	redeemed, err := redemptionRepo.ExistsByUserAndCoupon(userID, coupon.ID)
	if err != nil {
		return facts, err
	}
	facts.AlreadyRedeemed = redeemed

	if coupon.FirstTimeOnly {
		count, err := orderRepo.CountByUser(userID)
		if err != nil {
			return facts, err
		}
		facts.PriorOrderCount = count
	}
	return facts, nil
}

// ValidationView 校验接口的出参
type ValidationView struct {
	Result   EvaluationResult `json:"result"`
	Coupon   *models.Coupon   `json:"coupon,omitempty"`
	Discount *models.Money    `json:"discount,omitempty"`
}

// ValidateForUser 校验优惠码对指定用户与订单金额是否可用（只读路径）
func (s *CouponService) ValidateForUser(userID uint, code string, orderAmount decimal.Decimal) (*ValidationView, error) {
	normalized := NormalizeCouponCode(code)
	if normalized == "" {
		return nil, ErrCouponNotFound
	}
	coupon, err := s.couponRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	facts, err := s.CollectFacts(userID, coupon)
	if err != nil {
		return nil, err
	}

	result := s.Evaluate(coupon, facts, orderAmount, nil, time.Now(), EvaluationOptions{RequirePublic: true})
	view := &ValidationView{Result: result, Coupon: coupon}
	if result.Valid {
		discount := s.ComputeDiscount(coupon, orderAmount, nil)
		view.Discount = &discount.Discount
	}
	return view, nil
}

// PublicCouponView 公开列表条目
type PublicCouponView struct {
	Coupon        models.Coupon `json:"coupon"`
	RemainingUses int           `json:"remaining_uses"`
	DaysRemaining int           `json:"days_remaining"`
}

// ListPublic 当前可领取的公开优惠券
func (s *CouponService) ListPublic(now time.Time) ([]PublicCouponView, error) {
	coupons, err := s.couponRepo.ListPublicAvailable(now)
	if err != nil {
		return nil, err
	}
	return buildPublicCouponViews(coupons, now), nil
}

// SearchPublic 搜索公开优惠券
func (s *CouponService) SearchPublic(keyword, discountType, sortBy string, now time.Time) ([]PublicCouponView, error) {
	discountType = strings.ToLower(strings.TrimSpace(discountType))
	if discountType != "" && discountType != constants.DiscountTypePercentage && discountType != constants.DiscountTypeFixed {
		discountType = ""
	}
	coupons, err := s.couponRepo.Search(repository.CouponSearchFilter{
		Keyword:      keyword,
		DiscountType: discountType,
		SortBy:       strings.ToLower(strings.TrimSpace(sortBy)),
		Now:          now,
	})
	if err != nil {
		return nil, err
	}
	return buildPublicCouponViews(coupons, now), nil
}

func buildPublicCouponViews(coupons []models.Coupon, now time.Time) []PublicCouponView {
	views := make([]PublicCouponView, 0, len(coupons))
	for _, coupon := range coupons {
		days := int(coupon.EndsAt.Sub(now).Hours() / 24)
		if days < 0 {
			days = 0
		}
		views = append(views, PublicCouponView{
			Coupon:        coupon,
			RemainingUses: coupon.RemainingUses(),
			DaysRemaining: days,
		})
	}
	return views
}

// NormalizeCouponCode 优惠码标准化：去空白并转大写
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
