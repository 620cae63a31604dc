package service

import (
	"context"
	"time"

	"github.com/couponstore/internal/cache"
	"github.com/couponstore/internal/config"
	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"

	"github.com/shopspring/decimal"
)

// CartItemDetail 购物车项详情（用于响应）
type CartItemDetail struct {
	ProductID uint            `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice models.Money    `json:"unit_price"`
	LineTotal models.Money    `json:"line_total"`
	Product   *models.Product `json:"product"`
}

// CartView 购物车视图
type CartView struct {
	Items         []CartItemDetail         `json:"items"`
	Subtotal      models.Money             `json:"subtotal"`
	AppliedCoupon *cache.CartCouponPreview `json:"applied_coupon,omitempty"`
}

// UpsertCartItemInput 购物车更新输入
type UpsertCartItemInput struct {
	UserID    uint
	ProductID uint
	Quantity  int
}

// CartService 购物车服务
type CartService struct {
	cartRepo      repository.CartRepository
	productRepo   repository.ProductRepository
	couponService *CouponService
	cfg           *config.CartConfig
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, couponService *CouponService, cfg *config.CartConfig) *CartService {
	return &CartService{
		cartRepo:      cartRepo,
		productRepo:   productRepo,
		couponService: couponService,
		cfg:           cfg,
	}
}

// GetCart 获取用户购物车视图
func (s *CartService) GetCart(ctx context.Context, userID uint) (*CartView, error) {
	if userID == 0 {
		return nil, ErrInvalidCartItem
	}
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	details := make([]CartItemDetail, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		product := item.Product
		if product == nil || product.ID == 0 {
			p, err := s.productRepo.GetByID(item.ProductID)
			if err != nil {
				return nil, err
			}
			product = p
		}
		// 下架商品从购物车里清掉
		if product == nil || !product.IsActive {
			_ = s.cartRepo.DeleteByUserAndProduct(userID, item.ProductID)
			continue
		}

		lineTotal := product.Price.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		details = append(details, CartItemDetail{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			LineTotal: models.NewMoneyFromDecimal(lineTotal),
			Product:   product,
		})
	}

	view := &CartView{
		Items:    details,
		Subtotal: models.NewMoneyFromDecimal(subtotal),
	}

	// 已应用优惠券以落库状态为准，缓存命中且指向同一张券时补充折扣展示
	state, err := s.cartRepo.GetAppliedCoupon(userID)
	if err != nil {
		return nil, err
	}
	if state != nil {
		applied := &cache.CartCouponPreview{
			Code:      state.Code,
			CouponID:  state.CouponID,
			AppliedAt: state.AppliedAt.Unix(),
		}
		if preview, hit, err := cache.GetCartCouponPreview(ctx, userID); err == nil && hit && preview.CouponID == state.CouponID {
			applied = preview
		}
		view.AppliedCoupon = applied
	}
	return view, nil
}

// UpsertItem 添加或更新购物车项
func (s *CartService) UpsertItem(ctx context.Context, input UpsertCartItemInput) error {
	if input.UserID == 0 || input.ProductID == 0 || input.Quantity <= 0 {
		return ErrInvalidCartItem
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return err
	}
	if product == nil || !product.IsActive {
		return ErrProductNotAvailable
	}
	if product.StockQuantity < input.Quantity {
		return ErrProductStockExceeded
	}

	now := time.Now()
	item := &models.CartItem{
		UserID:    input.UserID,
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.cartRepo.Upsert(item); err != nil {
		return err
	}
	s.invalidatePreview(ctx, input.UserID)
	return nil
}

// UpdateQuantity 修改购物车项数量，0 表示删除
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID uint, quantity int) error {
	if userID == 0 || productID == 0 || quantity < 0 {
		return ErrInvalidCartItem
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	existing, err := s.cartRepo.GetByUserAndProduct(userID, productID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrInvalidCartItem
	}
	return s.UpsertItem(ctx, UpsertCartItemInput{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

// RemoveItem 删除购物车项
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uint) error {
	if userID == 0 || productID == 0 {
		return ErrInvalidCartItem
	}
	if err := s.cartRepo.DeleteByUserAndProduct(userID, productID); err != nil {
		return err
	}
	s.invalidatePreview(ctx, userID)
	return nil
}

// Clear 清空购物车
func (s *CartService) Clear(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrInvalidCartItem
	}
	if err := s.cartRepo.ClearByUser(userID); err != nil {
		return err
	}
	s.invalidatePreview(ctx, userID)
	return nil
}

// ApplyCouponResult 应用优惠券的结果
type ApplyCouponResult struct {
	Result   EvaluationResult `json:"result"`
	Discount models.Money     `json:"discount"`
	NewTotal models.Money     `json:"new_total"`
}

// ApplyCoupon 为购物车应用优惠券（预览，不核销）
//
// 校验失败时返回完整原因列表；成功后把应用状态落库（结算端据此复核），
// 并尽力写入预览缓存加速展示。落库失败则整个应用失败。
func (s *CartService) ApplyCoupon(ctx context.Context, userID uint, code string) (*ApplyCouponResult, error) {
	view, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(view.Items) == 0 {
		return nil, ErrCartEmpty
	}

	normalized := NormalizeCouponCode(code)
	if normalized == "" {
		return nil, ErrCouponNotFound
	}
	coupon, err := s.couponService.couponRepo.GetByCode(normalized)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}

	facts, err := s.couponService.CollectFacts(userID, coupon)
	if err != nil {
		return nil, err
	}

	lines := cartLinesFromView(view)
	subtotal := view.Subtotal.Decimal
	result := s.couponService.Evaluate(coupon, facts, subtotal, lines, time.Now(), EvaluationOptions{RequirePublic: true})
	if !result.Valid {
		return &ApplyCouponResult{Result: result}, nil
	}

	discount := s.couponService.ComputeDiscount(coupon, subtotal, lines)
	newTotal := models.NewMoneyFromDecimal(subtotal.Sub(discount.Discount.Decimal))

	now := time.Now()
	if err := s.cartRepo.SetAppliedCoupon(&models.CartCoupon{
		UserID:    userID,
		CouponID:  coupon.ID,
		Code:      coupon.Code,
		AppliedAt: now,
	}); err != nil {
		return nil, err
	}

	preview := &cache.CartCouponPreview{
		Code:       coupon.Code,
		CouponID:   coupon.ID,
		Discount:   discount.Discount.String(),
		AppliedIDs: discount.AppliedIDs,
		AppliedAt:  now.Unix(),
	}
	if err := cache.SetCartCouponPreview(ctx, userID, preview, s.previewTTL()); err != nil {
		logger.Warnw("cart_coupon_preview_cache_failed", "user_id", userID, "error", err)
	}

	return &ApplyCouponResult{
		Result:   result,
		Discount: discount.Discount,
		NewTotal: newTotal,
	}, nil
}

// RemoveCoupon 取消购物车已应用的优惠券
func (s *CartService) RemoveCoupon(ctx context.Context, userID uint) error {
	if userID == 0 {
		return ErrInvalidCartItem
	}
	if err := s.cartRepo.ClearAppliedCoupon(userID); err != nil {
		return err
	}
	if err := cache.DelCartCouponPreview(ctx, userID); err != nil {
		logger.Warnw("cart_coupon_preview_invalidate_failed", "user_id", userID, "error", err)
	}
	return nil
}

// invalidatePreview 购物车变更后丢弃已应用优惠券
//
// 清理失败只告警：结算端会在事务内重新校验，残留状态不会放大折扣。
func (s *CartService) invalidatePreview(ctx context.Context, userID uint) {
	if err := s.cartRepo.ClearAppliedCoupon(userID); err != nil {
		logger.Warnw("cart_coupon_state_invalidate_failed", "user_id", userID, "error", err)
	}
	if err := cache.DelCartCouponPreview(ctx, userID); err != nil {
		logger.Warnw("cart_coupon_preview_invalidate_failed", "user_id", userID, "error", err)
	}
}

func (s *CartService) previewTTL() time.Duration {
	seconds := 1800
	if s.cfg != nil && s.cfg.CouponPreviewTTLSeconds > 0 {
		seconds = s.cfg.CouponPreviewTTLSeconds
	}
	return time.Duration(seconds) * time.Second
}

func cartLinesFromView(view *CartView) []CartLine {
	lines := make([]CartLine, 0, len(view.Items))
	for _, item := range view.Items {
		category := ""
		if item.Product != nil {
			category = item.Product.Category
		}
		lines = append(lines, CartLine{
			ProductID: item.ProductID,
			Category:  category,
			UnitPrice: item.UnitPrice.Decimal,
			Quantity:  item.Quantity,
		})
	}
	return lines
}
