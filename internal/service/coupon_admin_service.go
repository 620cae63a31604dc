package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/couponstore/internal/cache"
	"github.com/couponstore/internal/constants"
	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"

	"github.com/shopspring/decimal"
)

var couponCodePattern = regexp.MustCompile(`^[A-Z0-9-]{3,20}$`)

// CouponAdminService 优惠券管理服务
type CouponAdminService struct {
	couponRepo     repository.CouponRepository
	redemptionRepo repository.RedemptionRepository
}

// NewCouponAdminService 创建优惠券管理服务
func NewCouponAdminService(couponRepo repository.CouponRepository, redemptionRepo repository.RedemptionRepository) *CouponAdminService {
	return &CouponAdminService{couponRepo: couponRepo, redemptionRepo: redemptionRepo}
}

// CreateCouponInput 创建优惠券输入
type CreateCouponInput struct {
	Code              string
	Title             string
	Description       string
	DiscountType      string
	DiscountValue     models.Money
	MinOrderValue     models.Money
	MaxDiscountAmount *models.Money
	Categories        []string
	IsPublic          *bool
	FirstTimeOnly     bool
	MaxUses           int
	StartsAt          time.Time
	EndsAt            time.Time
	IsActive          *bool
	CreatedBy         uint
}

// UpdateCouponInput 更新优惠券输入
//
// 折扣类型、折扣值、用量上限不可下调至已发生用量之下，其余字段整体覆盖。
type UpdateCouponInput struct {
	Title             string
	Description       string
	DiscountType      string
	DiscountValue     models.Money
	MinOrderValue     models.Money
	MaxDiscountAmount *models.Money
	Categories        []string
	IsPublic          *bool
	FirstTimeOnly     *bool
	MaxUses           int
	StartsAt          time.Time
	EndsAt            time.Time
	IsActive          *bool
}

func validateCouponCode(code string) (string, error) {
	normalized := NormalizeCouponCode(code)
	if !couponCodePattern.MatchString(normalized) {
		return "", ErrCouponInvalid
	}
	return normalized, nil
}

func validateCouponTerms(discountType string, value models.Money, maxDiscount *models.Money, maxUses int, startsAt, endsAt time.Time) error {
	switch discountType {
	case constants.DiscountTypePercentage:
		if value.Decimal.LessThanOrEqual(decimal.Zero) || value.Decimal.GreaterThan(decimal.NewFromInt(100)) {
			return ErrCouponInvalid
		}
	case constants.DiscountTypeFixed:
		if value.Decimal.LessThanOrEqual(decimal.Zero) {
			return ErrCouponInvalid
		}
	default:
		return ErrCouponInvalid
	}
	if maxDiscount != nil && maxDiscount.Decimal.LessThanOrEqual(decimal.Zero) {
		return ErrCouponInvalid
	}
	if maxUses <= 0 {
		return ErrCouponInvalid
	}
	if startsAt.IsZero() || endsAt.IsZero() || !endsAt.After(startsAt) {
		return ErrCouponInvalid
	}
	return nil
}

func normalizeCategories(raw []string) models.StringArray {
	out := make(models.StringArray, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, category := range raw {
		trimmed := strings.ToLower(strings.TrimSpace(category))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// Create 创建优惠券
func (s *CouponAdminService) Create(ctx context.Context, input CreateCouponInput) (*models.Coupon, error) {
	code, err := validateCouponCode(input.Code)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrCouponInvalid
	}
	discountType := strings.ToLower(strings.TrimSpace(input.DiscountType))
	if err := validateCouponTerms(discountType, input.DiscountValue, input.MaxDiscountAmount, input.MaxUses, input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}
	if input.MinOrderValue.Decimal.LessThan(decimal.Zero) {
		return nil, ErrCouponInvalid
	}

	count, err := s.couponRepo.CountByCode(code, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrCouponCodeExists
	}

	isPublic := true
	if input.IsPublic != nil {
		isPublic = *input.IsPublic
	}
	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	coupon := &models.Coupon{
		Code:              code,
		Title:             title,
		Description:       strings.TrimSpace(input.Description),
		DiscountType:      discountType,
		DiscountValue:     input.DiscountValue,
		MinOrderValue:     input.MinOrderValue,
		MaxDiscountAmount: input.MaxDiscountAmount,
		Categories:        normalizeCategories(input.Categories),
		IsPublic:          isPublic,
		FirstTimeOnly:     input.FirstTimeOnly,
		MaxUses:           input.MaxUses,
		CurrentUses:       0,
		StartsAt:          input.StartsAt,
		EndsAt:            input.EndsAt,
		IsActive:          isActive,
		CreatedBy:         input.CreatedBy,
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrCouponCodeExists
		}
		logger.Errorw("coupon_create_failed", "code", code, "error", err)
		return nil, ErrCouponCreateFailed
	}

	s.invalidatePublicList(ctx)
	logger.Infow("coupon_created", "coupon_id", coupon.ID, "code", coupon.Code, "created_by", coupon.CreatedBy)
	return coupon, nil
}

// Update 更新优惠券（券码不可改）
func (s *CouponAdminService) Update(ctx context.Context, id uint, input UpdateCouponInput) (*models.Coupon, error) {
	if id == 0 {
		return nil, ErrCouponInvalid
	}
	existing, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrCouponNotFound
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrCouponInvalid
	}
	discountType := strings.ToLower(strings.TrimSpace(input.DiscountType))
	if err := validateCouponTerms(discountType, input.DiscountValue, input.MaxDiscountAmount, input.MaxUses, input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}
	if input.MinOrderValue.Decimal.LessThan(decimal.Zero) {
		return nil, ErrCouponInvalid
	}
	if input.MaxUses < existing.CurrentUses {
		return nil, ErrCouponInvalid
	}

	existing.Title = title
	existing.Description = strings.TrimSpace(input.Description)
	existing.DiscountType = discountType
	existing.DiscountValue = input.DiscountValue
	existing.MinOrderValue = input.MinOrderValue
	existing.MaxDiscountAmount = input.MaxDiscountAmount
	existing.Categories = normalizeCategories(input.Categories)
	if input.IsPublic != nil {
		existing.IsPublic = *input.IsPublic
	}
	if input.FirstTimeOnly != nil {
		existing.FirstTimeOnly = *input.FirstTimeOnly
	}
	existing.MaxUses = input.MaxUses
	existing.StartsAt = input.StartsAt
	existing.EndsAt = input.EndsAt
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}

	if err := s.couponRepo.Update(existing); err != nil {
		logger.Errorw("coupon_update_failed", "coupon_id", id, "error", err)
		return nil, ErrCouponUpdateFailed
	}

	s.invalidatePublicList(ctx)
	logger.Infow("coupon_updated", "coupon_id", existing.ID, "code", existing.Code)
	return existing, nil
}

// Delete 删除优惠券（已有核销记录的券禁止删除，只能停用）
func (s *CouponAdminService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrCouponInvalid
	}
	existing, err := s.couponRepo.GetByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrCouponNotFound
	}

	used, err := s.redemptionRepo.CountByCoupon(id)
	if err != nil {
		return err
	}
	if used > 0 {
		return ErrCouponInUse
	}

	if err := s.couponRepo.Delete(id); err != nil {
		logger.Errorw("coupon_delete_failed", "coupon_id", id, "error", err)
		return ErrCouponDeleteFailed
	}

	s.invalidatePublicList(ctx)
	logger.Infow("coupon_deleted", "coupon_id", id, "code", existing.Code)
	return nil
}

// Deactivate 停用优惠券
func (s *CouponAdminService) Deactivate(ctx context.Context, id uint) (*models.Coupon, error) {
	if id == 0 {
		return nil, ErrCouponInvalid
	}
	existing, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrCouponNotFound
	}
	if !existing.IsActive {
		return existing, nil
	}
	existing.IsActive = false
	if err := s.couponRepo.Update(existing); err != nil {
		logger.Errorw("coupon_deactivate_failed", "coupon_id", id, "error", err)
		return nil, ErrCouponUpdateFailed
	}
	s.invalidatePublicList(ctx)
	logger.Infow("coupon_deactivated", "coupon_id", id, "code", existing.Code)
	return existing, nil
}

// GetByID 获取优惠券详情
func (s *CouponAdminService) GetByID(id uint) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	return coupon, nil
}

// List 优惠券分页列表
func (s *CouponAdminService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.couponRepo.List(filter)
}

func (s *CouponAdminService) invalidatePublicList(ctx context.Context) {
	if err := cache.DelPublicCouponList(ctx); err != nil {
		logger.Warnw("coupon_public_list_invalidate_failed", "error", err)
	}
}
