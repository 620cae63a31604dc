package admin

import (
	"errors"
	"strconv"
	"time"

	"github.com/couponstore/internal/http/response"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/repository"
	"github.com/couponstore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CouponRequest 创建/更新优惠券请求
type CouponRequest struct {
	Code              string   `json:"code"`
	Title             string   `json:"title" binding:"required"`
	Description       string   `json:"description"`
	DiscountType      string   `json:"discount_type" binding:"required"`
	DiscountValue     float64  `json:"discount_value" binding:"required"`
	MinOrderValue     float64  `json:"min_order_value"`
	MaxDiscountAmount *float64 `json:"max_discount_amount"`
	Categories        []string `json:"categories"`
	IsPublic          *bool    `json:"is_public"`
	FirstTimeOnly     *bool    `json:"first_time_only"`
	MaxUses           int      `json:"max_uses" binding:"required"`
	StartsAt          string   `json:"starts_at" binding:"required"`
	EndsAt            string   `json:"ends_at" binding:"required"`
	IsActive          *bool    `json:"is_active"`
}

func parseCouponWindow(rawStart, rawEnd string) (time.Time, time.Time, error) {
	startsAt, err := time.Parse(time.RFC3339, rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endsAt, err := time.Parse(time.RFC3339, rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return startsAt, endsAt, nil
}

func maxDiscountFromRequest(raw *float64) *models.Money {
	if raw == nil {
		return nil
	}
	money := models.NewMoneyFromDecimal(decimal.NewFromFloat(*raw))
	return &money
}

func respondCouponAdminError(c *gin.Context, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		respondError(c, response.CodeNotFound, "coupon not found", nil)
	case errors.Is(err, service.ErrCouponInvalid):
		respondError(c, response.CodeBadRequest, "coupon invalid", nil)
	case errors.Is(err, service.ErrCouponCodeExists):
		respondError(c, response.CodeConflict, "coupon code exists", nil)
	case errors.Is(err, service.ErrCouponInUse):
		respondError(c, response.CodeConflict, "coupon has redemptions", nil)
	default:
		respondError(c, response.CodeInternal, fallbackMsg, err)
	}
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if req.Code == "" {
		respondError(c, response.CodeBadRequest, "coupon code required", nil)
		return
	}
	startsAt, endsAt, err := parseCouponWindow(req.StartsAt, req.EndsAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	firstTimeOnly := false
	if req.FirstTimeOnly != nil {
		firstTimeOnly = *req.FirstTimeOnly
	}
	coupon, err := h.CouponAdminService.Create(c.Request.Context(), service.CreateCouponInput{
		Code:              req.Code,
		Title:             req.Title,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     models.NewMoneyFromDecimal(decimal.NewFromFloat(req.DiscountValue)),
		MinOrderValue:     models.NewMoneyFromDecimal(decimal.NewFromFloat(req.MinOrderValue)),
		MaxDiscountAmount: maxDiscountFromRequest(req.MaxDiscountAmount),
		Categories:        req.Categories,
		IsPublic:          req.IsPublic,
		FirstTimeOnly:     firstTimeOnly,
		MaxUses:           req.MaxUses,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		IsActive:          req.IsActive,
		CreatedBy:         adminID,
	})
	if err != nil {
		respondCouponAdminError(c, err, "create coupon failed")
		return
	}
	response.Success(c, coupon)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	startsAt, endsAt, err := parseCouponWindow(req.StartsAt, req.EndsAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}

	coupon, err := h.CouponAdminService.Update(c.Request.Context(), uint(couponID), service.UpdateCouponInput{
		Title:             req.Title,
		Description:       req.Description,
		DiscountType:      req.DiscountType,
		DiscountValue:     models.NewMoneyFromDecimal(decimal.NewFromFloat(req.DiscountValue)),
		MinOrderValue:     models.NewMoneyFromDecimal(decimal.NewFromFloat(req.MinOrderValue)),
		MaxDiscountAmount: maxDiscountFromRequest(req.MaxDiscountAmount),
		Categories:        req.Categories,
		IsPublic:          req.IsPublic,
		FirstTimeOnly:     req.FirstTimeOnly,
		MaxUses:           req.MaxUses,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		IsActive:          req.IsActive,
	})
	if err != nil {
		respondCouponAdminError(c, err, "update coupon failed")
		return
	}
	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券（有核销记录的只能停用）
func (h *Handler) DeleteCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	if err := h.CouponAdminService.Delete(c.Request.Context(), uint(couponID)); err != nil {
		respondCouponAdminError(c, err, "delete coupon failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// DeactivateCoupon 停用优惠券
func (h *Handler) DeactivateCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	coupon, err := h.CouponAdminService.Deactivate(c.Request.Context(), uint(couponID))
	if err != nil {
		respondCouponAdminError(c, err, "deactivate coupon failed")
		return
	}
	response.Success(c, coupon)
}

// GetAdminCoupon 获取优惠券详情
func (h *Handler) GetAdminCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	coupon, err := h.CouponAdminService.GetByID(uint(couponID))
	if err != nil {
		respondCouponAdminError(c, err, "get coupon failed")
		return
	}
	response.Success(c, coupon)
}

// GetAdminCoupons 获取优惠券列表
func (h *Handler) GetAdminCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
		isActive = &parsed
	}
	var isPublic *bool
	if raw := c.Query("is_public"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "bad request", err)
			return
		}
		isPublic = &parsed
	}

	coupons, total, err := h.CouponAdminService.List(repository.CouponListFilter{
		Code:         c.Query("code"),
		DiscountType: c.Query("discount_type"),
		IsActive:     isActive,
		IsPublic:     isPublic,
		Page:         page,
		PageSize:     pageSize,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "list coupons failed", err)
		return
	}

	response.SuccessWithPage(c, coupons, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
