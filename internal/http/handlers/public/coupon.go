package public

import (
	"strconv"
	"time"

	"github.com/couponstore/internal/cache"
	handlershared "github.com/couponstore/internal/http/handlers/shared"
	"github.com/couponstore/internal/http/response"
	"github.com/couponstore/internal/models"
	"github.com/couponstore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetPublicCoupons 公开优惠券列表（带剩余次数与剩余天数，结果短缓存）
func (h *Handler) GetPublicCoupons(c *gin.Context) {
	var cached []service.PublicCouponView
	if hit, err := cache.GetPublicCouponList(c.Request.Context(), &cached); err == nil && hit {
		response.Success(c, gin.H{"coupons": cached})
		return
	}

	views, err := h.CouponService.ListPublic(time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "list coupons failed", err)
		return
	}

	ttl := time.Duration(h.Config.Coupon.PublicListCacheSeconds) * time.Second
	if ttl > 0 {
		if err := cache.SetPublicCouponList(c.Request.Context(), views, ttl); err != nil {
			requestLog(c).Warnw("coupon_public_list_cache_set_failed", "error", err)
		}
	}
	response.Success(c, gin.H{"coupons": views})
}

// SearchCoupons 公开优惠券搜索
func (h *Handler) SearchCoupons(c *gin.Context) {
	keyword := c.Query("q")
	discountType := c.Query("discount_type")
	sortBy := c.Query("sort_by")

	views, err := h.CouponService.SearchPublic(keyword, discountType, sortBy, time.Now())
	if err != nil {
		respondError(c, response.CodeInternal, "search coupons failed", err)
		return
	}
	response.Success(c, gin.H{"coupons": views})
}

// ValidateCoupon 校验优惠码：返回整体可用性、全部失败原因与预估折扣
func (h *Handler) ValidateCoupon(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	code := c.Param("code")

	orderAmount := decimal.Zero
	if raw := c.Query("order_amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || parsed.IsNegative() {
			respondError(c, response.CodeBadRequest, "order amount invalid", nil)
			return
		}
		orderAmount = parsed
	}

	view, err := h.CouponService.ValidateForUser(uid, code, orderAmount)
	if err != nil {
		respondCouponError(c, err)
		return
	}
	response.Success(c, view)
}

// RedeemCouponRequest 核销请求
type RedeemCouponRequest struct {
	Code        string `json:"code" binding:"required"`
	OrderAmount string `json:"order_amount" binding:"required"`
}

// RedeemCoupon 核销优惠码：恰好一次，失败时返回全部不可用原因
func (h *Handler) RedeemCoupon(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req RedeemCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "bad request", err)
		return
	}
	amount, err := decimal.NewFromString(req.OrderAmount)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		respondError(c, response.CodeBadRequest, "order amount invalid", nil)
		return
	}

	redemption, reasons, err := h.RedemptionService.RedeemWithReasons(service.RedeemInput{
		UserID:      uid,
		Code:        req.Code,
		OrderAmount: models.NewMoneyFromDecimal(amount),
	})
	if err != nil {
		if len(reasons) > 0 {
			response.ErrorWithData(c, response.CodeBadRequest, "coupon not eligible", gin.H{"reasons": reasons})
			return
		}
		respondCouponError(c, err)
		return
	}

	response.Success(c, gin.H{
		"redemption":   redemption,
		"final_amount": redemption.FinalAmount,
	})
}

// GetRedemptions 用户核销历史（含累计节省金额）
func (h *Handler) GetRedemptions(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	view, total, err := h.RedemptionService.HistoryByUser(uid, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "list redemptions failed", err)
		return
	}
	response.SuccessWithPage(c, view, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	})
}
