package public

import (
	"errors"

	"github.com/couponstore/internal/http/response"
	"github.com/couponstore/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var couponCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCouponNotFound, code: response.CodeNotFound, msg: "coupon not found"},
	{target: service.ErrCouponInvalid, code: response.CodeBadRequest, msg: "coupon code invalid"},
	{target: service.ErrCouponNotEligible, code: response.CodeBadRequest, msg: "coupon not eligible"},
	{target: service.ErrCouponAlreadyRedeemed, code: response.CodeConflict, msg: "coupon already redeemed"},
	{target: service.ErrCouponUsageLimit, code: response.CodeConflict, msg: "coupon usage limit reached"},
}

var cartCommonErrorRules = []mappedHandlerError{
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, msg: "cart is empty"},
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, msg: "cart item invalid"},
	{target: service.ErrProductNotFound, code: response.CodeNotFound, msg: "product not found"},
	{target: service.ErrProductNotAvailable, code: response.CodeBadRequest, msg: "product not available"},
	{target: service.ErrProductStockExceeded, code: response.CodeBadRequest, msg: "insufficient stock"},
}

var checkoutExtraErrorRules = []mappedHandlerError{
	{target: service.ErrOrderAmountInvalid, code: response.CodeBadRequest, msg: "order amount invalid"},
}

func respondCouponError(c *gin.Context, err error) {
	respondWithMappedError(c, err, couponCommonErrorRules, response.CodeInternal, "coupon operation failed")
}

func respondCartError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(cartCommonErrorRules, couponCommonErrorRules), response.CodeInternal, "cart operation failed")
}

func respondCheckoutError(c *gin.Context, err error) {
	rules := concatMappedHandlerErrors(cartCommonErrorRules, couponCommonErrorRules, checkoutExtraErrorRules)
	respondWithMappedError(c, err, rules, response.CodeInternal, "checkout failed")
}
