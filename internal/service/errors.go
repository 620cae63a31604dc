package service

import "errors"

// 优惠券相关错误
var (
	ErrCouponNotFound         = errors.New("coupon not found")
	ErrCouponInvalid          = errors.New("coupon invalid")
	ErrCouponNotEligible      = errors.New("coupon not eligible")
	ErrCouponAlreadyRedeemed  = errors.New("coupon already redeemed")
	ErrCouponUsageLimit       = errors.New("coupon usage limit reached")
	ErrCouponCodeExists       = errors.New("coupon code already exists")
	ErrCouponInUse            = errors.New("coupon has redemptions")
	ErrCouponCreateFailed     = errors.New("coupon create failed")
	ErrCouponUpdateFailed     = errors.New("coupon update failed")
	ErrCouponDeleteFailed     = errors.New("coupon delete failed")
	ErrRedemptionFailed       = errors.New("redemption failed")
)

// 购物车与订单相关错误
var (
	ErrCartEmpty              = errors.New("cart is empty")
	ErrInvalidCartItem        = errors.New("invalid cart item")
	ErrProductNotFound        = errors.New("product not found")
	ErrProductNotAvailable    = errors.New("product not available")
	ErrProductStockExceeded   = errors.New("product stock insufficient")
	ErrProductSKUExists       = errors.New("product sku already exists")
	ErrProductInvalid         = errors.New("product invalid")
	ErrOrderNotFound          = errors.New("order not found")
	ErrOrderCreateFailed      = errors.New("order create failed")
	ErrOrderAmountInvalid     = errors.New("order amount invalid")
)

// 用户认证相关错误
var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password does not meet policy")
	ErrTokenInvalid       = errors.New("token invalid")
)
