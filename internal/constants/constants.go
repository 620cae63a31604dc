package constants

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// 优惠类型常量
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// 资格校验失败原因常量（一次返回全部未通过项）
const (
	ReasonCouponInactive      = "coupon_inactive"
	ReasonCouponNotStarted    = "coupon_not_started"
	ReasonCouponExpired       = "coupon_expired"
	ReasonUsageLimitReached   = "usage_limit_reached"
	ReasonCouponNotPublic     = "coupon_not_public"
	ReasonAlreadyRedeemed     = "already_redeemed"
	ReasonNotFirstTimeUser    = "not_first_time_user"
	ReasonBelowMinimumOrder   = "below_minimum_order"
	ReasonNoApplicableItems   = "no_applicable_items"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 登录失败原因常量
const (
	LoginFailReasonBadRequest         = "bad_request"
	LoginFailReasonInvalidCredentials = "invalid_credentials"
	LoginFailReasonUserDisabled       = "user_disabled"
)

// 公开优惠券列表排序常量
const (
	CouponSortExpiry   = "expiry"
	CouponSortDiscount = "discount"
	CouponSortName     = "name"
)

// 队列常量
const (
	QueueDefault       = "default"
	TaskOrderReceipt   = "order:receipt"
	TaskCouponExpire   = "coupon:expire_sweep"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "cs"
)
