package models

import "time"

// CartCoupon 购物车已应用优惠券状态
//
// 落库持久化，结算端据此决定是否走优惠券复核；Redis 预览只做展示加速。
// 每个用户最多一条，购物车任何变更后删除。
type CartCoupon struct {
	ID        uint      `gorm:"primarykey" json:"id"`                            // 主键
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_coupon_user" json:"user_id"` // 用户ID
	CouponID  uint      `gorm:"not null" json:"coupon_id"`                       // 优惠券ID
	Code      string    `gorm:"size:64;not null" json:"code"`                    // 优惠码快照
	AppliedAt time.Time `json:"applied_at"`                                      // 应用时间
}

// TableName 指定表名
func (CartCoupon) TableName() string {
	return "cart_coupons"
}
