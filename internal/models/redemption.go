package models

import (
	"time"
)

// Redemption 优惠券核销记录
//
// (user_id, coupon_id) 上的唯一索引保证同一用户对同一优惠券只能核销一次，
// 并发插入由数据库兜底。
type Redemption struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                                  // 主键
	UserID          uint      `gorm:"not null;uniqueIndex:idx_redemption_user_coupon" json:"user_id"`        // 用户ID
	CouponID        uint      `gorm:"not null;uniqueIndex:idx_redemption_user_coupon" json:"coupon_id"`      // 优惠券ID
	OrderID         *uint     `gorm:"index" json:"order_id,omitempty"`                                       // 关联订单ID（独立核销时为空）
	DiscountApplied Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_applied"`         // 实际优惠金额
	OriginalAmount  Money     `gorm:"type:decimal(20,2);not null;default:0" json:"original_amount"`          // 优惠前金额
	FinalAmount     Money     `gorm:"type:decimal(20,2);not null;default:0" json:"final_amount"`             // 优惠后金额
	ProductsApplied UintArray `gorm:"type:json" json:"products_applied_to"`                                  // 参与优惠的商品ID集合
	RedeemedAt      time.Time `gorm:"index;not null" json:"redeemed_at"`                                     // 核销时间

	Coupon *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"` // 关联优惠券
}

// TableName 指定表名
func (Redemption) TableName() string {
	return "redemptions"
}
