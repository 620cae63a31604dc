package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                          // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                          // 订单编号
	UserID          uint           `gorm:"index;not null" json:"user_id"`                                 // 用户ID
	Status          string         `gorm:"index;not null" json:"status"`                                  // 订单状态
	Subtotal        Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`         // 商品小计
	DiscountAmount  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`  // 优惠金额
	FinalTotal      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"final_total"`      // 实付金额
	CouponID        *uint          `gorm:"index" json:"coupon_id,omitempty"`                              // 优惠券ID
	CouponCodeUsed  string         `gorm:"type:varchar(20)" json:"coupon_code_used,omitempty"`            // 下单时使用的优惠码快照
	ShippingAddress string         `gorm:"type:text" json:"shipping_address"`                             // 收货地址
	PaymentMethod   string         `gorm:"type:varchar(50)" json:"payment_method"`                        // 支付方式
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
