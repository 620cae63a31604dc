package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Coupon 优惠券
type Coupon struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                                                 // 主键
	Code              string         `gorm:"uniqueIndex;not null" json:"code"`                                                     // 优惠码（大写存储）
	Title             string         `gorm:"not null" json:"title"`                                                                // 标题
	Description       string         `gorm:"type:text" json:"description"`                                                         // 描述
	DiscountType      string         `gorm:"type:varchar(20);not null" json:"discount_type"`                                       // 优惠类型（percentage/fixed）
	DiscountValue     Money          `gorm:"type:decimal(20,2);not null" json:"discount_value"`                                    // 优惠数值（百分比或固定金额）
	MinOrderValue     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"minimum_order_value"`                     // 最低订单金额门槛
	MaxDiscountAmount *Money         `gorm:"type:decimal(20,2)" json:"maximum_discount_amount,omitempty"`                          // 百分比优惠封顶金额（空表示不封顶）
	Categories        StringArray    `gorm:"type:json" json:"applicable_categories"`                                               // 适用分类集合（空表示全部适用）
	IsPublic          bool           `gorm:"not null;default:false;index" json:"is_public"`                                        // 是否公开展示
	FirstTimeOnly     bool           `gorm:"not null;default:false" json:"first_time_user_only"`                                   // 是否仅限首单用户
	MaxUses           int            `gorm:"not null" json:"max_uses"`                                                             // 总使用上限
	CurrentUses       int            `gorm:"not null;default:0;check:chk_coupon_uses,current_uses <= max_uses" json:"current_uses"` // 已使用次数
	StartsAt          time.Time      `gorm:"index;not null" json:"start_date"`                                                     // 生效时间
	EndsAt            time.Time      `gorm:"index;not null" json:"end_date"`                                                       // 失效时间
	IsActive          bool           `gorm:"not null;default:true;index" json:"is_active"`                                         // 是否启用
	CreatedBy         uint           `gorm:"index" json:"created_by"`                                                              // 创建人（管理员用户ID）
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                                              // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                                              // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                                       // 软删除时间
}

// TableName 指定表名
func (Coupon) TableName() string {
	return "coupons"
}

// RemainingUses 剩余可用次数
func (c *Coupon) RemainingUses() int {
	left := c.MaxUses - c.CurrentUses
	if left < 0 {
		return 0
	}
	return left
}

// CategorySet 适用分类集合（空集合表示全部适用）
func (c *Coupon) CategorySet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Categories))
	for _, name := range c.Categories {
		set[name] = struct{}{}
	}
	return set
}

// DecodeCategories 从 JSON 文本解析分类集合；解析失败按空集合处理，不中断校验
func DecodeCategories(raw string) StringArray {
	if raw == "" {
		return StringArray{}
	}
	var out StringArray
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return StringArray{}
	}
	return out
}
