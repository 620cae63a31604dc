package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                        // 主键
	Name          string         `gorm:"not null;index" json:"name"`                                  // 商品名称
	Description   string         `gorm:"type:text" json:"description"`                                // 描述
	Price         Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`         // 单价
	Category      string         `gorm:"type:varchar(100);index" json:"category"`                     // 分类标签
	Brand         string         `gorm:"type:varchar(100)" json:"brand"`                              // 品牌
	SKU           string         `gorm:"column:sku;uniqueIndex;not null" json:"sku"`                  // 库存单位编码
	StockQuantity int            `gorm:"not null;default:0" json:"stock_quantity"`                    // 库存数量
	IsActive      bool           `gorm:"not null;default:true;index" json:"is_active"`                // 是否上架
	ImageURL      string         `gorm:"type:varchar(500)" json:"image_url"`                          // 商品图片
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                  // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
