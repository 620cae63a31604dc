package repository

import (
	"errors"

	"github.com/couponstore/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	ListByUser(userID uint) ([]models.CartItem, error)
	GetByUserAndProduct(userID, productID uint) (*models.CartItem, error)
	Upsert(item *models.CartItem) error
	DeleteByUserAndProduct(userID, productID uint) error
	ClearByUser(userID uint) error
	GetAppliedCoupon(userID uint) (*models.CartCoupon, error)
	SetAppliedCoupon(state *models.CartCoupon) error
	ClearAppliedCoupon(userID uint) error
	WithTx(tx *gorm.DB) *GormCartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) *GormCartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

func (r *GormCartRepository) byUserProduct(userID, productID uint) *gorm.DB {
	return r.db.Where("user_id = ? AND product_id = ?", userID, productID)
}

// ListByUser 按最近更新顺序获取用户购物车项
func (r *GormCartRepository) ListByUser(userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.Preload("Product").
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// GetByUserAndProduct 获取单个购物车项，不存在时返回 nil
func (r *GormCartRepository) GetByUserAndProduct(userID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.byUserProduct(userID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Upsert 添加购物车项，已存在时覆盖数量
func (r *GormCartRepository) Upsert(item *models.CartItem) error {
	if item == nil {
		return nil
	}
	existing, err := r.GetByUserAndProduct(item.UserID, item.ProductID)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.db.Create(item).Error
	}
	return r.db.Model(existing).Update("quantity", item.Quantity).Error
}

// DeleteByUserAndProduct 删除购物车项
func (r *GormCartRepository) DeleteByUserAndProduct(userID, productID uint) error {
	return r.byUserProduct(userID, productID).Delete(&models.CartItem{}).Error
}

// ClearByUser 清空用户购物车
func (r *GormCartRepository) ClearByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

// GetAppliedCoupon 获取用户已应用的优惠券状态，不存在时返回 nil
func (r *GormCartRepository) GetAppliedCoupon(userID uint) (*models.CartCoupon, error) {
	var state models.CartCoupon
	if err := r.db.Where("user_id = ?", userID).First(&state).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// SetAppliedCoupon 覆盖写入用户的已应用优惠券状态
func (r *GormCartRepository) SetAppliedCoupon(state *models.CartCoupon) error {
	if state == nil || state.UserID == 0 {
		return nil
	}
	if err := r.ClearAppliedCoupon(state.UserID); err != nil {
		return err
	}
	return r.db.Create(state).Error
}

// ClearAppliedCoupon 清除用户的已应用优惠券状态
func (r *GormCartRepository) ClearAppliedCoupon(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.CartCoupon{}).Error
}
