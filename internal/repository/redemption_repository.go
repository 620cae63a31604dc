package repository

import (
	"errors"

	"github.com/couponstore/internal/models"

	"gorm.io/gorm"
)

// RedemptionRepository 核销记录数据访问接口
type RedemptionRepository interface {
	Create(redemption *models.Redemption) error
	ExistsByUserAndCoupon(userID, couponID uint) (bool, error)
	GetByUserAndCoupon(userID, couponID uint) (*models.Redemption, error)
	ListByUser(filter RedemptionListFilter) ([]models.Redemption, int64, error)
	CountByCoupon(couponID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormRedemptionRepository
}

// RedemptionListFilter 查询核销记录列表的过滤条件
type RedemptionListFilter struct {
	Page     int
	PageSize int
	UserID   uint
}

// GormRedemptionRepository GORM 实现
type GormRedemptionRepository struct {
	db *gorm.DB
}

// NewRedemptionRepository 创建核销记录仓库
func NewRedemptionRepository(db *gorm.DB) *GormRedemptionRepository {
	return &GormRedemptionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRedemptionRepository) WithTx(tx *gorm.DB) *GormRedemptionRepository {
	if tx == nil {
		return r
	}
	return &GormRedemptionRepository{db: tx}
}

// Create 创建核销记录
//
// (user_id, coupon_id) 唯一索引冲突由调用方按重复核销处理。
func (r *GormRedemptionRepository) Create(redemption *models.Redemption) error {
	return r.db.Create(redemption).Error
}

// ExistsByUserAndCoupon 该用户是否已核销过该优惠券
func (r *GormRedemptionRepository) ExistsByUserAndCoupon(userID, couponID uint) (bool, error) {
	var count int64
	if err := r.db.Model(&models.Redemption{}).
		Where("user_id = ? AND coupon_id = ?", userID, couponID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByUserAndCoupon 获取用户对某优惠券的核销记录
func (r *GormRedemptionRepository) GetByUserAndCoupon(userID, couponID uint) (*models.Redemption, error) {
	var redemption models.Redemption
	if err := r.db.Where("user_id = ? AND coupon_id = ?", userID, couponID).
		First(&redemption).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}

// ListByUser 获取用户核销记录
func (r *GormRedemptionRepository) ListByUser(filter RedemptionListFilter) ([]models.Redemption, int64, error) {
	query := r.db.Model(&models.Redemption{}).Where("user_id = ?", filter.UserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var redemptions []models.Redemption
	if err := query.Preload("Coupon").Order("redeemed_at desc").Find(&redemptions).Error; err != nil {
		return nil, 0, err
	}
	return redemptions, total, nil
}

// CountByCoupon 统计某优惠券的核销次数
func (r *GormRedemptionRepository) CountByCoupon(couponID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.Redemption{}).
		Where("coupon_id = ?", couponID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
