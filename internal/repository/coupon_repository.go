package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/couponstore/internal/constants"
	"github.com/couponstore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CouponRepository 优惠券数据访问接口
type CouponRepository interface {
	GetByID(id uint) (*models.Coupon, error)
	GetByCode(code string) (*models.Coupon, error)
	GetByCodeForUpdate(code string) (*models.Coupon, error)
	Create(coupon *models.Coupon) error
	Update(coupon *models.Coupon) error
	Delete(id uint) error
	CountByCode(code string, excludeID uint) (int64, error)
	List(filter CouponListFilter) ([]models.Coupon, int64, error)
	ListPublicAvailable(now time.Time) ([]models.Coupon, error)
	Search(filter CouponSearchFilter) ([]models.Coupon, error)
	IncrementCurrentUses(id uint) (int64, error)
	DeactivateExpired(now time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormCouponRepository
}

// CouponListFilter 优惠券列表筛选
type CouponListFilter struct {
	Code         string
	DiscountType string
	IsActive     *bool
	IsPublic     *bool
	Page         int
	PageSize     int
}

// CouponSearchFilter 公开优惠券搜索条件
type CouponSearchFilter struct {
	Keyword      string
	DiscountType string
	SortBy       string
	Now          time.Time
}

// GormCouponRepository GORM 实现
type GormCouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓库
func NewCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCouponRepository) WithTx(tx *gorm.DB) *GormCouponRepository {
	if tx == nil {
		return r
	}
	return &GormCouponRepository{db: tx}
}

// GetByID 根据ID获取优惠券
func (r *GormCouponRepository) GetByID(id uint) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.First(&coupon, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByCode 根据优惠码获取优惠券
func (r *GormCouponRepository) GetByCode(code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.Where("code = ?", code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// GetByCodeForUpdate 根据优惠码获取优惠券并加行锁（需在事务内调用）
//
// sqlite 不支持 FOR UPDATE，由写串行化兜底；postgres 下锁住该行直到事务结束。
func (r *GormCouponRepository) GetByCodeForUpdate(code string) (*models.Coupon, error) {
	var coupon models.Coupon
	query := r.db
	if dbDialectName(r.db) == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := query.Where("code = ?", code).First(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &coupon, nil
}

// Create 创建优惠券
func (r *GormCouponRepository) Create(coupon *models.Coupon) error {
	return r.db.Create(coupon).Error
}

// Update 更新优惠券
func (r *GormCouponRepository) Update(coupon *models.Coupon) error {
	return r.db.Save(coupon).Error
}

// Delete 删除优惠券
func (r *GormCouponRepository) Delete(id uint) error {
	return r.db.Delete(&models.Coupon{}, id).Error
}

// CountByCode 统计指定优惠码的数量（排除指定ID，用于查重）
func (r *GormCouponRepository) CountByCode(code string, excludeID uint) (int64, error) {
	var count int64
	query := r.db.Model(&models.Coupon{}).Where("code = ?", code)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// List 获取优惠券列表
func (r *GormCouponRepository) List(filter CouponListFilter) ([]models.Coupon, int64, error) {
	var coupons []models.Coupon
	query := r.db.Model(&models.Coupon{})

	if filter.Code != "" {
		query = query.Where("code = ?", filter.Code)
	}
	if filter.DiscountType != "" {
		query = query.Where("discount_type = ?", filter.DiscountType)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsPublic != nil {
		query = query.Where("is_public = ?", *filter.IsPublic)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	if err := query.Order("id desc").Find(&coupons).Error; err != nil {
		return nil, 0, err
	}
	return coupons, total, nil
}

// ListPublicAvailable 获取当前可领取的公开优惠券，按失效时间升序
func (r *GormCouponRepository) ListPublicAvailable(now time.Time) ([]models.Coupon, error) {
	var coupons []models.Coupon
	if err := r.db.Model(&models.Coupon{}).
		Where("is_public = ?", true).
		Where("is_active = ?", true).
		Where("starts_at <= ? AND ends_at >= ?", now, now).
		Where("current_uses < max_uses").
		Order("ends_at asc").
		Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// Search 搜索公开优惠券
func (r *GormCouponRepository) Search(filter CouponSearchFilter) ([]models.Coupon, error) {
	query := r.db.Model(&models.Coupon{}).
		Where("is_public = ?", true).
		Where("is_active = ?", true).
		Where("starts_at <= ? AND ends_at >= ?", filter.Now, filter.Now).
		Where("current_uses < max_uses")

	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		like := "%" + keyword + "%"
		operator := likeOperatorByDialect(dbDialectName(r.db))
		query = query.Where(
			"code "+operator+" ? OR title "+operator+" ? OR description "+operator+" ?",
			like, like, like,
		)
	}
	if filter.DiscountType != "" {
		query = query.Where("discount_type = ?", filter.DiscountType)
	}

	switch filter.SortBy {
	case constants.CouponSortDiscount:
		query = query.Order("discount_value desc")
	case constants.CouponSortName:
		query = query.Order("title asc")
	default:
		query = query.Order("ends_at asc")
	}

	var coupons []models.Coupon
	if err := query.Find(&coupons).Error; err != nil {
		return nil, err
	}
	return coupons, nil
}

// IncrementCurrentUses 条件递增使用次数，返回受影响行数
//
// WHERE current_uses < max_uses 保证并发下用量不超限；调用方必须检查返回值，
// 为 0 时说明名额已被抢完，需回滚所在事务。
func (r *GormCouponRepository) IncrementCurrentUses(id uint) (int64, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("id = ? AND current_uses < max_uses", id).
		UpdateColumns(map[string]interface{}{
			"current_uses": gorm.Expr("current_uses + ?", 1),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeactivateExpired 下线已过期的优惠券，返回受影响行数
func (r *GormCouponRepository) DeactivateExpired(now time.Time) (int64, error) {
	result := r.db.Model(&models.Coupon{}).
		Where("is_active = ?", true).
		Where("ends_at < ?", now).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
