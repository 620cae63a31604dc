package cache

import (
	"context"
	"fmt"
	"time"
)

const publicCouponListKey = "coupon:public_list"

func cartCouponKey(userID uint) string {
	return fmt.Sprintf("cart:coupon:%d", userID)
}

// CartCouponPreview 购物车已应用优惠券预览
//
// 仅做展示加速，结算时一律以事务内重新校验的结果为准。
type CartCouponPreview struct {
	Code       string `json:"code"`
	CouponID   uint   `json:"coupon_id"`
	Discount   string `json:"discount"`
	AppliedIDs []uint `json:"applied_ids"`
	AppliedAt  int64  `json:"applied_at"`
}

// GetCartCouponPreview 获取购物车优惠券预览
func GetCartCouponPreview(ctx context.Context, userID uint) (*CartCouponPreview, bool, error) {
	if userID == 0 {
		return nil, false, nil
	}
	var preview CartCouponPreview
	hit, err := GetJSON(ctx, cartCouponKey(userID), &preview)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &preview, true, nil
}

// SetCartCouponPreview 写入购物车优惠券预览
func SetCartCouponPreview(ctx context.Context, userID uint, preview *CartCouponPreview, ttl time.Duration) error {
	if userID == 0 || preview == nil {
		return nil
	}
	return SetJSON(ctx, cartCouponKey(userID), preview, ttl)
}

// DelCartCouponPreview 删除购物车优惠券预览（购物车任何变更后调用）
func DelCartCouponPreview(ctx context.Context, userID uint) error {
	if userID == 0 {
		return nil
	}
	return Del(ctx, cartCouponKey(userID))
}

// GetPublicCouponList 获取公开优惠券列表缓存
func GetPublicCouponList(ctx context.Context, dest interface{}) (bool, error) {
	return GetJSON(ctx, publicCouponListKey, dest)
}

// SetPublicCouponList 写入公开优惠券列表缓存
func SetPublicCouponList(ctx context.Context, value interface{}, ttl time.Duration) error {
	return SetJSON(ctx, publicCouponListKey, value, ttl)
}

// DelPublicCouponList 删除公开优惠券列表缓存（管理端变更或过期巡检后调用）
func DelPublicCouponList(ctx context.Context) error {
	return Del(ctx, publicCouponListKey)
}
