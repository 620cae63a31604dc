package queue

import (
	"encoding/json"

	"github.com/couponstore/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderReceipt 订单回执任务
	TaskOrderReceipt = constants.TaskOrderReceipt
	// TaskCouponExpire 过期优惠券下线任务
	TaskCouponExpire = constants.TaskCouponExpire
)

// OrderReceiptPayload 订单回执任务负载
type OrderReceiptPayload struct {
	OrderID uint   `json:"order_id"`
	UserID  uint   `json:"user_id"`
	OrderNo string `json:"order_no"`
}

// NewOrderReceiptTask 构建订单回执任务
func NewOrderReceiptTask(payload OrderReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderReceipt, data), nil
}

// CouponExpirePayload 过期优惠券下线任务负载
type CouponExpirePayload struct {
	RequestedAt int64 `json:"requested_at"`
}

// NewCouponExpireTask 构建过期优惠券下线任务
func NewCouponExpireTask(payload CouponExpirePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCouponExpire, data), nil
}
