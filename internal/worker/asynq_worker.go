package worker

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/couponstore/internal/cache"
	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/provider"
	"github.com/couponstore/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderReceipt, c.handleOrderReceipt)
	mux.HandleFunc(queue.TaskCouponExpire, c.handleCouponExpireSweep)
}

// handleOrderReceipt 订单回执：生成结构化回执日志记录
func (c *Consumer) handleOrderReceipt(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_receipt_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderReceiptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_receipt_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_receipt_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	order, err := c.OrderRepo.GetByID(payload.OrderID)
	if err != nil {
		logger.Warnw("worker_order_receipt_fetch_order_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if order == nil {
		logger.Debugw("worker_order_receipt_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}

	var receiverEmail string
	if order.UserID != 0 {
		user, err := c.UserRepo.GetByID(order.UserID)
		if err != nil {
			logger.Warnw("worker_order_receipt_fetch_user_failed", "order_id", order.ID, "user_id", order.UserID, "error", err)
			return err
		}
		if user != nil {
			receiverEmail = strings.TrimSpace(user.Email)
		}
	}

	logger.Infow("order_receipt_generated",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"user_id", order.UserID,
		"receiver", receiverEmail,
		"subtotal", order.Subtotal.String(),
		"discount", order.DiscountAmount.String(),
		"final_total", order.FinalTotal.String(),
		"coupon_code", order.CouponCodeUsed,
		"item_count", len(order.Items),
	)
	return nil
}

// handleCouponExpireSweep 过期优惠券下线：批量停用并刷新公开列表缓存
func (c *Consumer) handleCouponExpireSweep(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_coupon_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.CouponExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_coupon_expire_unmarshal_failed", "error", err)
		return err
	}

	affected, err := c.CouponRepo.DeactivateExpired(time.Now())
	if err != nil {
		logger.Warnw("worker_coupon_expire_sweep_failed", "error", err)
		return err
	}
	if affected > 0 {
		if err := cache.DelPublicCouponList(ctx); err != nil {
			logger.Warnw("worker_coupon_expire_cache_invalidate_failed", "error", err)
		}
		logger.Infow("coupon_expire_sweep_done", "deactivated", affected)
	}
	return nil
}
