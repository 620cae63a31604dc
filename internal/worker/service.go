package worker

import (
	"context"
	"errors"
	"time"

	"github.com/couponstore/internal/config"
	"github.com/couponstore/internal/logger"
	"github.com/couponstore/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultExpireSweepInterval = 10 * time.Minute

// Service 异步队列服务
type Service struct {
	server        *asynq.Server
	mux           *asynq.ServeMux
	consumer      *Consumer
	sweepInterval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.Config, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Queue.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}

	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	mux := asynq.NewServeMux()
	consumer.Register(mux)

	s := &Service{
		server:        asynq.NewServer(opt, serverCfg),
		mux:           mux,
		consumer:      consumer,
		sweepInterval: defaultExpireSweepInterval,
	}
	if cfg.Coupon.ExpireSweepMinutes > 0 {
		s.sweepInterval = time.Duration(cfg.Coupon.ExpireSweepMinutes) * time.Minute
	}
	return s, nil
}

// Name 服务名称
func (s *Service) Name() string {
	return "worker"
}

// Start 启动消费循环，阻塞直到队列服务退出
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	go s.scheduleExpireSweep(ctx)
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// scheduleExpireSweep 启动后先触发一次过期下线，之后按周期重复
func (s *Service) scheduleExpireSweep(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.QueueClient == nil {
		return
	}

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		if err := s.consumer.QueueClient.EnqueueCouponExpireSweep(); err != nil {
			logger.Warnw("worker_coupon_expire_enqueue_failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
