package app

import (
	"os"
	"time"

	"github.com/couponstore/internal/config"
	"github.com/couponstore/internal/logger"

	"go.uber.org/zap"
)

// 运行模式：同进程跑全部组件，或只跑 API / Worker
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logger.S()
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = 10 * time.Second
	}
	if o.Mode == "" {
		o.Mode = ModeAll
	}
	return o
}
