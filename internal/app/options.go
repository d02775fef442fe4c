package app

import (
	"os"
	"time"

	"github.com/fenxiao-next/internal/config"
	"github.com/fenxiao-next/internal/logger"

	"go.uber.org/zap"
)

// 运行模式：api 仅启 HTTP，worker 仅启队列消费与定时确认，all 同进程启动两者
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// Options 应用启动选项，零值字段由 normalizeOptions 补齐
type Options struct {
	Config          *config.Config
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 填充默认日志、停机超时与运行模式
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}
