// Package logger 管理 cpman 各子系统的 slog.Logger
//
// 每个子系统一个 Logger，级别可以单独设置：
//
//	CPMAN_LOG_LEVEL=messaging=debug,core/storage=warn,info
//	CPMAN_LOG_FORMAT=json
//
// 运行时可用 ApplyLevels 调整级别，用 SetOutput 切换输出目标，
// 已创建的 Logger 立即生效。
//
// 内部包直接使用本包：
//
//	var log = logger.Logger("messaging")
//	log.Info("集群通信已启动", "addr", addr)
//
// 其余组件通过 pkg/lib/log 的 LazyLogger 间接使用。
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 子系统名 → *slog.Logger
	loggers sync.Map

	// handlers 子系统名 → *subsystemHandler，用于调整级别
	handlers sync.Map
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回同一个实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	cfg := ConfigFromEnv()
	h := newHandler(subsystem, cfg.LevelForSubsystem(subsystem), cfg.Format)

	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		handlers.Store(subsystem, h)
	}
	return actual.(*slog.Logger)
}

// SetLevel 设置单个子系统的级别
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// Discard 返回丢弃所有日志的 Logger
func Discard() *slog.Logger {
	return slog.New(DiscardHandler())
}

// SetOutput 设置全部子系统的输出目标
//
// 已创建的 Logger 经由 dynamicWriter 写出，切换后立即生效。
func SetOutput(w io.Writer) {
	globalOutputMu.Lock()
	globalOutput = w
	globalOutputMu.Unlock()
}
