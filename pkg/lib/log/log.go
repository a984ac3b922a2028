// Package log 提供按组件命名的日志入口
//
// 组件 logger 在第一次输出时才向 internal/util/logger 取得子系统 Logger，
// 因此命令行 --log-level 和 WithLogFile 在包初始化之后设置也能生效。
// 级别、格式和输出目标统一由 internal/util/logger 管理。
package log

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/dep2p/go-cpman/internal/util/logger"
)

// LazyLogger 懒加载的组件 logger
//
// 使用方式：
//
//	var logger = log.Logger("core/storage")
//	logger.Info("数据库已创建", "name", name)
type LazyLogger struct {
	component string
	cached    atomic.Pointer[slog.Logger]
}

// Logger 返回带组件名的 LazyLogger
//
// 组件名即子系统名，CPMAN_LOG_LEVEL=core/storage=debug 可单独调整。
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) get() *slog.Logger {
	if s := l.cached.Load(); s != nil {
		return s
	}
	s := logger.Logger(l.component)
	l.cached.Store(s)
	return s
}

// Component 返回组件名
func (l *LazyLogger) Component() string { return l.component }

// Enabled 报告该级别是否会输出
func (l *LazyLogger) Enabled(level slog.Level) bool {
	return l.get().Enabled(context.Background(), level)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) { l.get().Debug(msg, args...) }

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) { l.get().Info(msg, args...) }

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) { l.get().Warn(msg, args...) }

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) { l.get().Error(msg, args...) }

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.get().DebugContext(ctx, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.get().WarnContext(ctx, msg, args...)
}

// With 返回附加属性的 slog.Logger
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.get().With(args...)
}

// ============================================================================
//                              全局设置
// ============================================================================

// SetOutput 把所有组件的日志重定向到 w
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetLevels 按 CPMAN_LOG_LEVEL 的格式调整级别
//
// 示例：
//
//	log.SetLevels("messaging=debug,warn")
func SetLevels(levels string) error {
	return logger.ApplyLevels(levels)
}

// TruncateID 安全截取 ID 用于日志显示
func TruncateID(id string, maxLen int) string {
	if maxLen < 0 || len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}
