package storage

import "errors"

var (
	// ErrClosed 时序库或存储已关闭
	ErrClosed = errors.New("storage: closed")

	// ErrInvalidTimeRange 查询区间不在 [步长, 保留期] 内
	ErrInvalidTimeRange = errors.New("storage: invalid time range")

	// ErrUnknownSeries 序列不存在
	ErrUnknownSeries = errors.New("storage: unknown series")

	// ErrStaleWrite 写入时间早于保留窗口
	ErrStaleWrite = errors.New("storage: write older than retention window")

	// ErrNoSeries 创建时未指定序列
	ErrNoSeries = errors.New("storage: no series")

	// ErrDuplicateSeries 序列名重复
	ErrDuplicateSeries = errors.New("storage: duplicate series")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("storage: invalid config")
)

// IsClosed 检查是否为已关闭错误
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsInvalidTimeRange 检查是否为查询区间错误
func IsInvalidTimeRange(err error) bool {
	return errors.Is(err, ErrInvalidTimeRange)
}
