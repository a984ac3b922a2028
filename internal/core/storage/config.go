package storage

import (
	"fmt"
	"time"

	"github.com/dep2p/go-cpman/config"
)

const (
	// DefaultStep 默认步长
	DefaultStep = 60 * time.Second

	// DefaultRows 默认行数（60s × 1440 = 24h）
	DefaultRows = 1440
)

// Config Storage 模块配置
type Config struct {
	// Step 采样步长，必须是整秒
	Step time.Duration

	// Rows 每个序列保留的行数
	Rows int
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Step: DefaultStep,
		Rows: DefaultRows,
	}
}

// ConfigFromUnified 从统一配置创建 Storage 配置
func ConfigFromUnified(cfg *config.Config) Config {
	storageCfg := DefaultConfig()

	if cfg == nil {
		return storageCfg
	}

	if cfg.Storage.Step > 0 {
		storageCfg.Step = cfg.Storage.Step.Duration()
	}
	if cfg.Storage.Rows > 0 {
		storageCfg.Rows = cfg.Storage.Rows
	}
	return storageCfg
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Step < time.Second || c.Step%time.Second != 0 {
		return fmt.Errorf("%w: step %s", ErrInvalidConfig, c.Step)
	}
	if c.Rows <= 0 {
		return fmt.Errorf("%w: rows %d", ErrInvalidConfig, c.Rows)
	}
	return nil
}

// Options 转换为时序库选项
func (c Config) Options() []Option {
	return []Option{WithStep(c.Step), WithRows(c.Rows)}
}
