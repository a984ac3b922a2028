// Package config 提供统一的配置管理
package config

import (
	"errors"
	"time"
)

// StorageConfig 时序存储配置
//
// 每个 (分类, 作用域) 一个环形库，每个序列固定步长、固定行数。
// 默认 60 秒步长 × 1440 行 = 24 小时保留期，所有数据只在内存中。
type StorageConfig struct {
	// Step 采样步长
	Step Duration `json:"step"`

	// Rows 每个序列保留的行数
	Rows int `json:"rows"`
}

// DefaultStorageConfig 返回默认的存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Step: Duration(60 * time.Second),
		Rows: 1440,
	}
}

// Validate 验证存储配置的有效性
func (c StorageConfig) Validate() error {
	if c.Step.Duration() < time.Second {
		return errors.New("storage: step must be at least 1s")
	}
	if c.Step.Duration()%time.Second != 0 {
		return errors.New("storage: step must be a whole number of seconds")
	}
	if c.Rows <= 0 {
		return errors.New("storage: rows must be positive")
	}
	return nil
}

// Retention 返回保留时长
func (c StorageConfig) Retention() time.Duration {
	return c.Step.Duration() * time.Duration(c.Rows)
}
