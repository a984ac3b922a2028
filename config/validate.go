package config

import (
	"errors"
	"fmt"
)

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 探针间隔短于存储步长 -> 对齐到步长（同一步长内只保留最后一次写入）
//   - 导出路径缺少前导 "/" -> 补齐
//   - 超时为负 -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	step := c.Storage.Step
	if step > 0 {
		if c.Probe.HostInterval < step {
			c.Probe.HostInterval = step
		}
		if c.Probe.ControlMessageInterval < step {
			c.Probe.ControlMessageInterval = step
		}
	}

	if c.Exporter.Path != "" && c.Exporter.Path[0] != '/' {
		c.Exporter.Path = "/" + c.Exporter.Path
	}

	if c.Cluster.RequestTimeout < 0 {
		c.Cluster.RequestTimeout = DefaultClusterConfig().RequestTimeout
	}
	if c.Cluster.DialTimeout <= 0 {
		c.Cluster.DialTimeout = DefaultClusterConfig().DialTimeout
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config still invalid after fix: %w", err)
	}
	return c, nil
}

// MustValidate 验证配置，失败时 panic
//
// 仅用于测试和初始化代码。
func MustValidate(c *Config) {
	if c == nil {
		panic(errors.New("config is nil"))
	}
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
}
