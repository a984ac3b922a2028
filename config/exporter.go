package config

import (
	"errors"
	"strings"
)

// ExporterConfig Prometheus 导出配置
type ExporterConfig struct {
	// Enable 是否启用
	Enable bool `json:"enable"`

	// ListenAddr HTTP 监听地址
	ListenAddr string `json:"listen_addr"`

	// Path 指标路径
	Path string `json:"path"`
}

// DefaultExporterConfig 返回默认导出配置
func DefaultExporterConfig() ExporterConfig {
	return ExporterConfig{
		Enable:     false,
		ListenAddr: "127.0.0.1:9464",
		Path:       "/metrics",
	}
}

// Validate 验证导出配置
func (c ExporterConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.ListenAddr == "" {
		return errors.New("exporter: listen addr cannot be empty")
	}
	if !strings.HasPrefix(c.Path, "/") {
		return errors.New("exporter: path must start with /")
	}
	return nil
}
