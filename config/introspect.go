package config

import (
	"errors"
	"net"
)

// IntrospectConfig 本地自省服务配置
//
// 自省服务以 JSON 输出节点、存储、流量和运行时诊断信息，并挂载 pprof。
type IntrospectConfig struct {
	// Enable 是否启用
	Enable bool `json:"enable"`

	// Addr 监听地址，默认只绑定本地
	Addr string `json:"addr"`
}

// DefaultIntrospectConfig 返回默认自省配置
func DefaultIntrospectConfig() IntrospectConfig {
	return IntrospectConfig{
		Enable: false,
		Addr:   "127.0.0.1:6060",
	}
}

// Validate 验证自省配置
func (c IntrospectConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if c.Addr == "" {
		return errors.New("introspect: addr cannot be empty")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.New("introspect: invalid addr " + c.Addr)
	}
	return nil
}
