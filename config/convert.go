package config

import (
	"fmt"
	"time"
)

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - standalone: 单节点，不监听集群端口
//   - cluster: 集群成员，默认监听 :7946 并设置请求超时
//   - test: 关闭所有探针、导出和自省，仅保留存储
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	switch presetName {
	case "standalone":
		cfg.Cluster.ListenAddr = ""
		cfg.Cluster.Peers = nil
	case "cluster":
		if cfg.Cluster.ListenAddr == "" {
			cfg.Cluster.ListenAddr = ":7946"
		}
		if cfg.Cluster.RequestTimeout == 0 {
			cfg.Cluster.RequestTimeout = Duration(10 * time.Second)
		}
	case "test":
		cfg.Probe.EnableHost = false
		cfg.Probe.EnableControlMessage = false
		cfg.Exporter.Enable = false
		cfg.Introspect.Enable = false
		cfg.Cluster.ListenAddr = ""
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
	return nil
}

// CloneConfig 克隆配置
//
// 切片字段会被复制，修改克隆结果不会影响原配置。
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}

	cloned := *cfg
	cloned.Probe.Disks = append([]string(nil), cfg.Probe.Disks...)
	cloned.Probe.Interfaces = append([]string(nil), cfg.Probe.Interfaces...)
	cloned.Cluster.Peers = append([]Peer(nil), cfg.Cluster.Peers...)
	return &cloned
}
