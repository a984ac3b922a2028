package cpman

import (
	"github.com/dep2p/go-cpman/config"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置常量
// ════════════════════════════════════════════════════════════════════════════

// 预设名称常量
const (
	// PresetStandalone 单节点，不监听集群端口
	PresetStandalone = "standalone"

	// PresetCluster 集群成员，默认监听 :7946
	PresetCluster = "cluster"

	// PresetTest 关闭所有探针和导出，仅保留存储与查询
	PresetTest = "test"
)

// WithPreset 应用预设配置
//
// 预设直接修改当前配置，之后的选项可以覆盖预设中的值。
//
// 示例:
//
//	node, err := cpman.New(ctx,
//	    cpman.WithPreset(cpman.PresetCluster),
//	    cpman.WithPeer("node-2", "10.0.0.2:7946"),
//	)
func WithPreset(name string) Option {
	return func(o *options) error {
		return config.ApplyPreset(o.config, name)
	}
}

// GetStandaloneConfig 获取单节点配置
func GetStandaloneConfig() *config.Config {
	return presetConfig(PresetStandalone)
}

// GetClusterConfig 获取集群成员配置
func GetClusterConfig() *config.Config {
	return presetConfig(PresetCluster)
}

func presetConfig(name string) *config.Config {
	cfg := config.NewConfig()
	_ = config.ApplyPreset(cfg, name)
	return cfg
}
