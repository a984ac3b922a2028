// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Node.ID = "node-1"
//	cfg.Cluster.ListenAddr = ":7946"
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Config 是 cpman 的完整配置结构
//
// 配置按照功能模块组织：
//   - Node: 本节点身份
//   - Storage: 时序存储（步长、保留行数）
//   - Probe: 本地探针（主机指标、控制消息）
//   - Cluster: 集群通信（监听地址、对端列表）
//   - Exporter: Prometheus 导出
//   - Introspect: 本地诊断 HTTP 服务
type Config struct {
	// Node 节点配置
	Node NodeConfig `json:"node"`

	// Storage 时序存储配置
	Storage StorageConfig `json:"storage"`

	// Probe 探针配置
	Probe ProbeConfig `json:"probe"`

	// Cluster 集群通信配置
	Cluster ClusterConfig `json:"cluster"`

	// Exporter 指标导出配置
	Exporter ExporterConfig `json:"exporter"`

	// Introspect 本地自省服务配置
	Introspect IntrospectConfig `json:"introspect"`
}

// NodeConfig 节点配置
type NodeConfig struct {
	// ID 本节点在集群中的标识
	ID string `json:"id"`
}

// DefaultNodeConfig 返回默认节点配置
//
// 默认使用主机名作为节点标识。
func DefaultNodeConfig() NodeConfig {
	id, err := os.Hostname()
	if err != nil || id == "" {
		id = "local"
	}
	return NodeConfig{ID: id}
}

// Validate 验证节点配置
func (c NodeConfig) Validate() error {
	if c.ID == "" {
		return errors.New("node: id cannot be empty")
	}
	return nil
}

// NewConfig 创建默认配置
//
// 返回的配置使用所有组件的默认值，适用于大多数场景。
func NewConfig() *Config {
	return &Config{
		Node:       DefaultNodeConfig(),
		Storage:    DefaultStorageConfig(),
		Probe:      DefaultProbeConfig(),
		Cluster:    DefaultClusterConfig(),
		Exporter:   DefaultExporterConfig(),
		Introspect: DefaultIntrospectConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Probe.Validate(); err != nil {
		return err
	}
	if err := c.Cluster.Validate(); err != nil {
		return err
	}
	if err := c.Exporter.Validate(); err != nil {
		return err
	}
	if err := c.Introspect.Validate(); err != nil {
		return err
	}
	if c.Cluster.HasPeer(c.Node.ID) {
		return fmt.Errorf("cluster: peer list contains the local node %q", c.Node.ID)
	}
	return nil
}

// FromJSON 从 JSON 加载配置
//
// 未出现的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile 从文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 序列化配置
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
