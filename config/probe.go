package config

import (
	"errors"
	"time"
)

// ProbeConfig 本地探针配置
//
// 配置两类探针：
//   - Host: 主机 CPU/内存/磁盘/网卡
//   - ControlMessage: 按设备统计的控制消息
type ProbeConfig struct {
	// EnableHost 启用主机探针
	EnableHost bool `json:"enable_host"`

	// HostInterval 主机探针采集间隔
	HostInterval Duration `json:"host_interval"`

	// Disks 只采集这些磁盘（为空则全部）
	Disks []string `json:"disks,omitempty"`

	// Interfaces 只采集这些网卡（为空则全部）
	Interfaces []string `json:"interfaces,omitempty"`

	// EnableControlMessage 启用控制消息统计
	EnableControlMessage bool `json:"enable_control_message"`

	// ControlMessageInterval 控制消息负载的提交间隔
	ControlMessageInterval Duration `json:"control_message_interval"`
}

// DefaultProbeConfig 返回默认探针配置
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		EnableHost:             true,
		HostInterval:           Duration(60 * time.Second), // 与存储步长一致
		EnableControlMessage:   true,
		ControlMessageInterval: Duration(60 * time.Second),
	}
}

// Validate 验证探针配置
func (c ProbeConfig) Validate() error {
	if c.EnableHost && c.HostInterval.Duration() < time.Second {
		return errors.New("probe: host interval must be at least 1s")
	}
	if c.EnableControlMessage && c.ControlMessageInterval.Duration() < time.Second {
		return errors.New("probe: control message interval must be at least 1s")
	}
	return nil
}

// WantDisk 检查是否采集指定磁盘
func (c ProbeConfig) WantDisk(name string) bool {
	return len(c.Disks) == 0 || contains(c.Disks, name)
}

// WantInterface 检查是否采集指定网卡
func (c ProbeConfig) WantInterface(name string) bool {
	return len(c.Interfaces) == 0 || contains(c.Interfaces, name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
