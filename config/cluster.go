package config

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// Peer 集群对端
type Peer struct {
	// ID 对端节点标识
	ID string `json:"id"`

	// Addr 对端监听地址（host:port）
	Addr string `json:"addr"`
}

// ClusterConfig 集群通信配置
//
// 负载查询和资源发现通过请求/应答消息在成员之间转发。
// 未配置监听地址时只服务本地查询。
type ClusterConfig struct {
	// ListenAddr 本节点监听地址，为空则不接受远程请求
	ListenAddr string `json:"listen_addr"`

	// Peers 已知对端
	Peers []Peer `json:"peers,omitempty"`

	// DialTimeout 建立连接超时
	DialTimeout Duration `json:"dial_timeout"`

	// RequestTimeout 单个请求等待应答的超时，0 表示一直等待
	RequestTimeout Duration `json:"request_timeout"`

	// MaxMessageSize 最大消息大小（字节）
	MaxMessageSize int `json:"max_message_size"`
}

// DefaultClusterConfig 返回默认集群配置
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		DialTimeout:    Duration(5 * time.Second),
		RequestTimeout: 0,
		MaxMessageSize: 1 << 20, // 1 MB
	}
}

// Validate 验证集群配置
func (c ClusterConfig) Validate() error {
	if c.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
			return fmt.Errorf("cluster: invalid listen addr %q: %w", c.ListenAddr, err)
		}
	}
	if c.DialTimeout.Duration() <= 0 {
		return errors.New("cluster: dial timeout must be positive")
	}
	if c.RequestTimeout.Duration() < 0 {
		return errors.New("cluster: request timeout cannot be negative")
	}
	if c.MaxMessageSize <= 0 {
		return errors.New("cluster: max message size must be positive")
	}

	seen := make(map[string]struct{}, len(c.Peers))
	for _, p := range c.Peers {
		if p.ID == "" {
			return errors.New("cluster: peer id cannot be empty")
		}
		if _, _, err := net.SplitHostPort(p.Addr); err != nil {
			return fmt.Errorf("cluster: invalid addr for peer %q: %w", p.ID, err)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("cluster: duplicate peer %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// HasPeer 检查对端列表中是否包含指定节点
func (c ClusterConfig) HasPeer(id string) bool {
	for _, p := range c.Peers {
		if p.ID == id {
			return true
		}
	}
	return false
}

// PeerAddr 返回对端地址
func (c ClusterConfig) PeerAddr(id string) (string, bool) {
	for _, p := range c.Peers {
		if p.ID == id {
			return p.Addr, true
		}
	}
	return "", false
}
