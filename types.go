package cpman

import (
	"github.com/dep2p/go-cpman/internal/core/probe"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/types"
)

// ════════════════════════════════════════════════════════════════════════════
//                              节点状态
// ════════════════════════════════════════════════════════════════════════════

// NodeState 节点状态
//
// 表示节点在生命周期中的当前阶段。
type NodeState int

const (
	// StateIdle 空闲状态（已创建，未启动）
	StateIdle NodeState = iota

	// StateStarting 启动中（Fx App 启动中）
	StateStarting

	// StateRunning 运行中（正常工作状态）
	StateRunning

	// StateStopping 停止中（正在关闭组件）
	StateStopping

	// StateStopped 已停止
	StateStopped
)

// String 返回状态的字符串表示
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              类型别名
// ════════════════════════════════════════════════════════════════════════════

type (
	// NodeID 集群成员标识
	NodeID = types.NodeID

	// MetricType 指标类型
	MetricType = types.MetricType

	// Category 指标分类
	Category = types.Category

	// MetricSample 一次指标更新
	MetricSample = types.MetricSample

	// LoadSnapshot 一条序列的负载统计
	LoadSnapshot = types.LoadSnapshot

	// ClusterCommunicator 集群请求/应答通信
	ClusterCommunicator = interfaces.ClusterCommunicator

	// HostSource 主机计数器来源
	HostSource = probe.HostSource

	// OFMessageType 控制消息类型
	OFMessageType = probe.OFMessageType
)
