package cpman

import (
	"context"
	"time"

	"github.com/dep2p/go-cpman/pkg/lib/future"
)

// ════════════════════════════════════════════════════════════════════════════
//                              写入
// ════════════════════════════════════════════════════════════════════════════

// Record 记录一个指标样本
//
// scope 对 CPU/内存为空，对磁盘/网卡为资源名，对控制消息为设备标识。
// 同一作用域凑齐分类的全部指标后整条写入时序存储。
func (n *Node) Record(sample MetricSample, scope string) error {
	return n.monitor.Record(sample, scope)
}

// UpdateMetric 以当前时间记录一个指标值
func (n *Node) UpdateMetric(t MetricType, value float64, scope string) error {
	return n.monitor.UpdateMetric(t, value, scope)
}

// OnControlMessage 统计设备的一条控制消息
//
// 未参与统计的消息类型返回 ErrUnmappedMessageType。
func (n *Node) OnControlMessage(device string, t OFMessageType) error {
	return n.control.OnMessage(device, t)
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// GetLoad 异步查询节点上某指标的负载
//
// node 为空或为本节点时同步计算，返回已完成的 Future。
// window 非 nil 时结果附带最近窗口内的样本。
func (n *Node) GetLoad(ctx context.Context, node NodeID, t MetricType, scope string, window *time.Duration) *future.Future[*LoadSnapshot] {
	return n.router.GetLoad(ctx, node, t, scope, window)
}

// Load 查询负载并等待结果
//
// 作用域在目标节点上不存在时返回 nil, nil。
func (n *Node) Load(ctx context.Context, node NodeID, t MetricType, scope string, window *time.Duration) (*LoadSnapshot, error) {
	return n.GetLoad(ctx, node, t, scope, window).Get(ctx)
}

// AvailableResources 异步查询节点上某分类已上报过样本的资源名
func (n *Node) AvailableResources(ctx context.Context, node NodeID, c Category) *future.Future[[]string] {
	return n.router.AvailableResources(ctx, node, c)
}

// Resources 查询资源名并等待结果
func (n *Node) Resources(ctx context.Context, node NodeID, c Category) ([]string, error) {
	return n.AvailableResources(ctx, node, c).Get(ctx)
}
