package metrics

import (
	"github.com/dep2p/go-cpman/pkg/types"
)

// Reporter 记录集群消息流量
//
// 集群通信层在每次收发请求/应答时调用，按对端和主题分别统计。
type Reporter interface {
	// LogSentMessage 记录发往 peer 的消息大小
	LogSentMessage(size int64, subject string, peer types.NodeID)

	// LogRecvMessage 记录来自 peer 的消息大小
	LogRecvMessage(size int64, subject string, peer types.NodeID)

	// Totals 获取总流量统计
	Totals() Stats

	// ForPeer 获取对端流量统计
	ForPeer(peer types.NodeID) Stats

	// ForSubject 获取主题流量统计
	ForSubject(subject string) Stats

	// ByPeer 获取所有对端流量统计
	ByPeer() map[types.NodeID]Stats

	// BySubject 获取所有主题流量统计
	BySubject() map[string]Stats

	// Reset 重置所有统计
	Reset()
}

// 确保 TrafficCounter 实现 Reporter 接口
var _ Reporter = (*TrafficCounter)(nil)
