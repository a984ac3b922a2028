package interfaces

import (
	"context"

	"github.com/dep2p/go-cpman/pkg/lib/future"
	"github.com/dep2p/go-cpman/pkg/types"
)

// Handler 处理来自集群成员的请求
//
// 返回的字节作为应答发回请求方；返回错误时请求方的 Future 以错误完成。
type Handler func(ctx context.Context, from types.NodeID, payload []byte) ([]byte, error)

// ClusterCommunicator 集群请求/应答通信
//
// 超时、重试和连接管理都由实现负责。
type ClusterCommunicator interface {
	// LocalNode 返回本节点标识
	LocalNode() types.NodeID

	// SendAndReceive 向 to 发送请求，应答到达时 Future 完成
	SendAndReceive(ctx context.Context, subject string, payload []byte, to types.NodeID) *future.Future[[]byte]

	// AddSubscriber 注册主题处理器，重复注册返回错误
	AddSubscriber(subject string, h Handler) error

	// RemoveSubscriber 移除主题处理器
	RemoveSubscriber(subject string)
}
