package cpman

import (
	"errors"

	"github.com/dep2p/go-cpman/internal/core/cpman"
	"github.com/dep2p/go-cpman/internal/core/probe"
	"github.com/dep2p/go-cpman/internal/core/storage"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 节点生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ────────────────────────────────────────────────────────────────────────
	// 查询与记录错误（内部包的同一实例，可直接 errors.Is）
	// ────────────────────────────────────────────────────────────────────────

	// ErrInvalidMetricType 无效的指标类型
	ErrInvalidMetricType = cpman.ErrInvalidMetricType

	// ErrInvalidCategory 无效的指标分类
	ErrInvalidCategory = cpman.ErrInvalidCategory

	// ErrInvalidScope 作用域与分类不匹配
	ErrInvalidScope = cpman.ErrInvalidScope

	// ErrNoCommunicator 未配置集群通信
	ErrNoCommunicator = cpman.ErrNoCommunicator

	// ErrUnmappedMessageType 控制消息类型不参与统计
	ErrUnmappedMessageType = probe.ErrUnmappedMessageType

	// ErrInvalidTimeRange 查询时间窗口无效
	ErrInvalidTimeRange = storage.ErrInvalidTimeRange
)
