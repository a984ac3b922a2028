package cpman

import (
	"errors"

	"github.com/dep2p/go-cpman/pkg/types"
)

var (
	// ErrInvalidMetricType 无效的指标类型
	ErrInvalidMetricType = types.ErrInvalidMetricType

	// ErrInvalidCategory 无效的指标分类
	ErrInvalidCategory = types.ErrInvalidCategory

	// ErrInvalidScope 作用域与分类不匹配
	ErrInvalidScope = types.ErrInvalidScope

	// ErrNoCommunicator 未配置集群通信，无法查询远端节点
	ErrNoCommunicator = errors.New("no cluster communicator")

	// ErrMalformedMessage 请求或应答无法解码
	ErrMalformedMessage = errors.New("malformed message")
)
