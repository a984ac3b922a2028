// Package messaging 提供集群请求/应答通信
//
// 两种实现:
//   - Communicator: 基于 TCP 短连接，跨进程部署使用
//   - Hub/HubMember: 进程内投递，单机多实例和测试使用
//
// 帧格式为长度前缀字段，请求以 uuid 标识。
package messaging

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/internal/util/logger"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/types"
)

// 包级别日志实例
var log = logger.Logger("messaging")

// ConfigFromUnified 从统一配置创建通信配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.LocalID = types.NodeID(cfg.Node.ID)
	c.ListenAddr = cfg.Cluster.ListenAddr
	c.DialTimeout = cfg.Cluster.DialTimeout.Duration()
	c.RequestTimeout = cfg.Cluster.RequestTimeout.Duration()
	c.MaxMessageSize = cfg.Cluster.MaxMessageSize
	for _, p := range cfg.Cluster.Peers {
		c.Peers[types.NodeID(p.ID)] = p.Addr
	}
	return c
}

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// UnifiedCfg 统一配置（可选）
	UnifiedCfg *config.Config `optional:"true"`

	// Traffic 流量计数器（可选）
	Traffic metrics.Reporter `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Communicator TCP 通信服务
	Communicator *Communicator

	// Cluster 以接口形式提供给上层
	Cluster interfaces.ClusterCommunicator
}

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	c, err := NewCommunicator(ConfigFromUnified(input.UnifiedCfg), input.Traffic)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Communicator: c, Cluster: c}, nil
}

// Module 返回 fx 模块配置
//
// 提供:
//   - *Communicator
//   - interfaces.ClusterCommunicator
//
// 生命周期:
//   - OnStart: 开始监听
//   - OnStop: 关闭监听，等待中的请求以 ErrServiceClosed 失败
func Module() fx.Option {
	return fx.Module("messaging",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC           fx.Lifecycle
	Communicator *Communicator
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Communicator.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return input.Communicator.Stop(ctx)
		},
	})
}
