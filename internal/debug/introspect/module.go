package introspect

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/internal/core/cpman"
	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/types"
)

// Module 返回自省服务 Fx 模块
func Module() fx.Option {
	return fx.Module("introspect",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// IntrospectParams 自省服务依赖参数
type IntrospectParams struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Store      *storage.Store       `optional:"true"`
	Flush      metrics.FlushStatser `optional:"true"`
	Traffic    metrics.Reporter     `optional:"true"`
	Monitor    *cpman.Monitor       `optional:"true"`
}

// IntrospectOutput 自省服务输出
type IntrospectOutput struct {
	fx.Out

	Server *Server `optional:"true"`
}

// ConfigFromUnified 从统一配置创建自省服务配置
//
// 未启用时返回 nil。
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Introspect.Enable {
		return nil
	}
	addr := cfg.Introspect.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	peers := make([]string, 0, len(cfg.Cluster.Peers))
	for _, p := range cfg.Cluster.Peers {
		peers = append(peers, p.ID+"@"+p.Addr)
	}
	return &Config{
		Addr:       addr,
		NodeID:     types.NodeID(cfg.Node.ID),
		ListenAddr: cfg.Cluster.ListenAddr,
		Peers:      peers,
	}
}

// NewFromParams 从参数创建自省服务
func NewFromParams(params IntrospectParams) IntrospectOutput {
	cfg := ConfigFromUnified(params.UnifiedCfg)
	if cfg == nil {
		return IntrospectOutput{} // 禁用时返回空输出
	}

	cfg.Store = params.Store
	cfg.Flush = params.Flush
	cfg.Traffic = params.Traffic
	if params.Monitor != nil {
		cfg.Monitor = params.Monitor
	}

	return IntrospectOutput{
		Server: New(*cfg),
	}
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return // 禁用时跳过
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}
