package metrics

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/internal/core/eventbus"
	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/types"
)

// Config 指标配置
type Config struct {
	// ExporterEnabled 是否启用 Prometheus 导出
	ExporterEnabled bool

	// ListenAddr 导出监听地址
	ListenAddr string

	// Path 导出路径
	Path string

	// SnapshotInterval 快照日志间隔
	SnapshotInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	exp := config.DefaultExporterConfig()
	return Config{
		ExporterEnabled:  exp.Enable,
		ListenAddr:       exp.ListenAddr,
		Path:             exp.Path,
		SnapshotInterval: 5 * time.Minute,
	}
}

// ConfigFromUnified 从统一配置创建指标配置
func ConfigFromUnified(cfg *config.Config) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	c.ExporterEnabled = cfg.Exporter.Enable
	c.ListenAddr = cfg.Exporter.ListenAddr
	c.Path = cfg.Exporter.Path
	return c
}

// Params Metrics 依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Result Metrics 模块提供的结果
type Result struct {
	fx.Out

	Registry *Registry
	Traffic  Reporter
	Config   Config
}

// Module 是 metrics 的 Fx 模块
//
// 提供:
//   - *Registry: 计量器注册表（已完成全局初始化，订阅资源清单事件）
//   - Reporter: 集群流量计数器
//
// 生命周期:
//   - OnStart: 启动资源事件订阅、快照日志，按配置启动 Prometheus 导出
//   - OnStop: 逆序关闭
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideMetrics),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideMetrics 提供注册表和流量计数器
func ProvideMetrics(p Params) Result {
	reg := NewRegistry(p.Clock)
	reg.InitGlobal()

	return Result{
		Registry: reg,
		Traffic:  NewTrafficCounter(p.Clock),
		Config:   ConfigFromUnified(p.UnifiedCfg),
	}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC       fx.Lifecycle
	Config   Config
	Clock    clock.Clock `optional:"true"`
	Registry *Registry
	Traffic  Reporter
	Bus      *eventbus.Bus
	Store    *storage.Store
	Flush    FlushStatser `optional:"true"`
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(in lifecycleInput) error {
	sub, err := eventbus.Subscribe[types.InventoryEvent](in.Bus, eventbus.BufSize(256))
	if err != nil {
		return err
	}

	var exporter *Exporter
	if in.Config.ExporterEnabled {
		exporter, err = NewExporter(in.Config.ListenAddr, in.Config.Path,
			NewCollector(in.Store, in.Flush, in.Traffic, in.Registry))
		if err != nil {
			return err
		}
	}

	snapshots := NewSnapshotCollector(in.Clock, in.Store, in.Registry, in.Flush, in.Traffic)
	done := make(chan struct{})

	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				for ev := range sub.Out() {
					in.Registry.HandleInventoryEvent(ev)
				}
			}()

			snapshots.Start(in.Config.SnapshotInterval)

			if exporter != nil {
				return exporter.Start()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var err error
			if exporter != nil {
				err = exporter.Stop(ctx)
			}
			snapshots.Stop()
			_ = sub.Close()
			<-done
			return err
		},
	})
	return nil
}
