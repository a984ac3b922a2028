// Package probe 实现本地指标探针
//
// HostProbe 通过 gopsutil 采集 CPU、内存、磁盘、网卡；
// ControlMessageListener 按设备统计 OpenFlow 控制消息。
// 两者都只通过 Recorder 写入，不直接访问时序存储。
package probe

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/internal/core/cpman"
	"github.com/dep2p/go-cpman/internal/core/inventory"
	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/pkg/lib/log"
)

var logger = log.Logger("core/probe")

// Params 模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
	Source     HostSource     `optional:"true"`
	Monitor    *cpman.Monitor
	Registry   *metrics.Registry
	Inventory  *inventory.Service
}

// Result 模块提供的结果
type Result struct {
	fx.Out

	Host    *HostProbe
	Control *ControlMessageListener
}

// Module 返回 fx 模块配置
//
// 提供:
//   - *HostProbe
//   - *ControlMessageListener
//
// 生命周期:
//   - OnStart: 按配置启动两类探针
//   - OnStop: 停止探针
func Module() fx.Option {
	return fx.Module("probe",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

// Provide 构造探针
func Provide(p Params) Result {
	cfg := config.DefaultProbeConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Probe
	}

	host := NewHostProbe(HostConfig{
		Interval:      cfg.HostInterval.Duration(),
		WantDisk:      cfg.WantDisk,
		WantInterface: cfg.WantInterface,
	}, p.Source, p.Monitor, p.Registry, p.Inventory, p.Clock)

	control := NewControlMessageListener(cfg.ControlMessageInterval.Duration(),
		p.Registry, p.Monitor, p.Inventory, p.Clock)

	return Result{Host: host, Control: control}
}

type lifecycleInput struct {
	fx.In

	LC         fx.Lifecycle
	UnifiedCfg *config.Config `optional:"true"`
	Host       *HostProbe
	Control    *ControlMessageListener
}

func registerLifecycle(in lifecycleInput) {
	cfg := config.DefaultProbeConfig()
	if in.UnifiedCfg != nil {
		cfg = in.UnifiedCfg.Probe
	}

	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if cfg.EnableHost {
				in.Host.Start()
			}
			if cfg.EnableControlMessage {
				in.Control.Start()
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			in.Control.Stop()
			in.Host.Stop()
			return nil
		},
	})
}
