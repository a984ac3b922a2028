// Package cpman 实现控制面指标的缓冲提交、负载统计和集群查询路由
//
// 写路径：探针 → Monitor（按作用域凑齐一条记录）→ 时序存储。
// 读路径：查询 → Router → 本地 LoadView，或远端 Router 的应答。
package cpman

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/internal/core/eventbus"
	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/types"
)

// Params 模块依赖
type Params struct {
	fx.In

	UnifiedCfg *config.Config                 `optional:"true"`
	Store      *storage.Store
	Cluster    interfaces.ClusterCommunicator `optional:"true"`
}

// Result 模块提供的结果
type Result struct {
	fx.Out

	Monitor *Monitor
	Router  *Router
	Flush   metrics.FlushStatser
}

// Module 返回 fx 模块配置
//
// 提供:
//   - *Monitor: 指标缓冲与提交
//   - *Router: 负载查询路由
//   - metrics.FlushStatser: 提交计数，供指标导出使用
//
// 生命周期:
//   - OnStart: 订阅库存事件，注册查询主题
//   - OnStop: 移除查询主题，结束订阅
func Module() fx.Option {
	return fx.Module("cpman",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

// Provide 构造 Monitor 和 Router
func Provide(p Params) (Result, error) {
	m, err := NewMonitor(p.Store)
	if err != nil {
		return Result{}, err
	}

	local := types.NodeID(config.DefaultNodeConfig().ID)
	if p.UnifiedCfg != nil {
		local = types.NodeID(p.UnifiedCfg.Node.ID)
	}

	return Result{
		Monitor: m,
		Router:  NewRouter(m, p.Cluster, local),
		Flush:   m,
	}, nil
}

type lifecycleInput struct {
	fx.In

	LC      fx.Lifecycle
	Monitor *Monitor
	Router  *Router
	Bus     *eventbus.Bus `optional:"true"`
}

func registerLifecycle(in lifecycleInput) error {
	var sub *eventbus.Subscription[types.InventoryEvent]
	if in.Bus != nil {
		var err error
		sub, err = eventbus.Subscribe[types.InventoryEvent](in.Bus, eventbus.BufSize(256))
		if err != nil {
			return err
		}
	}
	done := make(chan struct{})

	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				if sub == nil {
					return
				}
				for ev := range sub.Out() {
					in.Monitor.HandleInventoryEvent(ev)
				}
			}()
			return in.Router.Start()
		},
		OnStop: func(_ context.Context) error {
			in.Router.Stop()
			if sub != nil {
				_ = sub.Close()
			}
			<-done
			return nil
		},
	})
	return nil
}
