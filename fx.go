package cpman

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/internal/core/eventbus"
	"github.com/dep2p/go-cpman/internal/core/inventory"
	"github.com/dep2p/go-cpman/internal/core/messaging"
	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/internal/core/probe"
	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/internal/debug/introspect"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/lib/log"

	engine "github.com/dep2p/go-cpman/internal/core/cpman"
)

var fxLogger = log.Logger("cpman/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 基础组件: EventBus → Storage → Inventory
//  2. 计量: Metrics（注册表、流量计数、导出）
//  3. 通信: Messaging（TCP），或用户提供的 ClusterCommunicator
//  4. 核心: Monitor / Router
//  5. 探针: HostProbe / ControlMessageListener
//  6. 诊断: Introspect（按配置）
func buildFxApp(o *options, node *Node) (*fx.App, error) {
	// ════════════════════════════════════════════════════════════════════════
	// 1. 配置验证（前置）
	// ════════════════════════════════════════════════════════════════════════
	if err := o.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		// 配置注入
		fx.Supply(o.config),

		// 基础组件
		eventbus.Module(),
		storage.Module(),
		inventory.Module(),

		// 计量
		metrics.Module(),
	}

	// ════════════════════════════════════════════════════════════════════════
	// 2. 可替换组件
	// ════════════════════════════════════════════════════════════════════════
	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}
	if o.hostSource != nil {
		src := o.hostSource
		modules = append(modules, fx.Provide(func() probe.HostSource { return src }))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 3. 集群通信
	// ════════════════════════════════════════════════════════════════════════
	if o.communicator != nil {
		comm := o.communicator
		modules = append(modules, fx.Provide(func() interfaces.ClusterCommunicator { return comm }))
		fxLogger.Debug("使用外部集群通信", "local", comm.LocalNode())
	} else {
		modules = append(modules, messaging.Module())
	}

	// ════════════════════════════════════════════════════════════════════════
	// 4. 核心、探针与诊断
	// ════════════════════════════════════════════════════════════════════════
	modules = append(modules,
		engine.Module(),
		probe.Module(),
	)

	// 本地诊断（条件加载）
	if o.config.Introspect.Enable {
		modules = append(modules, introspect.Module())
	}

	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules, fx.Invoke(injectNodeComponents(node)))

	modules = append(modules,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// nodeInjectParams 注入到 Node 的组件
type nodeInjectParams struct {
	fx.In

	Config    *config.Config
	Store     *storage.Store
	Inventory *inventory.Service
	Registry  *metrics.Registry
	Traffic   metrics.Reporter
	Monitor   *engine.Monitor
	Router    *engine.Router
	Host      *probe.HostProbe
	Control   *probe.ControlMessageListener

	Cluster interfaces.ClusterCommunicator `optional:"true"`
}

// injectNodeComponents 把 Fx 构造的组件写回 Node
func injectNodeComponents(node *Node) interface{} {
	return func(params nodeInjectParams) {
		node.cfg = params.Config
		node.store = params.Store
		node.inventory = params.Inventory
		node.registry = params.Registry
		node.traffic = params.Traffic
		node.monitor = params.Monitor
		node.router = params.Router
		node.hostProbe = params.Host
		node.control = params.Control
		node.cluster = params.Cluster
	}
}
