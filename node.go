package cpman

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/internal/core/inventory"
	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/internal/core/probe"
	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/internal/util/logger"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/lib/log"

	engine "github.com/dep2p/go-cpman/internal/core/cpman"
)

var nodeLogger = log.Logger("cpman")

// 启动超时配置
const (
	// initializeTimeout 初始化超时（Fx App Start）
	initializeTimeout = 30 * time.Second

	// shutdownTimeout Close 内部停止的超时
	shutdownTimeout = 10 * time.Second
)

// Node cpman 节点
//
// Node 是控制面遥测引擎的主入口，聚合了所有内部组件：
//   - 探针层: HostProbe, ControlMessageListener
//   - 核心层: Monitor（缓冲提交）, Router（负载查询）
//   - 基础层: Store（时序存储）, Registry（计量器）, Inventory（资源清单）
//   - 通信层: ClusterCommunicator（TCP 或进程内）
//
// 使用示例：
//
//	node, err := cpman.New(ctx,
//	    cpman.WithPreset(cpman.PresetCluster),
//	    cpman.WithNodeID("node-1"),
//	    cpman.WithPeer("node-2", "10.0.0.2:7946"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer node.Close()
//
//	if err := node.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// 查询远端节点的 CPU 负载
//	snap, err := node.Load(ctx, "node-2", types.CPULoad, "", nil)
type Node struct {
	opts *options
	app  *fx.App

	mu      sync.Mutex
	state   NodeState
	started bool
	closed  bool
	logFile *os.File

	// 由 Fx 注入
	cfg       *config.Config
	store     *storage.Store
	inventory *inventory.Service
	registry  *metrics.Registry
	traffic   metrics.Reporter
	monitor   *engine.Monitor
	router    *engine.Router
	hostProbe *probe.HostProbe
	control   *probe.ControlMessageListener
	cluster   interfaces.ClusterCommunicator
}

// New 创建节点
//
// 组件在 New 中全部构造完成，Start 之前即可记录指标和查询本地负载；
// 探针、集群监听和导出在 Start 之后才运行。
func New(_ context.Context, opts ...Option) (*Node, error) {
	o := newOptions()

	// 应用选项
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	// 外部通信决定本节点标识
	if o.communicator != nil && !o.communicator.LocalNode().IsEmpty() {
		o.config.Node.ID = o.communicator.LocalNode().String()
	}

	node := &Node{
		opts:  o,
		state: StateIdle,
	}

	if o.logFile != "" {
		f, err := os.OpenFile(o.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logger.SetOutput(f)
		node.logFile = f
	}

	app, err := buildFxApp(o, node)
	if err != nil {
		node.closeLogFile()
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	node.app = app

	return node, nil
}

// Start 快捷启动函数
//
// 创建节点并立即启动。等价于 New() + Start()。
//
// 示例：
//
//	node, err := cpman.Start(ctx, cpman.WithPreset(cpman.PresetStandalone))
func Start(ctx context.Context, opts ...Option) (*Node, error) {
	node, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	if err := node.Start(ctx); err != nil {
		_ = node.Close()
		return nil, fmt.Errorf("start node: %w", err)
	}

	return node, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              基本信息
// ════════════════════════════════════════════════════════════════════════════

// LocalNode 返回本节点标识
func (n *Node) LocalNode() NodeID {
	return n.router.LocalNode()
}

// Config 返回节点配置的副本
func (n *Node) Config() *config.Config {
	return config.CloneConfig(n.cfg)
}

// State 返回节点状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// IsRunning 节点是否在运行
func (n *Node) IsRunning() bool {
	return n.State() == StateRunning
}

// ════════════════════════════════════════════════════════════════════════════
//                              组件访问
// ════════════════════════════════════════════════════════════════════════════

// Monitor 返回指标缓冲提交引擎
func (n *Node) Monitor() *engine.Monitor { return n.monitor }

// Router 返回负载查询路由
func (n *Node) Router() *engine.Router { return n.router }

// Store 返回时序存储
func (n *Node) Store() *storage.Store { return n.store }

// Registry 返回计量器注册表
func (n *Node) Registry() *metrics.Registry { return n.registry }

// Inventory 返回资源清单
func (n *Node) Inventory() *inventory.Service { return n.inventory }

// Traffic 返回集群流量统计
func (n *Node) Traffic() metrics.Reporter { return n.traffic }

// HostProbe 返回主机探针
func (n *Node) HostProbe() *probe.HostProbe { return n.hostProbe }

// ControlMessages 返回控制消息监听器
func (n *Node) ControlMessages() *probe.ControlMessageListener { return n.control }

// Cluster 返回集群通信，未配置时为 nil
func (n *Node) Cluster() interfaces.ClusterCommunicator { return n.cluster }

func (n *Node) closeLogFile() {
	if n.logFile == nil {
		return
	}
	logger.SetOutput(os.Stderr)
	_ = n.logFile.Close()
	n.logFile = nil
}
