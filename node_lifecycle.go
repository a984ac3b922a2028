package cpman

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// ════════════════════════════════════════════════════════════════════════════
//                              生命周期
// ════════════════════════════════════════════════════════════════════════════

// Start 启动节点
//
// 依次启动各模块的 OnStart：事件订阅、导出、集群监听、查询主题注册、探针。
// 任一模块启动失败时已启动的模块会被逆序停止。
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}

	if n.started {
		return ErrAlreadyStarted
	}

	n.state = StateStarting
	nodeLogger.Info("正在启动节点", "node", n.cfg.Node.ID)

	initCtx, initCancel := context.WithTimeout(ctx, initializeTimeout)
	defer initCancel()

	if err := n.app.Start(initCtx); err != nil {
		n.state = StateStopped
		nodeLogger.Error("节点启动失败", "error", err)
		return fmt.Errorf("initialize failed: %w", err)
	}

	n.started = true
	n.state = StateRunning
	nodeLogger.Info("节点已启动",
		"node", n.cfg.Node.ID,
		"listen", n.cfg.Cluster.ListenAddr,
		"peers", len(n.cfg.Cluster.Peers))
	return nil
}

// Stop 停止节点
//
// 按启动的逆序调用 OnStop。探针停止后不再产生新记录，
// 集群通信上等待中的请求以错误完成，时序存储随之关闭。
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}

	if !n.started {
		return ErrNotStarted
	}

	return n.stopLocked(ctx)
}

func (n *Node) stopLocked(ctx context.Context) error {
	n.state = StateStopping
	nodeLogger.Info("正在停止节点")

	err := n.app.Stop(ctx)

	// 即使停止出错，也标记为已停止
	n.state = StateStopped
	n.started = false

	if err != nil {
		nodeLogger.Error("停止节点失败", "error", err)
		return fmt.Errorf("stop fx app: %w", err)
	}
	nodeLogger.Info("节点已停止")
	return nil
}

// Close 关闭节点并释放所有资源
//
// 与 Stop 的区别：Close 之后节点不可再使用，重复调用返回 nil。
// 未启动过的节点直接关闭存储和事件总线。
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error
	if n.started {
		err = n.stopLocked(ctx)
	} else if n.state == StateIdle {
		// Fx 应用未启动，OnStop 不会执行
		err = multierr.Combine(n.store.Close(), n.inventory.Close())
	}

	n.closed = true
	n.state = StateStopped
	n.closeLogFile()
	return err
}
