package cpman

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/lib/future"
	"github.com/dep2p/go-cpman/pkg/types"
)

// 集群消息主题
const (
	// SubjectLoadRequest 负载查询
	SubjectLoadRequest = "cpman-load-request"

	// SubjectResourceRequest 资源发现
	SubjectResourceRequest = "cpman-resource-request"
)

// Router 负载查询路由
//
// 目标为本节点时同步计算，返回已完成的 Future；否则编码请求交给集群通信，
// 应答到达时 Future 完成。Router 本身不设超时和重试。
type Router struct {
	monitor *Monitor
	comm    interfaces.ClusterCommunicator
	local   types.NodeID

	mu      sync.Mutex
	started bool
}

// NewRouter 创建 Router
//
// comm 为 nil 时只能查询本节点，local 为本节点标识。
func NewRouter(monitor *Monitor, comm interfaces.ClusterCommunicator, local types.NodeID) *Router {
	if comm != nil {
		local = comm.LocalNode()
	}
	return &Router{monitor: monitor, comm: comm, local: local}
}

// LocalNode 返回本节点标识
func (r *Router) LocalNode() types.NodeID {
	return r.local
}

// Start 注册两个查询主题的处理器
func (r *Router) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || r.comm == nil {
		return nil
	}
	if err := r.comm.AddSubscriber(SubjectLoadRequest, r.handleLoadRequest); err != nil {
		return err
	}
	if err := r.comm.AddSubscriber(SubjectResourceRequest, r.handleResourceRequest); err != nil {
		r.comm.RemoveSubscriber(SubjectLoadRequest)
		return err
	}
	r.started = true
	logger.Info("负载查询路由已启动", "node", r.local)
	return nil
}

// Stop 移除处理器
func (r *Router) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return
	}
	r.comm.RemoveSubscriber(SubjectLoadRequest)
	r.comm.RemoveSubscriber(SubjectResourceRequest)
	r.started = false
}

// ============================================================================
//                              查询
// ============================================================================

// GetLoad 查询节点上某指标的负载快照
//
// 作用域在目标节点上不存在时结果为 nil，不是错误。
func (r *Router) GetLoad(ctx context.Context, node types.NodeID, t types.MetricType, scope string, window *time.Duration) *future.Future[*types.LoadSnapshot] {
	if !t.IsValid() {
		return future.Failed[*types.LoadSnapshot](fmt.Errorf("%w: %d", ErrInvalidMetricType, t))
	}

	if node == r.local || node.IsEmpty() {
		s, err := r.LocalLoad(t, scope, window)
		if err != nil {
			return future.Failed[*types.LoadSnapshot](err)
		}
		return future.Resolved(s)
	}

	if r.comm == nil {
		return future.Failed[*types.LoadSnapshot](ErrNoCommunicator)
	}

	payload := encodeLoadRequest(&loadRequest{Metric: t, Scope: scope, Window: window})
	reply := r.comm.SendAndReceive(ctx, SubjectLoadRequest, payload, node)
	return future.Map(reply, decodeLoadReply)
}

// AvailableResources 查询节点上某分类已上报过样本的资源名
func (r *Router) AvailableResources(ctx context.Context, node types.NodeID, c types.Category) *future.Future[[]string] {
	if !c.IsValid() {
		return future.Failed[[]string](fmt.Errorf("%w: %d", ErrInvalidCategory, c))
	}

	if node == r.local || node.IsEmpty() {
		return future.Resolved(r.monitor.Resources(c))
	}

	if r.comm == nil {
		return future.Failed[[]string](ErrNoCommunicator)
	}

	payload := encodeResourceRequest(&resourceRequest{Category: c})
	reply := r.comm.SendAndReceive(ctx, SubjectResourceRequest, payload, node)
	return future.Map(reply, decodeResourceReply)
}

// LocalLoad 计算本节点负载快照
func (r *Router) LocalLoad(t types.MetricType, scope string, window *time.Duration) (*types.LoadSnapshot, error) {
	view, ok := r.monitor.Load(t, scope)
	if !ok {
		return nil, nil
	}
	return view.Snapshot(window)
}

// ============================================================================
//                              远端请求处理
// ============================================================================

func (r *Router) handleLoadRequest(_ context.Context, from types.NodeID, payload []byte) ([]byte, error) {
	req, err := decodeLoadRequest(payload)
	if err != nil {
		return nil, err
	}
	if !req.Metric.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMetricType, req.Metric)
	}

	s, err := r.LocalLoad(req.Metric, req.Scope, req.Window)
	if err != nil {
		return nil, err
	}
	logger.Debug("应答负载查询", "from", from, "metric", req.Metric.String(), "scope", req.Scope, "found", s != nil)
	return encodeLoadReply(s), nil
}

func (r *Router) handleResourceRequest(_ context.Context, from types.NodeID, payload []byte) ([]byte, error) {
	req, err := decodeResourceRequest(payload)
	if err != nil {
		return nil, err
	}
	if !req.Category.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, req.Category)
	}

	names := r.monitor.Resources(req.Category)
	logger.Debug("应答资源查询", "from", from, "category", req.Category.String(), "count", len(names))
	return encodeResourceReply(names), nil
}
