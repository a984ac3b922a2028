package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/lib/future"
	"github.com/dep2p/go-cpman/pkg/types"
)

// ============================================================================
//                              Hub - 进程内集群
// ============================================================================

// Hub 进程内消息交换
//
// 同一进程中的多个节点通过 Hub 互相投递请求，不经过网络。
// 用于单机多实例部署和测试。
type Hub struct {
	mu      sync.RWMutex
	members map[types.NodeID]*HubMember
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{members: make(map[types.NodeID]*HubMember)}
}

// Join 以 id 加入 Hub，已存在时返回原成员
func (h *Hub) Join(id types.NodeID, reporter metrics.Reporter) *HubMember {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.members[id]; ok {
		return m
	}
	m := &HubMember{
		hub:      h,
		id:       id,
		reporter: reporter,
		handlers: make(map[string]interfaces.Handler),
	}
	h.members[id] = m
	return m
}

// Leave 移除成员，之后发往它的请求以 ErrUnknownPeer 失败
func (h *Hub) Leave(id types.NodeID) {
	h.mu.Lock()
	m, ok := h.members[id]
	delete(h.members, id)
	h.mu.Unlock()

	if ok {
		m.mu.Lock()
		m.closed = true
		m.mu.Unlock()
	}
}

// Members 返回当前成员数
func (h *Hub) Members() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

func (h *Hub) member(id types.NodeID) (*HubMember, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.members[id]
	return m, ok
}

// ============================================================================
//                              HubMember
// ============================================================================

// HubMember Hub 中的一个节点
type HubMember struct {
	hub      *Hub
	id       types.NodeID
	reporter metrics.Reporter

	mu       sync.RWMutex
	handlers map[string]interfaces.Handler
	closed   bool
}

var _ interfaces.ClusterCommunicator = (*HubMember)(nil)

// LocalNode 返回本节点标识
func (m *HubMember) LocalNode() types.NodeID {
	return m.id
}

// AddSubscriber 注册主题处理器
func (m *HubMember) AddSubscriber(subject string, h interfaces.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrServiceClosed
	}
	if _, ok := m.handlers[subject]; ok {
		return fmt.Errorf("%w: %s", ErrHandlerExists, subject)
	}
	m.handlers[subject] = h
	return nil
}

// RemoveSubscriber 移除主题处理器
func (m *HubMember) RemoveSubscriber(subject string) {
	m.mu.Lock()
	delete(m.handlers, subject)
	m.mu.Unlock()
}

// SendAndReceive 投递请求，处理器在独立协程中执行
func (m *HubMember) SendAndReceive(ctx context.Context, subject string, payload []byte, to types.NodeID) *future.Future[[]byte] {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return future.Failed[[]byte](ErrServiceClosed)
	}

	target, ok := m.hub.member(to)
	if !ok {
		return future.Failed[[]byte](fmt.Errorf("%w: %s", ErrUnknownPeer, to))
	}

	h, ok := target.handler(subject)
	if !ok {
		return future.Failed[[]byte](fmt.Errorf("%w: %s", ErrNoHandler, subject))
	}

	if m.reporter != nil {
		m.reporter.LogSentMessage(int64(len(payload)), subject, to)
	}

	// 复制负载，避免调用方复用缓冲区
	in := append([]byte(nil), payload...)
	f := future.New[[]byte]()

	go func() {
		resp, err := h(ctx, m.id, in)
		if err != nil {
			f.Fail(fmt.Errorf("%w: %v", ErrRemote, err))
			return
		}
		if m.reporter != nil {
			m.reporter.LogRecvMessage(int64(len(resp)), subject, to)
		}
		f.Complete(resp)
	}()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				f.Fail(ctx.Err())
			case <-f.Done():
			}
		}()
	}
	return f
}

func (m *HubMember) handler(subject string) (interfaces.Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false
	}
	h, ok := m.handlers[subject]
	return h, ok
}
