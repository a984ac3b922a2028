// Package eventbus 实现事件总线
package eventbus

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-cpman/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// ============================================================================
// 错误定义
// ============================================================================

var (
	// ErrClosed 事件总线已关闭
	ErrClosed = errors.New("eventbus closed")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("emitter closed")
)

// ============================================================================
// Bus 实现
// ============================================================================

// Bus 事件总线
//
// 以事件的 Go 类型为键，每种类型一个节点。
// 订阅和发射通过包级泛型函数 Subscribe / NewEmitter 完成。
type Bus struct {
	mu     sync.RWMutex
	nodes  map[reflect.Type]*node
	closed bool
}

// node 事件类型节点
type node struct {
	lk        sync.Mutex
	typ       reflect.Type
	sinks     []sink       // 订阅者列表
	nEmitters atomic.Int32 // 发射器引用计数
	keepLast  bool         // 是否保持最后一个事件（Stateful）
	last      any          // 最后一个事件
	dropCount atomic.Int64 // 丢弃事件计数
}

// sink 订阅者的类型擦除视图
type sink interface {
	deliver(event any) bool
	shutdown()
}

// NewBus 创建新的事件总线
func NewBus() *Bus {
	return &Bus{
		nodes: make(map[reflect.Type]*node),
	}
}

// Close 关闭总线
//
// 关闭所有订阅的输出通道，之后的订阅和发射都返回 ErrClosed。
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	nodes := b.nodes
	b.nodes = make(map[reflect.Type]*node)
	b.mu.Unlock()

	for _, n := range nodes {
		n.lk.Lock()
		sinks := n.sinks
		n.sinks = nil
		n.lk.Unlock()
		for _, s := range sinks {
			s.shutdown()
		}
	}
	return nil
}

// EventTypes 返回所有已注册的事件类型名
func (b *Bus) EventTypes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.nodes))
	for typ := range b.nodes {
		names = append(names, typ.String())
	}
	return names
}

// ============================================================================
// 订阅与发射
// ============================================================================

// Subscribe 订阅类型为 T 的事件
func Subscribe[T any](b *Bus, opts ...SubscriptionOpt) (*Subscription[T], error) {
	settings := subscriptionSettings{
		buffer: 16, // 默认缓冲区大小
	}
	for _, opt := range opts {
		opt(&settings)
	}

	sub := &Subscription[T]{
		bus: b,
		typ: typeOf[T](),
		out: make(chan T, settings.buffer),
	}

	err := b.withNode(sub.typ, func(n *node) {
		n.sinks = append(n.sinks, sub)

		// 有状态节点，补发最后的事件
		if n.keepLast && n.last != nil {
			sub.deliver(n.last)
		}
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// NewEmitter 获取类型为 T 的事件发射器
func NewEmitter[T any](b *Bus, opts ...EmitterOpt) (*Emitter[T], error) {
	settings := emitterSettings{}
	for _, opt := range opts {
		opt(&settings)
	}

	typ := typeOf[T]()
	var n *node
	err := b.withNode(typ, func(nd *node) {
		n = nd
		n.nEmitters.Add(1)
		if settings.stateful {
			n.keepLast = true
		}
	})
	if err != nil {
		return nil, err
	}

	return &Emitter[T]{
		bus:  b,
		node: n,
		typ:  typ,
	}, nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ============================================================================
// 内部方法
// ============================================================================

// withNode 在节点上执行操作
func (b *Bus) withNode(typ reflect.Type, cb func(*node)) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}

	n, ok := b.nodes[typ]
	if !ok {
		n = &node{typ: typ}
		b.nodes[typ] = n
	}

	n.lk.Lock()
	b.mu.Unlock()

	cb(n)
	n.lk.Unlock()
	return nil
}

// tryDropNode 没有订阅者和发射器时删除节点
func (b *Bus) tryDropNode(typ reflect.Type) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		return
	}

	n.lk.Lock()
	idle := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()

	if idle {
		delete(b.nodes, typ)
	}
}

// removeSink 移除订阅
func (b *Bus) removeSink(typ reflect.Type, s sink) {
	b.mu.Lock()
	n, ok := b.nodes[typ]
	if !ok {
		b.mu.Unlock()
		return
	}

	n.lk.Lock()
	b.mu.Unlock()

	for i, cur := range n.sinks {
		if cur == s {
			n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
			break
		}
	}
	shouldDrop := len(n.sinks) == 0 && n.nEmitters.Load() == 0
	n.lk.Unlock()

	if shouldDrop {
		b.tryDropNode(typ)
	}
}

// emit 发射事件到所有订阅者
func (n *node) emit(event any) {
	n.lk.Lock()
	defer n.lk.Unlock()

	if n.keepLast {
		n.last = event
	}

	for _, s := range n.sinks {
		if s.deliver(event) {
			continue
		}
		dropped := n.dropCount.Add(1)

		// 每丢弃 100 个事件警告一次，避免日志泛滥
		if dropped%100 == 1 {
			logger.Warn("慢消费者检测",
				"dropped", dropped,
				"type", n.typ.String(),
				"reason", "subscriber buffer full")
		}
	}
}
