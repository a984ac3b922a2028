package eventbus

import (
	"reflect"
	"sync"
)

// ============================================================================
// Subscription 实现
// ============================================================================

// Subscription 类型为 T 的订阅
type Subscription[T any] struct {
	bus       *Bus
	typ       reflect.Type
	out       chan T
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// Out 返回事件通道
//
// 订阅关闭或总线关闭后通道被关闭。
func (s *Subscription[T]) Out() <-chan T {
	return s.out
}

// Close 取消订阅
//
// 并发安全，可以多次调用。
func (s *Subscription[T]) Close() error {
	s.bus.removeSink(s.typ, s)
	s.shutdown()
	return nil
}

// deliver 非阻塞投递，缓冲区满时返回 false
func (s *Subscription[T]) deliver(event any) bool {
	ev, ok := event.(T)
	if !ok {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}

	select {
	case s.out <- ev:
		return true
	default:
		return false
	}
}

// shutdown 关闭输出通道
func (s *Subscription[T]) shutdown() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.out)
		s.mu.Unlock()
	})
}

// ============================================================================
// Emitter 实现
// ============================================================================

// Emitter 类型为 T 的事件发射器
type Emitter[T any] struct {
	bus       *Bus
	node      *node
	typ       reflect.Type
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// Emit 发射事件
func (e *Emitter[T]) Emit(event T) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrEmitterClosed
	}

	e.bus.mu.RLock()
	busClosed := e.bus.closed
	e.bus.mu.RUnlock()
	if busClosed {
		return ErrClosed
	}

	e.node.emit(event)
	return nil
}

// Close 关闭发射器
//
// 引用计数归零时尝试删除节点。
func (e *Emitter[T]) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		if e.node.nEmitters.Add(-1) == 0 {
			e.bus.tryDropNode(e.typ)
		}
	})
	return nil
}
