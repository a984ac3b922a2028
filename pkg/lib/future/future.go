// Package future 提供只完成一次的异步结果
//
// 远程查询在应答到达前返回 Future，由应答处理协程完成。
// 没有内置超时：调用方通过 Get 的 ctx 控制等待时间，
// 被放弃的 Future 不会被取消，也可能永远不会完成。
package future

import (
	"context"
	"sync"
)

// Future 异步结果
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// New 创建未完成的 Future
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved 创建已完成的 Future
func Resolved[T any](v T) *Future[T] {
	f := New[T]()
	f.Complete(v)
	return f
}

// Failed 创建已失败的 Future
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Fail(err)
	return f
}

// Complete 以值完成，返回是否由本次调用完成
func (f *Future[T]) Complete(v T) bool {
	completed := false
	f.once.Do(func() {
		f.value = v
		close(f.done)
		completed = true
	})
	return completed
}

// Fail 以错误完成，返回是否由本次调用完成
func (f *Future[T]) Fail(err error) bool {
	completed := false
	f.once.Do(func() {
		f.err = err
		close(f.done)
		completed = true
	})
	return completed
}

// Done 返回完成信号通道
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone 是否已完成
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Get 等待结果或 ctx 结束
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryGet 非阻塞获取结果，ok 为 false 表示尚未完成
func (f *Future[T]) TryGet() (v T, ok bool, err error) {
	if !f.IsDone() {
		return v, false, nil
	}
	return f.value, true, f.err
}

// Map 在 src 完成后用 fn 转换结果
//
// 转换在完成 src 的协程之外的独立协程中执行。
func Map[S, T any](src *Future[S], fn func(S) (T, error)) *Future[T] {
	if v, ok, err := src.TryGet(); ok {
		return settle(fn, v, err)
	}

	dst := New[T]()
	go func() {
		<-src.done
		if src.err != nil {
			dst.Fail(src.err)
			return
		}
		out, err := fn(src.value)
		if err != nil {
			dst.Fail(err)
			return
		}
		dst.Complete(out)
	}()
	return dst
}

func settle[S, T any](fn func(S) (T, error), v S, err error) *Future[T] {
	if err != nil {
		return Failed[T](err)
	}
	out, err := fn(v)
	if err != nil {
		return Failed[T](err)
	}
	return Resolved(out)
}
