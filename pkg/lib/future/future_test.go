package future

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_CompleteOnce(t *testing.T) {
	f := New[int]()
	assert.False(t, f.IsDone())

	assert.True(t, f.Complete(1))
	assert.False(t, f.Complete(2))
	assert.False(t, f.Fail(errors.New("late")))

	v, err := f.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestFuture_ConcurrentResolve(t *testing.T) {
	f := New[int]()
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if f.Complete(i) {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load(), "只能完成一次")
	assert.True(t, f.IsDone())
}

func TestFuture_Get(t *testing.T) {
	t.Run("ctx 取消", func(t *testing.T) {
		f := New[string]()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := f.Get(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, f.IsDone(), "放弃等待不会完成 Future")
	})

	t.Run("失败", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Failed[string](boom).Get(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("TryGet 未完成", func(t *testing.T) {
		_, ok, _ := New[int]().TryGet()
		assert.False(t, ok)
	})
}

func TestMap(t *testing.T) {
	t.Run("已完成的源同步转换", func(t *testing.T) {
		out := Map(Resolved(7), func(v int) (string, error) { return strconv.Itoa(v), nil })
		require.True(t, out.IsDone())
		v, _, err := out.TryGet()
		require.NoError(t, err)
		assert.Equal(t, "7", v)
	})

	t.Run("异步源", func(t *testing.T) {
		src := New[int]()
		out := Map(src, func(v int) (int, error) { return v * 2, nil })
		assert.False(t, out.IsDone())

		src.Complete(21)
		v, err := out.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("传播错误", func(t *testing.T) {
		boom := errors.New("boom")
		src := New[int]()
		out := Map(src, func(v int) (int, error) { return v, nil })
		src.Fail(boom)
		_, err := out.Get(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("转换错误", func(t *testing.T) {
		bad := errors.New("decode")
		out := Map(Resolved(1), func(int) (int, error) { return 0, bad })
		_, err := out.Get(context.Background())
		assert.ErrorIs(t, err, bad)
	})
}
