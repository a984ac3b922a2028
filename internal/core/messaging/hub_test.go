package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/pkg/types"
)

func echo(_ context.Context, from types.NodeID, payload []byte) ([]byte, error) {
	return append([]byte(string(from)+":"), payload...), nil
}

func TestHub_SendAndReceive(t *testing.T) {
	hub := NewHub()
	traffic := metrics.NewTrafficCounter(clock.NewMock())
	a := hub.Join("a", traffic)
	b := hub.Join("b", nil)

	require.NoError(t, b.AddSubscriber("echo", echo))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := a.SendAndReceive(ctx, "echo", []byte("hi"), "b").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a:hi", string(got))

	st := traffic.ForPeer("b")
	assert.Equal(t, int64(2), st.TotalOut)
	assert.Equal(t, int64(4), st.TotalIn)
}

func TestHub_Errors(t *testing.T) {
	hub := NewHub()
	a := hub.Join("a", nil)
	b := hub.Join("b", nil)
	ctx := context.Background()

	_, err := a.SendAndReceive(ctx, "echo", nil, "c").Get(ctx)
	assert.ErrorIs(t, err, ErrUnknownPeer)

	_, err = a.SendAndReceive(ctx, "echo", nil, "b").Get(ctx)
	assert.ErrorIs(t, err, ErrNoHandler)

	require.NoError(t, b.AddSubscriber("fail", func(context.Context, types.NodeID, []byte) ([]byte, error) {
		return nil, errors.New("boom")
	}))
	_, err = a.SendAndReceive(ctx, "fail", nil, "b").Get(ctx)
	assert.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "boom")

	assert.ErrorIs(t, b.AddSubscriber("fail", echo), ErrHandlerExists)

	b.RemoveSubscriber("fail")
	_, err = a.SendAndReceive(ctx, "fail", nil, "b").Get(ctx)
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestHub_Leave(t *testing.T) {
	hub := NewHub()
	a := hub.Join("a", nil)
	b := hub.Join("b", nil)
	require.NoError(t, b.AddSubscriber("echo", echo))
	assert.Same(t, a, hub.Join("a", nil))
	assert.Equal(t, 2, hub.Members())

	hub.Leave("b")
	assert.Equal(t, 1, hub.Members())

	ctx := context.Background()
	_, err := a.SendAndReceive(ctx, "echo", nil, "b").Get(ctx)
	assert.ErrorIs(t, err, ErrUnknownPeer)

	_, err = b.SendAndReceive(ctx, "echo", nil, "a").Get(ctx)
	assert.ErrorIs(t, err, ErrServiceClosed)
}

func TestHub_ContextCancel(t *testing.T) {
	hub := NewHub()
	a := hub.Join("a", nil)
	b := hub.Join("b", nil)

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, b.AddSubscriber("slow", func(context.Context, types.NodeID, []byte) ([]byte, error) {
		<-release
		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	f := a.SendAndReceive(ctx, "slow", nil, "b")
	assert.False(t, f.IsDone())

	cancel()
	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}
