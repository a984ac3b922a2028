package messaging

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/types"
)

// newPair 创建两个互相可达的通信服务
func newPair(t *testing.T, mutate func(*Config)) (*Communicator, *Communicator, *metrics.TrafficCounter) {
	t.Helper()

	traffic := metrics.NewTrafficCounter(clock.NewMock())

	mk := func(id types.NodeID, r metrics.Reporter) *Communicator {
		cfg := DefaultConfig()
		cfg.LocalID = id
		cfg.ListenAddr = "127.0.0.1:0"
		if mutate != nil {
			mutate(&cfg)
		}
		c, err := NewCommunicator(cfg, r)
		require.NoError(t, err)
		require.NoError(t, c.Start(context.Background()))
		t.Cleanup(func() { _ = c.Stop(context.Background()) })
		return c
	}

	a := mk("a", traffic)
	b := mk("b", nil)
	a.SetPeer("b", b.Addr())
	b.SetPeer("a", a.Addr())
	return a, b, traffic
}

func TestCommunicator_RoundTrip(t *testing.T) {
	a, b, traffic := newPair(t, nil)
	require.NoError(t, b.AddSubscriber("echo", echo))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := a.SendAndReceive(ctx, "echo", []byte("ping"), "b").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a:ping", string(got))

	st := traffic.ForSubject("echo")
	assert.Equal(t, int64(4), st.TotalOut)
	assert.Equal(t, int64(6), st.TotalIn)

	assert.Eventually(t, func() bool { return a.Pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCommunicator_RemoteErrors(t *testing.T) {
	a, b, _ := newPair(t, nil)
	require.NoError(t, b.AddSubscriber("fail", func(context.Context, types.NodeID, []byte) ([]byte, error) {
		return nil, errors.New("boom")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.SendAndReceive(ctx, "fail", nil, "b").Get(ctx)
	assert.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "boom")

	_, err = a.SendAndReceive(ctx, "missing", nil, "b").Get(ctx)
	assert.ErrorIs(t, err, ErrNoHandler)

	_, err = a.SendAndReceive(ctx, "echo", nil, "nobody").Get(ctx)
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

func TestCommunicator_Local(t *testing.T) {
	a, _, _ := newPair(t, nil)
	require.NoError(t, a.AddSubscriber("echo", echo))

	ctx := context.Background()
	got, err := a.SendAndReceive(ctx, "echo", []byte("x"), "a").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a:x", string(got))
}

func TestCommunicator_MessageTooLarge(t *testing.T) {
	a, b, _ := newPair(t, func(c *Config) { c.MaxMessageSize = 8 })
	require.NoError(t, b.AddSubscriber("big", func(context.Context, types.NodeID, []byte) ([]byte, error) {
		return bytes.Repeat([]byte{1}, 64), nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := a.SendAndReceive(ctx, "big", bytes.Repeat([]byte{1}, 9), "b").Get(ctx)
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	_, err = a.SendAndReceive(ctx, "big", nil, "b").Get(ctx)
	assert.ErrorIs(t, err, ErrRemote)
}

func TestCommunicator_StopFailsPending(t *testing.T) {
	a, b, _ := newPair(t, nil)

	release := make(chan struct{})
	require.NoError(t, b.AddSubscriber("slow", func(ctx context.Context, _ types.NodeID, _ []byte) ([]byte, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	}))
	defer close(release)

	f := a.SendAndReceive(context.Background(), "slow", nil, "b")
	require.Eventually(t, func() bool { return a.Pending() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, a.Stop(context.Background()))

	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, ErrServiceClosed)

	_, err = a.SendAndReceive(context.Background(), "slow", nil, "b").Get(context.Background())
	assert.ErrorIs(t, err, ErrServiceClosed)
	assert.ErrorIs(t, a.AddSubscriber("x", echo), ErrServiceClosed)
}

func TestCommunicator_RequestTimeout(t *testing.T) {
	a, b, _ := newPair(t, func(c *Config) { c.RequestTimeout = 50 * time.Millisecond })

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, b.AddSubscriber("slow", func(context.Context, types.NodeID, []byte) ([]byte, error) {
		<-release
		return nil, nil
	}))

	_, err := a.SendAndReceive(context.Background(), "slow", nil, "b").Get(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Node.ID = "n1"
	cfg.Cluster.ListenAddr = "127.0.0.1:0"

	var cluster interfaces.ClusterCommunicator
	var comm *Communicator
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&cluster, &comm),
	)
	app.RequireStart()

	assert.Equal(t, types.NodeID("n1"), cluster.LocalNode())
	assert.NotEmpty(t, comm.Addr())

	app.RequireStop()
	assert.Empty(t, comm.Addr())
}
