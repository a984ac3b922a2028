package cpman

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cpman/internal/core/messaging"
	"github.com/dep2p/go-cpman/pkg/interfaces"
	"github.com/dep2p/go-cpman/pkg/lib/future"
	"github.com/dep2p/go-cpman/pkg/types"
)

// sentRequest 记录一次发送
type sentRequest struct {
	subject string
	payload []byte
	to      types.NodeID
	reply   *future.Future[[]byte]
}

// fakeCommunicator 手动控制应答的通信实现
type fakeCommunicator struct {
	local types.NodeID

	mu       sync.Mutex
	sent     []*sentRequest
	handlers map[string]interfaces.Handler
}

func newFakeCommunicator(local types.NodeID) *fakeCommunicator {
	return &fakeCommunicator{local: local, handlers: map[string]interfaces.Handler{}}
}

func (f *fakeCommunicator) LocalNode() types.NodeID { return f.local }

func (f *fakeCommunicator) SendAndReceive(_ context.Context, subject string, payload []byte, to types.NodeID) *future.Future[[]byte] {
	f.mu.Lock()
	defer f.mu.Unlock()
	req := &sentRequest{subject: subject, payload: payload, to: to, reply: future.New[[]byte]()}
	f.sent = append(f.sent, req)
	return req.reply
}

func (f *fakeCommunicator) AddSubscriber(subject string, h interfaces.Handler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[subject] = h
	return nil
}

func (f *fakeCommunicator) RemoveSubscriber(subject string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, subject)
}

func (f *fakeCommunicator) requests() []*sentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sentRequest(nil), f.sent...)
}

func TestRouter_LocalResolvesSynchronously(t *testing.T) {
	m, _ := newTestMonitor(t)
	recordCPU(t, m)

	comm := newFakeCommunicator("n1")
	r := NewRouter(m, comm, "")
	assert.Equal(t, types.NodeID("n1"), r.LocalNode())

	f := r.GetLoad(context.Background(), "n1", types.CPULoad, types.GlobalScope, nil)
	require.True(t, f.IsDone())

	s, ok, err := f.TryGet()
	require.True(t, ok)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 40.0, s.Latest)
	assert.Empty(t, comm.requests(), "本地查询不经过网络")
}

func TestRouter_UnknownScopeIsNotAnError(t *testing.T) {
	m, _ := newTestMonitor(t)
	r := NewRouter(m, nil, "n1")

	s, err := r.GetLoad(context.Background(), "n1", types.DiskReadBytes, "nope", nil).Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)

	names, err := r.AvailableResources(context.Background(), "n1", types.CategoryDisk).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestRouter_InvalidInputFailsFast(t *testing.T) {
	m, _ := newTestMonitor(t)
	comm := newFakeCommunicator("n1")
	r := NewRouter(m, comm, "")

	f := r.GetLoad(context.Background(), "n2", types.MetricUnknown, "", nil)
	require.True(t, f.IsDone())
	_, err := f.Get(context.Background())
	assert.ErrorIs(t, err, ErrInvalidMetricType)

	g := r.AvailableResources(context.Background(), "n2", types.CategoryUnknown)
	require.True(t, g.IsDone())
	_, err = g.Get(context.Background())
	assert.ErrorIs(t, err, ErrInvalidCategory)

	assert.Empty(t, comm.requests())
}

func TestRouter_RemoteWaitsForReply(t *testing.T) {
	m, _ := newTestMonitor(t)
	comm := newFakeCommunicator("n1")
	r := NewRouter(m, comm, "")

	w := 5 * time.Minute
	f := r.GetLoad(context.Background(), "n2", types.InboundPacket, "of:1", &w)

	reqs := comm.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, SubjectLoadRequest, reqs[0].subject)
	assert.Equal(t, types.NodeID("n2"), reqs[0].to)

	req, err := decodeLoadRequest(reqs[0].payload)
	require.NoError(t, err)
	assert.Equal(t, types.InboundPacket, req.Metric)
	assert.Equal(t, "of:1", req.Scope)
	require.NotNil(t, req.Window)
	assert.Equal(t, w, *req.Window)

	// 应答到达前保持未完成
	time.Sleep(20 * time.Millisecond)
	assert.False(t, f.IsDone())

	reqs[0].reply.Complete(encodeLoadReply(&types.LoadSnapshot{Latest: 3, Average: 1.5, LastUpdate: 42, HasRecent: true, Recent: []float64{1, 2}}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s, err := f.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, &types.LoadSnapshot{Latest: 3, Average: 1.5, LastUpdate: 42, HasRecent: true, Recent: []float64{1, 2}}, s)
}

func TestRouter_RemoteWithoutCommunicator(t *testing.T) {
	m, _ := newTestMonitor(t)
	r := NewRouter(m, nil, "n1")

	_, err := r.GetLoad(context.Background(), "n2", types.CPULoad, "", nil).Get(context.Background())
	assert.ErrorIs(t, err, ErrNoCommunicator)
}

func TestRouter_StartStop(t *testing.T) {
	m, _ := newTestMonitor(t)
	comm := newFakeCommunicator("n1")
	r := NewRouter(m, comm, "")

	require.NoError(t, r.Start())
	require.NoError(t, r.Start())
	assert.Len(t, comm.handlers, 2)

	r.Stop()
	assert.Empty(t, comm.handlers)
}

func TestRouter_ClusterOverHub(t *testing.T) {
	hub := messaging.NewHub()

	ma, _ := newTestMonitor(t)
	mb, _ := newTestMonitor(t)

	ra := NewRouter(ma, hub.Join("a", nil), "")
	rb := NewRouter(mb, hub.Join("b", nil), "")
	require.NoError(t, ra.Start())
	require.NoError(t, rb.Start())
	defer ra.Stop()
	defer rb.Stop()

	recordCPU(t, mb)
	require.NoError(t, mb.UpdateMetric(types.DiskReadBytes, 1, "sdb"))
	require.NoError(t, mb.UpdateMetric(types.DiskReadBytes, 1, "sda"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s, err := ra.GetLoad(ctx, "b", types.CPULoad, types.GlobalScope, nil).Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, 40.0, s.Latest)

	s, err = ra.GetLoad(ctx, "b", types.DiskWriteBytes, "missing", nil).Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	names, err := ra.AvailableResources(ctx, "b", types.CategoryDisk).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sda", "sdb"}, names)

	bad := 10 * time.Second
	_, err = ra.GetLoad(ctx, "b", types.CPULoad, types.GlobalScope, &bad).Get(ctx)
	assert.ErrorIs(t, err, messaging.ErrRemote)
}
