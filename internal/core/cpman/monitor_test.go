package cpman

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/types"
)

// base 整分钟的起始时间
const base = 60_000_000

func newTestMonitor(t *testing.T) (*Monitor, *clock.Mock) {
	t.Helper()

	clk := clock.NewMock()
	clk.Set(time.Unix(base, 0))

	store := storage.NewStore(storage.DefaultConfig(), clk)
	t.Cleanup(func() { _ = store.Close() })

	m, err := NewMonitor(store)
	require.NoError(t, err)
	return m, clk
}

// recordCPU 按顺序记录一组完整的 CPU 指标
func recordCPU(t *testing.T, m *Monitor) {
	t.Helper()
	require.NoError(t, m.UpdateMetric(types.CPULoad, 40, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.TotalCPUTime, 100, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.SysCPUTime, 20, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.UserCPUTime, 70, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.CPUIdleTime, 10, types.GlobalScope))
}

func latest(t *testing.T, m *Monitor, mt types.MetricType, scope string) float64 {
	t.Helper()
	view, ok := m.Load(mt, scope)
	require.True(t, ok)
	return view.Latest()
}

func TestMonitor_EndToEndCPU(t *testing.T) {
	m, _ := newTestMonitor(t)

	recordCPU(t, m)

	assert.Equal(t, 40.0, latest(t, m, types.CPULoad, types.GlobalScope))
	assert.Equal(t, 70.0, latest(t, m, types.UserCPUTime, types.GlobalScope))
	assert.Nil(t, m.Pending(types.CategoryCPU, types.GlobalScope), "提交后记录被清除")
	assert.Equal(t, uint64(1), m.Stats().Flushed)
}

func TestMonitor_CompletenessBeforeCommit(t *testing.T) {
	m, _ := newTestMonitor(t)

	require.NoError(t, m.UpdateMetric(types.CPULoad, 40, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.TotalCPUTime, 100, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.SysCPUTime, 20, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.UserCPUTime, 70, types.GlobalScope))

	view, ok := m.Load(types.CPULoad, types.GlobalScope)
	require.True(t, ok, "全局时序库在构造时创建")
	assert.Equal(t, 0.0, view.Latest())
	assert.Equal(t, int64(0), view.Time())
	assert.Len(t, m.Pending(types.CategoryCPU, types.GlobalScope), 4)
	assert.Equal(t, uint64(0), m.Stats().Flushed)

	require.NoError(t, m.UpdateMetric(types.CPUIdleTime, 10, types.GlobalScope))
	assert.Equal(t, 40.0, view.Latest())
	assert.Equal(t, int64(base), view.Time())
}

func TestMonitor_FirstWriterWins(t *testing.T) {
	m, _ := newTestMonitor(t)

	require.NoError(t, m.UpdateMetric(types.CPULoad, 40, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.CPULoad, 99, types.GlobalScope))
	assert.Equal(t, 40.0, m.Pending(types.CategoryCPU, types.GlobalScope)[types.CPULoad])

	require.NoError(t, m.UpdateMetric(types.TotalCPUTime, 100, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.SysCPUTime, 20, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.UserCPUTime, 70, types.GlobalScope))
	require.NoError(t, m.UpdateMetric(types.CPUIdleTime, 10, types.GlobalScope))

	assert.Equal(t, 40.0, latest(t, m, types.CPULoad, types.GlobalScope))

	// 提交后开始新的一轮
	require.NoError(t, m.UpdateMetric(types.CPULoad, 99, types.GlobalScope))
	assert.Equal(t, 99.0, m.Pending(types.CategoryCPU, types.GlobalScope)[types.CPULoad])
}

func TestMonitor_PerScopeIsolation(t *testing.T) {
	m, _ := newTestMonitor(t)
	members := types.CategoryControlMessage.Members()

	// 设备 B 只上报一半
	for _, mt := range members[:3] {
		require.NoError(t, m.UpdateMetric(mt, 7, "of:b"))
	}

	// 设备 A 凑齐并提交
	for i, mt := range members {
		require.NoError(t, m.UpdateMetric(mt, float64(i+1), "of:a"))
	}
	assert.Equal(t, 1.0, latest(t, m, types.InboundPacket, "of:a"))
	assert.Nil(t, m.Pending(types.CategoryControlMessage, "of:a"))

	pendingB := m.Pending(types.CategoryControlMessage, "of:b")
	assert.Len(t, pendingB, 3, "其他作用域的未提交值保持不变")

	for _, mt := range members[3:] {
		require.NoError(t, m.UpdateMetric(mt, 8, "of:b"))
	}
	assert.Equal(t, 7.0, latest(t, m, types.InboundPacket, "of:b"))
	assert.Equal(t, 8.0, latest(t, m, types.ReplyPacket, "of:b"))
}

func TestMonitor_CommitsAtCurrentTime(t *testing.T) {
	m, clk := newTestMonitor(t)

	recordCPU(t, m)
	view, ok := m.Load(types.CPULoad, types.GlobalScope)
	require.True(t, ok)
	assert.Equal(t, int64(base), view.Time())

	// 提交时间跟随时钟，与样本到达的先后无关
	clk.Add(48 * time.Hour)
	recordCPU(t, m)
	assert.Equal(t, int64(base+2*86400), view.Time())

	for _, mt := range types.CategoryMemory.Members() {
		require.NoError(t, m.UpdateMetric(mt, 1, types.GlobalScope))
	}
	mem, ok := m.Load(types.MemoryFree, types.GlobalScope)
	require.True(t, ok)
	assert.Equal(t, clk.Now().Unix(), mem.Time())
	assert.Equal(t, uint64(3), m.Stats().Flushed)
	assert.Zero(t, m.Stats().Dropped)
}

func TestMonitor_RemovedScopeNotRecreated(t *testing.T) {
	m, _ := newTestMonitor(t)

	members := types.CategoryDisk.Members()
	require.NoError(t, m.UpdateMetric(members[0], 1, "sdb"))

	// 凑齐后、写入前资源被移除
	cm := m.collect(pendingKey{category: types.CategoryDisk, scope: "sdb"}, types.MetricSample{Type: members[1], Value: 2})
	require.NotNil(t, cm)
	m.HandleInventoryEvent(types.InventoryEvent{Kind: types.InventoryRemoved, Resource: types.ResourceDisk, Name: "sdb"})
	m.flush(cm)

	_, ok := m.Store().Get(types.CategoryDisk, "sdb")
	assert.False(t, ok, "已移除的资源不再有时序库")
	assert.Empty(t, m.Resources(types.CategoryDisk))
	assert.Equal(t, uint64(1), m.Stats().Dropped)
	assert.Zero(t, m.Stats().Flushed)
}

func TestMonitor_InvalidInput(t *testing.T) {
	m, _ := newTestMonitor(t)

	assert.ErrorIs(t, m.UpdateMetric(types.MetricUnknown, 1, ""), ErrInvalidMetricType)
	assert.ErrorIs(t, m.UpdateMetric(types.CPULoad, 1, "sda"), ErrInvalidScope)
	assert.ErrorIs(t, m.UpdateMetric(types.DiskReadBytes, 1, ""), ErrInvalidScope)

	assert.Nil(t, m.Pending(types.CategoryDisk, ""))
	assert.Empty(t, m.Resources(types.CategoryDisk))
}

func TestMonitor_StoreUnavailable(t *testing.T) {
	m, _ := newTestMonitor(t)
	require.NoError(t, m.Store().Close())

	for _, mt := range types.CategoryDisk.Members() {
		assert.NoError(t, m.UpdateMetric(mt, 1, "sda"), "提交失败不影响调用方")
	}
	assert.Equal(t, uint64(1), m.Stats().Dropped)
	assert.Equal(t, uint64(0), m.Stats().Flushed)
	assert.Nil(t, m.Pending(types.CategoryDisk, "sda"), "失败的记录不重试")
}

func TestMonitor_Discovery(t *testing.T) {
	m, _ := newTestMonitor(t)

	require.NoError(t, m.UpdateMetric(types.NwIncomingBytes, 1, "eth1"))
	require.NoError(t, m.UpdateMetric(types.NwIncomingBytes, 1, "eth0"))
	require.NoError(t, m.UpdateMetric(types.CPULoad, 1, types.GlobalScope))

	assert.Equal(t, []string{"eth0", "eth1"}, m.Resources(types.CategoryNetwork), "首个样本即注册，与是否提交无关")
	assert.Empty(t, m.Resources(types.CategoryCPU))
}

func TestMonitor_InventoryEvents(t *testing.T) {
	m, _ := newTestMonitor(t)

	m.HandleInventoryEvent(types.InventoryEvent{Kind: types.InventoryAdded, Resource: types.ResourceDisk, Name: "sdb"})
	_, ok := m.Store().Get(types.CategoryDisk, "sdb")
	assert.True(t, ok)

	require.NoError(t, m.UpdateMetric(types.DiskReadBytes, 5, "sdb"))

	m.HandleInventoryEvent(types.InventoryEvent{Kind: types.InventoryRemoved, Resource: types.ResourceDisk, Name: "sdb"})
	_, ok = m.Store().Get(types.CategoryDisk, "sdb")
	assert.False(t, ok)
	assert.Empty(t, m.Resources(types.CategoryDisk))
	assert.Nil(t, m.Pending(types.CategoryDisk, "sdb"))

	_, ok = m.Load(types.DiskReadBytes, "sdb")
	assert.False(t, ok)
}

func TestMonitor_Concurrent(t *testing.T) {
	m, _ := newTestMonitor(t)

	const scopes = 50
	var wg sync.WaitGroup
	for i := 0; i < scopes; i++ {
		scope := fmt.Sprintf("eth%d", i)
		for _, mt := range types.CategoryNetwork.Members() {
			wg.Add(1)
			go func(mt types.MetricType) {
				defer wg.Done()
				assert.NoError(t, m.UpdateMetric(mt, 1, scope))
			}(mt)
		}
	}
	wg.Wait()

	assert.Equal(t, uint64(scopes), m.Stats().Flushed)
	assert.Len(t, m.Resources(types.CategoryNetwork), scopes)
}
