package cpman

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/types"
)

func TestLoadView_NaNCountsAsZero(t *testing.T) {
	m, clk := newTestMonitor(t)
	recordCPU(t, m)

	// 当前桶是边界桶，推进一步后才可读
	clk.Add(time.Minute)

	view, ok := m.Load(types.CPULoad, types.GlobalScope)
	require.True(t, ok)

	db, _ := m.Store().Get(types.CategoryCPU, types.GlobalScope)
	all, err := db.Metrics(types.CPULoad.String())
	require.NoError(t, err)
	require.Greater(t, len(all), 1000)

	assert.InDelta(t, 40/float64(len(all)), view.Average(), 1e-12)
	assert.Greater(t, view.Average(), 0.0)
	assert.Less(t, view.Average(), 1.0)
}

func TestLoadView_Windows(t *testing.T) {
	m, clk := newTestMonitor(t)
	recordCPU(t, m)
	clk.Add(time.Minute)

	view, _ := m.Load(types.CPULoad, types.GlobalScope)

	recent, err := view.Recent(5 * time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, recent)
	assert.Equal(t, 40.0, recent[len(recent)-1])
	for _, x := range recent[:len(recent)-1] {
		assert.Equal(t, 0.0, x, "空槽位按 0 返回")
	}

	assert.InDelta(t, 40/float64(len(recent)), view.AverageOver(5*time.Minute), 1e-12)

	_, err = view.Recent(30 * time.Second)
	assert.ErrorIs(t, err, storage.ErrInvalidTimeRange)
	assert.Equal(t, 0.0, view.AverageOver(30*time.Second))
}

func TestLoadView_Snapshot(t *testing.T) {
	m, clk := newTestMonitor(t)
	recordCPU(t, m)
	clk.Add(time.Minute)

	view, _ := m.Load(types.CPULoad, types.GlobalScope)

	s, err := view.Snapshot(nil)
	require.NoError(t, err)
	assert.Equal(t, 40.0, s.Latest)
	assert.Equal(t, int64(base), s.LastUpdate)
	assert.False(t, s.HasRecent)
	assert.Nil(t, s.Recent)

	w := 10 * time.Minute
	s, err = view.Snapshot(&w)
	require.NoError(t, err)
	assert.True(t, s.HasRecent)
	assert.NotEmpty(t, s.Recent)

	bad := 25 * time.Hour
	_, err = view.Snapshot(&bad)
	assert.ErrorIs(t, err, storage.ErrInvalidTimeRange)
}

func TestLoadView_Empty(t *testing.T) {
	m, _ := newTestMonitor(t)

	view, ok := m.Load(types.MemoryUsed, types.GlobalScope)
	require.True(t, ok)
	assert.Equal(t, 0.0, view.Latest())
	assert.Equal(t, 0.0, view.Average())
	assert.Equal(t, int64(0), view.Time())
	assert.Equal(t, types.MemoryUsed, view.Metric())
}
