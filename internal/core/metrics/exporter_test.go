package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/types"
)

type fixedFlush FlushStats

func (f fixedFlush) Stats() FlushStats { return FlushStats(f) }

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Unix(60_000_000, 0))
	st := storage.NewStore(storage.DefaultConfig(), mock)

	cpu, err := st.GetOrCreate(types.CategoryCPU, types.GlobalScope)
	require.NoError(t, err)
	require.NoError(t, cpu.UpdateMetrics(map[string]float64{"CPU_LOAD": 40}, 0))

	// 未写入的序列不输出
	_, err = st.GetOrCreate(types.CategoryDisk, "sda")
	require.NoError(t, err)
	return st
}

func TestCollector_Counters(t *testing.T) {
	c := NewCollector(newTestStore(t), fixedFlush{Flushed: 3, Dropped: 1}, nil, nil)

	expected := `
# HELP cpman_flush_dropped_total Records dropped because the time-series store was unavailable.
# TYPE cpman_flush_dropped_total counter
cpman_flush_dropped_total 1
# HELP cpman_flush_total Records committed to the time-series store.
# TYPE cpman_flush_total counter
cpman_flush_total 3
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"cpman_flush_total", "cpman_flush_dropped_total")
	assert.NoError(t, err)
}

func TestCollector_Series(t *testing.T) {
	reg := NewRegistry(nil)
	reg.InitGlobal()
	traffic := NewTrafficCounter(nil)
	traffic.LogSentMessage(64, "s", "peer")

	c := NewCollector(newTestStore(t), nil, traffic, reg)

	assert.Equal(t, 1, testutil.CollectAndCount(c, "cpman_series_latest"))
	assert.Equal(t, 2, testutil.CollectAndCount(c, "cpman_cluster_bytes_total"))

	preg := prometheus.NewPedanticRegistry()
	require.NoError(t, preg.Register(c))
	families, err := preg.Gather()
	require.NoError(t, err)

	found := false
	for _, mf := range families {
		switch mf.GetName() {
		case "cpman_series_latest":
			require.Len(t, mf.GetMetric(), 1)
			m := mf.GetMetric()[0]
			assert.Equal(t, 40.0, m.GetGauge().GetValue())
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			assert.Equal(t, map[string]string{"category": "CPU", "scope": "", "metric": "CPU_LOAD"}, labels)
			found = true
		case "cpman_registry_meters":
			assert.Equal(t, 9.0, mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found)
}

func TestExporter_HTTP(t *testing.T) {
	exp, err := NewExporter("127.0.0.1:0", "/metrics", NewCollector(newTestStore(t), fixedFlush{}, nil, nil))
	require.NoError(t, err)
	require.NoError(t, exp.Start())
	defer exp.Stop(context.Background())

	resp, err := http.Get("http://" + exp.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `cpman_series_latest{category="CPU",metric="CPU_LOAD"`)
	assert.Contains(t, string(body), "cpman_flush_total 0")

	require.NoError(t, exp.Stop(context.Background()))
	assert.Empty(t, exp.Addr())
}
