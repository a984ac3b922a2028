package storage

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// base 对齐到步长的起始时间
const base int64 = 60_000_000

func newTestDB(t *testing.T, names ...string) (*Database, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Unix(base, 0))
	db, err := New("test", names, WithClock(mock))
	require.NoError(t, err)
	return db, mock
}

func TestNew(t *testing.T) {
	t.Run("空序列", func(t *testing.T) {
		_, err := New("x", nil)
		assert.ErrorIs(t, err, ErrNoSeries)
	})

	t.Run("重复序列", func(t *testing.T) {
		_, err := New("x", []string{"a", "a"})
		assert.ErrorIs(t, err, ErrDuplicateSeries)
	})

	t.Run("非法步长", func(t *testing.T) {
		_, err := New("x", []string{"a"}, WithStep(500*time.Millisecond))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("默认值", func(t *testing.T) {
		db, err := New("x", []string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, DefaultStep, db.Step())
		assert.Equal(t, 24*time.Hour, db.Retention())
		assert.Equal(t, []string{"a", "b"}, db.SeriesNames())
	})
}

func TestDatabase_RangeValidation(t *testing.T) {
	db, _ := newTestDB(t, "a")

	_, err := db.Metric("a", base, base+30)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = db.Metric("a", base, base+60)
	assert.NoError(t, err)

	_, err = db.Metric("a", base, base+86400)
	assert.NoError(t, err)

	_, err = db.Metric("a", base, base+86401)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = db.Metric("a", -60, 60)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = db.Metric("a", base+60, base)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestDatabase_BoundaryTrim(t *testing.T) {
	db, _ := newTestDB(t, "a")

	for i := int64(0); i < 5; i++ {
		require.NoError(t, db.UpdateMetric("a", float64(i), base+i*60))
	}

	// 对齐区间 [base, base+240] 覆盖桶 0..4，首尾裁掉后剩 1..3
	got, err := db.Metric("a", base, base+240)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, got)

	// 一分钟对齐区间只有两个边界桶
	got, err = db.Metric("a", base, base+60)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDatabase_LastWriteWinsWithinStep(t *testing.T) {
	db, _ := newTestDB(t, "a")

	require.NoError(t, db.UpdateMetric("a", 1, base+5))
	require.NoError(t, db.UpdateMetric("a", 2, base+50))

	got, err := db.Metric("a", base-60, base+120)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0])
	assert.True(t, math.IsNaN(got[1]))

	assert.Equal(t, 2.0, db.RecentMetric("a"))
	assert.Equal(t, base+50, db.LastUpdate("a"))
}

func TestDatabase_PartialWrite(t *testing.T) {
	db, _ := newTestDB(t, "a", "b")

	require.NoError(t, db.UpdateMetrics(map[string]float64{"a": 1, "b": 2}, base))
	require.NoError(t, db.UpdateMetrics(map[string]float64{"a": 3}, base+10))

	a, err := db.Metric("a", base-60, base+60)
	require.NoError(t, err)
	b, err := db.Metric("b", base-60, base+60)
	require.NoError(t, err)

	assert.Equal(t, []float64{3}, a)
	assert.Equal(t, []float64{2}, b)
	assert.Equal(t, base, db.LastUpdate("b"))
	assert.Equal(t, base+10, db.LastUpdate("a"))
}

func TestDatabase_UnknownSeries(t *testing.T) {
	db, _ := newTestDB(t, "a")

	err := db.UpdateMetrics(map[string]float64{"a": 1, "zz": 2}, base)
	assert.ErrorIs(t, err, ErrUnknownSeries)

	// 整体不写
	assert.True(t, math.IsNaN(db.RecentMetric("a")))
	assert.Zero(t, db.LastUpdate("a"))

	_, err = db.Metric("zz", base, base+120)
	assert.ErrorIs(t, err, ErrUnknownSeries)
	assert.True(t, math.IsNaN(db.RecentMetric("zz")))
}

func TestDatabase_RetentionBound(t *testing.T) {
	db, _ := newTestDB(t, "a")

	for i := int64(0); i < DefaultRows; i++ {
		require.NoError(t, db.UpdateMetric("a", float64(i), base+i*60))
	}

	start, end := base-60, base+86400-60
	got, err := db.Metric("a", start, end)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0], "1440 个样本全部保留")

	// 第 1441 个样本挤掉最旧的一个
	require.NoError(t, db.UpdateMetric("a", 1440, base+1440*60))

	got, err = db.Metric("a", start, end)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got[0]), "最旧样本不可读")
	assert.Equal(t, 1.0, got[1])

	err = db.UpdateMetric("a", -1, base)
	assert.ErrorIs(t, err, ErrStaleWrite)
}

func TestDatabase_RecentMetrics(t *testing.T) {
	db, mock := newTestDB(t, "a")

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, db.UpdateMetric("a", float64(i), base+i*60))
	}
	mock.Set(time.Unix(base+600, 0))

	got, err := db.RecentMetrics("a", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, got)

	_, err = db.RecentMetrics("a", 30*time.Second)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	all, err := db.Metrics("a")
	require.NoError(t, err)
	assert.Len(t, all, DefaultRows-1)
}

func TestDatabase_DefaultTimestamp(t *testing.T) {
	db, mock := newTestDB(t, "a")
	mock.Add(90 * time.Second)

	require.NoError(t, db.UpdateMetric("a", 7, 0))
	assert.Equal(t, base+90, db.LastUpdate("a"))
	assert.Equal(t, 7.0, db.RecentMetric("a"))
}

func TestDatabase_Closed(t *testing.T) {
	db, _ := newTestDB(t, "a")
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	assert.True(t, db.IsClosed())
	assert.ErrorIs(t, db.UpdateMetric("a", 1, base), ErrClosed)
	assert.True(t, IsClosed(db.UpdateMetric("a", 1, base)))

	_, err := db.Metric("a", base, base+120)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDatabase_SmallRing(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(base, 0))
	db, err := New("small", []string{"a"}, WithClock(mock), WithStep(10*time.Second), WithRows(6))
	require.NoError(t, err)

	_, err = db.Metric("a", base, base+61)
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	for i := int64(0); i < 8; i++ {
		require.NoError(t, db.UpdateMetric("a", float64(i), base+i*10))
	}
	// 桶 0、1 已被覆盖，头部为桶 7
	got, err := db.Metric("a", base, base+60)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.Equal(t, []float64{2, 3, 4, 5}, got[1:])
}
