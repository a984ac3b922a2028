package cpman

import (
	"math"
	"time"

	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/types"
)

// LoadView 单个指标的只读统计
//
// 未写入或已过期的样本按 0 计入，不会被排除。
type LoadView struct {
	db     *storage.Database
	metric types.MetricType
	series string
}

func newLoadView(db *storage.Database, t types.MetricType) *LoadView {
	return &LoadView{db: db, metric: t, series: t.String()}
}

// Metric 返回指标类型
func (v *LoadView) Metric() types.MetricType {
	return v.metric
}

// Latest 返回最近一次提交的值
func (v *LoadView) Latest() float64 {
	return zeroNaN(v.db.RecentMetric(v.series))
}

// Average 返回完整保留期内的平均值
func (v *LoadView) Average() float64 {
	values, err := v.db.Metrics(v.series)
	if err != nil {
		logger.Warn("读取指标失败", "db", v.db.Name(), "series", v.series, "error", err)
		return 0
	}
	return mean(values)
}

// AverageOver 返回最近 d 时长内的平均值
//
// 窗口超出存储允许的范围时返回 0。
func (v *LoadView) AverageOver(d time.Duration) float64 {
	values, err := v.db.RecentMetrics(v.series, d)
	if err != nil {
		logger.Warn("读取指标失败", "db", v.db.Name(), "series", v.series, "window", d, "error", err)
		return 0
	}
	return mean(values)
}

// Recent 返回最近 d 时长内的样本
func (v *LoadView) Recent(d time.Duration) ([]float64, error) {
	values, err := v.db.RecentMetrics(v.series, d)
	if err != nil {
		return nil, err
	}
	for i := range values {
		values[i] = zeroNaN(values[i])
	}
	return values, nil
}

// Time 返回最后更新时间（Unix 秒）
func (v *LoadView) Time() int64 {
	return v.db.LastUpdate(v.series)
}

// Snapshot 生成负载快照
//
// window 非 nil 时附带最近窗口内的样本；窗口无效时返回错误。
func (v *LoadView) Snapshot(window *time.Duration) (*types.LoadSnapshot, error) {
	s := &types.LoadSnapshot{
		Latest:     v.Latest(),
		Average:    v.Average(),
		LastUpdate: v.Time(),
	}
	if window != nil {
		recent, err := v.Recent(*window)
		if err != nil {
			return nil, err
		}
		s.Recent = recent
		s.HasRecent = true
	}
	return s, nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, x := range values {
		sum += zeroNaN(x)
	}
	return sum / float64(len(values))
}

func zeroNaN(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return x
}
