package storage

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
//                              Database 时序库
// ============================================================================

// Database 固定步长、固定行数的内存环形时序库
//
// 一个 Database 对应一个 (分类, 作用域)，内含若干命名序列。
// 时间统一为 Unix 秒，桶号 = 时间 / 步长，槽位 = 桶号 % 行数。
//
// 合并规则为"同一步长内保留最后一次写入"。
// 部分写入只更新指定的序列，其余序列在该步长内保持原值。
type Database struct {
	name  string
	step  int64 // 秒
	rows  int64
	clock clock.Clock

	mu     sync.RWMutex
	series map[string]*series
	names  []string
	head   int64 // 已写入的最大桶号，-1 表示从未写入
	closed bool
}

// series 单个序列的环形缓冲
type series struct {
	values  []float64
	buckets []int64 // 槽位当前归属的桶号，-1 表示空槽

	latest     float64
	lastUpdate int64
}

func newSeries(rows int64) *series {
	s := &series{
		values:  make([]float64, rows),
		buckets: make([]int64, rows),
		latest:  math.NaN(),
	}
	for i := range s.buckets {
		s.buckets[i] = -1
		s.values[i] = math.NaN()
	}
	return s
}

// Option 时序库选项
type Option func(*Database)

// WithStep 设置步长（整秒）
func WithStep(step time.Duration) Option {
	return func(db *Database) {
		db.step = int64(step / time.Second)
	}
}

// WithRows 设置每个序列保留的行数
func WithRows(rows int) Option {
	return func(db *Database) {
		db.rows = int64(rows)
	}
}

// WithClock 设置时间源
func WithClock(clk clock.Clock) Option {
	return func(db *Database) {
		db.clock = clk
	}
}

// New 创建时序库
//
// 参数:
//   - name: 库名，仅用于日志和诊断
//   - names: 序列名列表，创建后不可增删
func New(name string, names []string, opts ...Option) (*Database, error) {
	db := &Database{
		name:   name,
		step:   int64(DefaultStep / time.Second),
		rows:   DefaultRows,
		clock:  clock.New(),
		series: make(map[string]*series, len(names)),
		head:   -1,
	}
	for _, opt := range opts {
		opt(db)
	}

	if db.step <= 0 || db.rows <= 0 {
		return nil, fmt.Errorf("%w: step=%ds rows=%d", ErrInvalidConfig, db.step, db.rows)
	}
	if len(names) == 0 {
		return nil, ErrNoSeries
	}
	for _, n := range names {
		if _, dup := db.series[n]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSeries, n)
		}
		db.series[n] = newSeries(db.rows)
		db.names = append(db.names, n)
	}

	logger.Debug("创建时序库", "name", name, "series", len(names), "step", db.step, "rows", db.rows)
	return db, nil
}

// Name 返回库名
func (db *Database) Name() string {
	return db.name
}

// SeriesNames 返回序列名（按创建顺序）
func (db *Database) SeriesNames() []string {
	out := make([]string, len(db.names))
	copy(out, db.names)
	return out
}

// Step 返回步长
func (db *Database) Step() time.Duration {
	return time.Duration(db.step) * time.Second
}

// Retention 返回保留时长
func (db *Database) Retention() time.Duration {
	return time.Duration(db.step*db.rows) * time.Second
}

// now 返回当前 Unix 秒
func (db *Database) now() int64 {
	return db.clock.Now().Unix()
}

// ============================================================================
//                              写入
// ============================================================================

// UpdateMetrics 在时间 ts 写入一组值
//
// 所有序列名先校验再写入，任何一个未知则整体不写。
// ts <= 0 时使用当前时间。
func (db *Database) UpdateMetrics(values map[string]float64, ts int64) error {
	if ts <= 0 {
		ts = db.now()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	for n := range values {
		if _, ok := db.series[n]; !ok {
			return fmt.Errorf("%w: %s/%s", ErrUnknownSeries, db.name, n)
		}
	}

	bucket := ts / db.step
	if db.head >= 0 && bucket <= db.head-db.rows {
		return fmt.Errorf("%w: ts=%d head=%d", ErrStaleWrite, ts, db.head*db.step)
	}
	if bucket > db.head {
		db.head = bucket
	}

	slot := bucket % db.rows
	for n, v := range values {
		s := db.series[n]
		s.values[slot] = v
		s.buckets[slot] = bucket
		if ts >= s.lastUpdate {
			s.latest = v
			s.lastUpdate = ts
		}
	}
	return nil
}

// UpdateMetric 写入单个序列
func (db *Database) UpdateMetric(name string, value float64, ts int64) error {
	return db.UpdateMetrics(map[string]float64{name: value}, ts)
}

// ============================================================================
//                              读取
// ============================================================================

// RecentMetric 返回序列最近一次写入的值
//
// 从未写入或序列不存在时返回 NaN。
func (db *Database) RecentMetric(name string) float64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s, ok := db.series[name]
	if !ok {
		return math.NaN()
	}
	return s.latest
}

// LastUpdate 返回序列最后写入时间（Unix 秒），从未写入返回 0
func (db *Database) LastUpdate(name string) int64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	s, ok := db.series[name]
	if !ok {
		return 0
	}
	return s.lastUpdate
}

// Metric 返回 [start, end] 内的样本
//
// 要求 step <= end-start <= step*rows（默认 1 分钟到 1 天），否则返回 ErrInvalidTimeRange。
// 首尾两个桶只覆盖部分区间，会被裁掉。未写入或已被覆盖的槽位为 NaN。
func (db *Database) Metric(name string, start, end int64) ([]float64, error) {
	if err := db.checkRange(start, end); err != nil {
		return nil, err
	}

	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	s, ok := db.series[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownSeries, db.name, name)
	}

	first := start / db.step
	last := (end + db.step - 1) / db.step
	if last-first < 2 {
		return []float64{}, nil
	}

	head := db.head
	if nowBucket := db.now() / db.step; nowBucket > head {
		head = nowBucket
	}

	out := make([]float64, 0, last-first-1)
	for b := first + 1; b < last; b++ {
		out = append(out, s.valueAt(b, head, db.rows))
	}
	return out, nil
}

// RecentMetrics 返回最近 d 时长内的样本
func (db *Database) RecentMetrics(name string, d time.Duration) ([]float64, error) {
	end := db.now()
	return db.Metric(name, end-int64(d/time.Second), end)
}

// Metrics 返回完整保留期内的样本
func (db *Database) Metrics(name string) ([]float64, error) {
	return db.RecentMetrics(name, db.Retention())
}

// valueAt 读取桶 b 的值，槽位已被复用或超出保留期时返回 NaN
func (s *series) valueAt(b, head, rows int64) float64 {
	if b < 0 || b <= head-rows {
		return math.NaN()
	}
	slot := b % rows
	if s.buckets[slot] != b {
		return math.NaN()
	}
	return s.values[slot]
}

func (db *Database) checkRange(start, end int64) error {
	if start < 0 || end < start {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidTimeRange, start, end)
	}
	span := end - start
	if span < db.step || span > db.step*db.rows {
		return fmt.Errorf("%w: span %ds outside [%ds, %ds]", ErrInvalidTimeRange, span, db.step, db.step*db.rows)
	}
	return nil
}

// ============================================================================
//                              生命周期
// ============================================================================

// Close 关闭时序库，之后的写入返回 ErrClosed
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true
	logger.Debug("关闭时序库", "name", db.name)
	return nil
}

// IsClosed 检查是否已关闭
func (db *Database) IsClosed() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.closed
}
