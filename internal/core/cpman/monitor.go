package cpman

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-cpman/internal/core/metrics"
	"github.com/dep2p/go-cpman/internal/core/storage"
	"github.com/dep2p/go-cpman/pkg/lib/log"
	"github.com/dep2p/go-cpman/pkg/types"
)

var logger = log.Logger("core/cpman")

// ============================================================================
//                              待提交记录
// ============================================================================

// pendingKey 待提交记录的键
type pendingKey struct {
	category types.Category
	scope    string
}

// pendingRecord 一个作用域尚未凑齐的指标值
type pendingRecord struct {
	values map[types.MetricType]float64
}

// ============================================================================
//                              Monitor
// ============================================================================

// Monitor 指标缓冲与提交
//
// 每个 (分类, 作用域) 持有一条待提交记录。同一指标在提交前只保留第一次的值；
// 分类下所有指标都到齐后，整条记录一次写入时序库，并只清除该作用域的记录。
type Monitor struct {
	store *storage.Store
	clock clock.Clock

	mu      sync.Mutex
	pending map[pendingKey]*pendingRecord

	discoveredMu sync.RWMutex
	discovered   map[types.Category]map[string]struct{}

	flushed atomic.Uint64
	dropped atomic.Uint64
}

var _ metrics.FlushStatser = (*Monitor)(nil)

// NewMonitor 创建 Monitor
//
// 构造时创建 CPU 和 MEMORY 的全局时序库。
func NewMonitor(store *storage.Store) (*Monitor, error) {
	if store == nil {
		return nil, errors.New("cpman: nil store")
	}

	m := &Monitor{
		store:      store,
		clock:      store.Clock(),
		pending:    make(map[pendingKey]*pendingRecord),
		discovered: make(map[types.Category]map[string]struct{}),
	}

	for _, c := range []types.Category{types.CategoryCPU, types.CategoryMemory} {
		if _, err := store.GetOrCreate(c, types.GlobalScope); err != nil {
			return nil, fmt.Errorf("cpman: init %s store: %w", c, err)
		}
	}
	return m, nil
}

// Store 返回底层时序存储
func (m *Monitor) Store() *storage.Store {
	return m.store
}

// UpdateMetric 记录单个指标值
func (m *Monitor) UpdateMetric(t types.MetricType, value float64, scope string) error {
	return m.Record(types.MetricSample{Type: t, Value: value}, scope)
}

// Record 记录一个样本
//
// 类型或作用域无效时立即返回错误。凑齐的记录以当前时间提交；
// 存储不可用导致的提交失败只记录日志和计数，不返回错误，也不重试。
func (m *Monitor) Record(sample types.MetricSample, scope string) error {
	if !sample.Type.IsValid() {
		return fmt.Errorf("%w: %d", ErrInvalidMetricType, sample.Type)
	}
	c := sample.Type.Category()
	if err := c.ValidateScope(scope); err != nil {
		return err
	}

	m.discover(c, scope)

	if cm := m.collect(pendingKey{category: c, scope: scope}, sample); cm != nil {
		m.flush(cm)
	}
	return nil
}

// commit 已从待提交表摘除的完整记录
type commit struct {
	key    pendingKey
	values map[types.MetricType]float64
	db     *storage.Database
	err    error
}

// collect 把样本放入待提交记录，凑齐时摘除并返回
//
// 时序库与摘除在同一临界区内取得。之后的库存移除会关闭这个库，
// 提交随之失败，而不会为已移除的资源重建时序库。
func (m *Monitor) collect(key pendingKey, sample types.MetricSample) *commit {
	members := key.category.Members()

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.pending[key]
	if !ok {
		rec = &pendingRecord{values: make(map[types.MetricType]float64, len(members))}
		m.pending[key] = rec
	}
	if _, exists := rec.values[sample.Type]; !exists {
		rec.values[sample.Type] = sample.Value
	}
	if len(rec.values) < len(members) {
		return nil
	}

	// 只摘除本作用域的记录
	delete(m.pending, key)
	db, err := m.store.GetOrCreate(key.category, key.scope)
	return &commit{key: key, values: rec.values, db: db, err: err}
}

// flush 以当前时间将完整记录写入时序库
func (m *Monitor) flush(cm *commit) {
	err := cm.err
	if err == nil {
		values := make(map[string]float64, len(cm.values))
		for t, v := range cm.values {
			values[t.String()] = v
		}
		err = cm.db.UpdateMetrics(values, m.clock.Now().Unix())
	}
	if err != nil {
		m.dropped.Add(1)
		logger.Warn("提交指标失败，丢弃记录",
			"category", cm.key.category.String(),
			"scope", cm.key.scope,
			"error", err)
		return
	}
	m.flushed.Add(1)
}

// Pending 返回作用域当前未提交值的副本
func (m *Monitor) Pending(c types.Category, scope string) map[types.MetricType]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.pending[pendingKey{category: c, scope: scope}]
	if !ok {
		return nil
	}
	out := make(map[types.MetricType]float64, len(rec.values))
	for t, v := range rec.values {
		out[t] = v
	}
	return out
}

// Stats 返回提交计数
func (m *Monitor) Stats() metrics.FlushStats {
	return metrics.FlushStats{
		Flushed: m.flushed.Load(),
		Dropped: m.dropped.Load(),
	}
}

// ============================================================================
//                              资源发现
// ============================================================================

func (m *Monitor) discover(c types.Category, scope string) {
	if scope == types.GlobalScope {
		return
	}

	m.discoveredMu.RLock()
	_, ok := m.discovered[c][scope]
	m.discoveredMu.RUnlock()
	if ok {
		return
	}

	m.discoveredMu.Lock()
	set, ok := m.discovered[c]
	if !ok {
		set = make(map[string]struct{})
		m.discovered[c] = set
	}
	set[scope] = struct{}{}
	m.discoveredMu.Unlock()
}

// Resources 返回分类下已上报过样本的资源名（已排序）
//
// CPU 和 MEMORY 没有资源名，返回空集合。
func (m *Monitor) Resources(c types.Category) []string {
	m.discoveredMu.RLock()
	defer m.discoveredMu.RUnlock()

	out := make([]string, 0, len(m.discovered[c]))
	for name := range m.discovered[c] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ============================================================================
//                              读取
// ============================================================================

// Load 返回指标的负载视图
//
// 作用域没有时序库时返回 false。
func (m *Monitor) Load(t types.MetricType, scope string) (*LoadView, bool) {
	if !t.IsValid() {
		return nil, false
	}
	db, ok := m.store.Get(t.Category(), scope)
	if !ok {
		return nil, false
	}
	return newLoadView(db, t), true
}

// ============================================================================
//                              库存事件
// ============================================================================

// HandleInventoryEvent 根据库存变更创建或清理资源
//
// 加入时预建时序库；移除时删除时序库、发现记录和未提交记录。
func (m *Monitor) HandleInventoryEvent(ev types.InventoryEvent) {
	c := ev.Resource.Category()
	if !c.IsValid() || ev.Name == "" {
		return
	}

	switch ev.Kind {
	case types.InventoryAdded:
		if _, err := m.store.GetOrCreate(c, ev.Name); err != nil {
			logger.Warn("创建时序库失败", "category", c.String(), "scope", ev.Name, "error", err)
		}

	case types.InventoryRemoved:
		m.mu.Lock()
		m.store.Remove(c, ev.Name)
		delete(m.pending, pendingKey{category: c, scope: ev.Name})
		m.mu.Unlock()

		m.discoveredMu.Lock()
		delete(m.discovered[c], ev.Name)
		m.discoveredMu.Unlock()

		logger.Debug("资源已移除", "category", c.String(), "scope", ev.Name)
	}
}
