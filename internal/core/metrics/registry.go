package metrics

import (
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-cpman/pkg/types"
)

// ============================================================================
// Registry - 计量器注册表
// ============================================================================

// meterKey 计量器索引
type meterKey struct {
	typ   types.MetricType
	scope string
}

// Registry 按 (指标类型, 作用域) 管理计量器
//
// 资源上线时为其分类下的每个指标创建一个计量器，下线时丢弃。
// 历史数据只存在于时序存储中，与计量器的生命周期无关。
type Registry struct {
	clock clock.Clock

	mu     sync.RWMutex
	meters map[meterKey]*Meter

	globalOnce sync.Once
}

// NewRegistry 创建注册表
func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.New()
	}
	return &Registry{
		clock:  clk,
		meters: make(map[meterKey]*Meter),
	}
}

// InitGlobal 创建 CPU 和 MEMORY 的全局计量器
//
// 幂等，重复调用无副作用。
func (r *Registry) InitGlobal() {
	r.globalOnce.Do(func() {
		_ = r.addScope(types.CategoryCPU, types.GlobalScope)
		_ = r.addScope(types.CategoryMemory, types.GlobalScope)
		logger.Debug("全局计量器已初始化")
	})
}

// AddDevice 为设备创建控制消息计量器
func (r *Registry) AddDevice(id string) error {
	return r.addScope(types.CategoryControlMessage, id)
}

// RemoveDevice 丢弃设备的计量器
func (r *Registry) RemoveDevice(id string) bool {
	return r.removeScope(types.CategoryControlMessage, id)
}

// AddDiskResource 为磁盘创建计量器
func (r *Registry) AddDiskResource(name string) error {
	return r.addScope(types.CategoryDisk, name)
}

// RemoveDiskResource 丢弃磁盘的计量器
func (r *Registry) RemoveDiskResource(name string) bool {
	return r.removeScope(types.CategoryDisk, name)
}

// AddNetworkResource 为网卡创建计量器
func (r *Registry) AddNetworkResource(name string) error {
	return r.addScope(types.CategoryNetwork, name)
}

// RemoveNetworkResource 丢弃网卡的计量器
func (r *Registry) RemoveNetworkResource(name string) bool {
	return r.removeScope(types.CategoryNetwork, name)
}

// MeterFor 返回 (指标类型, 作用域) 的计量器
func (r *Registry) MeterFor(t types.MetricType, scope string) (*Meter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meters[meterKey{typ: t, scope: scope}]
	return m, ok
}

// Scopes 返回某分类下已注册的作用域（已排序）
func (r *Registry) Scopes(c types.Category) []string {
	r.mu.RLock()
	seen := make(map[string]struct{})
	for k := range r.meters {
		if k.typ.Category() == c {
			seen[k.scope] = struct{}{}
		}
	}
	r.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Len 返回计量器数量
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.meters)
}

// HandleInventoryEvent 根据资源清单事件增删计量器
func (r *Registry) HandleInventoryEvent(ev types.InventoryEvent) {
	c := ev.Resource.Category()
	if !c.IsValid() {
		logger.Warn("忽略未知资源事件", "resource", ev.Resource.String(), "name", ev.Name)
		return
	}

	switch ev.Kind {
	case types.InventoryAdded:
		if err := r.addScope(c, ev.Name); err != nil {
			logger.Warn("创建计量器失败", "category", c.String(), "scope", ev.Name, "error", err)
		}
	case types.InventoryRemoved:
		r.removeScope(c, ev.Name)
	}
}

// addScope 为作用域创建分类下所有计量器，已存在的保持不变
func (r *Registry) addScope(c types.Category, scope string) error {
	if err := c.ValidateScope(scope); err != nil {
		return fmt.Errorf("add meters: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	for _, t := range c.Members() {
		k := meterKey{typ: t, scope: scope}
		if _, ok := r.meters[k]; ok {
			continue
		}
		r.meters[k] = NewMeter(r.clock)
		created++
	}
	if created > 0 {
		logger.Debug("创建计量器", "category", c.String(), "scope", scope, "count", created)
	}
	return nil
}

// removeScope 丢弃作用域的所有计量器
func (r *Registry) removeScope(c types.Category, scope string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for _, t := range c.Members() {
		k := meterKey{typ: t, scope: scope}
		if _, ok := r.meters[k]; ok {
			delete(r.meters, k)
			removed = true
		}
	}
	if removed {
		logger.Debug("丢弃计量器", "category", c.String(), "scope", scope)
	}
	return removed
}
