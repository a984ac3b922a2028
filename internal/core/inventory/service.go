package inventory

import (
	"sort"
	"sync"

	"github.com/dep2p/go-cpman/internal/core/eventbus"
	"github.com/dep2p/go-cpman/pkg/lib/log"
	"github.com/dep2p/go-cpman/pkg/types"
)

var logger = log.Logger("core/inventory")

// Service 资源清单服务
//
// 维护本节点当前存在的设备、磁盘和网卡集合。
// 每次实际发生的增删都会在事件总线上发布一个 types.InventoryEvent，
// 重复添加或删除不存在的资源不产生事件。
type Service struct {
	mu   sync.RWMutex
	sets map[types.ResourceKind]map[string]struct{}

	emitter *eventbus.Emitter[types.InventoryEvent]
}

// New 创建资源清单服务
//
// bus 为 nil 时不发布事件。
func New(bus *eventbus.Bus) (*Service, error) {
	s := &Service{
		sets: map[types.ResourceKind]map[string]struct{}{
			types.ResourceDevice:    {},
			types.ResourceDisk:      {},
			types.ResourceInterface: {},
		},
	}
	if bus != nil {
		em, err := eventbus.NewEmitter[types.InventoryEvent](bus)
		if err != nil {
			return nil, err
		}
		s.emitter = em
	}
	return s, nil
}

// ============================================================================
//                              变更
// ============================================================================

// AddDevice 添加设备
func (s *Service) AddDevice(id string) bool {
	return s.add(types.ResourceDevice, id)
}

// RemoveDevice 删除设备
func (s *Service) RemoveDevice(id string) bool {
	return s.remove(types.ResourceDevice, id)
}

// AddDisk 添加磁盘
func (s *Service) AddDisk(name string) bool {
	return s.add(types.ResourceDisk, name)
}

// RemoveDisk 删除磁盘
func (s *Service) RemoveDisk(name string) bool {
	return s.remove(types.ResourceDisk, name)
}

// AddInterface 添加网卡
func (s *Service) AddInterface(name string) bool {
	return s.add(types.ResourceInterface, name)
}

// RemoveInterface 删除网卡
func (s *Service) RemoveInterface(name string) bool {
	return s.remove(types.ResourceInterface, name)
}

func (s *Service) add(kind types.ResourceKind, name string) bool {
	if name == "" {
		return false
	}

	s.mu.Lock()
	set := s.sets[kind]
	if _, ok := set[name]; ok {
		s.mu.Unlock()
		return false
	}
	set[name] = struct{}{}
	s.mu.Unlock()

	logger.Debug("资源上线", "kind", kind.String(), "name", name)
	s.publish(types.InventoryEvent{Kind: types.InventoryAdded, Resource: kind, Name: name})
	return true
}

func (s *Service) remove(kind types.ResourceKind, name string) bool {
	s.mu.Lock()
	set := s.sets[kind]
	if _, ok := set[name]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(set, name)
	s.mu.Unlock()

	logger.Debug("资源下线", "kind", kind.String(), "name", name)
	s.publish(types.InventoryEvent{Kind: types.InventoryRemoved, Resource: kind, Name: name})
	return true
}

func (s *Service) publish(ev types.InventoryEvent) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ev); err != nil {
		logger.Warn("发布资源事件失败", "event", ev.Kind.String(), "name", ev.Name, "error", err)
	}
}

// ============================================================================
//                              查询
// ============================================================================

// Devices 返回设备列表（已排序）
func (s *Service) Devices() []string {
	return s.list(types.ResourceDevice)
}

// Disks 返回磁盘列表（已排序）
func (s *Service) Disks() []string {
	return s.list(types.ResourceDisk)
}

// Interfaces 返回网卡列表（已排序）
func (s *Service) Interfaces() []string {
	return s.list(types.ResourceInterface)
}

// Has 检查资源是否存在
func (s *Service) Has(kind types.ResourceKind, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sets[kind][name]
	return ok
}

func (s *Service) list(kind types.ResourceKind) []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.sets[kind]))
	for name := range s.sets[kind] {
		out = append(out, name)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Close 释放发射器
func (s *Service) Close() error {
	if s.emitter == nil {
		return nil
	}
	return s.emitter.Close()
}
