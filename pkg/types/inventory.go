package types

// ResourceKind 库存资源类型
type ResourceKind int

const (
	// ResourceDevice 网络设备
	ResourceDevice ResourceKind = iota + 1
	// ResourceDisk 磁盘
	ResourceDisk
	// ResourceInterface 网络接口
	ResourceInterface
)

// String 返回资源类型名称
func (k ResourceKind) String() string {
	switch k {
	case ResourceDevice:
		return "device"
	case ResourceDisk:
		return "disk"
	case ResourceInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// Category 返回资源对应的指标分类
func (k ResourceKind) Category() Category {
	switch k {
	case ResourceDevice:
		return CategoryControlMessage
	case ResourceDisk:
		return CategoryDisk
	case ResourceInterface:
		return CategoryNetwork
	default:
		return CategoryUnknown
	}
}

// InventoryEventKind 库存事件类型
type InventoryEventKind int

const (
	// InventoryAdded 资源加入
	InventoryAdded InventoryEventKind = iota + 1
	// InventoryRemoved 资源移除
	InventoryRemoved
)

// String 返回事件类型名称
func (k InventoryEventKind) String() string {
	switch k {
	case InventoryAdded:
		return "added"
	case InventoryRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// InventoryEvent 库存变更事件
type InventoryEvent struct {
	Kind     InventoryEventKind
	Resource ResourceKind
	Name     string
}
