// Package eventbus 实现进程内事件总线
//
// 提供类型安全的事件发布/订阅机制，支持：
//   - 多订阅者
//   - 缓冲区配置，缓冲区满时丢弃并告警
//   - 发射器引用计数
//   - 有状态模式（Stateful）
//
// 资源清单服务通过本总线发布 types.InventoryEvent，
// 指标注册表和监控器订阅它来创建或回收按作用域的资源。
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	sub, _ := eventbus.Subscribe[types.InventoryEvent](bus)
//	defer sub.Close()
//
//	go func() {
//	    for ev := range sub.Out() {
//	        // 处理事件
//	    }
//	}()
//
//	em, _ := eventbus.NewEmitter[types.InventoryEvent](bus)
//	defer em.Close()
//	em.Emit(types.InventoryEvent{...})
package eventbus
