// Package inventory 维护本节点的资源清单
//
// 清单包括设备（控制消息的作用域）、磁盘和网卡，
// 增删通过事件总线通知指标注册表和监控器。
package inventory

import (
	"context"

	"go.uber.org/fx"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("inventory",
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, s *Service) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					return s.Close()
				},
			})
		}),
	)
}

