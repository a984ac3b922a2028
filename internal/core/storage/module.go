package storage

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-cpman/config"
	"github.com/dep2p/go-cpman/pkg/lib/log"
)

var logger = log.Logger("core/storage")

// Params Storage 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
	Clock      clock.Clock    `optional:"true"`
}

// Result Storage 模块提供的结果
type Result struct {
	fx.Out

	Store  *Store
	Config Config
}

// Module 返回 Storage Fx 模块
//
// 提供:
//   - *Store: 时序库目录
//   - Config: 存储配置
//
// 生命周期:
//   - OnStop: 关闭所有时序库
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(
			ProvideStorage,
		),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideStorage 提供存储和配置
func ProvideStorage(p Params) (Result, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)

	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	return Result{
		Store:  NewStore(cfg, p.Clock),
		Config: cfg,
	}, nil
}

// registerLifecycle 注册生命周期钩子
func registerLifecycle(lc fx.Lifecycle, st *Store) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			logger.Info("正在关闭时序存储", "databases", st.Len())
			if err := st.Close(); err != nil {
				logger.Warn("时序存储关闭失败", "error", err)
				return err
			}
			logger.Info("时序存储已关闭")
			return nil
		},
	})
}
