package config

import (
	"context"
	"tier_bot/pkg/logger"

	"go.uber.org/fx"
)

// Module регистрирует конфиг и поднимает логгер сразу после чтения.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *Config) error {
			logger.SetServiceName(cfg.Service.Name)
			if err := logger.Init(logger.Config{
				Level:       cfg.Log.Level,
				Development: cfg.Log.Development,
			}); err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					logger.Sync()
					return nil
				},
			})
			return nil
		}),
	)
}
