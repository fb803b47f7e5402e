package tracing

import (
	"context"
	"tier_bot/internal/modules/config"
	"tier_bot/pkg/logger"
	"tier_bot/pkg/tracing"

	"go.uber.org/fx"
)

// Module ставит глобальный трейсер, спаны открываются через pkg/tracing.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			tracing.SetServiceName(cfg.Service.Name)
			_, closeFn, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Tracing.Host,
				Port: cfg.Tracing.Port,
			})
			if err != nil {
				return err
			}
			if cfg.Tracing.Host != "" {
				logger.Info("[TRACING] jaeger agent %s:%d", cfg.Tracing.Host, cfg.Tracing.Port)
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeFn()
					return nil
				},
			})
			return nil
		}),
	)
}
