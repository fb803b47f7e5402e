package bootstrap

import (
	"context"
	bootstrap "tier_bot/internal/modules/bootstrap/service"
	"tier_bot/internal/modules/config"
	evaluator "tier_bot/internal/modules/evaluator/service"
	holdings "tier_bot/internal/modules/holdings/service"
	"tier_bot/internal/runner"
	"tier_bot/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(
			func(store holdings.Store, n evaluator.ServiceNotifier) *bootstrap.Warmuper {
				return bootstrap.NewWarmuper(store, n)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wu *bootstrap.Warmuper, r *runner.Runner) error {
			// warmup синхронно: с нерабочим хранилищем не стартуем
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					_, err := wu.Warmup(ctx, cfg.Session.Portfolios)
					return err
				},
			})

			if cfg.Session.OpenAt == "" {
				logger.Info("[BOOT] session schedule disabled")
				return nil
			}
			sched, err := bootstrap.NewSessionScheduler(cfg.Session.OpenAt, cfg.Session.Timezone, cfg.Session.Portfolios, r)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go sched.Run(ctx)
					return nil
				},
				OnStop: func(_ context.Context) error {
					cancel()
					return nil
				},
			})
			return nil
		}),
	)
}
