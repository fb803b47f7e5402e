package runner

import (
	"context"
	"tier_bot/internal/models"
	"tier_bot/internal/modules/config"
	evaluator "tier_bot/internal/modules/evaluator/service"
	health "tier_bot/internal/modules/health/service"
	holdings "tier_bot/internal/modules/holdings/service"

	"go.uber.org/fx"
)

func NewRunner(
	cfg *config.Config,
	eval *evaluator.Evaluator,
	store holdings.Store,
	journal holdings.Journal,
	n TelegramNotifier,
	state *health.State,
) *Runner {
	return New(Config{
		MaxParallel: cfg.Runner.MaxParallel,
		BuyLockTTL:  cfg.Engine.BuyLockTTL,
		ChatID:      cfg.Telegram.ChatID,
	}, eval, store, journal, n, state)
}

func NewTicks(cfg *config.Config) chan models.ProfitTick {
	return make(chan models.ProfitTick, cfg.Runner.TickBuffer)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewRunner, // *Runner
			NewTicks,  // chan models.ProfitTick
			NewRouter, // *Router
		),
		fx.Invoke(func(lc fx.Lifecycle, rt *Router) {
			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						defer close(done)
						rt.Run(ctx)
					}()
					return nil
				},
				OnStop: func(stopCtx context.Context) error {
					cancel()
					select {
					case <-done:
					case <-stopCtx.Done():
					}
					return nil
				},
			})
		}),
	)
}
