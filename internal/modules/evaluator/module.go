package evaluator

import (
	"tier_bot/internal/modules/config"
	cooldown "tier_bot/internal/modules/cooldown/service"
	"tier_bot/internal/modules/evaluator/service"
	locks "tier_bot/internal/modules/locks/service"
	tiers "tier_bot/internal/modules/tiers/service"

	"go.uber.org/fx"
)

func NewEvaluator(
	cfg *config.Config,
	lm *locks.Manager,
	policy cooldown.Policy,
	table *tiers.Table,
	n service.ServiceNotifier,
) *service.Evaluator {
	return service.NewEvaluator(service.Config{
		SellLockTTL:        cfg.Engine.SellLockTTL,
		FailClosed:         cfg.Engine.PersistenceFailMode == config.FailClosed,
		ScoreBase:          cfg.Engine.ScoreBase,
		ScoreStep:          cfg.Engine.ScoreStep,
		MaxSellsPerSession: cfg.Engine.MaxSellsPerSession,
	}, lm, policy, table, n)
}

func Module() fx.Option {
	return fx.Module("evaluator",
		fx.Provide(
			NewEvaluator,
		),
	)
}
