package cooldown

import (
	"tier_bot/internal/modules/config"
	"tier_bot/internal/modules/cooldown/service"
	holdings "tier_bot/internal/modules/holdings/service"
	"tier_bot/pkg/logger"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("cooldown",
		fx.Provide(
			func(cfg *config.Config, store holdings.Store) (service.Policy, error) {
				p, err := service.New(service.Params{
					Name:    cfg.Engine.CooldownPolicy,
					Epsilon: cfg.Engine.ProfitRiseEpsilon,
					Window:  cfg.Engine.CooldownWindow,
					Store:   store,
				})
				if err != nil {
					return nil, err
				}
				logger.Info("[COOLDOWN] active policy: %s", p.Name())
				return p, nil
			},
		),
	)
}
