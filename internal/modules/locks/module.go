package locks

import (
	"tier_bot/internal/modules/config"
	"tier_bot/internal/modules/locks/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("locks",
		fx.Provide(
			func(cfg *config.Config) *service.Manager {
				return service.NewManager(cfg.Engine.LockShards)
			},
		),
	)
}
