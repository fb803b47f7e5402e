package tiers

import (
	"tier_bot/internal/modules/config"
	"tier_bot/internal/modules/tiers/service"

	"go.uber.org/fx"
)

// Module: ошибка таблицы тиров роняет старт приложения.
func Module() fx.Option {
	return fx.Module("tiers",
		fx.Provide(
			func(cfg *config.Config) (*service.Table, error) {
				return service.NewTable(cfg.Engine.Tiers)
			},
		),
	)
}
