package telegram

import (
	"context"
	evaluator "tier_bot/internal/modules/evaluator/service"
	"tier_bot/internal/modules/telegram_bot/service"
	"tier_bot/internal/runner"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("telegram",
		// 1. Сервис Telegram как *service.Telegram
		fx.Provide(
			service.NewTelegram, // func(*config.Config) (*service.Telegram, error)
		),

		// 2. Адаптеры: *service.Telegram -> нотификаторы движка
		fx.Provide(
			func(t *service.Telegram) runner.TelegramNotifier {
				return t
			},
			func(t *service.Telegram) evaluator.ServiceNotifier {
				return t
			},
		),
		// Команды подключаем после сборки раннера, иначе цикл зависимостей
		fx.Invoke(
			func(lc fx.Lifecycle, t *service.Telegram, r *runner.Runner) {
				t.SetCommands(r)
				ctx, cancel := context.WithCancel(context.Background())
				lc.Append(fx.Hook{
					OnStart: func(_ context.Context) error {
						go t.Start(ctx)
						return nil
					},
					OnStop: func(_ context.Context) error {
						cancel()
						t.Stop()
						return nil
					},
				})
			},
		),
	)
}
