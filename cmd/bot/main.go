package main

import (
	"context"
	"log"
	"tier_bot/internal/modules/bootstrap"
	"tier_bot/internal/modules/config"
	"tier_bot/internal/modules/cooldown"
	"tier_bot/internal/modules/evaluator"
	"tier_bot/internal/modules/health"
	"tier_bot/internal/modules/holdings"
	"tier_bot/internal/modules/locks"
	"tier_bot/internal/modules/postgres"
	"tier_bot/internal/modules/tiers"
	"tier_bot/internal/modules/tracing"
	"tier_bot/internal/runner"

	telegram "tier_bot/internal/modules/telegram_bot"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

func main() {
	// .env не обязателен: в контейнере всё приходит через окружение
	if err := godotenv.Load(); err != nil {
		log.Printf("[MAIN] .env not loaded: %v", err)
	}

	fx.New(appOptions()).Run()
}

func appOptions() fx.Option {
	return fx.Options(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		tracing.Module(),
		postgres.Module(),
		holdings.Module(),
		locks.Module(),
		tiers.Module(),
		cooldown.Module(),
		telegram.Module(),
		evaluator.Module(),
		runner.Module(),
		bootstrap.Module(),
		health.Module(),
	)
}
