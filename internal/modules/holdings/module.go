package holdings

import (
	"tier_bot/internal/modules/config"
	"tier_bot/internal/modules/holdings/service"
	"tier_bot/internal/modules/holdings/service/pg"
	"tier_bot/internal/modules/postgres"
	"tier_bot/pkg/logger"

	"go.uber.org/fx"
)

type Out struct {
	fx.Out

	Store   service.Store
	Journal service.Journal
}

// NewStorage выбирает реализацию по cfg.Storage.
func NewStorage(cfg *config.Config, conn *postgres.Connector) (Out, error) {
	if cfg.Storage == config.StoragePostgres {
		tx, err := conn.Get()
		if err != nil {
			return Out{}, err
		}
		logger.Info("[HOLDINGS] postgres storage")
		return Out{Store: pg.NewHoldings(tx), Journal: pg.NewJournal(tx)}, nil
	}

	logger.Info("[HOLDINGS] memory storage, %d seeded holdings", len(cfg.Holdings))
	return Out{
		Store:   service.NewMemory(cfg.Holdings...),
		Journal: service.NewMemoryJournal(),
	}, nil
}

func Module() fx.Option {
	return fx.Module("holdings",
		fx.Provide(
			NewStorage,
		),
	)
}
