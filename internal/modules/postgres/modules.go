package postgres

import (
	"context"
	"fmt"
	"sync"
	"tier_bot/internal/modules/config"
	"tier_bot/pkg/db"

	"go.uber.org/fx"
)

// Connector открывает пул только по первому запросу:
// при storage: memory база не нужна и не трогается.
type Connector struct {
	ctx context.Context
	cfg *config.Config

	once sync.Once
	tx   *db.PgTxManager
	err  error
}

func NewConnector(ctx context.Context, cfg *config.Config) *Connector {
	return &Connector{ctx: ctx, cfg: cfg}
}

func (c *Connector) Get() (*db.PgTxManager, error) {
	c.once.Do(func() {
		poolMaster, err := db.NewPool(c.ctx, db.PoolConfig{
			DSN:      c.cfg.DB,
			MaxConns: c.cfg.DBMaxConns,
		})
		if err != nil {
			c.err = fmt.Errorf("failed to create poolMaster: %w", err)
			return
		}

		if err = poolMaster.Ping(c.ctx); err != nil {
			poolMaster.Close()
			c.err = fmt.Errorf("failed to ping poolMaster: %w", err)
			return
		}

		c.tx = db.NewPgTxManager(poolMaster)
	})
	return c.tx, c.err
}

func (c *Connector) Close() {
	if c.tx != nil {
		c.tx.Close()
	}
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			NewConnector,
		),
		fx.Invoke(func(lc fx.Lifecycle, c *Connector) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					c.Close()
					return nil
				},
			})
		}),
	)
}
