package pg

import (
	"context"
	"fmt"
	"tier_bot/internal/models"
	"tier_bot/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

const insertSellEvent = `
INSERT INTO tier_sell_events (id, portfolio_id, instrument_id, tier_index, quantity, profit_pct, payload)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// Journal пишет PARTIAL_SELL рекомендации в tier_sell_events.
type Journal struct {
	db db.TxManager
}

func NewJournal(db db.TxManager) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Append(ctx context.Context, rec models.Recommendation) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Journal.Append: %w", err)
		}
	}()

	var payload []byte
	payload, err = sonic.Marshal(rec)
	if err != nil {
		return err
	}
	id := uuid.New()

	return j.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		_, eErr := tx.Exec(ctxTx, insertSellEvent,
			id,
			rec.PortfolioID,
			rec.InstrumentID,
			rec.TierIndex,
			rec.Quantity,
			rec.ProfitPct,
			payload,
		)
		return eErr
	})
}
