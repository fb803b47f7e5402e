package pg

import (
	"context"
	"fmt"
	"tier_bot/internal/models"
	"tier_bot/internal/modules/holdings/service"
	"tier_bot/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const (
	selectHolding = `
SELECT portfolio_id, instrument_id, name, quantity, last_sell_profit, updated_at
FROM holdings
WHERE portfolio_id = $1 AND instrument_id = $2`

	selectPortfolio = `
SELECT portfolio_id, instrument_id, name, quantity, last_sell_profit, updated_at
FROM holdings
WHERE portfolio_id = $1
ORDER BY instrument_id`

	updateLastSellProfit = `
UPDATE holdings
SET last_sell_profit = $3, updated_at = now()
WHERE portfolio_id = $1 AND instrument_id = $2`
)

// Holdings: хранилище позиций в Postgres. Колонка last_sell_profit nullable.
type Holdings struct {
	db db.TxManager
}

// NewHoldings instance
func NewHoldings(db db.TxManager) *Holdings {
	return &Holdings{db: db}
}

func scanHolding(row pgx.Row) (*models.Holding, error) {
	var h models.Holding
	if err := row.Scan(
		&h.PortfolioID,
		&h.InstrumentID,
		&h.Name,
		&h.Quantity,
		&h.LastSellProfit,
		&h.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &h, nil
}

// Get in db
func (s *Holdings) Get(ctx context.Context, key models.HoldingKey) (h *models.Holding, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Holdings.Get %s: %w", key, err)
		}
	}()

	err = s.db.RunRepeatableRead(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		var sErr error
		h, sErr = scanHolding(tx.QueryRow(ctxTx, selectHolding, key.PortfolioID, key.InstrumentID))
		if errors.Is(sErr, pgx.ErrNoRows) {
			return service.ErrHoldingNotFound
		}
		return sErr
	})
	return h, err
}

// List in db
func (s *Holdings) List(ctx context.Context, portfolioID int64) (out []*models.Holding, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Holdings.List %d: %w", portfolioID, err)
		}
	}()

	err = s.db.RunRepeatableRead(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		rows, qErr := tx.Query(ctxTx, selectPortfolio, portfolioID)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()

		for rows.Next() {
			h, sErr := scanHolding(rows)
			if sErr != nil {
				return sErr
			}
			out = append(out, h)
		}
		return rows.Err()
	})
	return out, err
}

// SetLastSellProfit in db, nil пишет NULL.
func (s *Holdings) SetLastSellProfit(ctx context.Context, key models.HoldingKey, profit *float64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Holdings.SetLastSellProfit %s: %w", key, err)
		}
	}()

	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx db.Transaction) error {
		tag, eErr := tx.Exec(ctxTx, updateLastSellProfit, key.PortfolioID, key.InstrumentID, profit)
		if eErr != nil {
			return eErr
		}
		if tag.RowsAffected() == 0 {
			return service.ErrHoldingNotFound
		}
		return nil
	})
}
