package runner

import (
	"context"
	"tier_bot/internal/models"
	"tier_bot/pkg/logger"

	"github.com/pkg/errors"
)

// ErrBuyLocked: по инструменту уже идёт покупка.
var ErrBuyLocked = errors.New("buy lock active")

// StartSession открывает торговую сессию: сбрасываем кулдауны всех позиций
// портфелей и счётчики продаж. Возвращает число сброшенных позиций.
func (r *Runner) StartSession(ctx context.Context, portfolioIDs []int64) (int, error) {
	cleared := 0
	var firstErr error
	for _, pid := range portfolioIDs {
		list, err := r.store.List(ctx, pid)
		if err != nil {
			logger.Error("[SESSION] list portfolio %d: %v", pid, err)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "list portfolio %d", pid)
			}
			continue
		}
		for _, h := range list {
			if err = r.eval.ClearCooldown(ctx, h.Key()); err != nil {
				if firstErr == nil {
					firstErr = errors.Wrapf(err, "clear %s", h.Key())
				}
				continue
			}
			cleared++
		}
	}
	r.eval.ResetSession()

	logger.Info("[SESSION] started: portfolios=%v cleared=%d", portfolioIDs, cleared)
	r.notify(ctx, "🔔 Session started: %d holdings reset", cleared)
	return cleared, firstErr
}

// ClearCooldown: ручной сброс кулдауна одной позиции.
func (r *Runner) ClearCooldown(ctx context.Context, key models.HoldingKey) error {
	return r.eval.ClearCooldown(ctx, key)
}

// ConfirmSell вызывается после исполнения ордера: снимает лок продажи.
func (r *Runner) ConfirmSell(instrumentID string) {
	r.eval.ReleaseSell(instrumentID)
	logger.Info("[RUNNER] %s sell lock released", instrumentID)
}

// GuardBuy выполняет fn под локом на покупку.
func (r *Runner) GuardBuy(ctx context.Context, instrumentID string, fn func(ctx context.Context) error) error {
	if !r.eval.AcquireBuy(instrumentID, r.cfg.BuyLockTTL) {
		return errors.Wrap(ErrBuyLocked, instrumentID)
	}
	defer r.eval.ReleaseBuy(instrumentID)
	return fn(ctx)
}

// Holdings: текущие позиции портфеля для статуса.
func (r *Runner) Holdings(ctx context.Context, portfolioID int64) ([]*models.Holding, error) {
	return r.store.List(ctx, portfolioID)
}

func (r *Runner) Tiers() []models.Tier { return r.eval.Tiers() }

func (r *Runner) PolicyName() string { return r.eval.PolicyName() }
