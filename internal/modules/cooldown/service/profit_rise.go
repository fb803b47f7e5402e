package service

import (
	"context"
	"tier_bot/internal/models"
	holdings "tier_bot/internal/modules/holdings/service"
	"tier_bot/pkg/logger"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ProfitRise: следующий тир только если прибыль выросла выше последней продажи + epsilon.
// Состояние: Holding.LastSellProfit, переживает рестарт.
type ProfitRise struct {
	store   holdings.Store
	epsilon decimal.Decimal
}

func NewProfitRise(store holdings.Store, epsilon float64) *ProfitRise {
	return &ProfitRise{
		store:   store,
		epsilon: decimal.NewFromFloat(epsilon),
	}
}

func (p *ProfitRise) Name() string { return NameProfitRise }

func (p *ProfitRise) Observe(context.Context, models.HoldingKey, float64) error { return nil }

func (p *ProfitRise) Allowed(ctx context.Context, key models.HoldingKey, profitPct float64) (Verdict, error) {
	h, err := p.store.Get(ctx, key)
	if errors.Is(err, holdings.ErrHoldingNotFound) {
		return Verdict{Allowed: true}, nil
	}
	if err != nil {
		return Verdict{}, errors.Wrapf(ErrPersistence, "read last_sell_profit %s: %v", key, err)
	}
	if h.LastSellProfit == nil {
		return Verdict{Allowed: true}, nil
	}

	last := *h.LastSellProfit
	gate := decimal.NewFromFloat(last).Add(p.epsilon)
	if decimal.NewFromFloat(profitPct).GreaterThan(gate) {
		logger.Info("[COOLDOWN] %s profit rise detected: %.2f%% -> %.2f%%", key, last, profitPct)
		return Verdict{Allowed: true, LastProfit: last}, nil
	}

	logger.Debug("[COOLDOWN] %s profit not risen: now %.2f%% <= last %.2f%%", key, profitPct, last)
	return Verdict{Allowed: false, Reason: ReasonWaitingRise, LastProfit: last}, nil
}

func (p *ProfitRise) Record(ctx context.Context, key models.HoldingKey, e Execution) error {
	v := e.ProfitPct
	if err := p.store.SetLastSellProfit(ctx, key, &v); err != nil {
		return errors.Wrapf(ErrPersistence, "write last_sell_profit %s: %v", key, err)
	}
	logger.Info("[COOLDOWN] %s last sell profit saved: %.2f%%", key, v)
	return nil
}

func (p *ProfitRise) Clear(ctx context.Context, key models.HoldingKey) error {
	err := p.store.SetLastSellProfit(ctx, key, nil)
	if err == nil || errors.Is(err, holdings.ErrHoldingNotFound) {
		return nil
	}
	return errors.Wrapf(ErrPersistence, "clear last_sell_profit %s: %v", key, err)
}
