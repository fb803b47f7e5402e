package models

import "time"

// ProfitTick: текущая доходность позиции, которую присылает торговый цикл.
type ProfitTick struct {
	PortfolioID  int64     `json:"portfolio_id"`
	InstrumentID string    `json:"instrument_id"`
	ProfitPct    float64   `json:"profit_pct"`
	At           time.Time `json:"at"`
}

func (t ProfitTick) Key() HoldingKey {
	return HoldingKey{PortfolioID: t.PortfolioID, InstrumentID: t.InstrumentID}
}
