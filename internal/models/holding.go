package models

import (
	"fmt"
	"time"
)

// HoldingKey: позиция по одному инструменту внутри одного портфеля.
type HoldingKey struct {
	PortfolioID  int64
	InstrumentID string
}

func (k HoldingKey) String() string {
	return fmt.Sprintf("%d:%s", k.PortfolioID, k.InstrumentID)
}

// Holding хранит позицию и служебное состояние движка.
// Quantity меняется только исполненными сделками, LastSellProfit пишет только движок.
type Holding struct {
	PortfolioID    int64     `json:"portfolio_id" yaml:"portfolio_id"`
	InstrumentID   string    `json:"instrument_id" yaml:"instrument_id"`
	Name           string    `json:"name" yaml:"name"`
	Quantity       int64     `json:"quantity" yaml:"quantity"`
	LastSellProfit *float64  `json:"last_sell_profit,omitempty" yaml:"last_sell_profit"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"-"`
}

func (h *Holding) Key() HoldingKey {
	return HoldingKey{PortfolioID: h.PortfolioID, InstrumentID: h.InstrumentID}
}

// DisplayName для логов и текста рекомендаций.
func (h *Holding) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.InstrumentID
}

// Clone копирует позицию вместе с указателем LastSellProfit.
func (h *Holding) Clone() *Holding {
	if h == nil {
		return nil
	}
	c := *h
	if h.LastSellProfit != nil {
		v := *h.LastSellProfit
		c.LastSellProfit = &v
	}
	return &c
}
