package service

import (
	"fmt"
	"math"
	"tier_bot/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrConfiguration: пустая или неупорядоченная таблица тиров.
var ErrConfiguration = errors.New("tier table configuration error")

// Table: неизменяемая таблица тиров, пороги строго возрастают.
type Table struct {
	tiers []models.Tier
}

func NewTable(tiers []models.Tier) (*Table, error) {
	if len(tiers) == 0 {
		return nil, errors.Wrap(ErrConfiguration, "tier table is empty")
	}
	for i, t := range tiers {
		if !finite(t.ThresholdPct) || !finite(t.SellRatio) {
			return nil, errors.Wrapf(ErrConfiguration,
				"tier %d: threshold %v%% / sell_ratio %v must be finite", i+1, t.ThresholdPct, t.SellRatio)
		}
		if t.SellRatio <= 0 || t.SellRatio > 1 {
			return nil, errors.Wrapf(ErrConfiguration, "tier %d: sell_ratio %v not in (0,1]", i+1, t.SellRatio)
		}
		if i > 0 && t.ThresholdPct <= tiers[i-1].ThresholdPct {
			return nil, errors.Wrapf(ErrConfiguration,
				"tier %d: threshold %v%% must be greater than %v%%", i+1, t.ThresholdPct, tiers[i-1].ThresholdPct)
		}
	}
	cp := make([]models.Tier, len(tiers))
	copy(cp, tiers)
	return &Table{tiers: cp}, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (t *Table) Len() int { return len(t.tiers) }

func (t *Table) At(i int) models.Tier { return t.tiers[i] }

// Tiers возвращает копию таблицы.
func (t *Table) Tiers() []models.Tier {
	out := make([]models.Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}

// Select: тир с наибольшим порогом, не превышающим profitPct.
func (t *Table) Select(profitPct float64) (int, models.Tier, bool) {
	return Select(profitPct, t.tiers)
}

// Select ищет с конца: пороги возрастают, первый подходящий и есть максимальный.
func Select(profitPct float64, tiers []models.Tier) (int, models.Tier, bool) {
	for i := len(tiers) - 1; i >= 0; i-- {
		if tiers[i].ThresholdPct <= profitPct {
			return i, tiers[i], true
		}
	}
	return -1, models.Tier{}, false
}

// SellQuantity = floor(quantity * ratio) в десятичной арифметике,
// чтобы 100 * 0.29 давало 29, а не 28.
func SellQuantity(quantity int64, tier models.Tier) int64 {
	if quantity <= 0 {
		return 0
	}
	return decimal.NewFromInt(quantity).
		Mul(decimal.NewFromFloat(tier.SellRatio)).
		Floor().
		IntPart()
}

// Label: "2/3" для сообщений.
func (t *Table) Label(i int) string {
	return fmt.Sprintf("%d/%d", i+1, len(t.tiers))
}
