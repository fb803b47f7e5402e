package models

// Tier: порог прибыли в процентах и доля текущего количества к продаже.
type Tier struct {
	ThresholdPct float64 `json:"threshold_pct" yaml:"threshold_pct"`
	SellRatio    float64 `json:"sell_ratio" yaml:"sell_ratio"`
}
