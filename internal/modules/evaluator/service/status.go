package service

import (
	"fmt"
	"math"
	"tier_bot/internal/models"
	cooldown "tier_bot/internal/modules/cooldown/service"
	"time"
)

// Тексты статуса видит пользователь в рекомендации, это не просто лог.

func textLocked(profit float64) string {
	return fmt.Sprintf("profit %.1f%% (sell lock active - waiting)", profit)
}

func textCooldown(profit float64, v cooldown.Verdict) string {
	switch v.Reason {
	case cooldown.ReasonWaitingRise:
		return fmt.Sprintf("profit %.1f%% (waiting for rise - last %.1f%%)", profit, v.LastProfit)
	case cooldown.ReasonWaitingDrop:
		return fmt.Sprintf("profit %.1f%% (tier cooldown - waiting for drop below %.1f%%)", profit, v.Threshold)
	case cooldown.ReasonWaitingTime:
		return fmt.Sprintf("profit %.1f%% (tier cooldown - %d min wait)", profit, int(v.Remaining/time.Minute))
	default:
		return fmt.Sprintf("profit %.1f%% (tier cooldown)", profit)
	}
}

func textNoTier(profit float64) string {
	return fmt.Sprintf("profit %.1f%% (no tier reached)", profit)
}

func textZeroQty(profit float64, tier models.Tier) string {
	return fmt.Sprintf("profit %.1f%% (tier %g%% reached, sell quantity rounds to 0)", profit, tier.ThresholdPct)
}

func textSessionLimit(profit float64, limit int) string {
	return fmt.Sprintf("profit %.1f%% (session sell limit %d reached)", profit, limit)
}

func textPersistenceClosed(profit float64) string {
	return fmt.Sprintf("profit %.1f%% (cooldown state unavailable - sell skipped)", profit)
}

func textError(profit float64) string {
	return fmt.Sprintf("profit %.1f%% (evaluation failed)", profit)
}

func ratioPct(ratio float64) int {
	return int(math.Round(ratio * 100))
}

func textExecute(tier models.Tier) string {
	return fmt.Sprintf("tier %g%% take profit -> sell %d%%", tier.ThresholdPct, ratioPct(tier.SellRatio))
}

func textSignal(profit float64, tier models.Tier, label string, qty int64) string {
	return fmt.Sprintf("profit %.1f%% >= %g%% (tier %s) -> sell %d shares", profit, tier.ThresholdPct, label, qty)
}
