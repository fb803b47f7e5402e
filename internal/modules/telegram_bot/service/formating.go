package service

import (
	"fmt"
	"strings"
	"tier_bot/internal/models"
)

func formatTiers(tiers []models.Tier, policy string) string {
	var b strings.Builder
	b.WriteString("📶 Тиры\n\n")
	for i, tr := range tiers {
		fmt.Fprintf(&b, "%d/%d: >= %s%% -> sell %s%%\n", i+1, len(tiers), f2(tr.ThresholdPct), f0(tr.SellRatio*100))
	}
	fmt.Fprintf(&b, "\nКулдаун: %s", policy)
	return b.String()
}

func formatHoldings(portfolioID int64, list []*models.Holding) string {
	if len(list) == 0 {
		return fmt.Sprintf("📭 Портфель %d: позиций нет", portfolioID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Портфель %d\n", portfolioID)
	for _, h := range list {
		last := "-"
		if h.LastSellProfit != nil {
			last = f2(*h.LastSellProfit) + "%"
		}
		fmt.Fprintf(&b, "- %s qty=%d last_sell=%s\n", h.DisplayName(), h.Quantity, last)
	}
	return b.String()
}

func formatSession(ids []int64, cleared int) string {
	return fmt.Sprintf("🔔 Сессия открыта: портфели %v, сброшено позиций: %d", ids, cleared)
}

func formatRecommendation(rec models.Recommendation) string {
	if rec.IsSell() {
		msg := rec.StatusText
		if len(rec.Signals) > 0 {
			msg = rec.Signals[0].Message
		}
		return fmt.Sprintf("💰 %s: %s (score %d)", rec.InstrumentID, msg, rec.Score)
	}
	return fmt.Sprintf("⏸ %s [%s]: %s", rec.InstrumentID, rec.State, rec.StatusText)
}
