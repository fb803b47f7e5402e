package service

import (
	"context"
	"strings"
	"tier_bot/internal/models"
	"tier_bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "Команды:\n" +
	"/status <portfolio>: позиции и последняя продажа\n" +
	"/tiers: таблица тиров и политика кулдауна\n" +
	"/clear <portfolio> <instrument>: сбросить кулдаун\n" +
	"/session [portfolio ...]: открыть сессию\n" +
	"/eval <portfolio> <instrument> <profit%>: оценить тик"

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}
	chatID := msg.Chat.ID
	// команды принимаем только из чата оператора
	if t.chatID != 0 && chatID != t.chatID {
		logger.Warn("[TG] command from foreign chat %d ignored", chatID)
		return
	}

	reply := t.execCommand(ctx, msg.Command(), msg.CommandArguments())
	if _, err := t.Send(ctx, chatID, reply); err != nil {
		logger.Error("[TG] reply error: %v", err)
	}
}

// execCommand возвращает текст ответа на команду.
func (t *Telegram) execCommand(ctx context.Context, cmd, rawArgs string) string {
	c := t.commands()
	if c == nil {
		return "⏳ Движок ещё не запущен"
	}
	args := strings.Fields(rawArgs)

	switch cmd {
	case "start", "help":
		return helpText

	case "tiers":
		return formatTiers(c.Tiers(), c.PolicyName())

	case "status":
		if len(args) != 1 {
			return "Формат: /status <portfolio>"
		}
		pid, ok := parseInt64(args[0])
		if !ok {
			return "❗️ Некорректный portfolio: " + args[0]
		}
		list, err := c.Holdings(ctx, pid)
		if err != nil {
			return "❗️ Ошибка чтения позиций: " + err.Error()
		}
		return formatHoldings(pid, list)

	case "clear":
		if len(args) != 2 {
			return "Формат: /clear <portfolio> <instrument>"
		}
		pid, ok := parseInt64(args[0])
		if !ok {
			return "❗️ Некорректный portfolio: " + args[0]
		}
		key := models.HoldingKey{PortfolioID: pid, InstrumentID: args[1]}
		if err := c.ClearCooldown(ctx, key); err != nil {
			return "❗️ Не удалось сбросить кулдаун: " + err.Error()
		}
		return "✅ Кулдаун сброшен: " + key.String()

	case "session":
		ids := t.portfolios
		if len(args) > 0 {
			ids = ids[:0:0]
			for _, a := range args {
				pid, ok := parseInt64(a)
				if !ok {
					return "❗️ Некорректный portfolio: " + a
				}
				ids = append(ids, pid)
			}
		}
		if len(ids) == 0 {
			return "Формат: /session <portfolio ...>"
		}
		cleared, err := c.StartSession(ctx, ids)
		if err != nil {
			return "⚠️ Сессия открыта с ошибками: " + err.Error()
		}
		return formatSession(ids, cleared)

	case "eval":
		if len(args) != 3 {
			return "Формат: /eval <portfolio> <instrument> <profit%>"
		}
		pid, ok := parseInt64(args[0])
		if !ok {
			return "❗️ Некорректный portfolio: " + args[0]
		}
		profit, ok := parseFloat(args[2])
		if !ok {
			return "❗️ Некорректная прибыль: " + args[2]
		}
		recs := c.OnTicks(ctx, []models.ProfitTick{{
			PortfolioID:  pid,
			InstrumentID: args[1],
			ProfitPct:    profit,
		}})
		if len(recs) == 0 {
			return "Нет рекомендаций"
		}
		return formatRecommendation(recs[0])

	default:
		return "Неизвестная команда. " + helpText
	}
}
