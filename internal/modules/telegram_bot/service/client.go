package service

import (
	"context"
	"fmt"
	"sync"
	"tier_bot/internal/models"
	"tier_bot/internal/modules/config"
	"tier_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Commands: то, что бот умеет делать с движком по командам из чата.
type Commands interface {
	Holdings(ctx context.Context, portfolioID int64) ([]*models.Holding, error)
	Tiers() []models.Tier
	PolicyName() string
	ClearCooldown(ctx context.Context, key models.HoldingKey) error
	StartSession(ctx context.Context, portfolioIDs []int64) (int, error)
	OnTicks(ctx context.Context, ticks []models.ProfitTick) []models.Recommendation
}

// Telegram: уведомления в чат и команды оператора.
// Без токена работает только как логгер сообщений.
type Telegram struct {
	bot        *tgbot.BotAPI
	chatID     int64
	portfolios []int64

	mu   sync.RWMutex
	cmds Commands
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	t := &Telegram{
		chatID:     cfg.Telegram.ChatID,
		portfolios: cfg.Session.Portfolios,
	}
	if cfg.Telegram.Token == "" {
		logger.Warn("[TG] token is empty, notifications go to log only")
		return t, nil
	}

	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	t.bot = b
	return t, nil
}

func (t *Telegram) SetCommands(c Commands) {
	t.mu.Lock()
	t.cmds = c
	t.mu.Unlock()
}

func (t *Telegram) commands() Commands {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cmds
}

func (t *Telegram) Send(ctx context.Context, chatID int64, msg string) (tgbot.Message, error) {
	if t.bot == nil || chatID == 0 {
		logger.Info("[TG] %s", msg)
		return tgbot.Message{}, nil
	}
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

// SendService: служебное сообщение в чат оператора, ошибки только логируем.
func (t *Telegram) SendService(ctx context.Context, format string, args ...any) {
	if _, err := t.SendF(ctx, t.chatID, format, args...); err != nil {
		logger.Warn("[TG] service message: %v", err)
	}
}

// Start ...
func (t *Telegram) Start(ctx context.Context) {
	if t.bot == nil {
		return
	}
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) Stop() {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
}
