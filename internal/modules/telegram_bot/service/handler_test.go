package service

import (
	"context"
	"testing"
	"tier_bot/internal/models"
	"tier_bot/internal/modules/config"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommands struct {
	holdings []*models.Holding
	cleared  []models.HoldingKey
	sessions [][]int64
	ticks    []models.ProfitTick
	clearErr error
}

func (f *fakeCommands) Holdings(context.Context, int64) ([]*models.Holding, error) {
	return f.holdings, nil
}

func (f *fakeCommands) Tiers() []models.Tier {
	return []models.Tier{{ThresholdPct: 1.6, SellRatio: 0.3}, {ThresholdPct: 2.1, SellRatio: 0.4}}
}

func (f *fakeCommands) PolicyName() string { return "profit_rise" }

func (f *fakeCommands) ClearCooldown(_ context.Context, key models.HoldingKey) error {
	f.cleared = append(f.cleared, key)
	return f.clearErr
}

func (f *fakeCommands) StartSession(_ context.Context, ids []int64) (int, error) {
	f.sessions = append(f.sessions, ids)
	return 3, nil
}

func (f *fakeCommands) OnTicks(_ context.Context, ticks []models.ProfitTick) []models.Recommendation {
	f.ticks = append(f.ticks, ticks...)
	return []models.Recommendation{{
		InstrumentID: ticks[0].InstrumentID,
		Action:       models.ActionNone,
		State:        models.StateNoTier,
		StatusText:   "profit 1.2% (no tier reached)",
	}}
}

func newTestTelegram(t *testing.T) (*Telegram, *fakeCommands) {
	t.Helper()
	cfg := config.Default()
	cfg.Session.Portfolios = []int64{1}
	tg, err := NewTelegram(&cfg)
	require.NoError(t, err)
	cmds := &fakeCommands{}
	tg.SetCommands(cmds)
	return tg, cmds
}

func TestNewTelegramWithoutTokenIsLogOnly(t *testing.T) {
	cfg := config.Default()
	tg, err := NewTelegram(&cfg)
	require.NoError(t, err)

	_, err = tg.SendF(context.Background(), 42, "hello %d", 1)
	assert.NoError(t, err)
	tg.SendService(context.Background(), "service %s", "msg")
	tg.Start(context.Background())
	tg.Stop()
}

func TestExecCommandWithoutEngine(t *testing.T) {
	cfg := config.Default()
	tg, err := NewTelegram(&cfg)
	require.NoError(t, err)
	assert.Contains(t, tg.execCommand(context.Background(), "tiers", ""), "не запущен")
}

func TestExecCommandTiers(t *testing.T) {
	tg, _ := newTestTelegram(t)
	out := tg.execCommand(context.Background(), "tiers", "")
	assert.Contains(t, out, "1/2: >= 1.6% -> sell 30%")
	assert.Contains(t, out, "2/2: >= 2.1% -> sell 40%")
	assert.Contains(t, out, "profit_rise")
}

func TestExecCommandStatus(t *testing.T) {
	tg, cmds := newTestTelegram(t)
	last := 2.1
	cmds.holdings = []*models.Holding{
		{PortfolioID: 1, InstrumentID: "005930", Name: "Samsung", Quantity: 70, LastSellProfit: &last},
		{PortfolioID: 1, InstrumentID: "000660", Quantity: 10},
	}

	out := tg.execCommand(context.Background(), "status", "1")
	assert.Contains(t, out, "Samsung qty=70 last_sell=2.1%")
	assert.Contains(t, out, "000660 qty=10 last_sell=-")

	assert.Contains(t, tg.execCommand(context.Background(), "status", ""), "Формат")
	assert.Contains(t, tg.execCommand(context.Background(), "status", "abc"), "Некорректный")
}

func TestExecCommandClear(t *testing.T) {
	tg, cmds := newTestTelegram(t)

	out := tg.execCommand(context.Background(), "clear", "1 005930")
	assert.Contains(t, out, "1:005930")
	assert.Equal(t, []models.HoldingKey{{PortfolioID: 1, InstrumentID: "005930"}}, cmds.cleared)

	cmds.clearErr = errors.New("db down")
	assert.Contains(t, tg.execCommand(context.Background(), "clear", "1 005930"), "db down")
}

func TestExecCommandSession(t *testing.T) {
	tg, cmds := newTestTelegram(t)

	assert.Contains(t, tg.execCommand(context.Background(), "session", ""), "сброшено позиций: 3")
	tg.execCommand(context.Background(), "session", "2 3")
	assert.Equal(t, [][]int64{{1}, {2, 3}}, cmds.sessions)
	assert.Equal(t, []int64{1}, tg.portfolios)
}

func TestExecCommandEval(t *testing.T) {
	tg, cmds := newTestTelegram(t)

	out := tg.execCommand(context.Background(), "eval", "1 005930 1,2%")
	assert.Contains(t, out, "NO_TIER")
	require.Len(t, cmds.ticks, 1)
	assert.Equal(t, 1.2, cmds.ticks[0].ProfitPct)

	assert.Contains(t, tg.execCommand(context.Background(), "eval", "1 005930 x"), "Некорректная")
}
