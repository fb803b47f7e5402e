package service

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"tier_bot/internal/models"
	cooldown "tier_bot/internal/modules/cooldown/service"
	holdings "tier_bot/internal/modules/holdings/service"
	locks "tier_bot/internal/modules/locks/service"
	tiers "tier_bot/internal/modules/tiers/service"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultTiers = []models.Tier{
	{ThresholdPct: 1.6, SellRatio: 0.3},
	{ThresholdPct: 2.1, SellRatio: 0.3},
	{ThresholdPct: 2.6, SellRatio: 0.4},
}

var samsung = models.Holding{PortfolioID: 1, InstrumentID: "005930", Name: "Samsung", Quantity: 100}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (n *recordingNotifier) SendService(_ context.Context, format string, args ...any) {
	n.mu.Lock()
	n.msgs = append(n.msgs, fmt.Sprintf(format, args...))
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, models.HoldingKey) (*models.Holding, error) {
	return nil, errors.New("connection reset")
}
func (brokenStore) List(context.Context, int64) ([]*models.Holding, error) {
	return nil, errors.New("connection reset")
}
func (brokenStore) SetLastSellProfit(context.Context, models.HoldingKey, *float64) error {
	return errors.New("connection reset")
}

// writeFailStore читает нормально, но не пишет.
type writeFailStore struct {
	*holdings.Memory
}

func (writeFailStore) SetLastSellProfit(context.Context, models.HoldingKey, *float64) error {
	return errors.New("disk full")
}

// panicPolicy падает на проверке кулдауна.
type panicPolicy struct{ cooldown.Policy }

func (panicPolicy) Observe(context.Context, models.HoldingKey, float64) error { return nil }

func (panicPolicy) Allowed(context.Context, models.HoldingKey, float64) (cooldown.Verdict, error) {
	panic("boom")
}

// recordPanicPolicy пропускает продажу и падает уже после захвата лока.
type recordPanicPolicy struct{ cooldown.Policy }

func (recordPanicPolicy) Observe(context.Context, models.HoldingKey, float64) error { return nil }

func (recordPanicPolicy) Allowed(context.Context, models.HoldingKey, float64) (cooldown.Verdict, error) {
	return cooldown.Verdict{Allowed: true}, nil
}

func (recordPanicPolicy) Record(context.Context, models.HoldingKey, cooldown.Execution) error {
	panic("record boom")
}

// observePanicPolicy падает раньше проверки лока.
type observePanicPolicy struct{ cooldown.Policy }

func (observePanicPolicy) Observe(context.Context, models.HoldingKey, float64) error {
	panic("observe boom")
}

type fixture struct {
	eval     *Evaluator
	locks    *locks.Manager
	store    *holdings.Memory
	clock    *fakeClock
	notifier *recordingNotifier
}

func defaultConfig() Config {
	return Config{
		SellLockTTL: 30 * time.Second,
		ScoreBase:   70,
		ScoreStep:   5,
	}
}

func newFixture(t *testing.T, cfg Config, policy func(store holdings.Store, now func() time.Time) cooldown.Policy) *fixture {
	t.Helper()
	clk := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	store := holdings.NewMemory(samsung)
	table, err := tiers.NewTable(defaultTiers)
	require.NoError(t, err)
	lm := locks.NewManager(4, locks.WithClock(clk.Now))
	n := &recordingNotifier{}
	if policy == nil {
		policy = func(s holdings.Store, _ func() time.Time) cooldown.Policy {
			return cooldown.NewProfitRise(s, 0.1)
		}
	}
	return &fixture{
		eval:     NewEvaluator(cfg, lm, policy(store, clk.Now), table, n),
		locks:    lm,
		store:    store,
		clock:    clk,
		notifier: n,
	}
}

// sell: оценка и, если продаём, снятие лока как после исполненного ордера.
func (f *fixture) sell(profit float64) models.Recommendation {
	rec := f.eval.Evaluate(context.Background(), samsung, profit)
	if rec.IsSell() {
		f.eval.ReleaseSell(rec.InstrumentID)
	}
	return rec
}

func TestEvaluateTieredScenario(t *testing.T) {
	f := newFixture(t, defaultConfig(), nil)

	steps := []struct {
		profit float64
		state  models.EvalState
		qty    int64
		tier   int
	}{
		{profit: 1.7, state: models.StateExecute, qty: 30, tier: 0},
		{profit: 2.1, state: models.StateExecute, qty: 30, tier: 1},
		{profit: 2.1, state: models.StateCooldownBlocked, qty: 0, tier: -1},
		{profit: 2.6, state: models.StateExecute, qty: 40, tier: 2},
	}
	for i, st := range steps {
		rec := f.sell(st.profit)
		assert.Equal(t, st.state, rec.State, "step %d", i)
		assert.Equal(t, st.qty, rec.Quantity, "step %d", i)
		assert.Equal(t, st.tier, rec.TierIndex, "step %d", i)
		if st.qty > 0 {
			assert.Equal(t, models.ActionPartialSell, rec.Action)
		} else {
			assert.Equal(t, models.ActionNone, rec.Action)
		}
	}

	h, err := f.store.Get(context.Background(), samsung.Key())
	require.NoError(t, err)
	require.NotNil(t, h.LastSellProfit)
	assert.Equal(t, 2.6, *h.LastSellProfit)
}

func TestEvaluateExecuteRecommendation(t *testing.T) {
	f := newFixture(t, defaultConfig(), nil)

	rec := f.eval.Evaluate(context.Background(), samsung, 2.6)

	require.Equal(t, models.StateExecute, rec.State)
	assert.Equal(t, 80, rec.Score)
	assert.True(t, rec.IsLocked)
	assert.Equal(t, "tier 2.6% take profit -> sell 40%", rec.StatusText)
	require.NotNil(t, rec.Tier)
	assert.Equal(t, 2.6, rec.Tier.ThresholdPct)
	require.Len(t, rec.Signals, 1)
	sig := rec.Signals[0]
	assert.Equal(t, "TIERED_PROFIT", sig.Type)
	assert.Equal(t, "HIGH", sig.Level)
	assert.Equal(t, "profit 2.6% >= 2.6% (tier 3/3) -> sell 40 shares", sig.Message)
	assert.Equal(t, 80, sig.Score)
	assert.True(t, f.locks.IsLocked(locks.KindSell, "005930"))
	assert.Empty(t, rec.Errors)
}

func TestEvaluateStopStates(t *testing.T) {
	t.Run("no tier", func(t *testing.T) {
		f := newFixture(t, defaultConfig(), nil)
		rec := f.eval.Evaluate(context.Background(), samsung, 1.2)
		assert.Equal(t, models.StateNoTier, rec.State)
		assert.Equal(t, "profit 1.2% (no tier reached)", rec.StatusText)
		assert.Equal(t, -1, rec.TierIndex)
		assert.False(t, f.locks.IsLocked(locks.KindSell, "005930"))
	})

	t.Run("locked", func(t *testing.T) {
		f := newFixture(t, defaultConfig(), nil)
		require.True(t, f.locks.Acquire(locks.KindSell, "005930", time.Minute))
		rec := f.eval.Evaluate(context.Background(), samsung, 2.4)
		assert.Equal(t, models.StateLocked, rec.State)
		assert.Equal(t, "profit 2.4% (sell lock active - waiting)", rec.StatusText)
		assert.Equal(t, models.ActionNone, rec.Action)
	})

	t.Run("profit rise", func(t *testing.T) {
		f := newFixture(t, defaultConfig(), nil)
		require.True(t, f.sell(2.1).IsSell())
		rec := f.sell(2.1)
		assert.Equal(t, models.StateCooldownBlocked, rec.State)
		assert.Equal(t, "profit 2.1% (waiting for rise - last 2.1%)", rec.StatusText)
	})

	t.Run("threshold cross", func(t *testing.T) {
		f := newFixture(t, defaultConfig(), func(holdings.Store, func() time.Time) cooldown.Policy {
			return cooldown.NewThresholdCross()
		})
		require.True(t, f.sell(2.1).IsSell())
		rec := f.sell(2.4)
		assert.Equal(t, models.StateCooldownBlocked, rec.State)
		assert.Equal(t, "profit 2.4% (tier cooldown - waiting for drop below 2.1%)", rec.StatusText)

		// ушли ниже порога и вернулись
		assert.Equal(t, models.StateNoTier, f.sell(1.5).State)
		assert.Equal(t, models.StateExecute, f.sell(2.4).State)
	})

	t.Run("time window", func(t *testing.T) {
		f := newFixture(t, defaultConfig(), func(_ holdings.Store, now func() time.Time) cooldown.Policy {
			return cooldown.NewTimeWindow(30*time.Minute, now)
		})
		require.True(t, f.sell(2.1).IsSell())
		f.clock.Advance(18 * time.Minute)
		rec := f.sell(2.4)
		assert.Equal(t, models.StateCooldownBlocked, rec.State)
		assert.Equal(t, "profit 2.4% (tier cooldown - 12 min wait)", rec.StatusText)

		f.clock.Advance(12 * time.Minute)
		assert.Equal(t, models.StateExecute, f.sell(2.4).State)
	})
}

func TestEvaluateZeroQuantityKeepsState(t *testing.T) {
	f := newFixture(t, defaultConfig(), nil)
	small := samsung
	small.Quantity = 2

	rec := f.eval.Evaluate(context.Background(), small, 1.7)

	assert.Equal(t, models.StateZeroQty, rec.State)
	assert.Equal(t, "profit 1.7% (tier 1.6% reached, sell quantity rounds to 0)", rec.StatusText)
	assert.Equal(t, int64(0), rec.Quantity)
	assert.False(t, f.locks.IsLocked(locks.KindSell, "005930"))

	h, err := f.store.Get(context.Background(), samsung.Key())
	require.NoError(t, err)
	assert.Nil(t, h.LastSellProfit)

	// полноценная позиция продаётся на том же тике
	assert.Equal(t, models.StateExecute, f.sell(1.7).State)
}

func TestEvaluateConcurrentSingleExecute(t *testing.T) {
	f := newFixture(t, defaultConfig(), nil)

	const workers = 64
	results := make([]models.Recommendation, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = f.eval.Evaluate(context.Background(), samsung, 2.4)
		}(i)
	}
	close(start)
	wg.Wait()

	executes, locked := 0, 0
	for _, rec := range results {
		switch rec.State {
		case models.StateExecute:
			executes++
		case models.StateLocked:
			locked++
		default:
			t.Fatalf("unexpected state %s", rec.State)
		}
	}
	assert.Equal(t, 1, executes)
	assert.Equal(t, workers-1, locked)
}

func TestEvaluatePersistenceFailOpen(t *testing.T) {
	f := newFixture(t, defaultConfig(), func(holdings.Store, func() time.Time) cooldown.Policy {
		return cooldown.NewProfitRise(brokenStore{}, 0.1)
	})

	rec := f.eval.Evaluate(context.Background(), samsung, 2.1)

	assert.Equal(t, models.StateExecute, rec.State)
	assert.Equal(t, int64(30), rec.Quantity)
	// чтение и запись упали, продажа стоит
	require.Len(t, rec.Errors, 2)
	assert.Equal(t, models.ErrorKindPersistence, rec.Errors[0].Kind)
	assert.Equal(t, "allowed", rec.Errors[0].Op)
	assert.Equal(t, "record", rec.Errors[1].Op)
	assert.Equal(t, 2, f.notifier.count())
}

func TestEvaluatePersistenceFailClosed(t *testing.T) {
	cfg := defaultConfig()
	cfg.FailClosed = true
	f := newFixture(t, cfg, func(holdings.Store, func() time.Time) cooldown.Policy {
		return cooldown.NewProfitRise(brokenStore{}, 0.1)
	})

	rec := f.eval.Evaluate(context.Background(), samsung, 2.1)

	assert.Equal(t, models.StateError, rec.State)
	assert.Equal(t, models.ActionNone, rec.Action)
	require.Len(t, rec.Errors, 1)
	assert.Equal(t, models.ErrorKindPersistence, rec.Errors[0].Kind)
	assert.False(t, f.locks.IsLocked(locks.KindSell, "005930"))
	assert.Equal(t, 1, f.notifier.count())
}

func TestEvaluateRecordFailureKeepsSell(t *testing.T) {
	f := newFixture(t, defaultConfig(), func(s holdings.Store, _ func() time.Time) cooldown.Policy {
		return cooldown.NewProfitRise(writeFailStore{s.(*holdings.Memory)}, 0.1)
	})

	rec := f.eval.Evaluate(context.Background(), samsung, 2.1)

	assert.Equal(t, models.StateExecute, rec.State)
	assert.True(t, rec.IsLocked)
	require.Len(t, rec.Errors, 1)
	assert.Equal(t, "record", rec.Errors[0].Op)
}

func TestClearCooldownAllowsNextSell(t *testing.T) {
	f := newFixture(t, defaultConfig(), nil)
	ctx := context.Background()

	require.True(t, f.sell(2.1).IsSell())
	require.Equal(t, models.StateCooldownBlocked, f.sell(2.1).State)

	require.NoError(t, f.eval.ClearCooldown(ctx, samsung.Key()))
	require.NoError(t, f.eval.ClearCooldown(ctx, samsung.Key()))
	assert.Equal(t, models.StateExecute, f.sell(2.1).State)
}

func TestSessionSellLimit(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxSellsPerSession = 1
	f := newFixture(t, cfg, nil)
	ctx := context.Background()

	require.True(t, f.sell(1.7).IsSell())
	require.NoError(t, f.eval.ClearCooldown(ctx, samsung.Key()))

	rec := f.sell(2.4)
	assert.Equal(t, models.StateSessionLimit, rec.State)
	assert.Equal(t, "profit 2.4% (session sell limit 1 reached)", rec.StatusText)

	f.eval.ResetSession()
	assert.Equal(t, models.StateExecute, f.sell(2.4).State)
}

func TestEvaluateInvalidInput(t *testing.T) {
	f := newFixture(t, defaultConfig(), nil)

	for _, profit := range []float64{math.NaN(), math.Inf(1)} {
		rec := f.eval.Evaluate(context.Background(), samsung, profit)
		assert.Equal(t, models.StateError, rec.State)
		require.Len(t, rec.Errors, 1)
		assert.Equal(t, models.ErrorKindInput, rec.Errors[0].Kind)
	}

	rec := f.eval.Evaluate(context.Background(), models.Holding{PortfolioID: 1, Quantity: 10}, 2.0)
	assert.Equal(t, models.StateError, rec.State)
}

func TestEvaluateRecoversPanic(t *testing.T) {
	f := newFixture(t, defaultConfig(), func(holdings.Store, func() time.Time) cooldown.Policy {
		return panicPolicy{}
	})

	var rec models.Recommendation
	require.NotPanics(t, func() {
		rec = f.eval.Evaluate(context.Background(), samsung, 2.4)
	})
	assert.Equal(t, models.StateError, rec.State)
	assert.Equal(t, models.ActionNone, rec.Action)
	require.Len(t, rec.Errors, 1)
	assert.Equal(t, models.ErrorKindInternal, rec.Errors[0].Kind)
	assert.Equal(t, "boom", rec.Errors[0].Message)
}

func TestEvaluatePanicAfterAcquireReleasesLock(t *testing.T) {
	f := newFixture(t, defaultConfig(), func(holdings.Store, func() time.Time) cooldown.Policy {
		return recordPanicPolicy{}
	})

	rec := f.eval.Evaluate(context.Background(), samsung, 2.4)

	assert.Equal(t, models.StateError, rec.State)
	assert.Equal(t, models.ActionNone, rec.Action)
	assert.False(t, f.locks.IsLocked(locks.KindSell, samsung.InstrumentID))
	require.Len(t, rec.Errors, 1)
	assert.Equal(t, "record boom", rec.Errors[0].Message)
}

func TestEvaluatePanicKeepsForeignLock(t *testing.T) {
	f := newFixture(t, defaultConfig(), func(holdings.Store, func() time.Time) cooldown.Policy {
		return observePanicPolicy{}
	})
	require.True(t, f.locks.Acquire(locks.KindSell, samsung.InstrumentID, time.Minute))

	rec := f.eval.Evaluate(context.Background(), samsung, 2.4)

	assert.Equal(t, models.StateError, rec.State)
	assert.True(t, f.locks.IsLocked(locks.KindSell, samsung.InstrumentID), "lock taken by another caller stays")
}
