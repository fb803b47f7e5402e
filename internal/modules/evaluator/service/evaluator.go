package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"tier_bot/internal/metrics"
	"tier_bot/internal/models"
	cooldown "tier_bot/internal/modules/cooldown/service"
	locks "tier_bot/internal/modules/locks/service"
	tiers "tier_bot/internal/modules/tiers/service"
	"tier_bot/pkg/logger"
	"tier_bot/pkg/tracing"
	"time"

	"go.uber.org/zap"
)

const (
	signalTieredProfit = "TIERED_PROFIT"
	signalLevelHigh    = "HIGH"
)

// ServiceNotifier: канал наблюдаемости для сбоев хранилища.
type ServiceNotifier interface {
	SendService(ctx context.Context, format string, args ...any)
}

type Config struct {
	SellLockTTL        time.Duration
	FailClosed         bool // сбой чтения кулдауна: true пропускает продажу, false разрешает
	ScoreBase          int
	ScoreStep          int
	MaxSellsPerSession int // 0 = без лимита
}

// Evaluator: оценка одного тика по одной позиции:
// лок → кулдаун → тир → количество → лок на продажу → запись кулдауна.
type Evaluator struct {
	cfg      Config
	locks    *locks.Manager
	policy   cooldown.Policy
	tiers    *tiers.Table
	notifier ServiceNotifier

	sessMu       sync.Mutex
	sessionSells map[models.HoldingKey]int
}

func NewEvaluator(
	cfg Config,
	lm *locks.Manager,
	policy cooldown.Policy,
	table *tiers.Table,
	n ServiceNotifier,
) *Evaluator {
	return &Evaluator{
		cfg:          cfg,
		locks:        lm,
		policy:       policy,
		tiers:        table,
		notifier:     n,
		sessionSells: make(map[models.HoldingKey]int),
	}
}

func (e *Evaluator) PolicyName() string { return e.policy.Name() }

func (e *Evaluator) Tiers() []models.Tier { return e.tiers.Tiers() }

// Evaluate никогда не паникует наружу, любой сбой превращается в NONE с ошибкой.
func (e *Evaluator) Evaluate(ctx context.Context, h models.Holding, profitPct float64) (rec models.Recommendation) {
	span, ctx := tracing.StartSpan(ctx, "evaluator.Evaluate")
	started := time.Now()
	key := h.Key()

	rec = models.Recommendation{
		PortfolioID:  h.PortfolioID,
		InstrumentID: h.InstrumentID,
		Action:       models.ActionNone,
		TierIndex:    -1,
		ProfitPct:    profitPct,
	}

	acquired := false
	defer func() {
		if p := recover(); p != nil {
			logger.L().Error("evaluate panic",
				zap.String("holding", key.String()),
				zap.Any("panic", p),
			)
			// продажи не будет, лок не должен висеть до TTL
			if acquired {
				e.locks.Release(locks.KindSell, h.InstrumentID)
			}
			rec = e.fail(rec, models.ErrorKindInternal, "evaluate", fmt.Sprint(p))
		}
		metrics.Evaluations.WithLabelValues(string(rec.State)).Inc()
		metrics.EvaluationSeconds.Observe(time.Since(started).Seconds())
		span.SetTag("holding", key.String())
		span.SetTag("state", string(rec.State))
		span.Finish()
	}()

	if h.InstrumentID == "" || math.IsNaN(profitPct) || math.IsInf(profitPct, 0) {
		return e.fail(rec, models.ErrorKindInput, "evaluate",
			fmt.Sprintf("invalid input: instrument=%q profit=%v", h.InstrumentID, profitPct))
	}

	// Observe вызывается на каждом тике, даже если дальше упрёмся в лок
	if err := e.policy.Observe(ctx, key, profitPct); err != nil {
		rec.Errors = append(rec.Errors, e.reportPersistence(ctx, key, "observe", err))
	}

	// 1) дешёвая проверка лока, чтобы не гоняться с идущей продажей
	if e.locks.IsLocked(locks.KindSell, h.InstrumentID) {
		return e.stop(rec, models.StateLocked, textLocked(profitPct))
	}

	// 2) кулдаун между тирами
	verdict, err := e.policy.Allowed(ctx, key, profitPct)
	if err != nil {
		rec.Errors = append(rec.Errors, e.reportPersistence(ctx, key, "allowed", err))
		if e.cfg.FailClosed {
			return e.stop(rec, models.StateError, textPersistenceClosed(profitPct))
		}
		verdict = cooldown.Verdict{Allowed: true}
	}
	if !verdict.Allowed {
		// кулдаун мог записать параллельный победитель, пока мы шли от пре-чека
		if e.locks.IsLocked(locks.KindSell, h.InstrumentID) {
			return e.stop(rec, models.StateLocked, textLocked(profitPct))
		}
		return e.stop(rec, models.StateCooldownBlocked, textCooldown(profitPct, verdict))
	}

	// 3) тир по текущей прибыли
	idx, tier, ok := e.tiers.Select(profitPct)
	if !ok {
		return e.stop(rec, models.StateNoTier, textNoTier(profitPct))
	}
	rec.TierIndex = idx
	rec.Tier = &tier

	// 4) количество; ноль не исполняем и кулдаун не трогаем
	qty := tiers.SellQuantity(h.Quantity, tier)
	if qty <= 0 {
		return e.stop(rec, models.StateZeroQty, textZeroQty(profitPct, tier))
	}

	if e.sessionLimitReached(key) {
		return e.stop(rec, models.StateSessionLimit, textSessionLimit(profitPct, e.cfg.MaxSellsPerSession))
	}

	// 5) единственная точка сериализации: атомарный захват лока
	if !e.locks.Acquire(locks.KindSell, h.InstrumentID, e.cfg.SellLockTTL) {
		return e.stop(rec, models.StateLocked, textLocked(profitPct))
	}
	acquired = true

	// 6) фиксируем кулдаун; сбой записи продажу не отменяет
	if err = e.policy.Record(ctx, key, cooldown.Execution{
		ProfitPct: profitPct,
		Tier:      tier,
		TierIndex: idx,
	}); err != nil {
		detail := e.reportPersistence(ctx, key, "record", err)
		rec.Errors = append(rec.Errors, detail)
		logger.L().Warn("data quality: cooldown not armed for executed sell",
			zap.String("holding", key.String()),
			zap.Float64("profit_pct", profitPct),
			zap.Int("tier_index", idx),
		)
	}
	e.countSessionSell(key)

	score := e.cfg.ScoreBase + idx*e.cfg.ScoreStep
	rec.Action = models.ActionPartialSell
	rec.State = models.StateExecute
	rec.Quantity = qty
	rec.Score = score
	rec.IsLocked = true
	rec.StatusText = textExecute(tier)
	rec.Signals = append(rec.Signals, models.Signal{
		Type:      signalTieredProfit,
		Level:     signalLevelHigh,
		Message:   textSignal(profitPct, tier, e.tiers.Label(idx), qty),
		Score:     score,
		TierPct:   tier.ThresholdPct,
		SellRatio: tier.SellRatio,
	})
	metrics.Sells.WithLabelValues(strconv.Itoa(idx + 1)).Inc()

	logger.Info("[EVAL] %s: tier %g%% take profit! profit %.1f%%, %d -> sell %d",
		h.DisplayName(), tier.ThresholdPct, profitPct, h.Quantity, qty)
	return rec
}

// ReleaseSell снимает лок продажи после того, как вызывающий исполнил ордер.
func (e *Evaluator) ReleaseSell(instrumentID string) {
	e.locks.Release(locks.KindSell, instrumentID)
}

// AcquireBuy / ReleaseBuy: лок на покупку, независимый от продажи.
func (e *Evaluator) AcquireBuy(instrumentID string, ttl time.Duration) bool {
	return e.locks.Acquire(locks.KindBuy, instrumentID, ttl)
}

func (e *Evaluator) ReleaseBuy(instrumentID string) {
	e.locks.Release(locks.KindBuy, instrumentID)
}

// ClearCooldown: сброс кулдауна (старт сессии или ручной сброс), идемпотентен.
func (e *Evaluator) ClearCooldown(ctx context.Context, key models.HoldingKey) error {
	if err := e.policy.Clear(ctx, key); err != nil {
		e.reportPersistence(ctx, key, "clear", err)
		return err
	}
	logger.Info("[EVAL] %s tier cooldown cleared", key)
	return nil
}

// ResetSession обнуляет счётчики продаж за сессию.
func (e *Evaluator) ResetSession() {
	e.sessMu.Lock()
	e.sessionSells = make(map[models.HoldingKey]int)
	e.sessMu.Unlock()
}

func (e *Evaluator) sessionLimitReached(key models.HoldingKey) bool {
	if e.cfg.MaxSellsPerSession <= 0 {
		return false
	}
	e.sessMu.Lock()
	defer e.sessMu.Unlock()
	return e.sessionSells[key] >= e.cfg.MaxSellsPerSession
}

func (e *Evaluator) countSessionSell(key models.HoldingKey) {
	e.sessMu.Lock()
	e.sessionSells[key]++
	e.sessMu.Unlock()
}

func (e *Evaluator) stop(rec models.Recommendation, state models.EvalState, text string) models.Recommendation {
	rec.State = state
	rec.StatusText = text
	logger.Debug("[EVAL] %d:%s %s", rec.PortfolioID, rec.InstrumentID, text)
	return rec
}

func (e *Evaluator) fail(rec models.Recommendation, kind models.ErrorKind, op, msg string) models.Recommendation {
	rec.Action = models.ActionNone
	rec.Quantity = 0
	rec.IsLocked = false
	rec.Signals = nil
	rec.State = models.StateError
	rec.StatusText = textError(rec.ProfitPct)
	rec.Errors = append(rec.Errors, models.ErrorDetail{Kind: kind, Op: op, Message: msg})
	return rec
}

func (e *Evaluator) reportPersistence(ctx context.Context, key models.HoldingKey, op string, err error) models.ErrorDetail {
	metrics.PersistenceFailures.WithLabelValues(op).Inc()
	logger.L().Error("cooldown persistence failure",
		zap.String("op", op),
		zap.String("holding", key.String()),
		zap.Error(err),
	)
	if e.notifier != nil {
		e.notifier.SendService(ctx, "⚠️ [%s] cooldown %s failed: %v", key, op, err)
	}
	return models.ErrorDetail{
		Kind:    models.ErrorKindPersistence,
		Op:      op,
		Message: err.Error(),
	}
}
