package runner

import (
	"context"
	"fmt"
	"slices"
	"tier_bot/internal/metrics"
	"tier_bot/internal/models"
	evaluator "tier_bot/internal/modules/evaluator/service"
	holdings "tier_bot/internal/modules/holdings/service"
	"tier_bot/pkg/logger"
	"tier_bot/pkg/tracing"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type TelegramNotifier interface {
	SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error)
}

// Heartbeat: отметка последнего обработанного тика (health).
type Heartbeat interface {
	TouchTick(t time.Time)
}

type Config struct {
	MaxParallel int
	BuyLockTTL  time.Duration
	ChatID      int64
}

// Runner раздаёт тики по позициям и параллельно гоняет их через Evaluator.
// Разные инструменты считаются параллельно, порядок по одному инструменту
// обеспечивает лок на продажу внутри Evaluator.
type Runner struct {
	cfg     Config
	eval    *evaluator.Evaluator
	store   holdings.Store
	journal holdings.Journal
	n       TelegramNotifier
	beat    Heartbeat
}

func New(
	cfg Config,
	eval *evaluator.Evaluator,
	store holdings.Store,
	journal holdings.Journal,
	n TelegramNotifier,
	beat Heartbeat,
) *Runner {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	return &Runner{
		cfg:     cfg,
		eval:    eval,
		store:   store,
		journal: journal,
		n:       n,
		beat:    beat,
	}
}

// OnTicks оценивает пачку тиков и возвращает рекомендации,
// продажи первыми (по убыванию score).
func (r *Runner) OnTicks(ctx context.Context, ticks []models.ProfitTick) []models.Recommendation {
	if len(ticks) == 0 {
		return nil
	}
	span, ctx := tracing.StartSpan(ctx, "runner.OnTicks")
	defer span.Finish()
	span.SetTag("ticks", len(ticks))

	out := make([]models.Recommendation, len(ticks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.MaxParallel)
	for i, tick := range ticks {
		g.Go(func() error {
			out[i] = r.onTick(gctx, tick)
			return nil
		})
	}
	_ = g.Wait()

	if r.beat != nil {
		r.beat.TouchTick(time.Now())
	}

	slices.SortStableFunc(out, func(a, b models.Recommendation) int {
		return b.Score - a.Score
	})
	return out
}

func (r *Runner) onTick(ctx context.Context, tick models.ProfitTick) models.Recommendation {
	key := tick.Key()
	h, err := r.store.Get(ctx, key)
	if err != nil {
		rec := models.Recommendation{
			PortfolioID:  tick.PortfolioID,
			InstrumentID: tick.InstrumentID,
			Action:       models.ActionNone,
			State:        models.StateError,
			TierIndex:    -1,
			ProfitPct:    tick.ProfitPct,
		}
		detail := models.ErrorDetail{Kind: models.ErrorKindPersistence, Op: "read", Message: err.Error()}
		if errors.Is(err, holdings.ErrHoldingNotFound) {
			detail.Kind = models.ErrorKindInput
			rec.StatusText = fmt.Sprintf("profit %.1f%% (holding not found)", tick.ProfitPct)
		} else {
			metrics.PersistenceFailures.WithLabelValues("read").Inc()
			logger.Error("[RUNNER] %s read holding: %v", key, err)
			rec.StatusText = fmt.Sprintf("profit %.1f%% (holding unavailable)", tick.ProfitPct)
		}
		rec.Errors = append(rec.Errors, detail)
		return rec
	}

	rec := r.eval.Evaluate(ctx, *h, tick.ProfitPct)
	if rec.IsSell() {
		r.onSell(ctx, h, rec)
	}
	return rec
}

func (r *Runner) onSell(ctx context.Context, h *models.Holding, rec models.Recommendation) {
	if err := r.journal.Append(ctx, rec); err != nil {
		metrics.PersistenceFailures.WithLabelValues("journal").Inc()
		logger.Error("[RUNNER] %s journal append: %v", h.Key(), err)
	}
	msg := rec.StatusText
	if len(rec.Signals) > 0 {
		msg = rec.Signals[0].Message
	}
	r.notify(ctx, "💰 [%s] %s\n%s", h.DisplayName(), msg, rec.StatusText)
}

func (r *Runner) notify(ctx context.Context, format string, args ...any) {
	if r.n == nil || r.cfg.ChatID == 0 {
		return
	}
	if _, err := r.n.SendF(ctx, r.cfg.ChatID, format, args...); err != nil {
		logger.Warn("[RUNNER] telegram send: %v", err)
	}
}
