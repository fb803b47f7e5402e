package runner

import (
	"context"
	"sync"
	"tier_bot/internal/metrics"
	"tier_bot/internal/models"
	"tier_bot/pkg/logger"
)

// tickAgg хранит последний тик по каждой позиции: между пачками старые
// значения прибыли не нужны.
type tickAgg struct {
	mu    sync.Mutex
	order []models.HoldingKey
	last  map[models.HoldingKey]models.ProfitTick
}

func newTickAgg() *tickAgg {
	return &tickAgg{last: make(map[models.HoldingKey]models.ProfitTick)}
}

func (a *tickAgg) Put(t models.ProfitTick) {
	a.mu.Lock()
	k := t.Key()
	if _, ok := a.last[k]; !ok {
		a.order = append(a.order, k)
	}
	a.last[k] = t
	a.mu.Unlock()
}

// Drain отдаёт тики в порядке первого появления и очищает агрегатор.
func (a *tickAgg) Drain() []models.ProfitTick {
	a.mu.Lock()
	out := make([]models.ProfitTick, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.last[k])
	}
	a.order = nil
	a.last = make(map[models.HoldingKey]models.ProfitTick)
	a.mu.Unlock()
	return out
}

// Router принимает тики асинхронно: они складываются в канал, цикл Run
// схлопывает накопившееся и отдаёт пачкой в Runner.
type Router struct {
	r     *Runner
	ticks chan models.ProfitTick
	agg   *tickAgg
}

func NewRouter(r *Runner, ticks chan models.ProfitTick) *Router {
	return &Router{r: r, ticks: ticks, agg: newTickAgg()}
}

// Submit не блокирует: при полной очереди тик теряется.
func (rt *Router) Submit(t models.ProfitTick) bool {
	select {
	case rt.ticks <- t:
		return true
	default:
		metrics.TicksDropped.Inc()
		logger.Warn("[ROUTER] queue full, tick %s dropped", t.Key())
		return false
	}
}

func (rt *Router) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-rt.ticks:
			if !ok {
				return
			}
			rt.agg.Put(t)
			rt.drainQueued()
			batch := rt.agg.Drain()
			recs := rt.r.OnTicks(ctx, batch)
			sells := 0
			for _, rec := range recs {
				if rec.IsSell() {
					sells++
				}
			}
			logger.Debug("[ROUTER] batch: ticks=%d sells=%d", len(batch), sells)
		}
	}
}

// drainQueued забирает из канала всё, что уже лежит, без ожидания.
func (rt *Router) drainQueued() {
	for {
		select {
		case t, ok := <-rt.ticks:
			if !ok {
				return
			}
			rt.agg.Put(t)
		default:
			return
		}
	}
}
