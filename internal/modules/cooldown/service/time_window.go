package service

import (
	"context"
	"sync"
	"tier_bot/internal/models"
	"tier_bot/pkg/logger"
	"time"
)

// TimeWindow: между продажами по тирам должно пройти не меньше window.
type TimeWindow struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[models.HoldingKey]time.Time
}

func NewTimeWindow(window time.Duration, now func() time.Time) *TimeWindow {
	if now == nil {
		now = time.Now
	}
	return &TimeWindow{
		window: window,
		now:    now,
		last:   make(map[models.HoldingKey]time.Time),
	}
}

func (p *TimeWindow) Name() string { return NameTimeWindow }

func (p *TimeWindow) Observe(context.Context, models.HoldingKey, float64) error { return nil }

func (p *TimeWindow) Allowed(_ context.Context, key models.HoldingKey, _ float64) (Verdict, error) {
	p.mu.Lock()
	last, ok := p.last[key]
	p.mu.Unlock()
	if !ok {
		return Verdict{Allowed: true}, nil
	}

	elapsed := p.now().Sub(last)
	if elapsed >= p.window {
		return Verdict{Allowed: true}, nil
	}
	remaining := p.window - elapsed
	logger.Debug("[COOLDOWN] %s time window: %s left", key, remaining.Truncate(time.Second))
	return Verdict{Allowed: false, Reason: ReasonWaitingTime, Remaining: remaining}, nil
}

func (p *TimeWindow) Record(_ context.Context, key models.HoldingKey, _ Execution) error {
	p.mu.Lock()
	p.last[key] = p.now()
	p.mu.Unlock()
	logger.Info("[COOLDOWN] %s started: next tier in %s", key, p.window)
	return nil
}

func (p *TimeWindow) Clear(_ context.Context, key models.HoldingKey) error {
	p.mu.Lock()
	delete(p.last, key)
	p.mu.Unlock()
	return nil
}
