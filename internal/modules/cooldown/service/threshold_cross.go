package service

import (
	"context"
	"sync"
	"tier_bot/internal/models"
	"tier_bot/pkg/logger"
)

type thresholdState struct {
	threshold float64
	armed     bool
}

// ThresholdCross: после продажи на тире прибыль должна опуститься ниже его порога.
// Состояние в памяти, сбрасывается при рестарте.
type ThresholdCross struct {
	mu    sync.Mutex
	state map[models.HoldingKey]thresholdState
}

func NewThresholdCross() *ThresholdCross {
	return &ThresholdCross{state: make(map[models.HoldingKey]thresholdState)}
}

func (p *ThresholdCross) Name() string { return NameThresholdCross }

// Observe взводит гейт, как только прибыль ушла ниже последнего исполненного порога.
func (p *ThresholdCross) Observe(_ context.Context, key models.HoldingKey, profitPct float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.state[key]
	if !ok || st.armed || profitPct >= st.threshold {
		return nil
	}
	st.armed = true
	p.state[key] = st
	logger.Info("[COOLDOWN] %s re-armed: profit %.2f%% < threshold %.2f%%", key, profitPct, st.threshold)
	return nil
}

func (p *ThresholdCross) Allowed(_ context.Context, key models.HoldingKey, _ float64) (Verdict, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.state[key]
	if !ok || st.armed {
		return Verdict{Allowed: true}, nil
	}
	return Verdict{Allowed: false, Reason: ReasonWaitingDrop, Threshold: st.threshold}, nil
}

func (p *ThresholdCross) Record(_ context.Context, key models.HoldingKey, e Execution) error {
	p.mu.Lock()
	p.state[key] = thresholdState{threshold: e.Tier.ThresholdPct}
	p.mu.Unlock()
	logger.Info("[COOLDOWN] %s set: profit must drop below %.2f%% before next tier", key, e.Tier.ThresholdPct)
	return nil
}

func (p *ThresholdCross) Clear(_ context.Context, key models.HoldingKey) error {
	p.mu.Lock()
	delete(p.state, key)
	p.mu.Unlock()
	return nil
}
