package service

import (
	"context"
	"tier_bot/internal/models"
	holdings "tier_bot/internal/modules/holdings/service"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrPersistence: не удалось прочитать или записать durable-состояние.
	ErrPersistence = errors.New("cooldown persistence failure")
	// ErrConfiguration: неизвестная политика или плохие параметры.
	ErrConfiguration = errors.New("cooldown configuration error")
)

const (
	NameProfitRise     = "profit_rise"
	NameThresholdCross = "threshold_cross"
	NameTimeWindow     = "time_window"
)

// Reason: почему следующий тир заблокирован.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonWaitingRise Reason = "waiting_rise"
	ReasonWaitingDrop Reason = "waiting_drop"
	ReasonWaitingTime Reason = "waiting_time"
)

// Verdict: результат Allowed. Поля кроме Allowed нужны только для текста статуса.
type Verdict struct {
	Allowed    bool
	Reason     Reason
	LastProfit float64       // profit_rise, 0 если записи нет
	Threshold  float64       // threshold_cross
	Remaining  time.Duration // time_window
}

// Execution: исполненная продажа, которую фиксирует Record.
type Execution struct {
	ProfitPct float64
	Tier      models.Tier
	TierIndex int
}

// Policy: сменная политика кулдауна между тирами.
// Каждый тик: Observe, затем Allowed. Allowed ничего не меняет.
// Record вызывается только после реальной продажи с ненулевым количеством.
type Policy interface {
	Name() string
	Observe(ctx context.Context, key models.HoldingKey, profitPct float64) error
	Allowed(ctx context.Context, key models.HoldingKey, profitPct float64) (Verdict, error)
	Record(ctx context.Context, key models.HoldingKey, e Execution) error
	Clear(ctx context.Context, key models.HoldingKey) error
}

type Params struct {
	Name    string
	Epsilon float64
	Window  time.Duration
	Store   holdings.Store
	Now     func() time.Time
}

// New собирает политику по имени из конфига.
func New(p Params) (Policy, error) {
	if p.Now == nil {
		p.Now = time.Now
	}
	switch p.Name {
	case NameProfitRise:
		if p.Store == nil {
			return nil, errors.Wrap(ErrConfiguration, "profit_rise requires a holding store")
		}
		if p.Epsilon < 0 {
			return nil, errors.Wrapf(ErrConfiguration, "negative epsilon %v", p.Epsilon)
		}
		return NewProfitRise(p.Store, p.Epsilon), nil
	case NameThresholdCross:
		return NewThresholdCross(), nil
	case NameTimeWindow:
		if p.Window <= 0 {
			return nil, errors.Wrapf(ErrConfiguration, "time_window requires positive window, got %v", p.Window)
		}
		return NewTimeWindow(p.Window, p.Now), nil
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unknown cooldown policy %q", p.Name)
	}
}
