package models

type Action string

const (
	ActionNone        Action = "NONE"
	ActionPartialSell Action = "PARTIAL_SELL"
)

// EvalState: терминальное состояние одной оценки.
type EvalState string

const (
	StateLocked          EvalState = "LOCKED"
	StateCooldownBlocked EvalState = "COOLDOWN_BLOCKED"
	StateNoTier          EvalState = "NO_TIER"
	StateZeroQty         EvalState = "ZERO_QTY"
	StateSessionLimit    EvalState = "SESSION_LIMIT"
	StateError           EvalState = "ERROR"
	StateExecute         EvalState = "EXECUTE"
)

type ErrorKind string

const (
	ErrorKindPersistence ErrorKind = "PERSISTENCE_FAILURE"
	ErrorKindInternal    ErrorKind = "INTERNAL"
	ErrorKindInput       ErrorKind = "INVALID_INPUT"
)

// ErrorDetail: структурное описание сбоя, приложенное к рекомендации.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
}

type Signal struct {
	Type      string  `json:"type"`
	Level     string  `json:"level"`
	Message   string  `json:"message"`
	Score     int     `json:"score"`
	TierPct   float64 `json:"tier_pct"`
	SellRatio float64 `json:"sell_ratio"`
}

// Recommendation: результат Evaluate. TierIndex = -1, если тир не выбран.
type Recommendation struct {
	PortfolioID  int64         `json:"portfolio_id"`
	InstrumentID string        `json:"instrument_id"`
	Action       Action        `json:"action"`
	State        EvalState     `json:"state"`
	Quantity     int64         `json:"quantity"`
	TierIndex    int           `json:"tier_index"`
	Tier         *Tier         `json:"tier,omitempty"`
	ProfitPct    float64       `json:"profit_pct"`
	StatusText   string        `json:"status_text"`
	Score        int           `json:"score"`
	IsLocked     bool          `json:"is_locked"`
	Signals      []Signal      `json:"signals,omitempty"`
	Errors       []ErrorDetail `json:"errors,omitempty"`
}

func (r Recommendation) IsSell() bool {
	return r.Action == ActionPartialSell
}
