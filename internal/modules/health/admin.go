package health

import (
	"context"
	"io"
	"net/http"
	"tier_bot/internal/models"
	"tier_bot/pkg/logger"

	"github.com/bytedance/sonic"
)

// Engine: операции движка, доступные через admin API.
type Engine interface {
	OnTicks(ctx context.Context, ticks []models.ProfitTick) []models.Recommendation
	ClearCooldown(ctx context.Context, key models.HoldingKey) error
	StartSession(ctx context.Context, portfolioIDs []int64) (int, error)
	ConfirmSell(instrumentID string)
}

// TickSubmitter: асинхронная очередь тиков.
type TickSubmitter interface {
	Submit(t models.ProfitTick) bool
}

type ticksRequest struct {
	Ticks []models.ProfitTick `json:"ticks"`
}

type evaluateResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

type holdingRequest struct {
	PortfolioID  int64  `json:"portfolio_id"`
	InstrumentID string `json:"instrument_id"`
}

type sessionRequest struct {
	PortfolioIDs []int64 `json:"portfolio_ids"`
}

type admin struct {
	engine     Engine
	ticks      TickSubmitter
	portfolios []int64 // по умолчанию для /v1/session/start
}

func (a *admin) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/evaluate", a.evaluate)
	mux.HandleFunc("POST /v1/ticks", a.submit)
	mux.HandleFunc("POST /v1/cooldown/clear", a.clearCooldown)
	mux.HandleFunc("POST /v1/session/start", a.startSession)
	mux.HandleFunc("POST /v1/locks/release", a.releaseLock)
}

func (a *admin) evaluate(w http.ResponseWriter, r *http.Request) {
	var req ticksRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Ticks) == 0 {
		writeError(w, http.StatusBadRequest, "ticks are empty")
		return
	}
	recs := a.engine.OnTicks(r.Context(), req.Ticks)
	writeJSON(w, http.StatusOK, evaluateResponse{Recommendations: recs})
}

func (a *admin) submit(w http.ResponseWriter, r *http.Request) {
	var req ticksRequest
	if !decode(w, r, &req) {
		return
	}
	accepted := 0
	for _, t := range req.Ticks {
		if a.ticks.Submit(t) {
			accepted++
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]int{
		"accepted": accepted,
		"dropped":  len(req.Ticks) - accepted,
	})
}

func (a *admin) clearCooldown(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if !decode(w, r, &req) {
		return
	}
	if req.InstrumentID == "" {
		writeError(w, http.StatusBadRequest, "instrument_id is required")
		return
	}
	key := models.HoldingKey{PortfolioID: req.PortfolioID, InstrumentID: req.InstrumentID}
	if err := a.engine.ClearCooldown(r.Context(), key); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"cleared": key.String()})
}

func (a *admin) startSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	ids := req.PortfolioIDs
	if len(ids) == 0 {
		ids = a.portfolios
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "portfolio_ids are empty")
		return
	}
	cleared, err := a.engine.StartSession(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}

func (a *admin) releaseLock(w http.ResponseWriter, r *http.Request) {
	var req holdingRequest
	if !decode(w, r, &req) {
		return
	}
	if req.InstrumentID == "" {
		writeError(w, http.StatusBadRequest, "instrument_id is required")
		return
	}
	a.engine.ConfirmSell(req.InstrumentID)
	writeJSON(w, http.StatusOK, map[string]string{"released": req.InstrumentID})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, false)
}

// decodeOptional: пустое тело не считается ошибкой.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	return decodeBody(w, r, v, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if len(body) == 0 && optional {
		return true
	}
	if err = sonic.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		logger.Error("[HTTP] marshal response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
