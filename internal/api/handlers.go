package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"solana-token-trader/internal/decision"
	"solana-token-trader/internal/domain"
	"solana-token-trader/internal/solana"
	"solana-token-trader/internal/storage"
)

const (
	defaultListLimit  = 50
	maxListLimit      = 500
	defaultClosedDays = 7
	healthRPCTimeout  = 5 * time.Second
)

// handleHealth reports degraded with 503 when the chain RPC is configured
// but not answering.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status": "healthy",
		"time":   s.opts.Now().UTC(),
	}
	if s.opts.Chain != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthRPCTimeout)
		defer cancel()
		slot, err := s.opts.Chain.GetSlot(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("rpc health check failed")
			body["status"] = "degraded"
			body["rpc_error"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}
		body["slot"] = slot
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.opts.Bot.Status(r.Context())
	if err != nil {
		s.log.Warn().Err(err).Msg("status incomplete")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newStatusView(st))
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	windows, err := s.opts.Bot.Performance(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]performanceView, 0, len(windows))
	for _, p := range windows {
		out = append(out, newPerformanceView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"windows": out})
}

// handlePositions lists open positions, or positions closed within the
// last ?days when ?status=closed.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := q.Get("status")

	var (
		list []*domain.Position
		err  error
	)
	switch status {
	case "", "open":
		list, err = s.opts.Positions.GetOpen(r.Context())
	case "closed":
		days, perr := intParam(q.Get("days"), defaultClosedDays, 1, 365)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr.Error())
			return
		}
		since := s.opts.Now().Add(-time.Duration(days) * 24 * time.Hour)
		list, err = s.opts.Positions.GetClosedSince(r.Context(), since)
	default:
		writeError(w, http.StatusBadRequest, "status must be open or closed")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]positionView, 0, len(list))
	for _, p := range list {
		out = append(out, newPositionView(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": out, "count": len(out)})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	p, err := s.opts.Positions.GetByID(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "position not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newPositionView(p))
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.opts.Decisions.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]decisionView, 0, len(list))
	for _, d := range list {
		out = append(out, newDecisionView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": out, "count": len(out)})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.opts.Trades.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]tradeView, 0, len(list))
	for _, t := range list {
		out = append(out, newTradeView(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": out, "count": len(out)})
}

// handleAssess evaluates a token on demand. ?format=markdown renders the
// decision the way it is sent to chat.
func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	if err := solana.ValidateAddress(address); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	eval, err := s.opts.Bot.Evaluate(r.Context(), address)
	if errors.Is(err, storage.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		if eval.Decision == nil {
			writeError(w, http.StatusUnprocessableEntity, "token rejected: "+eval.Risk.Reason)
			return
		}
		signals := eval.Signals
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(decision.RenderMarkdown(eval.Decision, &signals)))
		return
	}
	writeJSON(w, http.StatusOK, newAssessmentView(eval))
}

func intParam(raw string, def, min, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("parameter %q out of range [%d, %d]", raw, min, max)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
