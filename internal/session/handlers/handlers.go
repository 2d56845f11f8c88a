// Package handlers provides HTTP handlers for the live session: drafts,
// decisions, tick history, allocation, comparisons and time controls.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/sentinel-desk/internal/clients/decision"
	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/library"
	"github.com/aristath/sentinel-desk/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for session endpoints
type Handler struct {
	desk *session.Orchestrator
	lib  *library.Library
	log  zerolog.Logger
}

// NewHandler creates a new session handler. lib may be nil, in which case
// library-backed requests are rejected.
func NewHandler(desk *session.Orchestrator, lib *library.Library, log zerolog.Logger) *Handler {
	return &Handler{
		desk: desk,
		lib:  lib,
		log:  log.With().Str("handler", "session").Logger(),
	}
}

type createRequest struct {
	Name             string                  `json:"name"`
	Mode             domain.Mode             `json:"mode"`
	AllocatorVersion domain.AllocatorVersion `json:"allocator_version"`
	Portfolio        *domain.Portfolio       `json:"portfolio"`
	PortfolioID      string                  `json:"portfolio_id"`
	Constraints      *domain.Constraints     `json:"constraints"`
}

// HandleGetStatus handles GET /api/session
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.desk.Status())
}

// HandleCreate handles POST /api/session
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	cfg := domain.ScenarioConfig{
		Name:             req.Name,
		Mode:             req.Mode,
		AllocatorVersion: req.AllocatorVersion,
		Portfolio:        req.Portfolio,
		Constraints:      req.Constraints,
	}
	if req.PortfolioID != "" {
		p, err := h.savedPortfolio(r.Context(), req.PortfolioID)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		cfg.Portfolio = &p
	}

	sc, err := h.desk.CreateSession(r.Context(), cfg)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"scenario": sc,
		"status":   h.desk.Status(),
	})
}

// HandleLoad handles POST /api/session/load
func (h *Handler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	sc, err := h.desk.LoadSession(r.Context(), req.ID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"scenario": sc,
		"status":   h.desk.Status(),
	})
}

// HandleReload handles POST /api/session/reload
func (h *Handler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if err := h.desk.Reload(r.Context()); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.desk.Status())
}

// HandleGetDrafts handles GET /api/session/drafts
func (h *Handler) HandleGetDrafts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.desk.Drafts())
}

// HandleSwitchMode handles PUT /api/session/mode
func (h *Handler) HandleSwitchMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode domain.Mode `json:"mode"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.desk.SwitchMode(r.Context(), req.Mode); err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.desk.Status())
}

// HandleRunDecision handles POST /api/session/decisions
func (h *Handler) HandleRunDecision(w http.ResponseWriter, r *http.Request) {
	tick, err := h.desk.RunDecision(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"tick":       tick,
		"allocation": h.desk.Allocation(),
	})
}

// HandleGetTicks handles GET /api/session/ticks
func (h *Handler) HandleGetTicks(w http.ResponseWriter, r *http.Request) {
	list := h.desk.Ticks()
	if list == nil {
		list = []domain.Tick{}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"ticks": list,
		"count": len(list),
	})
}

// HandleGetLatestTick handles GET /api/session/ticks/latest
func (h *Handler) HandleGetLatestTick(w http.ResponseWriter, r *http.Request) {
	tick, ok := h.desk.LatestTick()
	if !ok {
		h.writeError(w, http.StatusNotFound, "no ticks recorded")
		return
	}
	h.writeJSON(w, http.StatusOK, tick)
}

// HandleRefreshTicks handles POST /api/session/ticks/refresh
func (h *Handler) HandleRefreshTicks(w http.ResponseWriter, r *http.Request) {
	if err := h.desk.RefreshTicks(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("Tick refresh failed, serving last known good history")
	}
	h.HandleGetTicks(w, r)
}

// HandleHideTick handles POST /api/session/ticks/{id}/hide
func (h *Handler) HandleHideTick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.desk.HideTick(id) {
		h.writeError(w, http.StatusNotFound, "tick not visible")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetAllocation handles GET /api/session/allocation
func (h *Handler) HandleGetAllocation(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.desk.Allocation())
}

// HandlePostPerformance handles POST /api/session/performance
func (h *Handler) HandlePostPerformance(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !h.decode(w, r, &payload) {
		return
	}
	out, err := h.desk.PostPerformance(r.Context(), payload)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) savedPortfolio(ctx context.Context, id string) (domain.Portfolio, error) {
	if h.lib == nil {
		return domain.Portfolio{}, library.ErrNotFound
	}
	rec, err := h.lib.Portfolios.Get(ctx, id)
	if err != nil {
		return domain.Portfolio{}, err
	}
	return rec.Value.Portfolio.Clone(), nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// statusFor maps orchestrator and client errors to HTTP statuses.
func statusFor(err error) int {
	var apiErr *decision.APIError
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrAssetNotFound), errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, session.ErrCreateInFlight),
		errors.Is(err, session.ErrSessionReplaced),
		errors.Is(err, session.ErrNotSimulation),
		errors.Is(err, session.ErrDraftNotLoaded):
		return http.StatusConflict
	case errors.Is(err, decision.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("Session request failed")
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
