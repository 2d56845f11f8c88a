package handlers

import (
	"net/http"

	"github.com/aristath/sentinel-desk/internal/domain"
)

// HandleAdvanceTime handles POST /api/session/time/advance
func (h *Handler) HandleAdvanceTime(w http.ResponseWriter, r *http.Request) {
	var spec domain.TimeSpec
	if !h.decode(w, r, &spec) {
		return
	}
	st, err := h.desk.AdvanceTime(r.Context(), spec)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// HandleSetTime handles PUT /api/session/time
func (h *Handler) HandleSetTime(w http.ResponseWriter, r *http.Request) {
	var spec domain.TimeSpec
	if !h.decode(w, r, &spec) {
		return
	}
	st, err := h.desk.SetTime(r.Context(), spec)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, st)
}

// HandleSimReset handles POST /api/session/sim/reset
func (h *Handler) HandleSimReset(w http.ResponseWriter, r *http.Request) {
	sim, err := h.desk.SimReset(r.Context())
	h.simResponse(w, sim, err)
}

// HandleSimStep handles POST /api/session/sim/step
func (h *Handler) HandleSimStep(w http.ResponseWriter, r *http.Request) {
	params, ok := h.simParams(w, r)
	if !ok {
		return
	}
	sim, err := h.desk.SimStep(r.Context(), params)
	h.simResponse(w, sim, err)
}

// HandleSimRun handles POST /api/session/sim/run
func (h *Handler) HandleSimRun(w http.ResponseWriter, r *http.Request) {
	params, ok := h.simParams(w, r)
	if !ok {
		return
	}
	sim, err := h.desk.SimRun(r.Context(), params)
	h.simResponse(w, sim, err)
}

// simParams decodes optional parameters; an empty body means defaults.
func (h *Handler) simParams(w http.ResponseWriter, r *http.Request) (domain.SimParams, bool) {
	var params domain.SimParams
	if r.ContentLength == 0 {
		return params, true
	}
	return params, h.decode(w, r, &params)
}

func (h *Handler) simResponse(w http.ResponseWriter, sim domain.SimState, err error) {
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, sim)
}
