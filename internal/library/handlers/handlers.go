// Package handlers provides HTTP handlers for the local library of saved
// portfolios and allocation policies.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/library"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Emitter publishes library change notifications.
type Emitter interface {
	EmitTyped(eventType events.EventType, module string, data events.EventData)
}

// Handler provides HTTP handlers for library endpoints
type Handler struct {
	lib    *library.Library
	events Emitter
	log    zerolog.Logger
}

// NewHandler creates a new library handler. events may be nil.
func NewHandler(lib *library.Library, events Emitter, log zerolog.Logger) *Handler {
	return &Handler{
		lib:    lib,
		events: events,
		log:    log.With().Str("handler", "library").Logger(),
	}
}

// HandleListPortfolios handles GET /api/library/portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	list, err := h.lib.Portfolios.List(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"portfolios": list,
		"count":      len(list),
	})
}

// HandleGetPortfolio handles GET /api/library/portfolios/{id}
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	rec, err := h.lib.Portfolios.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// HandleSavePortfolio handles POST /api/library/portfolios
func (h *Handler) HandleSavePortfolio(w http.ResponseWriter, r *http.Request) {
	var req domain.SavedPortfolio
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rec, err := h.lib.SavePortfolio(r.Context(), req.Name, req.Portfolio)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.changed("portfolios", rec.ID, "saved")
	h.writeJSON(w, http.StatusCreated, rec)
}

// HandleDeletePortfolio handles DELETE /api/library/portfolios/{id}
func (h *Handler) HandleDeletePortfolio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.lib.Portfolios.Delete(r.Context(), id); err != nil {
		h.writeErr(w, err)
		return
	}
	h.changed("portfolios", id, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

// HandleListPolicies handles GET /api/library/policies
func (h *Handler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	list, err := h.lib.Policies.List(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"policies": list,
		"count":    len(list),
	})
}

// HandleGetPolicy handles GET /api/library/policies/{id}
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	rec, err := h.lib.Policies.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

// HandleSavePolicy handles POST /api/library/policies
func (h *Handler) HandleSavePolicy(w http.ResponseWriter, r *http.Request) {
	var p domain.AllocationPolicy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	rec, err := h.lib.SavePolicy(r.Context(), p)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.changed("policies", rec.ID, "saved")
	h.writeJSON(w, http.StatusCreated, rec)
}

// HandleDeletePolicy handles DELETE /api/library/policies/{id}
func (h *Handler) HandleDeletePolicy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.lib.Policies.Delete(r.Context(), id); err != nil {
		h.writeErr(w, err)
		return
	}
	h.changed("policies", id, "deleted")
	w.WriteHeader(http.StatusNoContent)
}

// HandleExportPolicies handles GET /api/library/policies/export
func (h *Handler) HandleExportPolicies(w http.ResponseWriter, r *http.Request) {
	list, err := h.lib.Policies.List(r.Context())
	if err != nil {
		h.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="policies.yaml"`)
	if err := library.ExportPolicies(w, list); err != nil {
		h.log.Error().Err(err).Msg("Failed to export policies")
	}
}

// HandleImportPolicies handles POST /api/library/policies/import. The body is
// the YAML produced by export; each policy is saved by name.
func (h *Handler) HandleImportPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := library.ImportPolicies(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved := make([]library.Record[domain.AllocationPolicy], 0, len(policies))
	for _, p := range policies {
		rec, err := h.lib.SavePolicy(r.Context(), p)
		if err != nil {
			h.writeErr(w, err)
			return
		}
		saved = append(saved, rec)
		h.changed("policies", rec.ID, "imported")
	}
	h.log.Info().Int("count", len(saved)).Msg("Policies imported")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"policies": saved,
		"count":    len(saved),
	})
}

func (h *Handler) changed(category, id, action string) {
	if h.events == nil {
		return
	}
	h.events.EmitTyped(events.LibraryChanged, "library", &events.LibraryChangedData{
		Category: category,
		ID:       id,
		Action:   action,
	})
}

func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, library.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case domain.IsValidationError(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, library.ErrNameRequired):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Library request failed")
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
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
