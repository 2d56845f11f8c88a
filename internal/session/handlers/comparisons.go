package handlers

import (
	"context"
	"net/http"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/go-chi/chi/v5"
)

type comparisonRequest struct {
	PolicyAID string                   `json:"policy_a_id"`
	PolicyBID string                   `json:"policy_b_id"`
	PolicyA   *domain.AllocationPolicy `json:"policy_a"`
	PolicyB   *domain.AllocationPolicy `json:"policy_b"`
}

// HandleRunComparison handles POST /api/comparisons. Each side is either a
// saved policy id or an inline policy.
func (h *Handler) HandleRunComparison(w http.ResponseWriter, r *http.Request) {
	var req comparisonRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.resolvePolicy(r.Context(), "policy_a", req.PolicyAID, req.PolicyA)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	b, err := h.resolvePolicy(r.Context(), "policy_b", req.PolicyBID, req.PolicyB)
	if err != nil {
		h.writeErr(w, err)
		return
	}

	res, err := h.desk.RunPolicyComparison(r.Context(), a, b)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, res)
}

// HandleListComparisons handles GET /api/comparisons
func (h *Handler) HandleListComparisons(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"comparisons": h.desk.Comparisons(),
	})
}

// HandleGetComparison handles GET /api/comparisons/{id}
func (h *Handler) HandleGetComparison(w http.ResponseWriter, r *http.Request) {
	res, ok := h.desk.Comparison(chi.URLParam(r, "id"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "comparison not found")
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) resolvePolicy(ctx context.Context, field, id string, inline *domain.AllocationPolicy) (domain.AllocationPolicy, error) {
	if inline != nil {
		return *inline, nil
	}
	if id == "" {
		return domain.AllocationPolicy{}, &domain.ValidationError{Field: field, Value: id, Reason: "is required"}
	}
	if h.lib == nil {
		return domain.AllocationPolicy{}, &domain.ValidationError{Field: field + "_id", Value: id, Reason: "library not available"}
	}
	rec, err := h.lib.Policies.Get(ctx, id)
	if err != nil {
		return domain.AllocationPolicy{}, err
	}
	return rec.Value, nil
}
