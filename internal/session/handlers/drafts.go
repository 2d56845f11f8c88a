package handlers

import (
	"net/http"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/go-chi/chi/v5"
)

// editResponse returns the drafts after an accepted edit. The commit itself
// happens later, once the field's debounce window has passed.
func (h *Handler) editResponse(w http.ResponseWriter, err error) {
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"drafts": h.desk.Drafts(),
		"status": h.desk.Status(),
	})
}

// HandlePutPortfolio handles PUT /api/session/portfolio
func (h *Handler) HandlePutPortfolio(w http.ResponseWriter, r *http.Request) {
	var p domain.Portfolio
	if !h.decode(w, r, &p) {
		return
	}
	h.editResponse(w, h.desk.EditPortfolio(p))
}

// HandleApplySavedPortfolio handles POST /api/session/portfolio/apply
func (h *Handler) HandleApplySavedPortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PortfolioID string `json:"portfolio_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.savedPortfolio(r.Context(), req.PortfolioID)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.editResponse(w, h.desk.EditPortfolio(p))
}

// HandleSavePortfolio handles POST /api/session/portfolio/save
func (h *Handler) HandleSavePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if h.lib == nil {
		h.writeError(w, http.StatusServiceUnavailable, "library not available")
		return
	}
	rec, err := h.lib.SavePortfolio(r.Context(), req.Name, h.desk.Drafts().Portfolio)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, rec)
}

// HandleAddAsset handles POST /api/session/portfolio/assets
func (h *Handler) HandleAddAsset(w http.ResponseWriter, r *http.Request) {
	var a domain.Asset
	if !h.decode(w, r, &a) {
		return
	}
	h.editResponse(w, h.desk.AddAsset(a))
}

// HandleUpdateAsset handles PUT /api/session/portfolio/assets/{id}
func (h *Handler) HandleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	var a domain.Asset
	if !h.decode(w, r, &a) {
		return
	}
	a.ID = chi.URLParam(r, "id")
	h.editResponse(w, h.desk.UpdateAsset(a))
}

// HandleRemoveAsset handles DELETE /api/session/portfolio/assets/{id}
func (h *Handler) HandleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	h.editResponse(w, h.desk.RemoveAsset(chi.URLParam(r, "id")))
}

// HandlePutConstraints handles PUT /api/session/constraints
func (h *Handler) HandlePutConstraints(w http.ResponseWriter, r *http.Request) {
	var c domain.Constraints
	if !h.decode(w, r, &c) {
		return
	}
	h.editResponse(w, h.desk.EditConstraints(c))
}

// HandlePutInflow handles PUT /api/session/inflow
func (h *Handler) HandlePutInflow(w http.ResponseWriter, r *http.Request) {
	var in domain.Inflow
	if !h.decode(w, r, &in) {
		return
	}
	h.editResponse(w, h.desk.EditInflow(in))
}

// HandlePutRiskPosture handles PUT /api/session/risk-posture
func (h *Handler) HandlePutRiskPosture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RiskPosture domain.RiskPosture `json:"risk_posture"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.editResponse(w, h.desk.SetRiskPosture(req.RiskPosture))
}

// HandlePutSectorSentiment handles PUT /api/session/sector-sentiment
func (h *Handler) HandlePutSectorSentiment(w http.ResponseWriter, r *http.Request) {
	var s domain.SectorSentiment
	if !h.decode(w, r, &s) {
		return
	}
	h.editResponse(w, h.desk.EditSectorSentiment(s))
}

// HandlePutSectorScore handles PUT /api/session/sector-sentiment/{sector}.
// The score is raw operator input.
func (h *Handler) HandlePutSectorScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.editResponse(w, h.desk.SetSectorScore(chi.URLParam(r, "sector"), req.Value))
}

// HandlePutRegimeField handles PUT /api/session/regime/{key}. The value is
// raw operator input, parsed per the field's declared kind.
func (h *Handler) HandlePutRegimeField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.editResponse(w, h.desk.SetRegimeField(chi.URLParam(r, "key"), req.Value))
}

// HandlePutAllocatorVersion handles PUT /api/session/allocator-version
func (h *Handler) HandlePutAllocatorVersion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AllocatorVersion domain.AllocatorVersion `json:"allocator_version"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.editResponse(w, h.desk.SetAllocatorVersion(req.AllocatorVersion))
}
