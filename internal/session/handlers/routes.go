package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all session and comparison routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		// Lifecycle
		r.Get("/", h.HandleGetStatus)
		r.Post("/", h.HandleCreate)
		r.Post("/load", h.HandleLoad)
		r.Post("/reload", h.HandleReload)
		r.Put("/mode", h.HandleSwitchMode)

		// Drafts (autosaved after each field's debounce window)
		r.Get("/drafts", h.HandleGetDrafts)
		r.Put("/portfolio", h.HandlePutPortfolio)
		r.Post("/portfolio/apply", h.HandleApplySavedPortfolio)
		r.Post("/portfolio/save", h.HandleSavePortfolio)
		r.Post("/portfolio/assets", h.HandleAddAsset)
		r.Put("/portfolio/assets/{id}", h.HandleUpdateAsset)
		r.Delete("/portfolio/assets/{id}", h.HandleRemoveAsset)
		r.Put("/constraints", h.HandlePutConstraints)
		r.Put("/inflow", h.HandlePutInflow)
		r.Put("/risk-posture", h.HandlePutRiskPosture)
		r.Put("/sector-sentiment", h.HandlePutSectorSentiment)
		r.Put("/sector-sentiment/{sector}", h.HandlePutSectorScore)
		r.Put("/regime/{key}", h.HandlePutRegimeField)
		r.Put("/allocator-version", h.HandlePutAllocatorVersion)

		// Decisions and history
		r.Post("/decisions", h.HandleRunDecision)
		r.Get("/ticks", h.HandleGetTicks)
		r.Get("/ticks/latest", h.HandleGetLatestTick)
		r.Post("/ticks/refresh", h.HandleRefreshTicks)
		r.Post("/ticks/{id}/hide", h.HandleHideTick)
		r.Get("/allocation", h.HandleGetAllocation)
		r.Post("/performance", h.HandlePostPerformance)

		// Scenario clock and simulation
		r.Post("/time/advance", h.HandleAdvanceTime)
		r.Put("/time", h.HandleSetTime)
		r.Post("/sim/reset", h.HandleSimReset)
		r.Post("/sim/step", h.HandleSimStep)
		r.Post("/sim/run", h.HandleSimRun)
	})

	r.Route("/comparisons", func(r chi.Router) {
		r.Get("/", h.HandleListComparisons)
		r.Post("/", h.HandleRunComparison)
		r.Get("/{id}", h.HandleGetComparison)
	})
}
