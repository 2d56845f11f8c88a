package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all library routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/library", func(r chi.Router) {
		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", h.HandleListPortfolios)
			r.Post("/", h.HandleSavePortfolio)
			r.Get("/{id}", h.HandleGetPortfolio)
			r.Delete("/{id}", h.HandleDeletePortfolio)
		})
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.HandleListPolicies)
			r.Post("/", h.HandleSavePolicy)
			r.Get("/export", h.HandleExportPolicies)
			r.Post("/import", h.HandleImportPolicies)
			r.Get("/{id}", h.HandleGetPolicy)
			r.Delete("/{id}", h.HandleDeletePolicy)
		})
	})
}
