package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HealthResponse reports whether the local stores answer.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Databases map[string]string `json:"databases"`
}

// handleHealth pings every local database. Any failure answers 503 so a
// supervisor can restart the process.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Service: "sentinel-desk", Databases: map[string]string{}}
	status := http.StatusOK
	for _, db := range s.container.Databases() {
		if err := db.QuickCheck(ctx); err != nil {
			s.log.Warn().Err(err).Str("database", db.Name()).Msg("Health check failed")
			resp.Databases[db.Name()] = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Databases[db.Name()] = "ok"
	}

	writeJSON(w, status, resp, s.log)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
