package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/go-chi/chi/v5"
)

// FakeDecisionServer is an in-memory decision service speaking the same
// wire format as the real one. Decisions target equal weights across the
// scenario portfolio.
type FakeDecisionServer struct {
	*httptest.Server

	mu        sync.Mutex
	next      int
	scenarios map[string]*domain.Scenario
	ticks     map[string][]map[string]any
	times     map[string]domain.ScenarioTime
	sims      map[string]domain.SimState
	puts      map[string][]string
	status    int // forced response status, 0 means normal
}

// NewFakeDecisionServer starts a fake decision service, closed on test cleanup.
func NewFakeDecisionServer(t *testing.T) *FakeDecisionServer {
	t.Helper()

	f := &FakeDecisionServer{
		scenarios: make(map[string]*domain.Scenario),
		ticks:     make(map[string][]map[string]any),
		times:     make(map[string]domain.ScenarioTime),
		sims:      make(map[string]domain.SimState),
		puts:      make(map[string][]string),
	}

	r := chi.NewRouter()
	r.Use(f.forcedStatus)
	r.Post("/scenarios", f.handleCreate)
	r.Route("/scenarios/{id}", func(r chi.Router) {
		r.Use(f.requireScenario)
		r.Get("/", f.handleGet)
		r.Get("/ticks", f.handleGetTicks)
		r.Post("/ticks", f.handleRunTick)
		r.Get("/time", f.handleGetTime)
		r.Put("/time", f.handleSetTime)
		r.Post("/time/advance", f.handleAdvanceTime)
		r.Get("/sim", f.handleSim("get"))
		r.Post("/sim/reset", f.handleSim("reset"))
		r.Post("/sim/step", f.handleSim("step"))
		r.Post("/sim/run", f.handleSim("run"))
		r.Post("/performance", f.handlePerformance)
		for _, field := range []string{"portfolio", "constraints", "inflow", "risk-posture", "sector-sentiment", "regime"} {
			r.Put("/"+field, f.handlePut(field))
		}
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Close)
	return f
}

// FailWith makes every request answer with status; 0 restores normal service.
func (f *FakeDecisionServer) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Puts returns the sub-resources written to a scenario, in order.
func (f *FakeDecisionServer) Puts(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.puts[id]...)
}

// Scenarios returns the number of scenarios created.
func (f *FakeDecisionServer) Scenarios() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scenarios)
}

// Scenario returns a copy of a stored scenario.
func (f *FakeDecisionServer) Scenario(id string) (domain.Scenario, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sc, ok := f.scenarios[id]
	if !ok {
		return domain.Scenario{}, false
	}
	return *sc, true
}

func (f *FakeDecisionServer) forcedStatus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		status := f.status
		f.mu.Unlock()
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeDecisionServer) requireScenario(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		_, ok := f.scenarios[chi.URLParam(r, "id")]
		f.mu.Unlock()
		if !ok {
			http.Error(w, "scenario not found", http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeDecisionServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	var cfg domain.ScenarioConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.next++
	sc := &domain.Scenario{
		ID:               fmt.Sprintf("sc-%d", f.next),
		Name:             cfg.Name,
		Mode:             cfg.Mode,
		AllocatorVersion: cfg.AllocatorVersion,
		Portfolio:        cfg.Portfolio,
		Constraints:      cfg.Constraints,
	}
	f.scenarios[sc.ID] = sc
	f.times[sc.ID] = domain.ScenarioTime{Now: "2026-04-01T12:00:00.000Z"}
	f.sims[sc.ID] = domain.SimState{Status: "idle"}
	out := *sc
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"scenario": out})
}

func (f *FakeDecisionServer) handleGet(w http.ResponseWriter, r *http.Request) {
	sc, _ := f.Scenario(chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, map[string]any{"scenario": sc})
}

func (f *FakeDecisionServer) handleGetTicks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	docs := append([]map[string]any{}, f.ticks[chi.URLParam(r, "id")]...)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"ticks": docs})
}

func (f *FakeDecisionServer) handleRunTick(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	sc := f.scenarios[id]
	n := len(f.ticks[id]) + 1
	targets := map[string]any{}
	if sc.Portfolio != nil && len(sc.Portfolio.Assets) > 0 {
		weight := 1 / float64(len(sc.Portfolio.Assets))
		for _, a := range sc.Portfolio.Assets {
			targets[a.ID] = weight
		}
	}
	doc := map[string]any{
		"tick_id":        fmt.Sprintf("%s-t%d", id, n),
		"timestamp":      fmt.Sprintf("2026-04-01T12:%02d:00Z", n),
		"target_weights": targets,
	}
	f.ticks[id] = append(f.ticks[id], doc)
	sc.LastTick = doc["tick_id"].(string)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, doc)
}

func (f *FakeDecisionServer) handlePut(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		sc := f.scenarios[id]
		f.puts[id] = append(f.puts[id], field)
		var err error
		switch field {
		case "portfolio":
			var p domain.Portfolio
			err = json.Unmarshal(raw, &p)
			sc.Portfolio = &p
		case "constraints":
			var c domain.Constraints
			err = json.Unmarshal(raw, &c)
			sc.Constraints = &c
		case "inflow":
			var in domain.Inflow
			err = json.Unmarshal(raw, &in)
			sc.Inflow = &in
		case "risk-posture":
			var body struct {
				RiskPosture domain.RiskPosture `json:"risk_posture"`
			}
			err = json.Unmarshal(raw, &body)
			sc.RiskPosture = body.RiskPosture
		case "sector-sentiment":
			var s domain.SectorSentiment
			err = json.Unmarshal(raw, &s)
			sc.SectorSentiment = s
		case "regime":
			var body struct {
				AllocatorVersion domain.AllocatorVersion `json:"allocator_version"`
				Regime           domain.Regime           `json:"regime"`
			}
			err = json.Unmarshal(raw, &body)
			sc.AllocatorVersion = body.AllocatorVersion
			sc.Regime = body.Regime
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (f *FakeDecisionServer) handleGetTime(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	st := f.times[chi.URLParam(r, "id")]
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"time": st})
}

func (f *FakeDecisionServer) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var spec domain.TimeSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	st := domain.ScenarioTime{Now: spec.At}
	f.times[id] = st
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"time": st})
}

func (f *FakeDecisionServer) handleAdvanceTime(w http.ResponseWriter, r *http.Request) {
	var spec domain.TimeSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	st := f.times[id]
	st.Now = fmt.Sprintf("advanced %ds from %s", spec.Seconds, st.Now)
	f.times[id] = st
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"time": st})
}

func (f *FakeDecisionServer) handleSim(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var params domain.SimParams
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&params)
		}
		f.mu.Lock()
		st := f.sims[id]
		switch action {
		case "reset":
			st = domain.SimState{Status: "idle"}
		case "step":
			steps := params.Steps
			if steps <= 0 {
				steps = 1
			}
			st.Status = "paused"
			st.Step += steps
		case "run":
			st.Status = "finished"
		}
		f.sims[id] = st
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"sim": st})
	}
}

func (f *FakeDecisionServer) handlePerformance(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": true, "echo": payload})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
