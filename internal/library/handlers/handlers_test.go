package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/sentinel-desk/internal/domain"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/library"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (http.Handler, *library.Library, *[]*events.Event) {
	t.Helper()
	log := zerolog.Nop()

	lib, err := library.Open(context.Background(), library.NewMemoryStore(), log)
	require.NoError(t, err)

	bus := events.NewBus()
	var seen []*events.Event
	bus.Subscribe(events.LibraryChanged, func(e *events.Event) { seen = append(seen, e) })

	r := chi.NewRouter()
	NewHandler(lib, events.NewManager(bus, log), log).RegisterRoutes(r)
	return r, lib, &seen
}

func send(r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPortfolioLifecycle(t *testing.T) {
	r, lib, seen := setupRouter(t)

	body, _ := json.Marshal(domain.SavedPortfolio{
		Name:      "core",
		Portfolio: domain.Portfolio{Assets: []domain.Asset{{ID: "AAA", CurrentWeight: 1}}},
	})
	w := send(r, http.MethodPost, "/library/portfolios", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec library.Record[domain.SavedPortfolio]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "core", rec.Name)

	w = send(r, http.MethodGet, "/library/portfolios/"+rec.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = send(r, http.MethodGet, "/library/portfolios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	w = send(r, http.MethodDelete, "/library/portfolios/"+rec.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = send(r, http.MethodDelete, "/library/portfolios/"+rec.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	all, err := lib.Portfolios.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	require.Len(t, *seen, 2)
	assert.Equal(t, "saved", (*seen)[0].Data["action"])
	assert.Equal(t, "deleted", (*seen)[1].Data["action"])
}

func TestSavePortfolio_Invalid(t *testing.T) {
	r, _, seen := setupRouter(t)

	body, _ := json.Marshal(domain.SavedPortfolio{
		Name:      "bad",
		Portfolio: domain.Portfolio{Assets: []domain.Asset{{ID: "AAA", CurrentWeight: 2}}},
	})
	w := send(r, http.MethodPost, "/library/portfolios", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/library/portfolios", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, *seen)
}

func TestSavePolicy_BlankName(t *testing.T) {
	r, _, _ := setupRouter(t)
	body, _ := json.Marshal(domain.AllocationPolicy{Name: "  ", AllocatorVersion: domain.AllocatorV2})
	w := send(r, http.MethodPost, "/library/policies", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPoliciesExportImport(t *testing.T) {
	r, lib, _ := setupRouter(t)
	ctx := context.Background()

	_, err := lib.SavePolicy(ctx, domain.AllocationPolicy{Name: "steady", AllocatorVersion: domain.AllocatorV2})
	require.NoError(t, err)

	w := send(r, http.MethodGet, "/library/policies/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "name: steady")

	exported := w.Body.Bytes()
	w = send(r, http.MethodPost, "/library/policies/import", exported)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	rec, ok := lib.Policies.FindByName(ctx, "steady")
	require.True(t, ok)
	assert.Equal(t, 2, rec.Value.Version)

	all, err := lib.Policies.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImportPolicies_Malformed(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := send(r, http.MethodPost, "/library/policies/import", []byte(strings.TrimSpace(`
policies:
  - allocator_version: v2
`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/library/policies/import", []byte("policies: [unterminated"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
