package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/sentinel-desk/internal/clientdata"
	"github.com/aristath/sentinel-desk/internal/clients/decision"
	"github.com/aristath/sentinel-desk/internal/config"
	"github.com/aristath/sentinel-desk/internal/di"
	"github.com/aristath/sentinel-desk/internal/events"
	"github.com/aristath/sentinel-desk/internal/library"
	"github.com/aristath/sentinel-desk/internal/scheduler"
	"github.com/aristath/sentinel-desk/internal/session"
	testingpkg "github.com/aristath/sentinel-desk/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type stubJob struct {
	name string
	err  error
	runs int
}

func (j *stubJob) Run() error   { j.runs++; return j.err }
func (j *stubJob) Name() string { return j.name }

func newTestServer(t *testing.T) (*Server, *di.Container, *stubJob) {
	t.Helper()
	log := zerolog.Nop()
	ctx := context.Background()

	remote := testingpkg.NewFakeDecisionServer(t)
	cacheDB, cleanup := testingpkg.NewTestDB(t, "cache")
	t.Cleanup(cleanup)

	lib, err := library.Open(ctx, library.NewMemoryStore(), log)
	require.NoError(t, err)

	bus := events.NewBus()
	container := &di.Container{
		CacheDB:        cacheDB,
		Library:        lib,
		DecisionClient: decision.NewClient(decision.Config{BaseURL: remote.URL, Timeout: 5 * time.Second}, log),
		ClientDataRepo: clientdata.NewRepository(cacheDB.Conn()),
		EventBus:       bus,
		EventManager:   events.NewManager(bus, log),
		Scheduler:      scheduler.New(log),
	}
	container.ResponseCache = clientdata.NewResponseCache(container.ClientDataRepo)
	container.Orchestrator = session.New(session.Options{
		Service:  container.DecisionClient,
		Events:   container.EventManager,
		Cache:    container.ResponseCache,
		Autosave: config.DefaultAutosave(),
		Log:      log,
	})
	t.Cleanup(container.Orchestrator.Close)

	job := &stubJob{name: "noop"}
	require.NoError(t, container.Scheduler.AddJob("@every 1h", job))

	srv := New(Config{
		Log:       log,
		Config:    &config.Config{ComparisonTimeout: config.DefaultComparisonTimeout},
		Container: container,
		Port:      0,
		DevMode:   true,
	})
	return srv, container, job
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := get(t, srv.Handler(), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, map[string]string{"cache": "ok"}, resp.Databases)
}

func TestHealth_ClosedDatabase(t *testing.T) {
	srv, container, _ := newTestServer(t)
	require.NoError(t, container.CacheDB.Close())

	w := get(t, srv.Handler(), http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.NotEqual(t, "ok", resp.Databases["cache"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := get(t, srv.Handler(), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestSystemStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := get(t, srv.Handler(), http.MethodGet, "/api/system/status")
	require.Equal(t, http.StatusOK, w.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, session.StateAbsent, resp.Session.State)
	assert.Positive(t, resp.Goroutines)
}

func TestDatabaseStats(t *testing.T) {
	srv, _, _ := newTestServer(t)
	w := get(t, srv.Handler(), http.MethodGet, "/api/system/database/stats")
	require.Equal(t, http.StatusOK, w.Code)

	var resp DatabaseStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Databases, 1)
	assert.Equal(t, "cache", resp.Databases[0].Name)
	assert.Empty(t, resp.Databases[0].Error)
}

func TestJobs(t *testing.T) {
	srv, _, job := newTestServer(t)

	w := get(t, srv.Handler(), http.MethodGet, "/api/system/jobs")
	require.Equal(t, http.StatusOK, w.Code)
	var list JobsStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []string{"noop"}, list.Jobs)

	w = get(t, srv.Handler(), http.MethodPost, "/api/system/jobs/noop")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, job.runs)

	w = get(t, srv.Handler(), http.MethodPost, "/api/system/jobs/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)

	job.err = errors.New("boom")
	w = get(t, srv.Handler(), http.MethodPost, "/api/system/jobs/noop")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRoutesMounted(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := get(t, srv.Handler(), http.MethodGet, "/api/session")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, srv.Handler(), http.MethodGet, "/api/library/policies")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, srv.Handler(), http.MethodGet, "/api/comparisons")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEventStream_SSE(t *testing.T) {
	srv, container, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events/stream?types=LIBRARY_CHANGED", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() map[string]interface{} {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				var msg map[string]interface{}
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg))
				return msg
			}
		}
	}

	assert.Equal(t, "connected", readData()["type"])

	// Filtered out
	container.EventManager.EmitTyped(events.TickRecorded, "session", &events.TickRecordedData{TickID: "t1"})
	container.EventManager.EmitTyped(events.LibraryChanged, "library", &events.LibraryChangedData{Category: "policies", ID: "p1", Action: "saved"})

	msg := readData()
	assert.Equal(t, string(events.LibraryChanged), msg["type"])
	assert.Equal(t, "library", msg["module"])
}

func TestEventStream_WebSocket(t *testing.T) {
	srv, container, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/events/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool {
		return container.EventBus.SubscriberCount(events.DraftSaved) > 0
	}, 2*time.Second, 10*time.Millisecond)

	container.EventManager.EmitTyped(events.DraftSaved, "session", &events.DraftSavedData{SessionID: "sc-1", Field: "inflow"})

	var msg map[string]interface{}
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, string(events.DraftSaved), msg["type"])
	data, ok := msg["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "inflow", data["field"])
}
