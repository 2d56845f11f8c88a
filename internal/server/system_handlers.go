package server

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/sentinel-desk/internal/database"
	"github.com/aristath/sentinel-desk/internal/scheduler"
	"github.com/aristath/sentinel-desk/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	desk      *session.Orchestrator
	scheduler *scheduler.Scheduler
	databases []*database.DB
	startTime time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, desk *session.Orchestrator, sched *scheduler.Scheduler, databases ...*database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		desk:      desk,
		scheduler: sched,
		databases: databases,
		startTime: time.Now(),
	}
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	CPUPercent    float64        `json:"cpu_percent"`
	MemoryPercent float64        `json:"memory_percent"`
	Goroutines    int            `json:"goroutines"`
	Session       session.Status `json:"session"`
	LastChecked   string         `json:"last_checked"`
}

// DBInfo describes one database
type DBInfo struct {
	Name          string  `json:"name"`
	Path          string  `json:"path"`
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	FreelistCount int64   `json:"freelist_count"`
	Error         string  `json:"error,omitempty"`
}

// DatabaseStatsResponse represents database statistics
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// JobsStatusResponse lists the registered background jobs
type JobsStatusResponse struct {
	Jobs  []string `json:"jobs"`
	Count int      `json:"count"`
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	resp := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Goroutines:    runtime.NumGoroutine(),
		LastChecked:   time.Now().Format(time.RFC3339),
	}
	if h.desk != nil {
		resp.Session = h.desk.Status()
		if resp.Session.Message != "" {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, resp, h.log)
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	resp := DatabaseStatsResponse{
		Databases:   make([]DBInfo, 0, len(h.databases)),
		LastChecked: time.Now().Format(time.RFC3339),
	}

	for _, db := range h.databases {
		info := DBInfo{Name: db.Name(), Path: db.Path()}
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			info.Error = err.Error()
		} else {
			info.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			info.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
			info.PageCount = stats.PageCount
			info.FreelistCount = stats.FreelistCount
			resp.TotalSizeMB += info.SizeMB + info.WALSizeMB
		}
		resp.Databases = append(resp.Databases, info)
	}

	writeJSON(w, http.StatusOK, resp, h.log)
}

// HandleJobsStatus handles GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []string{}
	if h.scheduler != nil {
		jobs = h.scheduler.Jobs()
	}
	writeJSON(w, http.StatusOK, JobsStatusResponse{Jobs: jobs, Count: len(jobs)}, h.log)
}

// HandleTriggerJob handles POST /api/system/jobs/{name}, running the job
// synchronously.
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "scheduler not available"}, h.log)
		return
	}

	h.log.Info().Str("job", name).Msg("Manually triggering job")
	start := time.Now()
	if err := h.scheduler.RunNow(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scheduler.ErrUnknownJob) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"job":         name,
		"duration_ms": time.Since(start).Milliseconds(),
	}, h.log)
}

// getSystemStats calculates CPU and RAM usage percentages. The short CPU
// sampling interval keeps the endpoint responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
