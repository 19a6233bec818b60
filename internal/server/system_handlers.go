package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/drawlab/internal/database"
	"github.com/aristath/drawlab/internal/di"
	"github.com/aristath/drawlab/internal/scheduler"
	"github.com/aristath/drawlab/internal/services"
)

// SystemHandlers serves status, database statistics and manual job triggers
type SystemHandlers struct {
	log         zerolog.Logger
	dataDir     string
	db          *database.DB
	draws       *services.DrawService
	optimizer   *services.OptimizationService
	scheduler   *scheduler.Scheduler
	cycle       scheduler.Job
	maintenance scheduler.Job
	startedAt   time.Time
}

// NewSystemHandlers creates system handlers over the container services
func NewSystemHandlers(log zerolog.Logger, dataDir string, container *di.Container, jobs *di.JobInstances) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		db:        container.DB,
		draws:     container.DrawService,
		optimizer: container.OptimizationService,
		scheduler: container.Scheduler,
		startedAt: time.Now(),
	}
	if jobs != nil && jobs.DailyCycle != nil {
		h.cycle = jobs.DailyCycle
	}
	if jobs != nil && jobs.DatabaseMaintenance != nil {
		h.maintenance = jobs.DatabaseMaintenance
	}
	return h
}

// LotteryStatus summarises one lottery in the system status
type LotteryStatus struct {
	Name  string `json:"name"`
	Draws int    `json:"draws"`
}

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status           string                 `json:"status"`
	UptimeSeconds    int64                  `json:"uptime_seconds"`
	CPUPercent       float64                `json:"cpu_percent"`
	MemoryPercent    float64                `json:"memory_percent"`
	Lotteries        []LotteryStatus        `json:"lotteries"`
	Optimizations    []services.RunStatus   `json:"optimizations"`
	RunningOptimizer int                    `json:"running_optimizations"`
	Database         *database.Stats        `json:"database,omitempty"`
	LastChecked      string                 `json:"last_checked"`
}

// DatabaseStatsResponse is returned by GET /api/system/database
type DatabaseStatsResponse struct {
	Path         string          `json:"path"`
	Stats        *database.Stats `json:"stats"`
	DataDirMB    float64         `json:"data_dir_mb"`
	StrategiesMB float64         `json:"strategies_mb"`
	Healthy      bool            `json:"healthy"`
	Error        string          `json:"error,omitempty"`
	LastChecked  string          `json:"last_checked"`
}

// HandleSystemStatus returns host load, stored draws and optimiser activity
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		Optimizations: h.optimizer.Statuses(),
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	for _, name := range h.draws.Names() {
		n, err := h.draws.Count(r.Context(), name)
		if err != nil {
			h.log.Warn().Err(err).Str("lottery", name).Msg("Failed to count draws")
			response.Status = "degraded"
		}
		response.Lotteries = append(response.Lotteries, LotteryStatus{Name: name, Draws: n})
	}
	for _, st := range response.Optimizations {
		if st.Running {
			response.RunningOptimizer++
		}
	}

	if stats, err := h.db.GetStats(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get database stats")
		response.Status = "degraded"
	} else {
		response.Database = stats
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDatabaseStats returns database and data directory statistics
// GET /api/system/database
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	response := DatabaseStatsResponse{
		Path:         h.db.Path(),
		DataDirMB:    h.getDirSize(h.dataDir),
		StrategiesMB: h.getDirSize(filepath.Join(h.dataDir, "strategies")),
		Healthy:      true,
		LastChecked:  time.Now().Format(time.RFC3339),
	}

	if err := h.db.HealthCheck(r.Context()); err != nil {
		response.Healthy = false
		response.Error = err.Error()
	}
	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		response.Healthy = false
		response.Error = err.Error()
	}
	response.Stats = stats

	h.writeJSON(w, http.StatusOK, response)
}

// HandleTriggerDailyCycle runs the daily cycle in the background
// POST /api/system/jobs/daily-cycle
func (h *SystemHandlers) HandleTriggerDailyCycle(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.cycle, "Daily cycle")
}

// HandleTriggerDatabaseMaintenance runs database maintenance in the background
// POST /api/system/jobs/database-maintenance
func (h *SystemHandlers) HandleTriggerDatabaseMaintenance(w http.ResponseWriter, r *http.Request) {
	h.triggerJob(w, h.maintenance, "Database maintenance")
}

func (h *SystemHandlers) triggerJob(w http.ResponseWriter, job scheduler.Job, label string) {
	if job == nil || h.scheduler == nil {
		h.log.Warn().Str("job", label).Msg("Job not registered")
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "error",
			"message": label + " job not registered",
		})
		return
	}

	h.log.Info().Str("job", job.Name()).Msg("Manual job triggered")

	go func() {
		if err := h.scheduler.RunNow(job); err != nil {
			h.log.Error().Err(err).Str("job", job.Name()).Msg("Manual job failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "success",
		"message": label + " triggered",
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats returns CPU and RAM usage percentages. CPU is sampled over
// 100ms.
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

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data, h.log)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}, log zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
