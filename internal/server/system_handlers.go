package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"patternwatch/internal/database"
)

// SystemHandlers handles system monitoring endpoints
type SystemHandlers struct {
	dbs []*database.DB
	log zerolog.Logger
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(log zerolog.Logger, dbs []*database.DB) *SystemHandlers {
	return &SystemHandlers{
		dbs: dbs,
		log: log.With().Str("handler", "system").Logger(),
	}
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Get("/stats", h.HandleStats)
	})
}

// HandleHealth handles GET /api/system/health
// Pings and integrity-checks every database.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	healthy := true
	databases := make(map[string]string, len(h.dbs))
	for _, db := range h.dbs {
		if err := db.HealthCheck(ctx); err != nil {
			h.log.Error().Err(err).Str("database", db.Name()).Msg("Health check failed")
			databases[db.Name()] = err.Error()
			healthy = false
			continue
		}
		databases[db.Name()] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	h.writeJSON(w, status, map[string]interface{}{
		"status":    overall,
		"databases": databases,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleStats handles GET /api/system/stats
// Reports database sizes plus host CPU and memory usage.
func (h *SystemHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	dbStats := make(map[string]interface{}, len(h.dbs))
	for _, db := range h.dbs {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		dbStats[db.Name()] = map[string]int64{
			"size_bytes":     stats.SizeBytes,
			"wal_size_bytes": stats.WALSizeBytes,
			"page_count":     stats.PageCount,
		}
	}

	cpuAvg, ramUsed := h.systemUsage()

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"databases":        dbStats,
		"cpu_percent":      cpuAvg,
		"mem_used_percent": ramUsed,
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

// systemUsage returns average CPU and RAM usage percentages
func (h *SystemHandlers) systemUsage() (float64, float64) {
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

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
