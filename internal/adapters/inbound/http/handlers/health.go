package handlers

import (
	"net/http"
	"time"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/usecases"
	"github.com/architeacher/checkpoint/internal/usecases/queries"
)

type (
	dependencyData struct {
		Status      string    `json:"status"`
		LatencyMs   uint64    `json:"latencyMs"`
		Message     string    `json:"message,omitempty"`
		LastChecked time.Time `json:"lastChecked"`
		Error       string    `json:"error,omitempty"`
	}

	LivenessResponse struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
		Version   string    `json:"version"`
	}

	ReadinessResponse struct {
		Status    string                    `json:"status"`
		Timestamp time.Time                 `json:"timestamp"`
		Version   string                    `json:"version"`
		Checks    map[string]dependencyData `json:"checks"`
	}

	HealthResponse struct {
		Status    string                    `json:"status"`
		Timestamp time.Time                 `json:"timestamp"`
		Version   versionData               `json:"version"`
		Uptime    uptimeData                `json:"uptime"`
		Checks    map[string]dependencyData `json:"checks"`
		System    systemData                `json:"system"`
		Inventory inventoryData             `json:"inventory"`
	}

	versionData struct {
		API   string `json:"api"`
		Build string `json:"build,omitempty"`
		Go    string `json:"go"`
	}

	uptimeData struct {
		StartedAt       time.Time `json:"startedAt"`
		Duration        string    `json:"duration"`
		DurationSeconds uint64    `json:"durationSeconds"`
	}

	systemData struct {
		Goroutines uint       `json:"goroutines"`
		CPUCores   uint       `json:"cpuCores"`
		Memory     memoryData `json:"memory"`
	}

	memoryData struct {
		AllocMB      float64 `json:"allocMb"`
		TotalAllocMB float64 `json:"totalAllocMb"`
		SysMB        float64 `json:"sysMb"`
		GCCycles     uint32  `json:"gcCycles"`
	}

	inventoryData struct {
		Devices    uint            `json:"devices"`
		Present    uint            `json:"present"`
		CheckedOut uint            `json:"checkedOut"`
		ByKind     map[string]uint `json:"byKind"`
	}

	HealthHandler struct {
		app *usecases.Application
	}
)

func NewHealthHandler(app *usecases.Application) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchLiveness.Execute(r.Context(), queries.FetchLivenessQuery{})
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, LivenessResponse{
			Status:    string(model.HealthStatusDown),
			Timestamp: time.Now().UTC(),
		})

		return
	}

	writeJSONResponse(w, http.StatusOK, LivenessResponse{
		Status:    string(result.Status),
		Timestamp: result.Timestamp,
		Version:   result.Version,
	})
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchReadiness.Execute(r.Context(), queries.FetchReadinessQuery{})
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, ReadinessResponse{
			Status:    string(model.HealthStatusDown),
			Timestamp: time.Now().UTC(),
		})

		return
	}

	writeJSONResponse(w, statusCodeFor(result.Status), ReadinessResponse{
		Status:    string(result.Status),
		Timestamp: result.Timestamp,
		Version:   result.Version,
		Checks:    toDependencyData(result.Checks),
	})
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.Queries.FetchHealthReport.Execute(r.Context(), queries.FetchHealthReportQuery{})
	if err != nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status":    model.HealthStatusDown,
			"timestamp": time.Now().UTC(),
		})

		return
	}

	writeJSONResponse(w, statusCodeFor(result.Status), HealthResponse{
		Status:    string(result.Status),
		Timestamp: result.Timestamp,
		Version: versionData{
			API:   result.Version.API,
			Build: result.Version.Build,
			Go:    result.Version.Go,
		},
		Uptime: uptimeData{
			StartedAt:       result.Uptime.StartedAt,
			Duration:        result.Uptime.Duration,
			DurationSeconds: result.Uptime.DurationSeconds,
		},
		Checks: toDependencyData(result.Checks),
		System: systemData{
			Goroutines: result.System.Goroutines,
			CPUCores:   result.System.CPUCores,
			Memory: memoryData{
				AllocMB:      result.System.Memory.AllocMB,
				TotalAllocMB: result.System.Memory.TotalAllocMB,
				SysMB:        result.System.Memory.SysMB,
				GCCycles:     result.System.Memory.GCCycles,
			},
		},
		Inventory: toInventoryData(result.Inventory),
	})
}

func toInventoryData(inventory model.InventoryInfo) inventoryData {
	byKind := make(map[string]uint, len(inventory.ByKind))
	for kind, count := range inventory.ByKind {
		byKind[kind.String()] = count
	}

	return inventoryData{
		Devices:    inventory.Devices,
		Present:    inventory.Present,
		CheckedOut: inventory.CheckedOut,
		ByKind:     byKind,
	}
}

// statusCodeFor keeps a degraded service in rotation.
func statusCodeFor(status model.HealthStatus) int {
	if status.Serving() {
		return http.StatusOK
	}

	return http.StatusServiceUnavailable
}

func toDependencyData(checks map[string]model.DependencyCheck) map[string]dependencyData {
	data := make(map[string]dependencyData, len(checks))

	for name, check := range checks {
		data[name] = dependencyData{
			Status:      string(check.Status),
			LatencyMs:   check.LatencyMs,
			Message:     check.Message,
			LastChecked: check.LastChecked,
			Error:       check.Error,
		}
	}

	return data
}
