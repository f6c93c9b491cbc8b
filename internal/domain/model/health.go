package model

import "time"

type (
	HealthStatus string

	DependencyStatus string

	DependencyCheck struct {
		Status      DependencyStatus
		LatencyMs   uint64
		Message     string
		LastChecked time.Time
		Error       string
	}

	LivenessReport struct {
		Status    HealthStatus
		Timestamp time.Time
		Version   string
	}

	// ReadinessReport lists every dependency a checkin needs, the device
	// inventory included.
	ReadinessReport struct {
		Status    HealthStatus
		Timestamp time.Time
		Version   string
		Checks    map[string]DependencyCheck
	}

	HealthReport struct {
		Status    HealthStatus
		Timestamp time.Time
		Version   VersionInfo
		Uptime    UptimeInfo
		Checks    map[string]DependencyCheck
		System    SystemInfo
		Inventory InventoryInfo
	}

	VersionInfo struct {
		API   string
		Build string
		Go    string
	}

	UptimeInfo struct {
		StartedAt       time.Time
		Duration        string
		DurationSeconds uint64
	}

	SystemInfo struct {
		Memory     MemoryInfo
		Goroutines uint
		CPUCores   uint
	}

	MemoryInfo struct {
		AllocMB      float64
		TotalAllocMB float64
		SysMB        float64
		GCCycles     uint32
	}

	// InventoryInfo counts the devices on record, split by state and by kind.
	InventoryInfo struct {
		Devices    uint
		Present    uint
		CheckedOut uint
		ByKind     map[Kind]uint
	}
)

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"

	DependencyStatusUp       DependencyStatus = "up"
	DependencyStatusDown     DependencyStatus = "down"
	DependencyStatusDegraded DependencyStatus = "degraded"
	DependencyStatusDisabled DependencyStatus = "disabled"

	// InventoryCheck names the readiness entry for the device repository.
	InventoryCheck = "inventory"
)

// Serving reports whether the service should stay in rotation. Degraded still serves.
func (s HealthStatus) Serving() bool {
	return s != HealthStatusDown
}

// AggregateStatus is down when any enabled dependency is down and degraded
// when any is degraded.
func AggregateStatus(checks map[string]DependencyCheck) HealthStatus {
	status := HealthStatusOK

	for _, check := range checks {
		switch check.Status {
		case DependencyStatusDown:
			return HealthStatusDown
		case DependencyStatusDegraded:
			status = HealthStatusDegraded
		}
	}

	return status
}

// WithCheck records check under name and recomputes the overall status.
func (r *ReadinessReport) WithCheck(name string, check DependencyCheck) *ReadinessReport {
	if r.Checks == nil {
		r.Checks = make(map[string]DependencyCheck, 1)
	}

	r.Checks[name] = check
	r.Status = AggregateStatus(r.Checks)

	return r
}

// NewInventoryInfo totals per-kind counts of present and checked out devices.
func NewInventoryInfo(present, checkedOut map[Kind]uint) InventoryInfo {
	info := InventoryInfo{ByKind: make(map[Kind]uint, len(AllKinds()))}

	for _, kind := range AllKinds() {
		info.Present += present[kind]
		info.CheckedOut += checkedOut[kind]
		info.ByKind[kind] = present[kind] + checkedOut[kind]
	}

	info.Devices = info.Present + info.CheckedOut

	return info
}
