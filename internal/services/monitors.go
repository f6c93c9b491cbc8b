package services

import (
	"context"
	"time"

	"github.com/architeacher/checkpoint/internal/domain/model"
	"github.com/architeacher/checkpoint/internal/ports"
)

type (
	funcMonitor struct {
		name  string
		check func(ctx context.Context) error
		now   func() time.Time
	}

	disabledMonitor struct {
		name string
	}
)

var (
	_ ports.DependencyMonitor = (*funcMonitor)(nil)
	_ ports.DependencyMonitor = disabledMonitor{}
)

// NewMonitor reports name as up whenever check returns nil.
func NewMonitor(name string, check func(ctx context.Context) error) ports.DependencyMonitor {
	return &funcMonitor{name: name, check: check, now: time.Now}
}

// NewDisabledMonitor reports a dependency that is switched off in configuration.
func NewDisabledMonitor(name string) ports.DependencyMonitor {
	return disabledMonitor{name: name}
}

func (p *funcMonitor) Name() string {
	return p.name
}

func (p *funcMonitor) Check(ctx context.Context) model.DependencyCheck {
	start := p.now()
	err := p.check(ctx)
	latency := p.now().Sub(start)

	result := model.DependencyCheck{
		Status:      model.DependencyStatusUp,
		LatencyMs:   uint64(max(latency.Milliseconds(), 0)),
		Message:     "ok",
		LastChecked: start.UTC(),
	}

	if err != nil {
		result.Status = model.DependencyStatusDown
		result.Message = "unreachable"
		result.Error = err.Error()
	}

	return result
}

func (p disabledMonitor) Name() string {
	return p.name
}

func (p disabledMonitor) Check(context.Context) model.DependencyCheck {
	return model.DependencyCheck{
		Status:      model.DependencyStatusDisabled,
		Message:     "disabled",
		LastChecked: time.Now().UTC(),
	}
}
