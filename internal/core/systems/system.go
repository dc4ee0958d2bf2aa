package systems

import (
	"context"
	"time"

	"github.com/zeusync/voxelphys/internal/core/system"
)

// System is one stage of the fixed-timestep simulation.
type System interface {
	Name() string

	// Tick advances the system by dt seconds. It must not return before all
	// work it started has finished.
	Tick(ctx context.Context, dt float32, world *system.World) error

	Priority() Priority
	GetMetrics() Metrics
}

// Priority defines execution order; higher runs first.
type Priority uint16

const (
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	LastExecutionTime    time.Duration
	ErrorCount           uint64
	LastError            error
	EntitiesProcessed    uint64

	// Physics counters.
	Landings uint64
	Stalls   uint64
	Frozen   uint64
}

// Record folds one execution into m.
func (m *Metrics) Record(took time.Duration, err error) {
	m.ExecutionCount++
	m.TotalExecutionTime += took
	m.AverageExecutionTime = m.TotalExecutionTime / time.Duration(m.ExecutionCount)
	m.LastExecutionTime = took
	if took > m.MaxExecutionTime {
		m.MaxExecutionTime = took
	}
	if err != nil {
		m.ErrorCount++
		m.LastError = err
	}
}
