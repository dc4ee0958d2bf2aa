package systems

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeusync/voxelphys/internal/core/observability/log"
	"github.com/zeusync/voxelphys/internal/core/system"
)

var (
	ErrSystemExists   = errors.New("system already registered")
	ErrSystemNotFound = errors.New("system not found")
)

// Manager runs registered systems in priority order, once per tick, and
// advances the world tick counter when every system has finished.
type Manager struct {
	mu      sync.RWMutex
	systems []System
	metrics Metrics
	log     log.Log
}

func NewManager(logger log.Log) *Manager {
	return &Manager{log: logger}
}

func (m *Manager) RegisterSystem(s System) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.systems {
		if existing.Name() == s.Name() {
			return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
		}
	}
	m.systems = append(m.systems, s)
	sort.SliceStable(m.systems, func(i, j int) bool {
		return m.systems[i].Priority() > m.systems[j].Priority()
	})
	return nil
}

func (m *Manager) UnregisterSystem(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.systems {
		if s.Name() == name {
			m.systems = append(m.systems[:i], m.systems[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSystemNotFound, name)
}

func (m *Manager) GetSystem(name string) (System, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.systems {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// ExecutionOrder lists system names in the order Tick runs them.
func (m *Manager) ExecutionOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.systems))
	for i, s := range m.systems {
		out[i] = s.Name()
	}
	return out
}

// Tick runs every system for one fixed step. The first failing system aborts
// the tick; the world tick counter only advances on success.
func (m *Manager) Tick(ctx context.Context, dt float32, world *system.World) error {
	start := time.Now()
	m.mu.RLock()
	systems := append([]System(nil), m.systems...)
	m.mu.RUnlock()

	var err error
	for _, s := range systems {
		if err = ctx.Err(); err != nil {
			break
		}
		if err = s.Tick(ctx, dt, world); err != nil {
			err = fmt.Errorf("system %s: %w", s.Name(), err)
			m.log.Error("system tick failed", log.String("system", s.Name()), log.Error(err))
			break
		}
	}
	if err == nil {
		world.Advance()
	}

	m.mu.Lock()
	m.metrics.Record(time.Since(start), err)
	m.mu.Unlock()
	return err
}

func (m *Manager) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metrics
}
