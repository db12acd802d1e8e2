// Package runmanager tracks in-flight and completed pipeline runs in
// memory: one entry per run_id, each holding the run's configuration
// reference, its Manifest once finished, and its MacroScore when the
// run succeeded. It does not itself execute phases; it wraps
// orchestrator.Run with identity and concurrency-safe bookkeeping.
package runmanager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/policypipeline/pkg/aggregation"
	"github.com/codeready-toolchain/policypipeline/pkg/contract"
	"github.com/codeready-toolchain/policypipeline/pkg/orchestrator"
)

// Status is a run's lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
)

// Run is one tracked pipeline execution.
type Run struct {
	ID         string
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Manifest   *contract.Manifest
	MacroScore *aggregation.MacroScore
}

// Clone returns a value copy safe to hand to a caller outside the
// manager's lock.
func (r Run) Clone() Run {
	clone := r
	if r.Manifest != nil {
		m := *r.Manifest
		m.Phases = append([]contract.PhaseRecord(nil), r.Manifest.Phases...)
		clone.Manifest = &m
	}
	return clone
}

// Manager tracks runs in memory, keyed by run_id.
type Manager struct {
	runs map[string]*Run
	mu   sync.RWMutex
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{runs: make(map[string]*Run)}
}

// Submit assigns a new run_id, registers the run as RUNNING, then
// drives orchestrator.Run to completion, recording the Manifest and
// MacroScore. Submit blocks for the duration of the run; callers that
// want fire-and-forget behavior should invoke it in a goroutine.
func (m *Manager) Submit(ctx context.Context, in orchestrator.RunInput) *Run {
	runID := uuid.New().String()
	now := time.Now()

	run := &Run{ID: runID, Status: StatusRunning, CreatedAt: now, UpdatedAt: now}
	m.mu.Lock()
	m.runs[runID] = run
	m.mu.Unlock()

	manifest, macro := orchestrator.Run(ctx, in)
	manifest.RunID = runID

	m.mu.Lock()
	run.Manifest = manifest
	run.MacroScore = macro
	run.Status = StatusCompleted
	run.UpdatedAt = time.Now()
	m.mu.Unlock()

	return run
}

// Get retrieves a tracked run by id.
func (m *Manager) Get(runID string) (Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return Run{}, fmt.Errorf("run not found: %s", runID)
	}
	return run.Clone(), nil
}

// List returns every tracked run.
func (m *Manager) List() []Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Run, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, r.Clone())
	}
	return out
}
