package collector

import (
	"maps"
	"sync"
	"time"
)

// RunStatus describes where a source sits in its collection cycle
type RunStatus string

const (
	StatusReady   RunStatus = "ready"
	StatusRunning RunStatus = "running"
	StatusFailed  RunStatus = "failed"
)

// SourceState is the per-source bookkeeping mutated after each run.
// It lives for the whole process; a failed run flips Status until the
// next successful one.
type SourceState struct {
	Source     string     `json:"source"`
	Enabled    bool       `json:"enabled"`
	Status     RunStatus  `json:"status"`
	RunCount   int        `json:"run_count"`
	ErrorCount int        `json:"error_count"`
	LastRun    *time.Time `json:"last_run,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// StateTracker holds the run state for every registered source
type StateTracker struct {
	mu     sync.RWMutex
	states map[string]SourceState
}

// NewStateTracker creates an empty tracker
func NewStateTracker() *StateTracker {
	return &StateTracker{states: make(map[string]SourceState)}
}

// Register creates the state slot for a source. Called once when the
// collector is constructed.
func (t *StateTracker) Register(source string, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.states[source]; ok {
		return
	}
	t.states[source] = SourceState{Source: source, Enabled: enabled, Status: StatusReady}
}

// MarkRunning flips a source to running for the duration of a run
func (t *StateTracker) MarkRunning(source string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[source]
	if !ok {
		return
	}
	st.Status = StatusRunning
	t.states[source] = st
}

// RecordResult applies run bookkeeping. Completed runs bump the run count
// and re-arm next_run; failed runs bump the error count and keep the error
// text for the status surface. A skip (disabled source) touches neither
// counter.
func (t *StateTracker) RecordResult(res Result, nextRun time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[res.Source]
	if !ok {
		return
	}

	st.NextRun = &nextRun
	switch {
	case res.Success:
		finished := res.FinishedAt
		st.RunCount++
		st.LastRun = &finished
		st.Status = StatusReady
		st.LastError = ""
	case res.Failed():
		finished := res.FinishedAt
		st.ErrorCount++
		st.LastRun = &finished
		st.Status = StatusFailed
		st.LastError = res.Err.Error()
	default:
		// Disabled skip: the run never happened.
		st.Status = StatusReady
	}
	t.states[res.Source] = st
}

// SetNextRun pre-arms the next scheduled run time shown on the status
// surface, used when the timers start before any run has happened
func (t *StateTracker) SetNextRun(source string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[source]
	if !ok {
		return
	}
	st.NextRun = &at
	t.states[source] = st
}

// SetEnabled updates the enabled flag shown on the status surface
func (t *StateTracker) SetEnabled(source string, enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[source]
	if !ok {
		return
	}
	st.Enabled = enabled
	t.states[source] = st
}

// Get returns the state of one source
func (t *StateTracker) Get(source string) (SourceState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.states[source]
	return st, ok
}

// Snapshot returns a copy of all source states keyed by source name
func (t *StateTracker) Snapshot() map[string]SourceState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// Create a copy to avoid race conditions
	snapshot := make(map[string]SourceState, len(t.states))
	maps.Copy(snapshot, t.states)

	return snapshot
}
