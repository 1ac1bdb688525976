package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seclab-kr/blacklist-collector/common/collector"
	"github.com/seclab-kr/blacklist-collector/common/work"
)

type stubCollector struct {
	collector.BaseCollector
}

func newStubCollector(source string, enabled bool) *stubCollector {
	cfg := collector.DefaultConfig(source)
	cfg.Enabled = enabled
	return &stubCollector{BaseCollector: collector.NewBaseCollector(cfg, collector.Deps{})}
}

// stubRunner mirrors the runner contract: disabled sources yield a skip
// result, a configured error means the run never started.
type stubRunner struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
	delay time.Duration
}

func newStubRunner() *stubRunner {
	return &stubRunner{calls: make(map[string]int)}
}

func (r *stubRunner) Run(ctx context.Context, c collector.Collector) (collector.Result, error) {
	cfg := c.Config()
	r.mu.Lock()
	r.calls[cfg.Source]++
	r.mu.Unlock()

	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
		}
	}

	if r.err != nil {
		return collector.Result{Source: cfg.Source}, r.err
	}

	now := time.Now()
	res := collector.Result{
		Source:     cfg.Source,
		RunID:      "run-test",
		StartedAt:  now,
		FinishedAt: now,
	}
	if !cfg.Enabled {
		res.Message = "source disabled"
		return res, nil
	}
	res.Success = true
	res.Collected = 3
	res.Saved = 3
	return res, nil
}

func (r *stubRunner) count(source string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[source]
}

func staticRebuild(collectors ...collector.Collector) RebuildFunc {
	return func() (map[string]collector.Collector, error) {
		out := make(map[string]collector.Collector, len(collectors))
		for _, c := range collectors {
			out[c.Source()] = c
		}
		return out, nil
	}
}

func newTestScheduler(t *testing.T, runner CollectionRunner, interval time.Duration, collectors ...collector.Collector) *Scheduler {
	t.Helper()
	s, err := New(runner, collector.NewStateTracker(), nil, nil, interval, staticRebuild(collectors...))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestScheduledRunsTickPerSource(t *testing.T) {
	runner := newStubRunner()
	s := newTestScheduler(t, runner, 25*time.Millisecond,
		newStubCollector("REGTECH", true),
		newStubCollector("SECUDIUM", true),
	)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Running() {
		t.Fatal("scheduler should report running after Start")
	}

	waitFor(t, 2*time.Second, func() bool {
		return runner.count("REGTECH") >= 2 && runner.count("SECUDIUM") >= 2
	})
	s.Stop()

	status := s.GetStatus()
	for _, source := range []string{"REGTECH", "SECUDIUM"} {
		st, ok := status[source]
		if !ok {
			t.Fatalf("no state for %s", source)
		}
		if st.RunCount < 2 {
			t.Errorf("%s run count = %d, want >= 2", source, st.RunCount)
		}
		if st.Status != collector.StatusReady {
			t.Errorf("%s status = %s, want %s", source, st.Status, collector.StatusReady)
		}
		if st.NextRun == nil {
			t.Errorf("%s next run not set", source)
		}
	}
}

func TestStopHaltsTimers(t *testing.T) {
	runner := newStubRunner()
	s := newTestScheduler(t, runner, 20*time.Millisecond, newStubCollector("REGTECH", true))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return runner.count("REGTECH") >= 1 })

	s.Stop()
	if s.Running() {
		t.Fatal("scheduler should not report running after Stop")
	}
	before := runner.count("REGTECH")
	time.Sleep(80 * time.Millisecond)
	if got := runner.count("REGTECH"); got != before {
		t.Fatalf("runs continued after Stop: %d -> %d", before, got)
	}

	// A second Stop is a no-op.
	s.Stop()
}

func TestForceCollectionRunsOutOfBand(t *testing.T) {
	runner := newStubRunner()
	s := newTestScheduler(t, runner, time.Hour, newStubCollector("REGTECH", true))

	res, err := s.ForceCollection(context.Background(), "REGTECH")
	if err != nil {
		t.Fatalf("ForceCollection: %v", err)
	}
	if !res.Success {
		t.Fatalf("forced run failed: %+v", res)
	}
	if got := runner.count("REGTECH"); got != 1 {
		t.Fatalf("runner calls = %d, want 1", got)
	}

	st := s.GetStatus()["REGTECH"]
	if st.RunCount != 1 {
		t.Errorf("run count = %d, want 1", st.RunCount)
	}
	if st.Status != collector.StatusReady {
		t.Errorf("status = %s, want %s", st.Status, collector.StatusReady)
	}
	if st.NextRun == nil {
		t.Error("next run not set after forced run")
	}
}

func TestForceCollectionReArmsTimer(t *testing.T) {
	runner := newStubRunner()
	s := newTestScheduler(t, runner, 300*time.Millisecond, newStubCollector("REGTECH", true))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if _, err := s.ForceCollection(context.Background(), "REGTECH"); err != nil {
		t.Fatalf("ForceCollection: %v", err)
	}

	// The original tick would have landed around 300ms. The forced run
	// pushed it back a full interval, so at 400ms only the forced run
	// has happened.
	time.Sleep(250 * time.Millisecond)
	if got := runner.count("REGTECH"); got != 1 {
		t.Fatalf("runner calls = %d, want only the forced run", got)
	}

	// The re-armed timer still fires later.
	waitFor(t, 2*time.Second, func() bool { return runner.count("REGTECH") >= 2 })
	s.Stop()
}

func TestForceCollectionUnknownSource(t *testing.T) {
	s := newTestScheduler(t, newStubRunner(), time.Hour, newStubCollector("REGTECH", true))

	_, err := s.ForceCollection(context.Background(), "NONEXISTENT")
	if !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("error = %v, want ErrUnknownSource", err)
	}
}

func TestForceCollectionDisabledSource(t *testing.T) {
	runner := newStubRunner()
	s := newTestScheduler(t, runner, time.Hour, newStubCollector("REGTECH", false))

	res, err := s.ForceCollection(context.Background(), "REGTECH")
	if err != nil {
		t.Fatalf("ForceCollection: %v", err)
	}
	if res.Success {
		t.Fatal("disabled source should not produce a successful run")
	}
	if res.Message != "source disabled" {
		t.Errorf("message = %q, want skip message", res.Message)
	}

	st := s.GetStatus()["REGTECH"]
	if st.RunCount != 0 || st.ErrorCount != 0 {
		t.Errorf("skip touched counters: runs=%d errors=%d", st.RunCount, st.ErrorCount)
	}
	if st.Status != collector.StatusReady {
		t.Errorf("status = %s, want %s", st.Status, collector.StatusReady)
	}
}

func TestForceCollectionWhileRunInFlight(t *testing.T) {
	runner := newStubRunner()
	runner.err = work.ErrAlreadyRunning
	s := newTestScheduler(t, runner, time.Hour, newStubCollector("REGTECH", true))

	_, err := s.ForceCollection(context.Background(), "REGTECH")
	if !errors.Is(err, work.ErrAlreadyRunning) {
		t.Fatalf("error = %v, want ErrAlreadyRunning", err)
	}

	st := s.GetStatus()["REGTECH"]
	if st.RunCount != 0 || st.ErrorCount != 0 {
		t.Errorf("rejected run touched counters: runs=%d errors=%d", st.RunCount, st.ErrorCount)
	}
}

func TestRestartRebuildsCollectors(t *testing.T) {
	runner := newStubRunner()
	var rebuilds atomic.Int32
	rebuild := func() (map[string]collector.Collector, error) {
		// The source is enabled on the first build and disabled after,
		// standing in for a configuration change.
		enabled := rebuilds.Add(1) == 1
		return map[string]collector.Collector{
			"REGTECH": newStubCollector("REGTECH", enabled),
		}, nil
	}

	s, err := New(runner, collector.NewStateTracker(), nil, nil, time.Hour, rebuild)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Stop)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.ForceCollection(context.Background(), "REGTECH"); err != nil {
		t.Fatalf("ForceCollection: %v", err)
	}

	if err := s.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}

	if got := rebuilds.Load(); got != 2 {
		t.Fatalf("rebuild calls = %d, want 2", got)
	}
	if !s.Running() {
		t.Fatal("scheduler should be running after Restart")
	}

	st := s.GetStatus()["REGTECH"]
	if st.Enabled {
		t.Error("enabled flag not refreshed by restart")
	}
	if st.RunCount != 1 {
		t.Errorf("run count = %d, want counters to survive restart", st.RunCount)
	}
}

func TestRestartReleasesHeldLocks(t *testing.T) {
	ctx := context.Background()
	gate := work.NewRunManager(nil)
	if err := gate.Start(ctx, "REGTECH", "run-wedged"); err != nil {
		t.Fatalf("seeding held lock: %v", err)
	}

	s, err := New(newStubRunner(), collector.NewStateTracker(), nil, gate, time.Hour,
		staticRebuild(newStubCollector("REGTECH", true)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Stop)

	if err := s.Restart(); err != nil {
		t.Fatalf("Restart: %v", err)
	}

	running, err := gate.IsRunning(ctx, "REGTECH")
	if err != nil {
		t.Fatalf("IsRunning: %v", err)
	}
	if running {
		t.Fatal("restart left the run lock held")
	}
}

func TestStartTwiceIsNoOp(t *testing.T) {
	s := newTestScheduler(t, newStubRunner(), time.Hour, newStubCollector("REGTECH", true))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if !s.Running() {
		t.Fatal("scheduler should report running")
	}
}

func TestNewRejectsBadInputs(t *testing.T) {
	tests := []struct {
		name     string
		runner   CollectionRunner
		interval time.Duration
		rebuild  RebuildFunc
	}{
		{"nil runner", nil, time.Minute, staticRebuild()},
		{"nil factory", newStubRunner(), time.Minute, nil},
		{"zero interval", newStubRunner(), 0, staticRebuild()},
		{"factory failure", newStubRunner(), time.Minute, func() (map[string]collector.Collector, error) {
			return nil, errors.New("bad config")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.runner, collector.NewStateTracker(), nil, nil, tt.interval, tt.rebuild); err == nil {
				t.Fatal("want construction error")
			}
		})
	}
}
