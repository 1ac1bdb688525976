package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/seclab-kr/blacklist-collector/common/collector"
	"github.com/seclab-kr/blacklist-collector/common/models"
	"github.com/seclab-kr/blacklist-collector/scheduler"
)

var errFakeDown = errors.New("database unavailable")

type fakeBlacklist struct {
	activeIPs []string
	activeErr error
	entries   []models.BlacklistEntry
	total     int64
	counts    map[string]int64
	countsErr error

	lastSource     string
	lastActiveOnly bool
	lastLimit      int
	lastOffset     int
}

func (f *fakeBlacklist) Upsert(ctx context.Context, record models.CandidateRecord) error {
	return nil
}

func (f *fakeBlacklist) UpsertBatch(ctx context.Context, records []models.CandidateRecord, chunkSize int) (int, int, error) {
	return len(records), 0, nil
}

func (f *fakeBlacklist) DeactivateStale(ctx context.Context, source string, seenSince time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeBlacklist) ActiveIPs(ctx context.Context) ([]string, error) {
	return f.activeIPs, f.activeErr
}

func (f *fakeBlacklist) List(ctx context.Context, source string, activeOnly bool, limit, offset int) ([]models.BlacklistEntry, error) {
	f.lastSource = source
	f.lastActiveOnly = activeOnly
	f.lastLimit = limit
	f.lastOffset = offset
	return f.entries, nil
}

func (f *fakeBlacklist) Count(ctx context.Context, source string, activeOnly bool) (int64, error) {
	return f.total, nil
}

func (f *fakeBlacklist) ActiveCountBySource(ctx context.Context) (map[string]int64, error) {
	return f.counts, f.countsErr
}

type fakeWhitelist struct {
	entries   []models.WhitelistEntry
	total     int64
	removed   bool
	createErr error

	lastIP     string
	lastReason string
	lastSource string
}

func (f *fakeWhitelist) Create(ctx context.Context, ipAddress, reason, source string) (models.WhitelistEntry, error) {
	f.lastIP = ipAddress
	f.lastReason = reason
	f.lastSource = source
	if f.createErr != nil {
		return models.WhitelistEntry{}, f.createErr
	}
	return models.WhitelistEntry{ID: 1, IPAddress: ipAddress, Source: source, IsActive: true}, nil
}

func (f *fakeWhitelist) List(ctx context.Context, limit, offset int) ([]models.WhitelistEntry, error) {
	return f.entries, nil
}

func (f *fakeWhitelist) Count(ctx context.Context) (int64, error) {
	return f.total, nil
}

func (f *fakeWhitelist) Deactivate(ctx context.Context, ipAddress string) (bool, error) {
	f.lastIP = ipAddress
	return f.removed, nil
}

type fakeRuns struct {
	latest   map[string]models.CollectionRun
	bySource []models.CollectionRun

	lastSource string
	lastLimit  int
}

func (f *fakeRuns) Record(ctx context.Context, run models.CollectionRun) error {
	return nil
}

func (f *fakeRuns) Latest(ctx context.Context, source string) (models.CollectionRun, error) {
	return models.CollectionRun{}, nil
}

func (f *fakeRuns) LatestPerSource(ctx context.Context) (map[string]models.CollectionRun, error) {
	return f.latest, nil
}

func (f *fakeRuns) ListBySource(ctx context.Context, source string, limit int) ([]models.CollectionRun, error) {
	f.lastSource = source
	f.lastLimit = limit
	return f.bySource, nil
}

type fakeLogReader struct {
	logs []models.CollectionLogResponse

	lastSource string
	lastLimit  int
	lastOffset int
}

func (f *fakeLogReader) GetRecent(ctx context.Context, source string, limit, offset int) ([]models.CollectionLogResponse, error) {
	f.lastSource = source
	f.lastLimit = limit
	f.lastOffset = offset
	return f.logs, nil
}

type stubSource struct {
	collector.BaseCollector
}

func newStubSource(source string, enabled bool) *stubSource {
	cfg := collector.DefaultConfig(source)
	cfg.Enabled = enabled
	return &stubSource{BaseCollector: collector.NewBaseCollector(cfg, collector.Deps{})}
}

// stubCollectionRunner answers like the real runner without any portal or
// database behind it
type stubCollectionRunner struct {
	err error
}

func (r *stubCollectionRunner) Run(ctx context.Context, c collector.Collector) (collector.Result, error) {
	cfg := c.Config()
	now := time.Now()
	res := collector.Result{
		Source:     cfg.Source,
		RunID:      "run-http",
		StartedAt:  now,
		FinishedAt: now,
	}
	if r.err != nil {
		return res, r.err
	}
	if !cfg.Enabled {
		res.Message = "source disabled"
		return res, nil
	}
	res.Success = true
	res.Collected = 5
	res.Saved = 4
	res.Dropped = 1
	return res, nil
}

func newSchedulerForTest(t *testing.T, runner scheduler.CollectionRunner, enabled map[string]bool) *scheduler.Scheduler {
	t.Helper()
	rebuild := func() (map[string]collector.Collector, error) {
		out := make(map[string]collector.Collector, len(enabled))
		for source, on := range enabled {
			out[source] = newStubSource(source, on)
		}
		return out, nil
	}

	s, err := scheduler.New(runner, collector.NewStateTracker(), nil, nil, time.Hour, rebuild)
	if err != nil {
		t.Fatalf("scheduler.New: %v", err)
	}
	t.Cleanup(s.Stop)
	return s
}
