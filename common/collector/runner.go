package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/seclab-kr/blacklist-collector/common/constants"
	"github.com/seclab-kr/blacklist-collector/common/geoip"
	"github.com/seclab-kr/blacklist-collector/common/messaging"
	"github.com/seclab-kr/blacklist-collector/common/models"
	"github.com/seclab-kr/blacklist-collector/common/services"
	"github.com/seclab-kr/blacklist-collector/common/work"
)

const (
	// runWallBudget bounds one full run. The Excel export alone may take up
	// to its own two minute cap, so the budget leaves room for window
	// fallbacks and persistence.
	runWallBudget = time.Minute * 10

	// retryDelay is the base backoff between fetch attempts
	retryDelay = time.Second * 2

	// bookkeepTimeout bounds the post-run writes that must not inherit an
	// already expired run context
	bookkeepTimeout = time.Second * 5
)

// RunLogger records run lifecycle events into the collection log.
// *logger.LogService satisfies it.
type RunLogger interface {
	RunStart(ctx context.Context, source, runID, dateRange string) error
	RunComplete(ctx context.Context, source, runID string, collected, saved, errorCount int) error
	RunFailed(ctx context.Context, source, runID string, err error) error
}

// Runner executes collection runs end to end: single-flight gate, fetch with
// retries, validation, persistence, bookkeeping and events. The scheduler
// loops and the force-collection surface share one Runner.
type Runner struct {
	blacklist  services.BlacklistService
	runs       services.CollectionRunService
	logs       RunLogger
	geo        *geoip.Resolver
	gate       *work.RunManager
	broker     *messaging.NatsBroker
	retryDelay time.Duration
}

// NewRunner creates a runner over the shared services
func NewRunner(blacklist services.BlacklistService, runs services.CollectionRunService, logs RunLogger, geo *geoip.Resolver, gate *work.RunManager, broker *messaging.NatsBroker) *Runner {
	return &Runner{
		blacklist:  blacklist,
		runs:       runs,
		logs:       logs,
		geo:        geo,
		gate:       gate,
		broker:     broker,
		retryDelay: retryDelay,
	}
}

// Run executes one collection run. The returned error is non-nil only when
// the run never started (another run holds the source); every failure inside
// a started run is folded into the Result instead.
func (r *Runner) Run(ctx context.Context, c Collector) (Result, error) {
	cfg := c.Config()
	res := Result{
		Source:    cfg.Source,
		StartedAt: time.Now(),
	}

	if !cfg.Enabled {
		res.FinishedAt = time.Now()
		res.Message = "source disabled"
		log.Info().Str("source", cfg.Source).Msg("Skipping disabled source")
		return res, nil
	}

	runID := uuid.Must(uuid.NewV7()).String()
	res.RunID = runID

	if err := r.gate.Start(ctx, cfg.Source, runID); err != nil {
		return res, err
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), bookkeepTimeout)
		defer cancel()
		if err := r.gate.Complete(cleanupCtx, cfg.Source); err != nil {
			log.Warn().Err(err).Str("source", cfg.Source).Msg("Failed to clear run state")
		}
	}()

	// The sweep cutoff: rows of this source not touched after this instant
	// were absent from the feed and get deactivated.
	runStarted := time.Now()
	res.StartedAt = runStarted

	window := NewDateRange(cfg.DaysInterval)
	if err := r.logs.RunStart(ctx, cfg.Source, runID, window.String()); err != nil {
		log.Debug().Err(err).Str("source", cfg.Source).Msg("Run start event not recorded")
	}

	runCtx, cancel := context.WithTimeout(ctx, runWallBudget)
	defer cancel()
	runCtx = WithRunID(runCtx, runID)

	if err := c.Setup(runCtx); err != nil {
		return r.fail(res, fmt.Errorf("collector setup: %w", err)), nil
	}
	defer func() {
		if err := c.Teardown(context.Background()); err != nil {
			log.Warn().Err(err).Str("source", cfg.Source).Msg("Collector teardown failed")
		}
	}()

	records, err := r.fetchWithRetry(runCtx, c, window)
	if err != nil {
		return r.fail(res, err), nil
	}
	res.Collected = len(records)

	prepared, dropped := PrepareRecords(records, cfg.Source)
	res.Dropped = dropped

	if r.geo.Enabled() {
		if filled := r.geo.FillCountries(prepared); filled > 0 {
			log.Debug().Str("source", cfg.Source).Int("filled", filled).Msg("Filled missing countries from GeoIP")
		}
	}

	saved, failed, err := r.blacklist.UpsertBatch(runCtx, prepared, cfg.BatchSize)
	res.Saved = saved
	res.SaveErrors = failed
	if err != nil {
		return r.fail(res, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)), nil
	}

	if deactivated, err := r.blacklist.DeactivateStale(runCtx, cfg.Source, runStarted); err != nil {
		log.Warn().Err(err).Str("source", cfg.Source).Msg("Stale entry sweep failed")
	} else if deactivated > 0 {
		log.Info().Str("source", cfg.Source).Int64("deactivated", deactivated).Msg("Entries gone from the feed deactivated")
	}

	res.Success = true
	res.FinishedAt = time.Now()
	r.finish(res)
	return res, nil
}

// fetchWithRetry re-runs the collector's fetch up to MaxRetries attempts.
// Authentication failures are terminal for the run: retrying them with the
// same credentials only risks locking the account.
func (r *Runner) fetchWithRetry(ctx context.Context, c Collector, window DateRange) ([]models.CandidateRecord, error) {
	cfg := c.Config()
	attempts := cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		records, err := c.Fetch(ctx, window)
		if err == nil {
			return records, nil
		}
		lastErr = err

		if errors.Is(err, ErrAuthenticationFailed) {
			return nil, err
		}
		if attempt == attempts {
			break
		}

		log.Warn().Err(err).Str("source", cfg.Source).Int("attempt", attempt).Msg("Fetch attempt failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retryDelay * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

// fail folds the error into the result and performs failure bookkeeping
func (r *Runner) fail(res Result, err error) Result {
	res.Err = err
	res.Success = false
	res.FinishedAt = time.Now()

	log.Error().
		Err(err).
		Str("source", res.Source).
		Str("runId", res.RunID).
		Str("category", Category(err)).
		Msg("Collection run failed")

	ctx, cancel := context.WithTimeout(context.Background(), bookkeepTimeout)
	defer cancel()

	if logErr := r.logs.RunFailed(ctx, res.Source, res.RunID, err); logErr != nil {
		log.Debug().Err(logErr).Str("source", res.Source).Msg("Run failure event not recorded")
	}
	r.record(ctx, res)
	r.publishFailed(ctx, res)
	return res
}

// finish performs success bookkeeping
func (r *Runner) finish(res Result) {
	log.Info().
		Str("source", res.Source).
		Str("runId", res.RunID).
		Int("collected", res.Collected).
		Int("saved", res.Saved).
		Int("dropped", res.Dropped).
		Int("saveErrors", res.SaveErrors).
		Dur("took", res.Duration()).
		Msg("Collection run finished")

	ctx, cancel := context.WithTimeout(context.Background(), bookkeepTimeout)
	defer cancel()

	if err := r.logs.RunComplete(ctx, res.Source, res.RunID, res.Collected, res.Saved, res.SaveErrors); err != nil {
		log.Debug().Err(err).Str("source", res.Source).Msg("Run completion event not recorded")
	}
	r.record(ctx, res)
	r.publishCompleted(ctx, res)
}

// record persists the run row. A failure here only logs; the run outcome
// stands.
func (r *Runner) record(ctx context.Context, res Result) {
	run := models.CollectionRun{
		ID:         res.RunID,
		Source:     res.Source,
		StartedAt:  res.StartedAt,
		FinishedAt: pgtype.Timestamptz{Time: res.FinishedAt, Valid: true},
		Success:    res.Success,
		Collected:  res.Collected,
		Saved:      res.Saved,
	}
	if res.Err != nil {
		run.Error = pgtype.Text{String: res.Err.Error(), Valid: true}
	}
	if err := r.runs.Record(ctx, run); err != nil {
		log.Error().Err(err).Str("source", res.Source).Str("runId", res.RunID).Msg("Failed to persist run record")
	}
}

func (r *Runner) publishCompleted(ctx context.Context, res Result) {
	if r.broker == nil {
		return
	}
	event := messaging.CollectionCompletedEvent{
		Source:     res.Source,
		RunID:      res.RunID,
		Collected:  res.Collected,
		Saved:      res.Saved,
		ErrorCount: res.SaveErrors,
		FinishedAt: res.FinishedAt,
	}
	r.publish(ctx, constants.CollectionCompletedTopic, res.Source, event)
}

func (r *Runner) publishFailed(ctx context.Context, res Result) {
	if r.broker == nil {
		return
	}
	event := messaging.CollectionFailedEvent{
		Source:     res.Source,
		RunID:      res.RunID,
		Error:      res.ErrorString(),
		FinishedAt: res.FinishedAt,
	}
	r.publish(ctx, constants.CollectionFailedTopic, res.Source, event)
}

func (r *Runner) publish(ctx context.Context, topic, source string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return
	}
	if err := r.broker.PublishSync(ctx, topic, payload); err != nil {
		log.Warn().Err(err).Str("topic", topic).Str("source", source).Msg("Failed to publish collection event")
	}
}
