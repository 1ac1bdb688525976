package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/seclab-kr/blacklist-collector/common/collector"
	"github.com/seclab-kr/blacklist-collector/common/constants"
	"github.com/seclab-kr/blacklist-collector/common/messaging"
	"github.com/seclab-kr/blacklist-collector/common/work"
)

// ErrUnknownSource is returned when a trigger names a source no collector
// is registered for.
var ErrUnknownSource = errors.New("unknown collection source")

// CollectionRunner executes one collection run for a collector.
// *collector.Runner satisfies it.
type CollectionRunner interface {
	Run(ctx context.Context, c collector.Collector) (collector.Result, error)
}

// RebuildFunc constructs the collector set from current configuration.
// Restart calls it again so credential and enablement changes take effect
// without a process restart.
type RebuildFunc func() (map[string]collector.Collector, error)

// Scheduler drives the collection cycle: one timer loop per source, a
// force-collection path that runs out of band from the timers, and a NATS
// queue-group subscription for remote triggers. All sources share the same
// interval but tick independently, so a slow portal never delays the others.
type Scheduler struct {
	runner   CollectionRunner
	tracker  *collector.StateTracker
	broker   *messaging.NatsBroker
	gate     *work.RunManager
	rebuild  RebuildFunc
	interval time.Duration

	mu         sync.Mutex
	collectors map[string]collector.Collector
	kicks      map[string]chan struct{}
	baseCtx    context.Context
	cancel     context.CancelFunc
	group      *errgroup.Group
	sub        *nats.Subscription
	running    bool
	startedAt  time.Time
}

// New builds a scheduler and instantiates the collectors once through the
// rebuild function. The broker and gate may be nil; remote triggers and the
// restart lock sweep are skipped then.
func New(runner CollectionRunner, tracker *collector.StateTracker, broker *messaging.NatsBroker, gate *work.RunManager, interval time.Duration, rebuild RebuildFunc) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("scheduler needs a runner")
	}
	if tracker == nil {
		tracker = collector.NewStateTracker()
	}
	if rebuild == nil {
		return nil, errors.New("scheduler needs a collector factory")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("scheduler interval must be positive, got %s", interval)
	}

	collectors, err := rebuild()
	if err != nil {
		return nil, fmt.Errorf("building collectors: %w", err)
	}

	s := &Scheduler{
		runner:   runner,
		tracker:  tracker,
		broker:   broker,
		gate:     gate,
		rebuild:  rebuild,
		interval: interval,
	}
	s.adopt(collectors)
	return s, nil
}

// adopt swaps in a collector set and registers every source with the
// tracker. Existing run counters survive; only the enabled flag is
// refreshed. Callers hold s.mu or are still single-threaded.
func (s *Scheduler) adopt(collectors map[string]collector.Collector) {
	s.collectors = collectors
	for source, c := range collectors {
		cfg := c.Config()
		s.tracker.Register(source, cfg.Enabled)
		s.tracker.SetEnabled(source, cfg.Enabled)
	}
}

// Start arms one timer loop per source and subscribes to remote
// force-collection triggers. Calling Start on a running scheduler is a
// no-op. The context bounds the whole scheduling lifetime and is kept for
// restarts.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)

	s.baseCtx = ctx
	s.cancel = cancel
	s.group = group
	s.kicks = make(map[string]chan struct{}, len(s.collectors))
	s.startedAt = time.Now()

	firstRun := time.Now().Add(s.interval)
	for source, c := range s.collectors {
		kick := make(chan struct{}, 1)
		s.kicks[source] = kick
		s.tracker.SetNextRun(source, firstRun)
		group.Go(func() error {
			s.loop(groupCtx, c, kick)
			return nil
		})
	}

	s.ensureStream(groupCtx)
	if err := s.subscribeForce(groupCtx); err != nil {
		log.Warn().Err(err).Msg("Remote force-collection triggers unavailable")
	}

	s.running = true
	log.Info().
		Int("sources", len(s.collectors)).
		Dur("interval", s.interval).
		Msg("Scheduler started")
	return nil
}

// Stop cancels the timer loops and waits for in-flight scheduled runs to
// finish or abandon their work. Safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	group := s.group
	sub := s.sub
	s.cancel = nil
	s.group = nil
	s.sub = nil
	s.mu.Unlock()

	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Msg("Force-collection unsubscribe failed")
		}
	}
	cancel()
	_ = group.Wait()
	log.Info().Msg("Scheduler stopped")
}

// Restart stops the timers, rebuilds the collectors from fresh
// configuration and starts again. Credentials are read per run, so a
// restart picks up rotated portal accounts as well as enablement changes.
// Run counters survive the restart.
func (s *Scheduler) Restart() error {
	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()
	if base == nil {
		base = context.Background()
	}

	s.Stop()

	collectors, err := s.rebuild()
	if err != nil {
		return fmt.Errorf("rebuilding collectors: %w", err)
	}

	s.mu.Lock()
	s.adopt(collectors)
	s.mu.Unlock()

	s.releaseWedgedLocks(base)

	log.Info().Msg("Scheduler restarting with rebuilt collectors")
	return s.Start(base)
}

// releaseWedgedLocks force-clears the single-flight locks after the loops
// have stopped. A crash between lock and release would otherwise block the
// source until the lock TTL expires.
func (s *Scheduler) releaseWedgedLocks(ctx context.Context) {
	if s.gate == nil {
		return
	}
	running, err := s.gate.ListRunning(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Could not list held run locks")
		return
	}
	for source, runID := range running {
		log.Warn().
			Str("source", source).
			Str("run_id", runID).
			Msg("Releasing held run lock on restart")
		s.gate.Release(ctx, source)
	}
}

// ForceCollection runs one source immediately, out of band from its timer,
// and re-arms the timer so the next scheduled run happens a full interval
// after the forced one. Returns ErrUnknownSource for unregistered sources
// and the runner's error when the run could not start.
func (s *Scheduler) ForceCollection(ctx context.Context, source string) (collector.Result, error) {
	s.mu.Lock()
	c, ok := s.collectors[source]
	kick := s.kicks[source]
	s.mu.Unlock()
	if !ok {
		return collector.Result{Source: source}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	log.Info().Str("source", source).Msg("Force collection requested")
	res, err := s.runOnce(ctx, c)
	if err != nil {
		return res, err
	}

	// Re-arm rather than skip: the loop resets its timer on a kick.
	if kick != nil {
		select {
		case kick <- struct{}{}:
		default:
		}
	}
	return res, nil
}

// GetStatus returns a copy of the per-source run state
func (s *Scheduler) GetStatus() map[string]collector.SourceState {
	return s.tracker.Snapshot()
}

// Running reports whether the timer loops are armed
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Uptime returns how long the current timer loops have been armed, zero
// when stopped
func (s *Scheduler) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return 0
	}
	return time.Since(s.startedAt)
}

// Sources returns the registered source names
func (s *Scheduler) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sources := make([]string, 0, len(s.collectors))
	for source := range s.collectors {
		sources = append(sources, source)
	}
	return sources
}

// loop runs one source's cycle until the context ends. A kick drains the
// pending tick and restarts the interval, which is how a forced run pushes
// the next scheduled one back.
func (s *Scheduler) loop(ctx context.Context, c collector.Collector, kick <-chan struct{}) {
	source := c.Source()
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	log.Debug().Str("source", source).Dur("interval", s.interval).Msg("Collection loop armed")
	for {
		select {
		case <-ctx.Done():
			return
		case <-kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.interval)
		case <-timer.C:
			if _, err := s.runOnce(ctx, c); err != nil {
				// Another run holds the source, usually a forced one.
				// Its bookkeeping settles the status.
				log.Debug().Err(err).Str("source", source).Msg("Scheduled run yielded to a run in flight")
			}
			timer.Reset(s.interval)
		}
	}
}

// runOnce drives a single run and folds its outcome into the tracker.
// When the run never started the counters stay untouched.
func (s *Scheduler) runOnce(ctx context.Context, c collector.Collector) (collector.Result, error) {
	cfg := c.Config()
	if cfg.Enabled {
		s.tracker.MarkRunning(cfg.Source)
	}

	res, err := s.runner.Run(ctx, c)
	if err != nil {
		return res, err
	}

	s.tracker.RecordResult(res, time.Now().Add(s.interval))
	return res, nil
}

// ensureStream makes sure the collection event stream exists so run
// completed/failed publishes have somewhere to land
func (s *Scheduler) ensureStream(ctx context.Context) {
	if s.broker == nil {
		return
	}
	subjects := []string{constants.CollectionCompletedTopic, constants.CollectionFailedTopic}
	if _, err := messaging.EnsureStream(ctx, s.broker, constants.CollectionStreamName, subjects); err != nil {
		log.Warn().Err(err).Str("stream", constants.CollectionStreamName).Msg("Collection event stream unavailable")
	}
}

// subscribeForce listens for remote force-collection triggers. The queue
// group makes exactly one instance act per trigger when several replicas
// are running.
func (s *Scheduler) subscribeForce(ctx context.Context) error {
	if s.broker == nil {
		return nil
	}

	subject := constants.CollectionForceTopicPrefix + "*"
	sub, err := s.broker.SubscribeToQueueGroup(subject, constants.CollectionQueueGroup, func(msg *nats.Msg) {
		source := strings.TrimPrefix(msg.Subject, constants.CollectionForceTopicPrefix)

		var trigger messaging.ForceCollectionMessage
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &trigger); err != nil {
				log.Warn().Err(err).Str("subject", msg.Subject).Msg("Undecodable force-collection trigger")
			}
		}
		if trigger.Source != "" {
			source = trigger.Source
		}
		source = strings.ToUpper(source)

		go func() {
			res, err := s.ForceCollection(ctx, source)
			if err != nil {
				log.Warn().Err(err).
					Str("source", source).
					Str("requested_by", trigger.RequestedBy).
					Msg("Remote force collection not started")
				return
			}
			log.Info().
				Str("source", source).
				Str("run_id", res.RunID).
				Str("requested_by", trigger.RequestedBy).
				Bool("success", res.Success).
				Msg("Remote force collection finished")
		}()
	})
	if err != nil {
		return err
	}
	s.sub = sub
	return nil
}
