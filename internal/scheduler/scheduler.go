package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/farhan-ashraf/simpledex-analytics/internal/aggregator"
	"github.com/farhan-ashraf/simpledex-analytics/internal/ledger"
	"github.com/farhan-ashraf/simpledex-analytics/internal/models"
)

// State is the refresh cycle's current phase.
type State int32

const (
	StateIdle State = iota
	StateFetching
	StateAggregating
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateAggregating:
		return "aggregating"
	case StatePublished:
		return "published"
	default:
		return "unknown"
	}
}

// Source is where a refresh cycle pulls its inputs from. *ledger.Reader
// satisfies it.
type Source interface {
	FetchWindow(ctx context.Context) (*ledger.EventWindow, error)
	Reserves(ctx context.Context) (models.Reserves, error)
}

// Sink receives every freshly published snapshot. Sinks run on the refresh
// goroutine; a failing sink is logged and skipped, it never blocks the
// snapshot swap.
type Sink interface {
	Publish(ctx context.Context, snap *Snapshot) error
}

// Snapshot is one immutable refresh result. Readers get the whole struct
// or nothing, there are no partial updates.
type Snapshot struct {
	Metrics   models.PoolMetrics
	Summary   models.PoolSummary
	Reserves  models.Reserves
	Window    *ledger.EventWindow
	FetchedAt time.Time
}

// Config holds scheduler tunables.
type Config struct {
	MetricsInterval time.Duration
	SummaryInterval time.Duration
	// StaleAfter marks how old a snapshot may get before quotes built on it
	// carry a staleness advisory.
	StaleAfter time.Duration
	Logger     *logrus.Logger
}

// Scheduler drives the periodic refresh cycle and owns the published
// snapshot. At most one cycle is in flight at a time; triggers arriving
// while one runs coalesce into a no-op.
type Scheduler struct {
	source     Source
	aggregator aggregator.Aggregator
	sinks      []Sink
	cfg        Config
	logger     *logrus.Logger

	state    atomic.Int32
	snapshot atomic.Pointer[Snapshot]
	summary  atomic.Pointer[models.PoolSummary]
	lastErr  atomic.Pointer[refreshError]

	trigger chan struct{}
	now     func() time.Time
}

type refreshError struct {
	err error
	at  time.Time
}

// New creates a scheduler. Sinks are optional.
func New(source Source, agg aggregator.Aggregator, cfg Config, sinks ...Sink) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Scheduler{
		source:     source,
		aggregator: agg,
		sinks:      sinks,
		cfg:        cfg,
		logger:     cfg.Logger,
		trigger:    make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Run blocks until ctx is cancelled, refreshing metrics on the metrics
// interval, the summary on its own interval, and immediately on Trigger.
// The first metrics cycle runs right away so the API does not serve nil
// for a full interval after startup.
func (s *Scheduler) Run(ctx context.Context) {
	metricsTicker := time.NewTicker(s.cfg.MetricsInterval)
	defer metricsTicker.Stop()
	summaryTicker := time.NewTicker(s.cfg.SummaryInterval)
	defer summaryTicker.Stop()

	s.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-metricsTicker.C:
			s.Refresh(ctx)
		case <-summaryTicker.C:
			s.refreshSummary(ctx)
		case <-s.trigger:
			s.Refresh(ctx)
		}
	}
}

// Trigger requests an on-demand refresh, used after a user's own
// transaction confirms. Returns false when a cycle is already pending or
// in flight and this request was coalesced into it.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Refresh runs one full metrics cycle. Concurrent callers while a cycle is
// in flight return false without doing work. Failure at any phase leaves
// the last published snapshot untouched.
func (s *Scheduler) Refresh(ctx context.Context) bool {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateFetching)) {
		s.logger.Debug("refresh already in flight, coalescing")
		return false
	}
	defer s.state.Store(int32(StateIdle))

	started := s.now()

	window, err := s.source.FetchWindow(ctx)
	if err != nil {
		s.fail("fetch window", err)
		return false
	}
	reserves, err := s.source.Reserves(ctx)
	if err != nil {
		s.fail("fetch reserves", err)
		return false
	}

	s.state.Store(int32(StateAggregating))

	metrics := s.aggregator.Aggregate(window.Swaps, window.Liquidity, reserves)
	snap := &Snapshot{
		Metrics:   metrics,
		Summary:   aggregator.Summarize(metrics),
		Reserves:  reserves,
		Window:    window,
		FetchedAt: s.now(),
	}

	s.state.Store(int32(StatePublished))
	s.snapshot.Store(snap)
	s.summary.Store(&snap.Summary)
	s.lastErr.Store(nil)

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			s.logger.WithError(err).Warn("snapshot sink failed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"swaps":    len(window.Swaps),
		"tvl":      metrics.TVL,
		"duration": s.now().Sub(started),
	}).Debug("published metrics snapshot")
	return true
}

// refreshSummary refreshes the lightweight summary view only: live
// reserves plus the volume figure from the last full cycle. Skipped while
// a full cycle is in flight.
func (s *Scheduler) refreshSummary(ctx context.Context) {
	if State(s.state.Load()) != StateIdle {
		return
	}

	reserves, err := s.source.Reserves(ctx)
	if err != nil {
		s.fail("fetch reserves for summary", err)
		return
	}

	m := s.aggregator.Aggregate(nil, nil, reserves)
	summary := models.PoolSummary{TVL: m.TVL, CurrentPrice: m.CurrentPrice}
	if snap := s.snapshot.Load(); snap != nil {
		summary.Volume24h = snap.Metrics.Volume24h
	}
	s.summary.Store(&summary)
}

// Snapshot returns the last published snapshot, nil before the first
// successful cycle completes.
func (s *Scheduler) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Summary returns the last published summary view, nil before the first
// successful cycle.
func (s *Scheduler) Summary() *models.PoolSummary {
	return s.summary.Load()
}

// State reports the current refresh phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stale reports whether the published snapshot is older than the
// configured staleness horizon. Advisory only: stale data keeps serving.
func (s *Scheduler) Stale() bool {
	snap := s.snapshot.Load()
	if snap == nil {
		return true
	}
	if s.cfg.StaleAfter <= 0 {
		return false
	}
	return s.now().Sub(snap.FetchedAt) > s.cfg.StaleAfter
}

// LastError returns the most recent cycle failure, or nil after a
// successful cycle.
func (s *Scheduler) LastError() error {
	if e := s.lastErr.Load(); e != nil {
		return e.err
	}
	return nil
}

func (s *Scheduler) fail(phase string, err error) {
	s.lastErr.Store(&refreshError{err: err, at: s.now()})
	s.logger.WithError(err).WithField("phase", phase).Warn("refresh cycle failed, keeping last snapshot")
}
