package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/pacprobe/internal/probe"
	"github.com/hazz-dev/pacprobe/internal/storage"
)

// Store defines the storage operations required by the scheduler.
type Store interface {
	InsertProbe(ctx context.Context, r probe.Result) error
	LatestProbe(ctx context.Context, endpoint string) (*storage.Probe, error)
}

// Scheduler repeats a single probe on a fixed interval.
type Scheduler struct {
	checker  probe.Checker
	endpoint string
	interval time.Duration
	store    Store
	onResult func(probe.Result, *probe.Outcome)
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates a new Scheduler. Pass nil logger to use the default logger.
func New(checker probe.Checker, endpoint string, interval time.Duration, store Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		checker:  checker,
		endpoint: endpoint,
		interval: interval,
		store:    store,
		logger:   logger,
	}
}

// SetOnResult sets the callback invoked after each probe.
// prev is the outcome stored before this probe, nil if there was none.
func (s *Scheduler) SetOnResult(fn func(probe.Result, *probe.Outcome)) {
	s.onResult = fn
}

// Start spawns the probe loop. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Wait blocks until the probe loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	// Run immediately.
	s.runProbe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runProbe(ctx)
		}
	}
}

func (s *Scheduler) runProbe(ctx context.Context) {
	prev, err := s.store.LatestProbe(ctx, s.endpoint)
	if err != nil {
		s.logger.Warn("fetching previous probe", "endpoint", s.endpoint, "error", err)
	}

	result := s.checker.Run(ctx)

	s.logger.Info("probe result",
		"endpoint", result.Endpoint,
		"outcome", result.Outcome,
		"status_code", result.StatusCode,
		"response_time", result.ResponseTime,
		"error", result.Error,
	)

	if err := s.store.InsertProbe(ctx, result); err != nil {
		s.logger.Error("storing probe result", "endpoint", s.endpoint, "error", err)
	}

	if s.onResult != nil {
		var prevOutcome *probe.Outcome
		if prev != nil {
			o := probe.Outcome(prev.Outcome)
			prevOutcome = &o
		}
		s.onResult(result, prevOutcome)
	}
}
