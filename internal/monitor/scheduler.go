package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/albapepper/seatwatch/internal/metrics"
	"github.com/albapepper/seatwatch/internal/watch"
)

// Cadence is the scheduler's polling mode.
type Cadence string

const (
	CadenceIdle   Cadence = "idle"
	CadenceActive Cadence = "active"
)

// PassRunner runs one full pass.
type PassRunner interface {
	RunPass(ctx context.Context) (*PassResult, error)
}

// PendingSource reports the currently pending watches.
type PendingSource interface {
	FetchActivePending(ctx context.Context) ([]watch.Request, error)
}

// SchedulerConfig controls scheduler cadences. Zero values take defaults.
type SchedulerConfig struct {
	IdleInterval   time.Duration // tick interval with nothing pending
	ActiveInterval time.Duration // tick interval while watches are pending
	CadenceCheck   time.Duration // independent cadence re-evaluation
}

// DefaultSchedulerConfig returns production defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		IdleInterval:   24 * time.Hour,
		ActiveInterval: 10 * time.Second,
		CadenceCheck:   time.Minute,
	}
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	Cadence         Cadence     `json:"cadence"`
	IntervalSeconds float64     `json:"interval_seconds"`
	Running         bool        `json:"running"`
	Pending         int         `json:"pending"`
	LastPassAt      *time.Time  `json:"last_pass_at,omitempty"`
	LastPass        *PassResult `json:"last_pass,omitempty"`
	SkippedTicks    int64       `json:"skipped_ticks"`
}

// Scheduler triggers passes on an adaptive timer. Only one pass runs at a
// time; a tick that arrives while a pass is running is dropped.
type Scheduler struct {
	runner  PassRunner
	pending PendingSource
	cfg     SchedulerConfig
	logger  *slog.Logger

	running atomic.Bool
	skipped atomic.Int64

	mu         sync.Mutex
	cadence    Cadence
	interval   time.Duration
	lastCount  int
	lastPass   *PassResult
	lastPassAt time.Time

	reset    chan time.Duration
	stop     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
	inflight sync.WaitGroup
}

// NewScheduler creates an idle scheduler.
func NewScheduler(runner PassRunner, pending PendingSource, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	def := DefaultSchedulerConfig()
	if cfg.IdleInterval <= 0 {
		cfg.IdleInterval = def.IdleInterval
	}
	if cfg.ActiveInterval <= 0 {
		cfg.ActiveInterval = def.ActiveInterval
	}
	if cfg.CadenceCheck <= 0 {
		cfg.CadenceCheck = def.CadenceCheck
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		pending:  pending,
		cfg:      cfg,
		logger:   logger,
		cadence:  CadenceIdle,
		interval: cfg.IdleInterval,
		reset:    make(chan time.Duration, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the timer loop. Blocks until ctx is cancelled or Stop is
// called, then waits for an in-flight pass to finish. Intended to be called
// with `go`.
func (s *Scheduler) Start(ctx context.Context) {
	s.started.Store(true)
	defer close(s.done)

	s.CheckCadence(ctx)

	ticker := time.NewTicker(s.Interval())
	check := time.NewTicker(s.cfg.CadenceCheck)
	defer ticker.Stop()
	defer check.Stop()

	s.logger.Info("Scheduler started",
		"cadence", s.Cadence(), "interval", s.Interval(), "cadence_check", s.cfg.CadenceCheck)

	// passes are not cancelled by shutdown
	passCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			s.inflight.Wait()
			s.logger.Info("Scheduler stopped")
			return
		case <-s.stop:
			s.inflight.Wait()
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.Tick(passCtx)
			}()
		case <-check.C:
			s.CheckCadence(ctx)
		case d := <-s.reset:
			ticker.Reset(d)
			s.logger.Info("Scheduler rescheduled", "cadence", s.Cadence(), "interval", d)
		}
	}
}

// Stop ends the loop and waits for an in-flight pass.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
}

// Tick runs one pass unless one is already running. It reports whether a
// pass ran. The cadence is re-evaluated after the pass.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		metrics.SkippedTicksTotal.Inc()
		s.logger.Info("Previous pass still running, skipping tick")
		return false
	}

	ran := func() bool {
		defer s.running.Store(false)
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("Pass panicked", "panic", p)
			}
		}()

		res, err := s.runner.RunPass(ctx)
		if errors.Is(err, ErrPassLocked) {
			s.skipped.Add(1)
			metrics.SkippedTicksTotal.Inc()
			s.logger.Info("Pass lock held elsewhere, skipping tick")
			return false
		}
		if err != nil {
			s.logger.Error("Pass failed", "error", err)
		}
		s.mu.Lock()
		s.lastPass = res
		s.lastPassAt = time.Now()
		s.mu.Unlock()
		return true
	}()

	s.CheckCadence(ctx)
	return ran
}

// CheckCadence switches to Active when anything is pending and to Idle
// otherwise, resetting the tick timer on change. A failed lookup keeps the
// current cadence.
func (s *Scheduler) CheckCadence(ctx context.Context) Cadence {
	pending, err := s.pending.FetchActivePending(ctx)
	if err != nil {
		s.logger.Warn("Cadence check failed", "error", err)
		return s.Cadence()
	}
	metrics.PendingWatches.Set(float64(len(pending)))

	want, interval := CadenceIdle, s.cfg.IdleInterval
	if len(pending) > 0 {
		want, interval = CadenceActive, s.cfg.ActiveInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCount = len(pending)
	metrics.IntervalSeconds.Set(s.interval.Seconds())
	if want == s.cadence {
		return want
	}

	s.logger.Info("Cadence changed", "from", s.cadence, "to", want, "pending", len(pending))
	s.cadence = want
	s.interval = interval
	metrics.IntervalSeconds.Set(interval.Seconds())

	// keep only the latest interval for the loop
	select {
	case <-s.reset:
	default:
	}
	s.reset <- interval
	return want
}

// Cadence returns the current cadence.
func (s *Scheduler) Cadence() Cadence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cadence
}

// Interval returns the current tick interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Running reports whether a pass is in progress.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Status returns a snapshot for the status endpoint.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Cadence:         s.cadence,
		IntervalSeconds: s.interval.Seconds(),
		Running:         s.running.Load(),
		Pending:         s.lastCount,
		LastPass:        s.lastPass,
		SkippedTicks:    s.skipped.Load(),
	}
	if !s.lastPassAt.IsZero() {
		at := s.lastPassAt
		st.LastPassAt = &at
	}
	return st
}
