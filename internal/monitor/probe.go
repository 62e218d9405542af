package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/seatwatch/internal/metrics"
	"github.com/albapepper/seatwatch/internal/provider"
	"github.com/albapepper/seatwatch/internal/watch"
)

// OutcomeKind classifies a probe.
type OutcomeKind int

const (
	OutcomeNoResult OutcomeKind = iota
	OutcomeMatches
	OutcomeProviderFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMatches:
		return "matches"
	case OutcomeProviderFailure:
		return "provider_failure"
	default:
		return "no_result"
	}
}

// Outcome is the classified result of one group probe. Trains holds only
// the trains with seats in Cabin, the representative's cabin class.
type Outcome struct {
	Kind   OutcomeKind
	Cabin  watch.CabinClass
	Trains []provider.Train
	Err    error
}

// Probe issues one provider query per group.
type Probe struct {
	provider provider.AvailabilityProvider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewProbe creates a Probe. timeout bounds each provider call; zero means
// 30 seconds.
func NewProbe(p provider.AvailabilityProvider, timeout time.Duration, logger *slog.Logger) *Probe {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{provider: p, timeout: timeout, logger: logger}
}

// Check queries the provider with the representative's preferences and
// classifies the answer. A timeout or error is OutcomeProviderFailure.
func (p *Probe) Check(ctx context.Context, g *Group) Outcome {
	rep := g.Representative()
	q := provider.QueryFor(rep)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	trains, err := p.search(ctx, q)
	metrics.ProviderCallDuration.Observe(time.Since(start).Seconds())

	out := classify(trains, err, rep.CabinClass)
	metrics.ProviderCallsTotal.WithLabelValues(out.Kind.String()).Inc()

	if out.Kind == OutcomeProviderFailure {
		p.logger.Warn("Availability probe failed",
			"group", g.Key.String(), "members", len(g.Members), "error", out.Err)
	} else {
		p.logger.Info("Availability probe",
			"group", g.Key.String(), "members", len(g.Members),
			"returned", len(trains), "outcome", out.Kind.String())
	}
	return out
}

// search converts a provider panic into an error so it is classified like
// any other provider failure.
func (p *Probe) search(ctx context.Context, q provider.Query) (trains []provider.Train, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return p.provider.Search(ctx, q)
}

func classify(trains []provider.Train, err error, cabin watch.CabinClass) Outcome {
	if err != nil {
		return Outcome{Kind: OutcomeProviderFailure, Cabin: cabin, Err: err}
	}
	var open []provider.Train
	for _, t := range trains {
		if t.Available(cabin) > 0 {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return Outcome{Kind: OutcomeNoResult, Cabin: cabin}
	}
	return Outcome{Kind: OutcomeMatches, Cabin: cabin, Trains: open}
}
