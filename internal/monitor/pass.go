package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/albapepper/seatwatch/internal/metrics"
	"github.com/albapepper/seatwatch/internal/watch"
)

// PassResult tracks the outcome of one full pass.
type PassResult struct {
	Pending       int           `json:"pending"`
	Groups        int           `json:"groups"`
	ProviderCalls int           `json:"provider_calls"`
	Checked       int           `json:"checked"`
	Completed     int           `json:"completed"`
	Expired       int           `json:"expired"`
	Failed        int           `json:"failed"`
	Skipped       int           `json:"skipped"`
	GroupErrors   int           `json:"group_errors"`
	Duration      time.Duration `json:"duration_ns"`
	Errors        []string      `json:"errors,omitempty"`
}

// Summary returns a human-readable summary.
func (r *PassResult) Summary() string {
	return fmt.Sprintf(
		"pending=%d groups=%d calls=%d checked=%d completed=%d expired=%d failed=%d skipped=%d group_errors=%d dur=%s",
		r.Pending, r.Groups, r.ProviderCalls, r.Checked, r.Completed, r.Expired,
		r.Failed, r.Skipped, r.GroupErrors, r.Duration.Round(time.Millisecond))
}

func (r *PassResult) count(t Transition) {
	switch t {
	case TransitionChecked:
		r.Checked++
	case TransitionCompleted:
		r.Completed++
	case TransitionExpired:
		r.Expired++
	case TransitionFailed:
		r.Failed++
	default:
		r.Skipped++
	}
}

// Runner executes passes. Groups are processed one after another so at most
// one provider call is in flight.
type Runner struct {
	store     watch.Store
	probe     *Probe
	lifecycle *Lifecycle
	logger    *slog.Logger
}

// NewRunner wires a Runner.
func NewRunner(store watch.Store, probe *Probe, lifecycle *Lifecycle, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{store: store, probe: probe, lifecycle: lifecycle, logger: logger}
}

// RunPass fetches every pending watch, groups them and processes each group.
// The returned error is set only when the pending set could not be read;
// per-group failures are counted in the result.
func (r *Runner) RunPass(ctx context.Context) (*PassResult, error) {
	start := time.Now()
	res := &PassResult{}
	defer func() {
		res.Duration = time.Since(start)
		metrics.PassesTotal.Inc()
		metrics.PassDuration.Observe(res.Duration.Seconds())
	}()

	pending, err := r.store.FetchActivePending(ctx)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res, fmt.Errorf("fetch pending watches: %w", err)
	}
	res.Pending = len(pending)
	if len(pending) == 0 {
		r.logger.Info("No pending watches")
		return res, nil
	}

	groups := GroupPending(pending)
	res.Groups = len(groups)
	r.logger.Info("Pass started", "pending", len(pending), "groups", len(groups))

	for i := range groups {
		if err := r.processGroup(ctx, &groups[i], res); err != nil {
			res.GroupErrors++
			res.Errors = append(res.Errors, fmt.Sprintf("group %s: %s", groups[i].Key, err))
			metrics.GroupErrorsTotal.Inc()
			r.logger.Error("Group processing failed",
				"group", groups[i].Key.String(), "error", err)
		}
	}

	r.logger.Info("Pass complete", "summary", res.Summary())
	return res, nil
}

// processGroup probes once and applies the outcome to every member. A panic
// is turned into an error so the pass moves on to the next group.
func (r *Runner) processGroup(ctx context.Context, g *Group, res *PassResult) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
			r.logger.Error("Recovered panic in group", "group", g.Key.String(), "stack", string(debug.Stack()))
		}
	}()

	var out Outcome
	if r.lifecycle.Expired(g.Representative()) {
		// every member shares the date, so there is nothing to search for
		out = Outcome{Kind: OutcomeNoResult}
	} else {
		out = r.probe.Check(ctx, g)
		res.ProviderCalls++
	}

	var firstErr error
	for i := range g.Members {
		t, err := r.lifecycle.Apply(ctx, g.Members[i].ID, out)
		if err != nil {
			r.logger.Warn("Apply failed", "watch_id", g.Members[i].ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		res.count(t)
	}
	return firstErr
}
