// File: internal/waiter/waiter.go
package waiter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
)

// Options tunes one wait call. Zero durations fall back to the evaluator's
// configured defaults.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
	// FailOnTimeout makes timeouts surface as a *WaitTimeoutError. When
	// false a timed-out wait returns WaitResult{Success: false} with a nil
	// error. Cancellation always surfaces as *AbortError regardless.
	FailOnTimeout bool
}

// DefaultOptions returns the standard options: configured budget, error on
// timeout.
func DefaultOptions() Options {
	return Options{FailOnTimeout: true}
}

// Evaluator polls a document view until a condition holds, a timeout
// elapses, or the context is cancelled. It is stateless between calls and
// safe to share across concurrent runs.
type Evaluator struct {
	logger *zap.Logger
	cfg    config.WaitConfig
}

// New creates an evaluator with the given defaults.
func New(logger *zap.Logger, cfg config.WaitConfig) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return &Evaluator{logger: logger.Named("waiter"), cfg: cfg}
}

type combineMode int

const (
	modeAll combineMode = iota
	modeAny
)

// WaitFor polls until the condition holds for the target node.
func (e *Evaluator) WaitFor(ctx context.Context, view schemas.DocumentView, ref *schemas.NodeRef, cond schemas.WaitCondition, opts Options) (*schemas.WaitResult, error) {
	return e.wait(ctx, view, ref, []schemas.WaitCondition{cond}, modeAll, opts)
}

// WaitForAll polls until every condition holds on the same snapshot.
func (e *Evaluator) WaitForAll(ctx context.Context, view schemas.DocumentView, ref *schemas.NodeRef, conds []schemas.WaitCondition, opts Options) (*schemas.WaitResult, error) {
	return e.wait(ctx, view, ref, conds, modeAll, opts)
}

// WaitForAny polls until at least one condition holds; the result's
// Satisfied field reports which one.
func (e *Evaluator) WaitForAny(ctx context.Context, view schemas.DocumentView, ref *schemas.NodeRef, conds []schemas.WaitCondition, opts Options) (*schemas.WaitResult, error) {
	return e.wait(ctx, view, ref, conds, modeAny, opts)
}

func (e *Evaluator) wait(ctx context.Context, view schemas.DocumentView, ref *schemas.NodeRef, conds []schemas.WaitCondition, mode combineMode, opts Options) (*schemas.WaitResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = e.cfg.PollInterval
	}

	compiledConds := make([]*compiled, len(conds))
	for i, c := range conds {
		cc, err := compile(c)
		if err != nil {
			return &schemas.WaitResult{Success: false, Err: err}, err
		}
		compiledConds[i] = cc
		// Stability checks dictate their own sample spacing.
		if d := cc.pollSpacing(); d > interval {
			interval = d
		}
	}

	start := time.Now()
	deadline := start.Add(timeout)
	polls := 0

	// The first poll fires immediately: a condition already true resolves
	// with poll count 1 and no elapsed sleep.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			abort := &AbortError{Cause: ctx.Err()}
			res := &schemas.WaitResult{Success: false, Polls: polls, Elapsed: time.Since(start), Err: abort}
			return res, abort
		case <-timer.C:
		}

		polls++
		snap, err := view.Snapshot(ctx, ref)
		if err != nil {
			// Snapshot errors are transient as far as the loop is
			// concerned; the node may simply not be attached yet.
			e.logger.Debug("snapshot failed during wait", zap.Error(err))
			snap = nil
		}

		now := time.Now()
		ok, satisfied, evalErr := evaluate(compiledConds, mode, snap, now)
		if evalErr != nil {
			res := &schemas.WaitResult{Success: false, Polls: polls, Elapsed: time.Since(start), Err: evalErr}
			return res, evalErr
		}
		if ok {
			return &schemas.WaitResult{
				Success:   true,
				Node:      snap,
				Polls:     polls,
				Elapsed:   time.Since(start),
				Satisfied: satisfied,
			}, nil
		}

		if now.After(deadline) {
			toErr := &WaitTimeoutError{Timeout: timeout, Polls: polls}
			res := &schemas.WaitResult{Success: false, Polls: polls, Elapsed: time.Since(start), Err: toErr}
			if opts.FailOnTimeout {
				return res, toErr
			}
			return res, nil
		}
		timer.Reset(interval)
	}
}

// evaluate applies the combine mode across conditions. For modeAny the
// second return is the index of the first condition that held.
func evaluate(conds []*compiled, mode combineMode, snap *schemas.NodeSnapshot, now time.Time) (bool, int, error) {
	switch mode {
	case modeAny:
		for i, c := range conds {
			ok, err := c.eval(snap, now)
			if err != nil {
				return false, 0, err
			}
			if ok {
				return true, i, nil
			}
		}
		return false, 0, nil
	default:
		for _, c := range conds {
			ok, err := c.eval(snap, now)
			if err != nil || !ok {
				return false, 0, err
			}
		}
		return true, 0, nil
	}
}
