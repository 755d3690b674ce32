// File: internal/executor/executor.go
package executor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
	"github.com/xkilldash9x/replay-cli/internal/locator"
	"github.com/xkilldash9x/replay-cli/internal/waiter"
)

// Context carries the per-call execution inputs: which data row is active,
// its values, the field-mapping table, and an optional injected value that
// overrides every other value source.
type Context struct {
	RowIndex      int
	CSVValues     schemas.Row
	FieldMappings schemas.FieldMappings
	InjectedValue *string
	PageURL       string
}

// Options tunes one step execution.
type Options struct {
	// SkipOnNotFound turns a locate timeout into a skipped result instead
	// of a failure.
	SkipOnNotFound bool
	// FindTimeout and RetryInterval bound the locate phase; zero values use
	// the executor's configured defaults.
	FindTimeout   time.Duration
	RetryInterval time.Duration
	// Condition, when set, is waited for after the element resolves and
	// before the action fires.
	Condition *schemas.WaitCondition
}

// Executor drives one step through its lifecycle:
// validate -> locate -> (wait) -> act -> verify.
//
// Errors never escape Execute; every outcome is a StepResult whose status
// and error message encode what happened. Callers inspect results, they do
// not catch.
type Executor struct {
	logger    *zap.Logger
	resolver  *locator.Resolver
	evaluator *waiter.Evaluator
	view      schemas.DocumentView
	transport schemas.Transport
	cfg       config.LocatorConfig
}

// New creates a step executor. The transport may be nil, in which case every
// non-open step fails with a transport-unavailable error.
func New(
	logger *zap.Logger,
	resolver *locator.Resolver,
	evaluator *waiter.Evaluator,
	view schemas.DocumentView,
	transport schemas.Transport,
	cfg config.LocatorConfig,
) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FindTimeout <= 0 {
		cfg.FindTimeout = 2 * time.Second
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 120 * time.Millisecond
	}
	return &Executor{
		logger:    logger.Named("executor"),
		resolver:  resolver,
		evaluator: evaluator,
		view:      view,
		transport: transport,
		cfg:       cfg,
	}
}

// Execute runs one step and returns its structured outcome.
func (e *Executor) Execute(ctx context.Context, stepIndex int, step schemas.Step, ec Context, opts Options) schemas.StepResult {
	started := time.Now()
	res := schemas.StepResult{
		StepIndex: stepIndex,
		RowIndex:  ec.RowIndex,
		Label:     step.Label,
		At:        started,
	}

	finish := func(status schemas.StepStatus, err error) schemas.StepResult {
		res.Status = status
		if err != nil {
			res.Error = err.Error()
		}
		res.Duration = time.Since(started)
		return res
	}

	// -- validate --
	phase := time.Now()
	if err := validate(step); err != nil {
		res.Phases.Validate = time.Since(phase)
		return finish(schemas.StepFailed, err)
	}
	res.Phases.Validate = time.Since(phase)

	// Open steps auto-pass: navigation is owned by the page-load
	// collaborator, not verified here, and there is no element to locate.
	if step.Event == schemas.EventOpen {
		return finish(schemas.StepPassed, nil)
	}

	// -- locate --
	phase = time.Now()
	match, locErr := e.locate(ctx, step, opts)
	res.Phases.Locate = time.Since(phase)
	if locErr != nil {
		if opts.SkipOnNotFound {
			// Skip takes precedence over failure: a skipped locate is not
			// counted against the failure tally anywhere downstream.
			e.logger.Info("element not found, skipping step",
				zap.Int("step", stepIndex), zap.Int("row", ec.RowIndex))
			return finish(schemas.StepSkipped, locErr)
		}
		return finish(schemas.StepFailed, locErr)
	}
	res.Strategy = match.Strategy

	// -- wait --
	if opts.Condition != nil {
		phase = time.Now()
		_, err := e.evaluator.WaitFor(ctx, e.view, match.Ref, *opts.Condition, waiter.DefaultOptions())
		res.Phases.Wait = time.Since(phase)
		if err != nil {
			return finish(schemas.StepFailed, err)
		}
	}

	// -- act --
	phase = time.Now()
	source, actErr := e.act(ctx, step, match.Ref, ec)
	res.Phases.Act = time.Since(phase)
	res.Source = source
	if actErr != nil {
		return finish(schemas.StepFailed, actErr)
	}

	// -- verify --
	phase = time.Now()
	e.verify(ctx, step, match.Ref, source)
	res.Phases.Verify = time.Since(phase)

	return finish(schemas.StepPassed, nil)
}

// validate fails fast on steps that can never be replayed.
func validate(step schemas.Step) error {
	if !step.Event.Valid() {
		return &ValidationError{Reason: "missing or unrecognized event type"}
	}
	if step.Event != schemas.EventOpen && step.Bundle.Empty() && step.Path == "" {
		return &ValidationError{Reason: "neither locator bundle nor structural path present"}
	}
	return nil
}

// locate re-polls the resolver until the element appears or the find budget
// runs out. Cancellation is observed between attempts.
func (e *Executor) locate(ctx context.Context, step schemas.Step, opts Options) (*locator.Match, error) {
	findTimeout := opts.FindTimeout
	if findTimeout <= 0 {
		findTimeout = e.cfg.FindTimeout
	}
	retryInterval := opts.RetryInterval
	if retryInterval <= 0 {
		retryInterval = e.cfg.RetryInterval
	}

	deadline := time.Now().Add(findTimeout)
	attempts := 0
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, &waiter.AbortError{Cause: ctx.Err()}
		case <-timer.C:
		}

		attempts++
		if match, ok := e.resolver.Resolve(ctx, step.Bundle, step.Path, e.view); ok {
			return match, nil
		}
		if time.Now().After(deadline) {
			return nil, &LocateTimeoutError{Timeout: findTimeout, Attempts: attempts}
		}
		timer.Reset(retryInterval)
	}
}

// act dispatches the concrete action through the transport, guarding
// visibility around it.
func (e *Executor) act(ctx context.Context, step schemas.Step, ref *schemas.NodeRef, ec Context) (schemas.ValueSource, error) {
	if e.transport == nil {
		return "", &TransportUnavailableError{}
	}

	snap, err := e.view.Snapshot(ctx, ref)
	if err != nil {
		e.logger.Debug("pre-action snapshot failed", zap.Error(err))
	}

	// Some interaction frameworks drop events on elements that are not
	// currently painted; force visibility for the duration of the action
	// and restore afterwards.
	forced := false
	if snap != nil && !snap.Visible {
		if err := e.view.ForceVisible(ctx, ref); err == nil {
			forced = true
		} else {
			e.logger.Debug("could not force element visible", zap.Error(err))
		}
	}
	if forced {
		defer func() {
			if err := e.view.RestoreVisibility(ctx, ref); err != nil {
				e.logger.Debug("could not restore element visibility", zap.Error(err))
			}
		}()
	}

	action := schemas.ActionDescriptor{Kind: step.Event}
	source := schemas.ValueSource("")

	switch step.Event {
	case schemas.EventInput:
		var value string
		value, source = resolveValue(step, ec)
		// The value lands through the native-setter bypass first; the
		// transport dispatch then fires the input/change notifications.
		if err := e.view.SetValue(ctx, ref, value); err != nil {
			return source, &ActionFailedError{Detail: err.Error()}
		}
		action.Value = value

	case schemas.EventEnter:
		var value string
		value, source = resolveValue(step, ec)
		if value != "" {
			if err := e.view.SetValue(ctx, ref, value); err != nil {
				return source, &ActionFailedError{Detail: err.Error()}
			}
			action.Value = value
		}
		action.SubmitForm = snap != nil && snap.InForm
	}

	result, err := e.transport.Send(ctx, ref, action)
	if err != nil {
		return source, &ActionFailedError{Detail: err.Error()}
	}
	if result != nil && !result.OK {
		return source, &ActionFailedError{Detail: result.Detail}
	}
	return source, nil
}

// verify observes the post-action state so triggered notifications settle
// before the next step. A value mismatch is logged, not failed: frameworks
// legitimately reformat input values.
func (e *Executor) verify(ctx context.Context, step schemas.Step, ref *schemas.NodeRef, source schemas.ValueSource) {
	snap, err := e.view.Snapshot(ctx, ref)
	if err != nil || snap == nil {
		return
	}
	if step.Event == schemas.EventInput && source != "" {
		e.logger.Debug("post-action state",
			zap.String("tag", snap.Tag),
			zap.String("value", snap.Value),
			zap.String("source", string(source)))
	}
}
