// File: internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
	"github.com/xkilldash9x/replay-cli/internal/executor"
)

// ErrNoSteps marks a run that could not even start for lack of work.
var ErrNoSteps = errors.New("no steps to replay")

// ErrNotIdle is returned when Run is called on a runner that has not been
// reset since its previous run.
var ErrNotIdle = errors.New("runner is not idle; call Reset first")

// Runner orchestrates a full run: every step across every data row, in
// order, with pause/resume/stop control, progress accounting, and a
// structured export at the end.
//
// All counter and result mutation happens inside the Run loop itself; the
// step executor never touches orchestrator state. Pause, Resume, Stop and
// the read accessors may be called from other goroutines.
type Runner struct {
	logger *zap.Logger
	exec   *executor.Executor
	cfg    config.EngineConfig

	state *runState
	rng   *rand.Rand

	pauseRequested atomic.Bool
	stopRequested  atomic.Bool
	running        atomic.Bool
	cancelRun      atomic.Value // context.CancelFunc

	sink  schemas.ResultSink
	onRow func(schemas.RowResult)
}

// New creates a runner around a configured step executor.
func New(logger *zap.Logger, exec *executor.Executor, cfg config.EngineConfig) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PauseCheckInterval <= 0 {
		cfg.PauseCheckInterval = 100 * time.Millisecond
	}
	return &Runner{
		logger: logger.Named("runner"),
		exec:   exec,
		cfg:    cfg,
		state:  newRunState(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetResultSink installs the collaborator that receives the final export.
func (r *Runner) SetResultSink(sink schemas.ResultSink) { r.sink = sink }

// OnRowComplete installs the per-row callback, invoked from the run loop
// after each row finishes.
func (r *Runner) OnRowComplete(fn func(schemas.RowResult)) { r.onRow = fn }

// Status returns the current lifecycle state.
func (r *Runner) Status() schemas.RunStatus { return r.state.Status() }

// State returns a read-only view of the run record.
func (r *Runner) State() StateView { return r.state.view() }

// Progress returns completion percentage and timing estimates.
func (r *Runner) Progress() schemas.Progress { return r.state.progress() }

// Pause suspends progression between steps. A step already acting runs to
// completion first.
func (r *Runner) Pause() {
	if r.state.Status() == schemas.RunRunning {
		r.pauseRequested.Store(true)
	}
}

// Resume lifts a pause.
func (r *Runner) Resume() {
	r.pauseRequested.Store(false)
}

// Stop requests a halt. It takes effect at the next checkpoint; an in-flight
// wait observes the cancellation and returns immediately.
func (r *Runner) Stop() {
	r.stopRequested.Store(true)
	if cancel, ok := r.cancelRun.Load().(context.CancelFunc); ok && cancel != nil {
		cancel()
	}
}

// Reset returns the runner to idle, discarding all counters, results, and
// logs. A run still in flight is stopped first.
func (r *Runner) Reset() {
	r.Stop()
	for r.running.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	r.pauseRequested.Store(false)
	r.stopRequested.Store(false)
	r.state.reset()
}

// Run executes steps × rows and blocks until the run reaches a terminal
// state. The returned export is always non-nil once a run ID was assigned;
// the error is non-nil only when the run could not start.
func (r *Runner) Run(ctx context.Context, steps []schemas.Step, rows []schemas.Row, mappings schemas.FieldMappings) (*schemas.RunExport, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrNotIdle
	}
	defer r.running.Store(false)

	if r.state.Status() != schemas.RunIdle {
		return nil, ErrNotIdle
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.cancelRun.Store(cancel)

	r.state.setStatus(schemas.RunPreparing)
	runID := uuid.NewString()

	// A data-less run still replays every step once, against a single
	// synthetic empty row.
	effRows := rows
	if len(effRows) == 0 {
		effRows = []schemas.Row{nil}
	}
	totalUnits := len(steps) * len(effRows)
	r.state.start(runID, totalUnits)

	if len(steps) == 0 {
		r.state.setStatus(schemas.RunFailed)
		r.state.finish()
		r.logf("error", -1, -1, "run failed: no steps")
		export := r.buildExport()
		r.deliver(ctx, export)
		return export, ErrNoSteps
	}

	r.logger.Info("run starting",
		zap.String("runID", runID),
		zap.Int("steps", len(steps)),
		zap.Int("rows", len(effRows)))
	r.state.setStatus(schemas.RunRunning)

	halted := false

rowLoop:
	for rowIdx, row := range effRows {
		rowStart := time.Now()
		rowFirstResult := len(r.state.results)
		r.state.currentRow.Store(int64(rowIdx))

		for stepIdx, step := range steps {
			r.state.currentStep.Store(int64(stepIdx))

			if !r.checkpoint(runCtx) {
				halted = true
				break rowLoop
			}
			r.interStepDelay(runCtx)
			if r.haltRequested(runCtx) {
				halted = true
				break rowLoop
			}

			res := r.exec.Execute(runCtx, stepIdx, step, executor.Context{
				RowIndex:      rowIdx,
				CSVValues:     row,
				FieldMappings: mappings,
			}, executor.Options{
				SkipOnNotFound: r.cfg.SkipOnNotFound,
			})

			// A step cut short by a stop request is not an outcome; the
			// run halts without recording it.
			if r.haltRequested(runCtx) {
				halted = true
				break rowLoop
			}

			r.record(res)

			if res.Status == schemas.StepFailed && r.cfg.StopOnError {
				r.logf("error", rowIdx, stepIdx, fmt.Sprintf("halting run on failed step: %s", res.Error))
				halted = true
				break rowLoop
			}
		}

		rowRes := summarizeRow(rowIdx, r.state.results[rowFirstResult:], time.Since(rowStart))
		r.state.rows = append(r.state.rows, rowRes)
		if r.onRow != nil {
			r.onRow(rowRes)
		}
	}

	if halted {
		r.state.setStatus(schemas.RunStopping)
		r.state.setStatus(schemas.RunStopped)
	} else {
		r.state.setStatus(schemas.RunCompleted)
	}
	r.state.finish()

	export := r.buildExport()
	r.deliver(ctx, export)

	r.logger.Info("run finished",
		zap.String("runID", runID),
		zap.String("status", string(export.Status)),
		zap.Int("passed", export.Passed),
		zap.Int("failed", export.Failed),
		zap.Int("skipped", export.Skipped),
		zap.Duration("duration", export.Duration))
	return export, nil
}

// checkpoint honours pause and halt requests before a step begins. It
// returns false when the run must halt.
func (r *Runner) checkpoint(ctx context.Context) bool {
	for r.pauseRequested.Load() {
		if r.haltRequested(ctx) {
			return false
		}
		if r.state.Status() != schemas.RunPaused {
			r.state.setStatus(schemas.RunPaused)
			r.logger.Info("run paused")
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(r.cfg.PauseCheckInterval):
		}
	}
	if r.state.Status() == schemas.RunPaused {
		r.state.setStatus(schemas.RunRunning)
		r.logger.Info("run resumed")
	}
	return !r.haltRequested(ctx)
}

func (r *Runner) haltRequested(ctx context.Context) bool {
	return r.stopRequested.Load() || ctx.Err() != nil
}

// interStepDelay sleeps the human-like randomized pause between steps:
// base + U(0, base*jitter).
func (r *Runner) interStepDelay(ctx context.Context) {
	if r.cfg.BaseDelay <= 0 {
		return
	}
	jitter := time.Duration(r.rng.Float64() * r.cfg.JitterFactor * float64(r.cfg.BaseDelay))
	select {
	case <-ctx.Done():
	case <-time.After(r.cfg.BaseDelay + jitter):
	}
}

// record is the only place step outcomes mutate run state.
func (r *Runner) record(res schemas.StepResult) {
	r.state.results = append(r.state.results, res)
	r.state.completedUnits.Add(1)

	switch res.Status {
	case schemas.StepPassed:
		r.state.passed.Add(1)
	case schemas.StepSkipped:
		r.state.skipped.Add(1)
	case schemas.StepFailed:
		r.state.failed.Add(1)
		r.logf("error", res.RowIndex, res.StepIndex,
			fmt.Sprintf("step failed after %v: %s", res.Duration.Round(time.Millisecond), res.Error))
		r.logger.Warn("step failed",
			zap.Int("row", res.RowIndex),
			zap.Int("step", res.StepIndex),
			zap.Duration("elapsed", res.Duration),
			zap.String("error", res.Error))
	}
}

func (r *Runner) logf(level string, rowIdx, stepIdx int, msg string) {
	r.state.logs = append(r.state.logs, schemas.RunLogEntry{
		At:        time.Now(),
		Level:     level,
		Message:   msg,
		RowIndex:  rowIdx,
		StepIndex: stepIdx,
	})
}

func (r *Runner) buildExport() *schemas.RunExport {
	v := r.state.view()
	export := &schemas.RunExport{
		RunID:     v.RunID,
		ProjectID: r.cfg.ProjectID,
		Status:    v.Status,
		StartedAt: v.StartedAt,
		EndedAt:   v.EndedAt,
		Passed:    v.Passed,
		Failed:    v.Failed,
		Skipped:   v.Skipped,
		Steps:     append([]schemas.StepResult(nil), r.state.results...),
		Rows:      append([]schemas.RowResult(nil), r.state.rows...),
		Logs:      append([]schemas.RunLogEntry(nil), r.state.logs...),
	}
	if !v.StartedAt.IsZero() && !v.EndedAt.IsZero() {
		export.Duration = v.EndedAt.Sub(v.StartedAt)
	}
	return export
}

// deliver hands the export to the sink. The run context may already be
// cancelled (stop requests cancel it), so delivery runs detached from it.
func (r *Runner) deliver(ctx context.Context, export *schemas.RunExport) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Write(context.WithoutCancel(ctx), export); err != nil {
		r.logger.Error("result sink write failed", zap.Error(err))
	}
}

// summarizeRow folds one row's step results into its aggregate.
func summarizeRow(rowIdx int, results []schemas.StepResult, dur time.Duration) schemas.RowResult {
	row := schemas.RowResult{RowIndex: rowIdx, Duration: dur}
	for _, res := range results {
		switch res.Status {
		case schemas.StepPassed:
			row.Passed++
		case schemas.StepFailed:
			row.Failed++
		case schemas.StepSkipped:
			row.Skipped++
		}
	}
	switch {
	case row.Failed > 0:
		row.Status = schemas.StepFailed
	case row.Passed == 0 && row.Skipped > 0:
		row.Status = schemas.StepSkipped
	default:
		row.Status = schemas.StepPassed
	}
	return row
}

// Describe renders a one-line human summary, used by the CLI.
func Describe(export *schemas.RunExport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s %s: %d passed, %d failed, %d skipped in %v",
		export.RunID, export.Status, export.Passed, export.Failed, export.Skipped,
		export.Duration.Round(time.Millisecond))
	return b.String()
}
