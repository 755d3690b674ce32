// File: internal/runner/runner_test.go
package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/replay-cli/api/schemas"
	"github.com/xkilldash9x/replay-cli/internal/config"
	"github.com/xkilldash9x/replay-cli/internal/domview"
	"github.com/xkilldash9x/replay-cli/internal/executor"
	"github.com/xkilldash9x/replay-cli/internal/locator"
	"github.com/xkilldash9x/replay-cli/internal/waiter"
)

const runnerTestPage = `<html><body>
	<form id="login">
		<input id="user" name="username" />
		<input id="pass" name="password" />
		<button id="go">Sign In</button>
	</form>
</body></html>`

// captureSink records exports handed to it.
type captureSink struct {
	mu      sync.Mutex
	exports []*schemas.RunExport
}

func (s *captureSink) Write(_ context.Context, export *schemas.RunExport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exports = append(s.exports, export)
	return nil
}

func (s *captureSink) last() *schemas.RunExport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.exports) == 0 {
		return nil
	}
	return s.exports[len(s.exports)-1]
}

func newTestRunner(t *testing.T, engineCfg config.EngineConfig) (*Runner, *domview.Transport) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	view := domview.MustParse(runnerTestPage)
	transport := domview.NewTransport(view)

	locCfg := config.LocatorConfig{
		FindTimeout:   100 * time.Millisecond,
		RetryInterval: 20 * time.Millisecond,
	}
	exec := executor.New(
		logger,
		locator.NewResolver(logger, locCfg),
		waiter.New(logger, config.WaitConfig{Timeout: 200 * time.Millisecond, PollInterval: 20 * time.Millisecond}),
		view,
		transport,
		locCfg,
	)
	return New(logger, exec, engineCfg), transport
}

func loginSteps() []schemas.Step {
	return []schemas.Step{
		{Event: schemas.EventInput, Label: "Username", Bundle: schemas.LocatorBundle{ID: "user"}, Value: "admin"},
		{Event: schemas.EventClick, Bundle: schemas.LocatorBundle{ID: "go"}},
	}
}

func TestRun_AllStepsAcrossAllRows(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, transport := newTestRunner(t, config.EngineConfig{})
	sink := &captureSink{}
	r.SetResultSink(sink)

	var rowEvents []schemas.RowResult
	r.OnRowComplete(func(row schemas.RowResult) { rowEvents = append(rowEvents, row) })

	rows := []schemas.Row{
		{"Username": "alice"},
		{"Username": "bob"},
	}
	export, err := r.Run(context.Background(), loginSteps(), rows, nil)
	require.NoError(t, err)

	assert.Equal(t, schemas.RunCompleted, export.Status)
	assert.Equal(t, 4, export.Passed)
	assert.Zero(t, export.Failed)
	assert.Zero(t, export.Skipped)
	require.Len(t, export.Steps, 4)
	require.Len(t, export.Rows, 2)
	for i, row := range export.Rows {
		assert.Equal(t, i, row.RowIndex)
		assert.Equal(t, schemas.StepPassed, row.Status)
		assert.Equal(t, 2, row.Passed)
	}
	assert.NotEmpty(t, export.RunID)
	assert.False(t, export.StartedAt.IsZero())
	assert.False(t, export.EndedAt.IsZero())

	// CSV values route by label into the typed inputs.
	dispatches := transport.Log()
	values := []string{}
	for _, d := range dispatches {
		if d.Action.Kind == schemas.EventInput {
			values = append(values, d.Action.Value)
		}
	}
	assert.Equal(t, []string{"alice", "bob"}, values)

	// The sink received the same export the caller did.
	require.NotNil(t, sink.last())
	assert.Equal(t, export.RunID, sink.last().RunID)
	assert.Len(t, rowEvents, 2)

	assert.Equal(t, schemas.RunCompleted, r.Status())
	assert.True(t, r.Status().Terminal())
}

func TestRun_NoRowsReplaysOnce(t *testing.T) {
	r, _ := newTestRunner(t, config.EngineConfig{})

	export, err := r.Run(context.Background(), loginSteps(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, schemas.RunCompleted, export.Status)
	assert.Equal(t, 2, export.Passed)
	require.Len(t, export.Rows, 1)
	// No CSV data: the recorded value is typed.
	assert.Equal(t, schemas.ValueRecorded, export.Steps[0].Source)
}

func TestRun_NoStepsFailsImmediately(t *testing.T) {
	r, _ := newTestRunner(t, config.EngineConfig{})
	sink := &captureSink{}
	r.SetResultSink(sink)

	export, err := r.Run(context.Background(), nil, nil, nil)
	require.ErrorIs(t, err, ErrNoSteps)
	require.NotNil(t, export)
	assert.Equal(t, schemas.RunFailed, export.Status)
	assert.Empty(t, export.Steps)
	require.NotNil(t, sink.last(), "failed runs still deliver an export")
	assert.NotEmpty(t, export.Logs)
}

func TestRun_StopOnErrorHaltsAfterFirstFailure(t *testing.T) {
	r, _ := newTestRunner(t, config.EngineConfig{StopOnError: true})

	steps := []schemas.Step{
		{Event: schemas.EventClick, Bundle: schemas.LocatorBundle{ID: "ghost"}},
		{Event: schemas.EventClick, Bundle: schemas.LocatorBundle{ID: "go"}},
	}
	rows := []schemas.Row{{}, {}}
	export, err := r.Run(context.Background(), steps, rows, nil)
	require.NoError(t, err)

	assert.Equal(t, schemas.RunStopped, export.Status)
	require.Len(t, export.Steps, 1, "nothing runs past the failing step")
	assert.Equal(t, schemas.StepFailed, export.Steps[0].Status)
	assert.Equal(t, 1, export.Failed)
	assert.Zero(t, export.Passed)
	assert.NotEmpty(t, export.Logs)
}

func TestRun_SkipOnNotFoundKeepsGoing(t *testing.T) {
	r, _ := newTestRunner(t, config.EngineConfig{SkipOnNotFound: true, StopOnError: true})

	steps := []schemas.Step{
		{Event: schemas.EventClick, Bundle: schemas.LocatorBundle{ID: "ghost"}},
		{Event: schemas.EventClick, Bundle: schemas.LocatorBundle{ID: "go"}},
	}
	export, err := r.Run(context.Background(), steps, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, schemas.RunCompleted, export.Status)
	assert.Equal(t, 1, export.Skipped)
	assert.Equal(t, 1, export.Passed)
	assert.Zero(t, export.Failed, "skips never count as failures")
	require.Len(t, export.Rows, 1)
	assert.Equal(t, schemas.StepPassed, export.Rows[0].Status)
}

func TestRun_RowWithOnlySkipsSummarizesSkipped(t *testing.T) {
	r, _ := newTestRunner(t, config.EngineConfig{SkipOnNotFound: true})

	steps := []schemas.Step{
		{Event: schemas.EventClick, Bundle: schemas.LocatorBundle{ID: "ghost"}},
	}
	export, err := r.Run(context.Background(), steps, nil, nil)
	require.NoError(t, err)

	require.Len(t, export.Rows, 1)
	assert.Equal(t, schemas.StepSkipped, export.Rows[0].Status)
}

func TestRun_RequiresResetBetweenRuns(t *testing.T) {
	r, _ := newTestRunner(t, config.EngineConfig{})

	_, err := r.Run(context.Background(), loginSteps(), nil, nil)
	require.NoError(t, err)

	// Terminal but not reset.
	_, err = r.Run(context.Background(), loginSteps(), nil, nil)
	assert.ErrorIs(t, err, ErrNotIdle)

	r.Reset()
	assert.Equal(t, schemas.RunIdle, r.Status())

	export, err := r.Run(context.Background(), loginSteps(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, schemas.RunCompleted, export.Status)
	assert.Equal(t, 2, export.Passed)
}

func TestRun_PauseAndResumeNeverDoubleCounts(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, _ := newTestRunner(t, config.EngineConfig{
		BaseDelay:          10 * time.Millisecond,
		PauseCheckInterval: 10 * time.Millisecond,
	})

	rows := make([]schemas.Row, 10)
	for i := range rows {
		rows[i] = schemas.Row{}
	}
	steps := loginSteps()

	type outcome struct {
		export *schemas.RunExport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		export, err := r.Run(context.Background(), steps, rows, nil)
		done <- outcome{export, err}
	}()

	// Let at least one step land, then pause.
	require.Eventually(t, func() bool {
		return r.Progress().CompletedSteps >= 1
	}, 5*time.Second, 5*time.Millisecond)
	r.Pause()

	require.Eventually(t, func() bool {
		return r.Status() == schemas.RunPaused
	}, 5*time.Second, 5*time.Millisecond)

	// Counters hold still while paused.
	frozen := r.Progress().CompletedSteps
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, frozen, r.Progress().CompletedSteps)

	r.Resume()
	out := <-done
	require.NoError(t, out.err)

	assert.Equal(t, schemas.RunCompleted, out.export.Status)
	require.Len(t, out.export.Steps, len(steps)*len(rows))

	// Each (row, step) pair appears exactly once.
	seen := map[[2]int]int{}
	for _, res := range out.export.Steps {
		seen[[2]int{res.RowIndex, res.StepIndex}]++
	}
	for pair, count := range seen {
		assert.Equal(t, 1, count, "pair %v recorded %d times", pair, count)
	}
}

func TestRun_StopHaltsBetweenSteps(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, _ := newTestRunner(t, config.EngineConfig{
		BaseDelay:    20 * time.Millisecond,
		JitterFactor: 0.5,
	})

	rows := make([]schemas.Row, 50)
	for i := range rows {
		rows[i] = schemas.Row{}
	}

	type outcome struct {
		export *schemas.RunExport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		export, err := r.Run(context.Background(), loginSteps(), rows, nil)
		done <- outcome{export, err}
	}()

	require.Eventually(t, func() bool {
		return r.Progress().CompletedSteps >= 1
	}, 5*time.Second, 5*time.Millisecond)
	r.Stop()

	out := <-done
	require.NoError(t, out.err)
	assert.Equal(t, schemas.RunStopped, out.export.Status)
	assert.Less(t, len(out.export.Steps), 100, "stop must cut the run short")
}

func TestRun_CancelledContextStopsTheRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, _ := newTestRunner(t, config.EngineConfig{BaseDelay: 10 * time.Millisecond})

	rows := make([]schemas.Row, 50)
	for i := range rows {
		rows[i] = schemas.Row{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	export, err := r.Run(ctx, loginSteps(), rows, nil)
	require.NoError(t, err)
	assert.Equal(t, schemas.RunStopped, export.Status)
	assert.Less(t, len(export.Steps), 100)
}

func TestProgress_TracksCompletion(t *testing.T) {
	r, _ := newTestRunner(t, config.EngineConfig{})

	p := r.Progress()
	assert.Zero(t, p.Percent)
	assert.Zero(t, p.TotalSteps)

	rows := []schemas.Row{{}, {}}
	export, err := r.Run(context.Background(), loginSteps(), rows, nil)
	require.NoError(t, err)
	require.Equal(t, schemas.RunCompleted, export.Status)

	p = r.Progress()
	assert.Equal(t, 4, p.TotalSteps)
	assert.Equal(t, 4, p.CompletedSteps)
	assert.InDelta(t, 100.0, p.Percent, 0.001)
	assert.Zero(t, p.Remaining)
	assert.Greater(t, p.Elapsed, time.Duration(0))
}

func TestDescribe_SummarizesAnExport(t *testing.T) {
	text := Describe(&schemas.RunExport{
		RunID:    "abc123",
		Status:   schemas.RunCompleted,
		Passed:   3,
		Failed:   1,
		Skipped:  2,
		Duration: 1234 * time.Millisecond,
	})
	assert.Contains(t, text, "abc123")
	assert.Contains(t, text, "3 passed")
	assert.Contains(t, text, "1 failed")
	assert.Contains(t, text, "2 skipped")
}
