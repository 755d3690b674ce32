// File: internal/runner/state.go
package runner

import (
	"sync/atomic"
	"time"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

// runState holds the orchestrator-owned mutable record of a run. The result
// slices are written only from the orchestration loop (single writer); the
// fields external callers may read concurrently (status, indices, counters,
// timestamps) are atomics so Pause/Stop/Progress can be driven from another
// goroutine without locks.
type runState struct {
	status atomic.Value // schemas.RunStatus

	runID     atomic.Value // string
	startedAt atomic.Int64 // unix nanos, 0 = not started
	endedAt   atomic.Int64

	currentRow  atomic.Int64
	currentStep atomic.Int64

	totalUnits     atomic.Int64
	completedUnits atomic.Int64
	passed         atomic.Int64
	failed         atomic.Int64
	skipped        atomic.Int64

	// Loop-owned; only published after the loop has finished.
	results []schemas.StepResult
	rows    []schemas.RowResult
	logs    []schemas.RunLogEntry
}

func newRunState() *runState {
	s := &runState{}
	s.status.Store(schemas.RunIdle)
	return s
}

// reset clears the record back to a fresh idle state. Only called once the
// run loop has exited, so the slice writes cannot race with it.
func (s *runState) reset() {
	s.status.Store(schemas.RunIdle)
	s.runID.Store("")
	s.startedAt.Store(0)
	s.endedAt.Store(0)
	s.currentRow.Store(0)
	s.currentStep.Store(0)
	s.totalUnits.Store(0)
	s.completedUnits.Store(0)
	s.passed.Store(0)
	s.failed.Store(0)
	s.skipped.Store(0)
	s.results = nil
	s.rows = nil
	s.logs = nil
}

func (s *runState) Status() schemas.RunStatus {
	return s.status.Load().(schemas.RunStatus)
}

func (s *runState) setStatus(st schemas.RunStatus) {
	s.status.Store(st)
}

func (s *runState) RunID() string {
	if v := s.runID.Load(); v != nil {
		return v.(string)
	}
	return ""
}

func (s *runState) start(runID string, totalUnits int) {
	s.runID.Store(runID)
	s.startedAt.Store(time.Now().UnixNano())
	s.totalUnits.Store(int64(totalUnits))
}

func (s *runState) finish() {
	s.endedAt.Store(time.Now().UnixNano())
}

func (s *runState) startTime() time.Time {
	if ns := s.startedAt.Load(); ns != 0 {
		return time.Unix(0, ns)
	}
	return time.Time{}
}

func (s *runState) endTime() time.Time {
	if ns := s.endedAt.Load(); ns != 0 {
		return time.Unix(0, ns)
	}
	return time.Time{}
}

// StateView is the read-only view of run state handed to callers.
type StateView struct {
	RunID       string
	Status      schemas.RunStatus
	CurrentRow  int
	CurrentStep int
	Passed      int
	Failed      int
	Skipped     int
	StartedAt   time.Time
	EndedAt     time.Time
	TotalUnits  int
}

func (s *runState) view() StateView {
	return StateView{
		RunID:       s.RunID(),
		Status:      s.Status(),
		CurrentRow:  int(s.currentRow.Load()),
		CurrentStep: int(s.currentStep.Load()),
		Passed:      int(s.passed.Load()),
		Failed:      int(s.failed.Load()),
		Skipped:     int(s.skipped.Load()),
		StartedAt:   s.startTime(),
		EndedAt:     s.endTime(),
		TotalUnits:  int(s.totalUnits.Load()),
	}
}

// progress computes percent done and a naive remaining estimate:
// remaining = (elapsed / completed) * rest. No smoothing.
func (s *runState) progress() schemas.Progress {
	completed := s.completedUnits.Load()
	total := s.totalUnits.Load()

	p := schemas.Progress{
		CompletedSteps: int(completed),
		TotalSteps:     int(total),
	}
	start := s.startTime()
	if start.IsZero() {
		return p
	}
	if end := s.endTime(); !end.IsZero() {
		p.Elapsed = end.Sub(start)
	} else {
		p.Elapsed = time.Since(start)
	}
	if total > 0 {
		p.Percent = float64(completed) / float64(total) * 100
	}
	if completed > 0 && completed < total {
		perUnit := p.Elapsed / time.Duration(completed)
		p.Remaining = perUnit * time.Duration(total-completed)
	}
	return p
}
