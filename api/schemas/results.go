package schemas

import "time"

// -- Result Schemas --

// StepStatus is the terminal status of one step execution.
type StepStatus string

const (
	StepPassed  StepStatus = "passed"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// ValueSource reports where the value used by an input/enter step came from,
// for auditability.
type ValueSource string

const (
	ValueRecorded  ValueSource = "recorded"
	ValueCSVDirect ValueSource = "csv-direct"
	ValueCSVMapped ValueSource = "csv-mapped"
	ValueInjected  ValueSource = "injected"
)

// PhaseTimings breaks a step's duration down by lifecycle phase.
type PhaseTimings struct {
	Validate time.Duration `json:"validate"`
	Locate   time.Duration `json:"locate"`
	Wait     time.Duration `json:"wait"`
	Act      time.Duration `json:"act"`
	Verify   time.Duration `json:"verify"`
}

// StepResult is the immutable outcome of one step execution. Retries produce
// new StepResults; a result is never edited in place.
type StepResult struct {
	StepIndex int        `json:"stepIndex"`
	RowIndex  int        `json:"rowIndex"`
	Label     string     `json:"label,omitempty"`
	Status    StepStatus `json:"status"`
	// Strategy is the locator strategy that matched, empty when location
	// never succeeded.
	Strategy StrategyName `json:"strategy,omitempty"`
	// Source reports value provenance for input/enter steps.
	Source   ValueSource   `json:"source,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Phases   PhaseTimings  `json:"phases"`
	At       time.Time     `json:"at"`
}

// RowResult aggregates all StepResults for one data row. It is created once
// every step in the row has been attempted (or the run halted mid-row).
type RowResult struct {
	RowIndex int           `json:"rowIndex"`
	Status   StepStatus    `json:"status"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
}

// RunStatus is the orchestrator's lifecycle state.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunPreparing RunStatus = "preparing"
	RunRunning   RunStatus = "running"
	RunPaused    RunStatus = "paused"
	RunStopping  RunStatus = "stopping"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunStopped   RunStatus = "stopped"
)

// Terminal reports whether the status is a resting state a run cannot leave
// except through reset.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunStopped:
		return true
	}
	return false
}

// Progress is a read-only view of run advancement.
type Progress struct {
	CompletedSteps int           `json:"completedSteps"`
	TotalSteps     int           `json:"totalSteps"`
	Percent        float64       `json:"percent"`
	Elapsed        time.Duration `json:"elapsed"`
	// Remaining is a simple moving estimate: (elapsed/completed) * rest.
	Remaining time.Duration `json:"remaining"`
}

// RunLogEntry is one structured line of the run log, exported with results.
type RunLogEntry struct {
	At        time.Time     `json:"at"`
	Level     string        `json:"level"`
	Message   string        `json:"message"`
	RowIndex  int           `json:"rowIndex"`
	StepIndex int           `json:"stepIndex"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
}

// RunExport is the structured result handed to the ResultSink when a run
// reaches a terminal state.
type RunExport struct {
	RunID     string        `json:"runId"`
	ProjectID string        `json:"projectId,omitempty"`
	Status    RunStatus     `json:"status"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
	Duration  time.Duration `json:"duration"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Steps     []StepResult  `json:"perStepResults"`
	Rows      []RowResult   `json:"perRowResults"`
	Logs      []RunLogEntry `json:"logs"`
}
