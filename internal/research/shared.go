// Package research holds the research workflow, its two activities, and the
// report renderer. Temporal owns durability and retries; functions here only
// describe what one research task does.
package research

import "time"

// TaskQueue is the single logical channel connecting workflow executions to
// worker processes.
const TaskQueue = "khoji-research"

// ProgressQuery names the query that exposes the live progress record.
const ProgressQuery = "research-progress"

// ApplicationError types surfaced to the orchestrator. ConfigurationError is
// the one class retries never help with.
const (
	SimulatedFailureType   = "SimulatedFailure"
	ConfigurationErrorType = "ConfigurationError"
	WorkflowErrorType      = "ResearchWorkflowError"
)

// Demo orchestration tuning: per-attempt and whole-step budgets, plus the
// retry curve applied to every activity.
const (
	StepStartToCloseTimeout    = 5 * time.Minute
	StepScheduleToCloseTimeout = 10 * time.Minute
	StepPause                  = time.Second

	RetryInitialInterval    = 2 * time.Second
	RetryBackoffCoefficient = 1.5
	RetryMaximumInterval    = 60 * time.Second
	RetryMaximumAttempts    = 5
)

// ResearchTask is the workflow input.
type ResearchTask struct {
	Topic        string `json:"topic"`
	ResearcherID string `json:"researcherId"`
}

// SearchResult is one extracted organic search result.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// State names the stations of one research run. Transitions are linear;
// Failed is reachable from any non-terminal state.
type State string

const (
	StateStarted       State = "STARTED"
	StateSearchPending State = "SEARCH_PENDING"
	StateSearchDone    State = "SEARCH_DONE"
	StateReportPending State = "REPORT_PENDING"
	StateReportDone    State = "REPORT_DONE"
	StateCompleted     State = "COMPLETED"
	StateFailed        State = "FAILED"
)

// ResearchProgress is the workflow's durable progress record. Step guards
// read it so a replayed execution never redoes completed work.
type ResearchProgress struct {
	State           State          `json:"state"`
	SearchCompleted bool           `json:"searchCompleted"`
	ReportGenerated bool           `json:"reportGenerated"`
	SearchResults   []SearchResult `json:"searchResults"`
}
