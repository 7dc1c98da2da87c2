package research

import (
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ResearchWorkflow runs one research task end to end: search, a short pause,
// then the report. It returns a human-readable summary of the run.
func ResearchWorkflow(ctx workflow.Context, task ResearchTask) (string, error) {
	return runResearch(ctx, task, &ResearchProgress{State: StateStarted})
}

// runResearch sequences the steps over an explicit progress record. Guards
// on the record keep the sequence idempotent: work that already completed is
// never redone, however the execution got here.
func runResearch(ctx workflow.Context, task ResearchTask, progress *ResearchProgress) (string, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("research started", "topic", task.Topic, "researcher", task.ResearcherID)

	if err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (ResearchProgress, error) {
		return *progress, nil
	}); err != nil {
		return "", wrapWorkflowError(err)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout:    StepStartToCloseTimeout,
		ScheduleToCloseTimeout: StepScheduleToCloseTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        RetryInitialInterval,
			BackoffCoefficient:     RetryBackoffCoefficient,
			MaximumInterval:        RetryMaximumInterval,
			MaximumAttempts:        RetryMaximumAttempts,
			NonRetryableErrorTypes: []string{ConfigurationErrorType},
		},
	})

	var a *Activities

	transition(ctx, progress, StateSearchPending)
	if !progress.SearchCompleted {
		var results []SearchResult
		if err := workflow.ExecuteActivity(ctx, a.SearchGoogle, task.Topic).Get(ctx, &results); err != nil {
			transition(ctx, progress, StateFailed)
			return "", wrapWorkflowError(err)
		}
		progress.SearchResults = results
		progress.SearchCompleted = true
	}
	transition(ctx, progress, StateSearchDone)

	// Durable pause between the steps. Survives worker restarts without
	// redoing the search.
	if err := workflow.Sleep(ctx, StepPause); err != nil {
		transition(ctx, progress, StateFailed)
		return "", wrapWorkflowError(err)
	}

	transition(ctx, progress, StateReportPending)
	var reportPath string
	if !progress.ReportGenerated {
		if err := workflow.ExecuteActivity(ctx, a.GenerateReport, task.Topic, progress.SearchResults).Get(ctx, &reportPath); err != nil {
			transition(ctx, progress, StateFailed)
			return "", wrapWorkflowError(err)
		}
		progress.ReportGenerated = true
	}
	transition(ctx, progress, StateReportDone)

	transition(ctx, progress, StateCompleted)
	summary := fmt.Sprintf("Research on %q for researcher %s finished with %d result(s)",
		task.Topic, task.ResearcherID, len(progress.SearchResults))
	if reportPath != "" {
		summary += ", report saved to " + reportPath
	}
	logger.Info("research completed", "topic", task.Topic, "results", len(progress.SearchResults))
	return summary, nil
}

func transition(ctx workflow.Context, progress *ResearchProgress, to State) {
	workflow.GetLogger(ctx).Debug("state transition", "from", string(progress.State), "to", string(to))
	progress.State = to
}

// wrapWorkflowError presents exactly one typed failure to callers, keeping
// the most specific underlying message readable.
func wrapWorkflowError(err error) error {
	return temporal.NewApplicationErrorWithCause(
		fmt.Sprintf("research failed: %s", rootMessage(err)),
		WorkflowErrorType,
		err,
	)
}

// rootMessage digs the original message out of the orchestrator's error
// wrapping.
func rootMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}
