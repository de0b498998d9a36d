package assistant

// RunStatus is the lifecycle state of a run as reported by the backend.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCancelling     RunStatus = "cancelling"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// IsLive reports whether a run still occupies its thread.
// requires_action counts as live: a run waiting for tool output is treated as stuck.
func (s RunStatus) IsLive() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction, RunStatusCancelling:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the backend will no longer transition the run.
func (s RunStatus) IsTerminal() bool {
	return !s.IsLive()
}

// RunError is the backend-provided failure detail of a run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is an asynchronous assistant job bound to a thread.
type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error,omitempty"`
}

// LiveRuns filters runs down to those whose status is live.
func LiveRuns(runs []Run) []Run {
	var live []Run
	for _, run := range runs {
		if run.Status.IsLive() {
			live = append(live, run)
		}
	}
	return live
}
