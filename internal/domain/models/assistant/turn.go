package assistant

// ContentUnit is one outbound unit of work: a text part followed by zero or more image parts.
type ContentUnit struct {
	Parts []Part `json:"parts"`
}

// Outcome is how a turn resolved.
type Outcome string

const (
	OutcomeCompleted  Outcome = "completed"
	OutcomeFailed     Outcome = "failed"
	OutcomeTimeout    Outcome = "timeout"
	OutcomeUnexpected Outcome = "unexpected"
)

// TurnResult is what the turn executor reports once the run is resolved.
type TurnResult struct {
	Outcome      Outcome   `json:"outcome"`
	RunID        string    `json:"run_id"`
	Status       RunStatus `json:"status"`
	Reply        string    `json:"reply,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Succeeded reports whether the turn produced an assistant reply.
func (r *TurnResult) Succeeded() bool {
	return r != nil && r.Outcome == OutcomeCompleted
}

// ReconcileReport summarizes one reconciliation pass over a thread.
type ReconcileReport struct {
	ThreadID  string   `json:"thread_id"`
	Listed    int      `json:"listed"`
	Cancelled []string `json:"cancelled"`
	Settled   []string `json:"settled"`
	Unsettled []string `json:"unsettled"`
	Errors    []string `json:"errors,omitempty"`
}

// Clean reports whether the pass finished without errors and every cancelled run settled.
// A report that is not clean is a partial failure; it is never raised as an error.
func (r *ReconcileReport) Clean() bool {
	return len(r.Errors) == 0 && len(r.Unsettled) == 0
}
