package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"threadkeeper/internal/config"
	"threadkeeper/internal/domain"
	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
)

// timeoutCancelGrace bounds the best-effort cancel issued after a run times out.
const timeoutCancelGrace = 10 * time.Second

var errRunPending = errors.New("run still pending")

// TurnExecutor submits a content unit as a user message, starts a run and
// blocks until the run resolves.
//
// State machine per call: submit -> run -> await (bounded) -> resolve.
// Exactly one message and one run are created per call. Nothing is retried
// after a submission failure because the backend offers no idempotency key.
type TurnExecutor struct {
	backend      svc.Backend
	pollInterval time.Duration
	maxPoll      time.Duration
	maxWait      time.Duration
	logger       *slog.Logger
}

// NewTurnExecutor creates an executor polling from pollInterval (backing off up to
// config.MaxRunPollInterval) for at most maxWait. Non-positive durations fall back to the defaults.
func NewTurnExecutor(backend svc.Backend, pollInterval, maxWait time.Duration, logger *slog.Logger) *TurnExecutor {
	if pollInterval <= 0 {
		pollInterval = config.DefaultRunPollInterval
	}
	if maxWait <= 0 {
		maxWait = config.DefaultRunMaxWait
	}
	maxPoll := config.MaxRunPollInterval
	if pollInterval > maxPoll {
		maxPoll = pollInterval
	}
	return &TurnExecutor{
		backend:      backend,
		pollInterval: pollInterval,
		maxPoll:      maxPoll,
		maxWait:      maxWait,
		logger:       logger,
	}
}

// Execute runs one turn. The error return is reserved for submission failures
// (*domain.SubmissionError) and context cancellation; every resolved run,
// including failed and timed out ones, comes back as a TurnResult.
func (e *TurnExecutor) Execute(ctx context.Context, threadID, assistantID string, unit models.ContentUnit) (*models.TurnResult, error) {
	if _, err := e.backend.CreateMessage(ctx, threadID, models.RoleUser, unit.Parts); err != nil {
		return nil, &domain.SubmissionError{Stage: "create_message", Err: err}
	}

	run, err := e.backend.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return nil, &domain.SubmissionError{Stage: "create_run", Err: err}
	}

	e.logger.Info("run created",
		"thread_id", threadID,
		"run_id", run.ID,
		"assistant_id", assistantID,
		"parts", len(unit.Parts),
	)

	final, err := e.await(ctx, threadID, run)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return e.timeout(ctx, threadID, final, err), nil
	}

	return e.resolve(ctx, threadID, final), nil
}

// await polls the run until it is terminal. On failure it returns the last
// observed state along with the error.
func (e *TurnExecutor) await(ctx context.Context, threadID string, run *models.Run) (*models.Run, error) {
	current := run

	backoff := retry.NewExponential(e.pollInterval)
	backoff = retry.WithCappedDuration(e.maxPoll, backoff)
	backoff = retry.WithMaxDuration(e.maxWait, backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		latest, err := e.backend.GetRun(ctx, threadID, run.ID)
		if err != nil {
			e.logger.Debug("run status check failed", "run_id", run.ID, "error", err)
			return retry.RetryableError(err)
		}
		current = latest
		if latest.Status.IsLive() {
			return retry.RetryableError(errRunPending)
		}
		return nil
	})

	return current, err
}

func (e *TurnExecutor) resolve(ctx context.Context, threadID string, run *models.Run) *models.TurnResult {
	result := &models.TurnResult{
		RunID:  run.ID,
		Status: run.Status,
	}

	switch run.Status {
	case models.RunStatusCompleted:
		result.Outcome = models.OutcomeCompleted
		reply, err := e.latestReply(ctx, threadID)
		if err != nil {
			e.logger.Warn("run completed but reply fetch failed",
				"thread_id", threadID,
				"run_id", run.ID,
				"error", err,
			)
			result.ErrorMessage = fmt.Sprintf("reply unavailable: %v", err)
			return result
		}
		result.Reply = reply

	case models.RunStatusFailed:
		result.Outcome = models.OutcomeFailed
		if run.LastError != nil {
			result.ErrorCode = run.LastError.Code
			result.ErrorMessage = run.LastError.Message
		}
		e.logger.Warn("run failed",
			"thread_id", threadID,
			"run_id", run.ID,
			"code", result.ErrorCode,
			"message", result.ErrorMessage,
		)

	default:
		result.Outcome = models.OutcomeUnexpected
		result.ErrorMessage = fmt.Sprintf("unexpected run status: %s", run.Status)
		e.logger.Warn("run ended with unexpected status",
			"thread_id", threadID,
			"run_id", run.ID,
			"status", run.Status,
		)
	}

	return result
}

// latestReply reads the newest message and returns its cleaned text.
func (e *TurnExecutor) latestReply(ctx context.Context, threadID string) (string, error) {
	messages, err := e.backend.ListMessages(ctx, threadID, 1, models.OrderDesc)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", errors.New("thread has no messages")
	}
	return StripCitations(messages[0].FlattenText()), nil
}

// timeout reports a run that outlived maxWait and asks the backend to cancel it,
// so the next turn's pre-flight finds less to clean up.
func (e *TurnExecutor) timeout(ctx context.Context, threadID string, run *models.Run, cause error) *models.TurnResult {
	e.logger.Warn("run timed out",
		"thread_id", threadID,
		"run_id", run.ID,
		"status", run.Status,
		"max_wait", e.maxWait,
		"error", cause,
	)

	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeoutCancelGrace)
	defer cancel()
	if err := e.backend.CancelRun(cancelCtx, threadID, run.ID); err != nil {
		e.logger.Warn("cancel of timed out run failed", "run_id", run.ID, "error", err)
	}

	result := &models.TurnResult{
		Outcome:      models.OutcomeTimeout,
		RunID:        run.ID,
		Status:       run.Status,
		ErrorMessage: fmt.Sprintf("run did not finish within %s", e.maxWait),
	}
	if !errors.Is(cause, errRunPending) {
		result.ErrorMessage = fmt.Sprintf("%s: %v", result.ErrorMessage, cause)
	}
	return result
}
