package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"threadkeeper/internal/config"
	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
)

var errRunNotSettled = errors.New("run not settled")

// RunReconciler keeps at most one live run per thread by cancelling leftovers
// before new work is submitted.
//
// Cancellation on the backend is asynchronous, so after requesting it the
// reconciler polls each cancelled run until it reaches a terminal status,
// bounded by settleTimeout.
type RunReconciler struct {
	backend       svc.Backend
	pollInterval  time.Duration
	settleTimeout time.Duration
	logger        *slog.Logger
}

// NewRunReconciler creates a reconciler. Non-positive durations fall back to the defaults.
func NewRunReconciler(backend svc.Backend, pollInterval, settleTimeout time.Duration, logger *slog.Logger) *RunReconciler {
	if pollInterval <= 0 {
		pollInterval = config.DefaultReconcilePollInterval
	}
	if settleTimeout <= 0 {
		settleTimeout = config.DefaultReconcileSettleTimeout
	}
	return &RunReconciler{
		backend:       backend,
		pollInterval:  pollInterval,
		settleTimeout: settleTimeout,
		logger:        logger,
	}
}

// Inspect lists the thread's live runs. The list call is retried once.
func (r *RunReconciler) Inspect(ctx context.Context, threadID string) ([]models.Run, error) {
	runs, err := r.listRuns(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return models.LiveRuns(runs), nil
}

// Reconcile cancels every live run of the thread and waits for them to settle.
// With no live runs it returns immediately without issuing any request beyond the list.
func (r *RunReconciler) Reconcile(ctx context.Context, threadID string) *models.ReconcileReport {
	report := &models.ReconcileReport{ThreadID: threadID}

	runs, err := r.listRuns(ctx, threadID)
	if err != nil {
		r.logger.Warn("reconcile: list runs failed",
			"thread_id", threadID,
			"error", err,
		)
		report.Errors = append(report.Errors, err.Error())
		return report
	}
	report.Listed = len(runs)

	live := models.LiveRuns(runs)
	if len(live) == 0 {
		return report
	}

	pending := make([]models.Run, 0, len(live))
	for _, run := range live {
		if err := r.backend.CancelRun(ctx, threadID, run.ID); err != nil {
			r.logger.Warn("reconcile: cancel failed",
				"thread_id", threadID,
				"run_id", run.ID,
				"status", run.Status,
				"error", err,
			)
			report.Errors = append(report.Errors, fmt.Sprintf("cancel %s: %v", run.ID, err))
			// a run already cancelling may reject the request and still settle
			if run.Status != models.RunStatusCancelling {
				continue
			}
		} else {
			report.Cancelled = append(report.Cancelled, run.ID)
		}
		pending = append(pending, run)
	}

	settleCtx, cancel := context.WithTimeout(ctx, r.settleTimeout)
	defer cancel()

	for _, run := range pending {
		if r.awaitSettled(settleCtx, threadID, run.ID) {
			report.Settled = append(report.Settled, run.ID)
			continue
		}
		report.Unsettled = append(report.Unsettled, run.ID)
	}

	if report.Clean() {
		r.logger.Info("reconcile: thread clean",
			"thread_id", threadID,
			"cancelled", len(report.Cancelled),
		)
	} else {
		r.logger.Warn("reconcile: partial failure",
			"thread_id", threadID,
			"cancelled", len(report.Cancelled),
			"unsettled", report.Unsettled,
			"errors", len(report.Errors),
		)
	}

	return report
}

// listRuns tolerates one failed list call.
func (r *RunReconciler) listRuns(ctx context.Context, threadID string) ([]models.Run, error) {
	var runs []models.Run
	backoff := retry.WithMaxRetries(1, retry.NewConstant(r.pollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		listed, err := r.backend.ListRuns(ctx, threadID)
		if err != nil {
			return retry.RetryableError(err)
		}
		runs = listed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// awaitSettled polls the run until it is terminal or ctx expires.
func (r *RunReconciler) awaitSettled(ctx context.Context, threadID, runID string) bool {
	err := retry.Do(ctx, retry.NewConstant(r.pollInterval), func(ctx context.Context) error {
		run, err := r.backend.GetRun(ctx, threadID, runID)
		if err != nil {
			r.logger.Debug("reconcile: status check failed", "run_id", runID, "error", err)
			return retry.RetryableError(err)
		}
		if run.Status.IsLive() {
			return retry.RetryableError(errRunNotSettled)
		}
		return nil
	})
	return err == nil
}
