package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"threadkeeper/internal/config"
	"threadkeeper/internal/domain"
	models "threadkeeper/internal/domain/models/assistant"
	repo "threadkeeper/internal/domain/repositories/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
)

// leaseReleaseTimeout bounds releasing a lease after the request context is gone.
const leaseReleaseTimeout = 5 * time.Second

// ChatService implements the per-turn control flow:
// lease -> pre-flight reconcile -> optimistic user entry -> package -> execute -> reply entry.
type ChatService struct {
	backend    svc.Backend
	reconciler svc.Reconciler
	history    svc.HistoryService
	executor   svc.TurnExecutor
	locks      repo.ConversationLockRepository
	bindings   repo.ThreadBindingRepository // optional
	mode       string
	leaseTTL   time.Duration
	logger     *slog.Logger
}

// NewChatService wires the chat orchestrator. bindings may be nil.
func NewChatService(
	backend svc.Backend,
	reconciler svc.Reconciler,
	history svc.HistoryService,
	executor svc.TurnExecutor,
	locks repo.ConversationLockRepository,
	bindings repo.ThreadBindingRepository,
	mode string,
	leaseTTL time.Duration,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		backend:    backend,
		reconciler: reconciler,
		history:    history,
		executor:   executor,
		locks:      locks,
		bindings:   bindings,
		mode:       mode,
		leaseTTL:   leaseTTL,
		logger:     logger,
	}
}

// History returns the cache, loading it from the backend at most once per session
// unless invalidated.
func (s *ChatService) History(ctx context.Context, sess svc.Session) []models.Entry {
	sess.LockTurn()
	defer sess.UnlockTurn()

	s.ensureSynced(ctx, sess)
	return sess.Cache().Entries()
}

// Refresh forces resynchronization. Optimistic entries of an unfinished turn are lost.
func (s *ChatService) Refresh(ctx context.Context, sess svc.Session) []models.Entry {
	sess.LockTurn()
	defer sess.UnlockTurn()

	sess.Invalidate()
	s.ensureSynced(ctx, sess)
	return sess.Cache().Entries()
}

// SendTurn runs one user turn on the session.
func (s *ChatService) SendTurn(ctx context.Context, sess svc.Session, req *svc.SendTurnRequest) (*svc.SendTurnResponse, error) {
	if err := ValidateTurnRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	sess.LockTurn()
	defer sess.UnlockTurn()

	threadID := sess.ThreadID()

	// one owner token per turn: two processes may serve the same session key
	owner := sess.ID() + "/" + uuid.NewString()
	if _, err := s.locks.Acquire(ctx, threadID, owner, s.leaseTTL); err != nil {
		return nil, err
	}
	defer s.releaseLease(ctx, threadID, owner)

	resp := &svc.SendTurnResponse{}

	switch s.mode {
	case config.ReconcileManual:
		live, err := s.reconciler.Inspect(ctx, threadID)
		if err != nil {
			// best-effort: an unknown state does not block the user
			s.logger.Warn("pre-flight inspect failed", "thread_id", threadID, "error", err)
		} else if len(live) > 0 {
			ids := make([]string, len(live))
			for i, run := range live {
				ids[i] = run.ID
			}
			return nil, &domain.BlockedError{ThreadID: threadID, RunIDs: ids}
		}
	default:
		resp.Reconcile = s.reconciler.Reconcile(ctx, threadID)
	}

	s.ensureSynced(ctx, sess)

	unit := Package(req.Text, req.ImageFileIDs)
	sess.Cache().Append(models.RoleUser, Preview(unit))

	result, err := s.executor.Execute(ctx, threadID, sess.AssistantID(), unit)
	if err != nil {
		// the optimistic entry may not exist remotely; resync on next access
		sess.Invalidate()
		s.logger.Error("turn abandoned",
			"session_id", sess.ID(),
			"thread_id", threadID,
			"error", err,
		)
		return nil, err
	}

	switch {
	case result.Succeeded() && result.ErrorMessage != "":
		// the reply exists remotely but could not be read; history will pick it up
		sess.Invalidate()
	case result.Succeeded():
		sess.Cache().Append(models.RoleAssistant, result.Reply)
	}

	s.logger.Info("turn resolved",
		"session_id", sess.ID(),
		"thread_id", threadID,
		"run_id", result.RunID,
		"outcome", result.Outcome,
	)

	resp.Result = result
	resp.Entries = sess.Cache().Entries()
	return resp, nil
}

// Unblock cancels whatever keeps the conversation blocked. It holds the thread's
// lease while doing so, so a run another turn is still awaiting is never cancelled:
// that case returns the lease's *domain.ConflictError.
func (s *ChatService) Unblock(ctx context.Context, sess svc.Session) (*models.ReconcileReport, error) {
	sess.LockTurn()
	defer sess.UnlockTurn()

	threadID := sess.ThreadID()
	owner := sess.ID() + "/" + uuid.NewString()
	if _, err := s.locks.Acquire(ctx, threadID, owner, s.leaseTTL); err != nil {
		return nil, err
	}
	defer s.releaseLease(ctx, threadID, owner)

	report := s.reconciler.Reconcile(ctx, threadID)
	s.logger.Info("thread unblocked",
		"session_id", sess.ID(),
		"thread_id", threadID,
		"cancelled", len(report.Cancelled),
		"unsettled", len(report.Unsettled),
	)
	return report, nil
}

// LiveRuns lists runs that would block the next turn.
func (s *ChatService) LiveRuns(ctx context.Context, sess svc.Session) ([]models.Run, error) {
	runs, err := s.reconciler.Inspect(ctx, sess.ThreadID())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return runs, nil
}

// Reset creates a new thread and points the session at it.
// The previous thread stays on the backend untouched.
func (s *ChatService) Reset(ctx context.Context, sess svc.Session) (*models.Thread, error) {
	sess.LockTurn()
	defer sess.UnlockTurn()

	thread, err := s.backend.CreateThread(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create thread: %v", domain.ErrUpstream, err)
	}

	previous := sess.ThreadID()
	sess.SwitchThread(thread.ID)

	if s.bindings != nil {
		if err := s.bindings.Put(ctx, sess.ID(), thread.ID); err != nil {
			s.logger.Warn("thread binding not persisted",
				"session_id", sess.ID(),
				"thread_id", thread.ID,
				"error", err,
			)
		}
	}

	s.logger.Info("thread reset",
		"session_id", sess.ID(),
		"previous_thread_id", previous,
		"thread_id", thread.ID,
	)
	return thread, nil
}

// ensureSynced must be called with the session's turn lock held.
func (s *ChatService) ensureSynced(ctx context.Context, sess svc.Session) {
	if sess.Synced() {
		return
	}
	sess.Cache().Replace(s.history.Load(ctx, sess.ThreadID()))
	sess.MarkSynced()
}

func (s *ChatService) releaseLease(ctx context.Context, threadID, owner string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaseReleaseTimeout)
	defer cancel()
	if err := s.locks.Release(releaseCtx, threadID, owner); err != nil {
		s.logger.Warn("lease release failed", "thread_id", threadID, "error", err)
	}
}
