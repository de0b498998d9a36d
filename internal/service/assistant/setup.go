package assistant

import (
	"log/slog"

	"threadkeeper/internal/config"
	repo "threadkeeper/internal/domain/repositories/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
	"threadkeeper/internal/session"
)

var (
	_ svc.HistoryService = (*HistoryService)(nil)
	_ svc.Reconciler     = (*RunReconciler)(nil)
	_ svc.TurnExecutor   = (*TurnExecutor)(nil)
	_ svc.FileService    = (*FileRegistry)(nil)
	_ svc.ChatService    = (*ChatService)(nil)
)

// Services holds the assistant services shared by the HTTP server and the CLI.
type Services struct {
	Chat     svc.ChatService
	Files    svc.FileService
	Sessions *session.Manager
}

// SetupServices builds every assistant service over one backend.
// bindings may be nil when no persistent binding store is configured.
func SetupServices(
	backend svc.Backend,
	cfg *config.Config,
	locks repo.ConversationLockRepository,
	bindings repo.ThreadBindingRepository,
	logger *slog.Logger,
) *Services {
	reconciler := NewRunReconciler(backend, cfg.ReconcilePollInterval, cfg.ReconcileSettleTimeout, logger)
	history := NewHistoryService(backend, cfg.HistoryLimit, logger)
	executor := NewTurnExecutor(backend, cfg.RunPollInterval, cfg.RunMaxWait, logger)

	chat := NewChatService(
		backend,
		reconciler,
		history,
		executor,
		locks,
		bindings,
		cfg.ReconcileMode,
		cfg.LeaseTTL(),
		logger,
	)

	logger.Info("assistant services initialized",
		"backend", cfg.Backend,
		"reconcile_mode", cfg.ReconcileMode,
		"history_limit", cfg.HistoryLimit,
		"run_max_wait", cfg.RunMaxWait,
	)

	return &Services{
		Chat:     chat,
		Files:    NewFileRegistry(backend, logger),
		Sessions: session.NewManager(cfg.ThreadID, cfg.AssistantID, bindings, logger),
	}
}
