package assistant

import (
	"context"
	"log/slog"

	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
)

// HistoryService pulls the remote message log into local entries.
type HistoryService struct {
	backend svc.Backend
	limit   int
	logger  *slog.Logger
}

// NewHistoryService creates a history synchronizer that loads at most limit messages.
func NewHistoryService(backend svc.Backend, limit int, logger *slog.Logger) *HistoryService {
	return &HistoryService{
		backend: backend,
		limit:   limit,
		logger:  logger,
	}
}

// Load fetches the oldest-first recency window of the thread and flattens each message.
// A failed fetch returns an empty slice: a fresh thread and a transient outage look the
// same to the caller, and both are valid starting states.
func (s *HistoryService) Load(ctx context.Context, threadID string) []models.Entry {
	messages, err := s.backend.ListMessages(ctx, threadID, s.limit, models.OrderAsc)
	if err != nil {
		s.logger.Warn("history load failed, starting empty",
			"thread_id", threadID,
			"error", err,
		)
		return []models.Entry{}
	}

	entries := make([]models.Entry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, models.Entry{
			Role:    msg.Role,
			Content: msg.Flatten(),
		})
	}

	s.logger.Debug("history loaded",
		"thread_id", threadID,
		"messages", len(entries),
	)

	return entries
}
