package assistant

import (
	"context"

	models "threadkeeper/internal/domain/models/assistant"
)

// Backend is the hosted assistant service: an ordered message log per thread,
// asynchronous runs, and a process-wide file registry.
// Implementations only translate calls; retry and reconciliation policy live in the services.
type Backend interface {
	// CreateThread starts a new, empty conversation.
	CreateThread(ctx context.Context) (*models.Thread, error)

	// CreateMessage appends a message to the thread and returns its ID.
	CreateMessage(ctx context.Context, threadID string, role models.Role, parts []models.Part) (string, error)

	// ListMessages returns up to limit messages in the given order.
	ListMessages(ctx context.Context, threadID string, limit int, order models.ListOrder) ([]models.Message, error)

	// CreateRun starts a run of assistantID over the thread. The run is pending on return.
	CreateRun(ctx context.Context, threadID, assistantID string) (*models.Run, error)

	// GetRun fetches the current state of a run.
	GetRun(ctx context.Context, threadID, runID string) (*models.Run, error)

	// ListRuns returns the thread's runs, newest first.
	ListRuns(ctx context.Context, threadID string) ([]models.Run, error)

	// CancelRun requests cancellation. The backend applies it asynchronously.
	CancelRun(ctx context.Context, threadID, runID string) error

	// UploadFile stores data under filename with the given purpose.
	UploadFile(ctx context.Context, data []byte, mimeType, filename, purpose string) (*models.StoredFile, error)

	// ListFiles returns files registered under purpose.
	ListFiles(ctx context.Context, purpose string) ([]models.StoredFile, error)

	// DeleteFile removes a file. Returns an error wrapping domain.ErrNotFound when absent.
	DeleteFile(ctx context.Context, fileID string) error
}
