package assistant

import (
	"context"

	models "threadkeeper/internal/domain/models/assistant"
)

// HistoryService reconstructs local chat state from the remote message log.
type HistoryService interface {
	// Load returns the flattened recency window of the thread in chronological order.
	// Fetch failures yield an empty slice, never an error.
	Load(ctx context.Context, threadID string) []models.Entry
}

// Reconciler detects and cancels live runs before new work is submitted.
type Reconciler interface {
	// Reconcile cancels every live run of the thread and waits for them to settle.
	// It is best-effort: problems are recorded in the report, never returned.
	Reconcile(ctx context.Context, threadID string) *models.ReconcileReport

	// Inspect lists the thread's live runs without touching them.
	Inspect(ctx context.Context, threadID string) ([]models.Run, error)
}

// TurnExecutor submits one content unit and awaits the resulting run.
type TurnExecutor interface {
	Execute(ctx context.Context, threadID, assistantID string, unit models.ContentUnit) (*models.TurnResult, error)
}

// FileService is the pass-through browser of the remote file registry.
type FileService interface {
	Upload(ctx context.Context, req *UploadFileRequest) (*models.StoredFile, error)
	List(ctx context.Context) ([]models.StoredFile, error)
	Delete(ctx context.Context, fileID string) error
}

// ChatService drives a user turn end to end against a session:
// pre-flight reconcile, optimistic append, package, execute, append reply.
type ChatService interface {
	// History returns the session's cache, synchronizing it first if needed.
	History(ctx context.Context, sess Session) []models.Entry

	// Refresh invalidates the cache and synchronizes again.
	Refresh(ctx context.Context, sess Session) []models.Entry

	// SendTurn runs one user turn. Submission failures are returned as
	// *domain.SubmissionError; run failures and timeouts are reported in the result.
	SendTurn(ctx context.Context, sess Session, req *SendTurnRequest) (*SendTurnResponse, error)

	// Unblock is the manual reconciliation action. It takes the conversation lease
	// and returns a *domain.ConflictError while another turn holds it.
	Unblock(ctx context.Context, sess Session) (*models.ReconcileReport, error)

	// LiveRuns lists runs that would block the next turn.
	LiveRuns(ctx context.Context, sess Session) ([]models.Run, error)

	// Reset starts a new conversation for the session.
	Reset(ctx context.Context, sess Session) (*models.Thread, error)
}

// SendTurnRequest is one user turn.
type SendTurnRequest struct {
	Text         string   `json:"text"`
	ImageFileIDs []string `json:"image_file_ids"`
}

// SendTurnResponse carries the resolved turn and the session's cache after it.
type SendTurnResponse struct {
	Result    *models.TurnResult      `json:"result"`
	Reconcile *models.ReconcileReport `json:"reconcile,omitempty"`
	Entries   []models.Entry          `json:"entries"`
}

// UploadFileRequest is one image upload into the file registry.
type UploadFileRequest struct {
	Data        []byte `json:"-"`
	MIMEType    string `json:"mime_type"`
	DisplayName string `json:"display_name"`
}
