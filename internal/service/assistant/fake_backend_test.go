package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"threadkeeper/internal/domain"
	models "threadkeeper/internal/domain/models/assistant"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend is a scriptable in-memory backend that records every call.
type fakeBackend struct {
	mu sync.Mutex

	calls    []string
	runs     []*models.Run // oldest first
	messages []models.Message
	files    []models.StoredFile

	// statuses scripts successive GetRun results per run; the last one sticks.
	statuses map[string][]models.RunStatus
	// newRunScript is assigned to every run made by CreateRun.
	newRunScript []models.RunStatus
	runErrors    map[string]*models.RunError
	// reply is appended as an assistant message when a created run completes.
	reply string

	settleOnCancel bool

	listRunsErrs     []error // consumed one per call
	listMessagesErr  error
	createMessageErr error
	createRunErr     error
	cancelErr        map[string]error
	deleteErr        error

	uploadedName string
	nextID       int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		statuses:       map[string][]models.RunStatus{},
		runErrors:      map[string]*models.RunError{},
		cancelErr:      map[string]error{},
		settleOnCancel: true,
	}
}

func (f *fakeBackend) record(call string) {
	f.calls = append(f.calls, call)
}

// Calls returns a copy of the call log.
func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// count returns how many calls start with prefix.
func (f *fakeBackend) count(prefix string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) addRun(id string, status models.RunStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, &models.Run{ID: id, ThreadID: "thread_1", Status: status})
}

func (f *fakeBackend) addMessage(role models.Role, parts ...models.Part) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.messages = append(f.messages, models.Message{
		ID:        fmt.Sprintf("msg_%d", f.nextID),
		ThreadID:  "thread_1",
		Role:      role,
		Parts:     parts,
		CreatedAt: time.Unix(int64(f.nextID), 0),
	})
}

func (f *fakeBackend) liveRunIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, r := range f.runs {
		if r.Status.IsLive() {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func (f *fakeBackend) find(runID string) *models.Run {
	for _, r := range f.runs {
		if r.ID == runID {
			return r
		}
	}
	return nil
}

func (f *fakeBackend) CreateThread(ctx context.Context) (*models.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create_thread")
	f.nextID++
	return &models.Thread{ID: fmt.Sprintf("thread_new_%d", f.nextID), CreatedAt: time.Now()}, nil
}

func (f *fakeBackend) CreateMessage(ctx context.Context, threadID string, role models.Role, parts []models.Part) (string, error) {
	f.mu.Lock()
	f.record("create_message")
	if f.createMessageErr != nil {
		f.mu.Unlock()
		return "", f.createMessageErr
	}
	f.mu.Unlock()

	f.addMessage(role, parts...)
	return fmt.Sprintf("msg_%d", f.nextID), nil
}

func (f *fakeBackend) ListMessages(ctx context.Context, threadID string, limit int, order models.ListOrder) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_messages")
	if f.listMessagesErr != nil {
		return nil, f.listMessagesErr
	}

	msgs := append([]models.Message(nil), f.messages...)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	if order == models.OrderDesc {
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	}
	return msgs, nil
}

func (f *fakeBackend) CreateRun(ctx context.Context, threadID, assistantID string) (*models.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create_run")
	if f.createRunErr != nil {
		return nil, f.createRunErr
	}

	f.nextID++
	run := &models.Run{
		ID:          fmt.Sprintf("run_%d", f.nextID),
		ThreadID:    threadID,
		AssistantID: assistantID,
		Status:      models.RunStatusQueued,
	}
	f.runs = append(f.runs, run)
	if len(f.newRunScript) > 0 {
		f.statuses[run.ID] = append([]models.RunStatus(nil), f.newRunScript...)
	}
	out := *run
	return &out, nil
}

func (f *fakeBackend) GetRun(ctx context.Context, threadID, runID string) (*models.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get_run:" + runID)

	run := f.find(runID)
	if run == nil {
		return nil, &domain.NotFoundError{Message: "run not found"}
	}

	if script := f.statuses[runID]; len(script) > 0 {
		run.Status = script[0]
		if len(script) > 1 {
			f.statuses[runID] = script[1:]
		}
	} else if run.Status == models.RunStatusCancelling && f.settleOnCancel {
		run.Status = models.RunStatusCancelled
	}

	if run.Status == models.RunStatusFailed {
		run.LastError = f.runErrors[runID]
		if run.LastError == nil {
			run.LastError = f.runErrors["*"]
		}
	}
	if run.Status == models.RunStatusCompleted && f.reply != "" {
		f.nextID++
		f.messages = append(f.messages, models.Message{
			ID:       fmt.Sprintf("msg_%d", f.nextID),
			ThreadID: threadID,
			Role:     models.RoleAssistant,
			Parts:    []models.Part{models.TextPart(f.reply)},
		})
		f.reply = ""
	}

	out := *run
	return &out, nil
}

func (f *fakeBackend) ListRuns(ctx context.Context, threadID string) ([]models.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_runs")
	if len(f.listRunsErrs) > 0 {
		err := f.listRunsErrs[0]
		f.listRunsErrs = f.listRunsErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	runs := make([]models.Run, 0, len(f.runs))
	for i := len(f.runs) - 1; i >= 0; i-- {
		runs = append(runs, *f.runs[i])
	}
	return runs, nil
}

func (f *fakeBackend) CancelRun(ctx context.Context, threadID, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("cancel:" + runID)
	if err := f.cancelErr[runID]; err != nil {
		return err
	}

	run := f.find(runID)
	if run == nil {
		return &domain.NotFoundError{Message: "run not found"}
	}
	if run.Status.IsLive() {
		run.Status = models.RunStatusCancelling
	}
	return nil
}

func (f *fakeBackend) UploadFile(ctx context.Context, data []byte, mimeType, filename, purpose string) (*models.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("upload_file")
	f.uploadedName = filename
	f.nextID++
	file := models.StoredFile{
		ID:        fmt.Sprintf("file_%d", f.nextID),
		Filename:  filename,
		Bytes:     int64(len(data)),
		Purpose:   purpose,
		CreatedAt: time.Now(),
	}
	f.files = append(f.files, file)
	return &file, nil
}

func (f *fakeBackend) ListFiles(ctx context.Context, purpose string) ([]models.StoredFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_files")
	return append([]models.StoredFile(nil), f.files...), nil
}

func (f *fakeBackend) DeleteFile(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete_file:" + fileID)
	return f.deleteErr
}
