package lorem

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"

	"threadkeeper/internal/domain"
	models "threadkeeper/internal/domain/models/assistant"
	services "threadkeeper/internal/domain/services/assistant"
)

// Assistant IDs with these substrings change how runs behave.
// Example assistants: "lorem-fast", "lorem-fail", "lorem-stuck"
const (
	behaviorFail  = "fail"  // runs end failed with a rate limit error
	behaviorStuck = "stuck" // runs never leave in_progress until cancelled
	behaviorSlow  = "slow"  // runs take ten times longer
)

// Backend is an in-memory assistant service that answers with lorem ipsum.
// Used for development and tests without an API key.
//
// Runs progress with wall-clock time rather than background goroutines: every
// read computes the status from the run's age, so the caller's polling is what
// drives a run to completion.
type Backend struct {
	mu        sync.Mutex
	generator *loremgen.Lorem
	now       func() time.Time

	queuedFor  time.Duration
	workingFor time.Duration
	cancelFor  time.Duration

	threads map[string]*thread
	files   map[string]models.StoredFile
}

type thread struct {
	id       string
	created  time.Time
	messages []models.Message
	runs     []*run // oldest first
}

type run struct {
	models.Run
	created     time.Time
	cancelledAt time.Time
}

var _ services.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// WithDelays sets how long a run stays queued, in progress, and cancelling.
func WithDelays(queued, working, cancelling time.Duration) Option {
	return func(b *Backend) {
		b.queuedFor = queued
		b.workingFor = working
		b.cancelFor = cancelling
	}
}

// NewBackend creates an empty lorem backend.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		generator:  loremgen.New(),
		now:        time.Now,
		queuedFor:  300 * time.Millisecond,
		workingFor: 2 * time.Second,
		cancelFor:  500 * time.Millisecond,
		threads:    make(map[string]*thread),
		files:      make(map[string]models.StoredFile),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CreateThread starts an empty thread.
func (b *Backend) CreateThread(ctx context.Context) (*models.Thread, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &thread{id: newID("thread"), created: b.now()}
	b.threads[t.id] = t
	return &models.Thread{ID: t.id, CreatedAt: t.created}, nil
}

// CreateMessage appends a message. Unknown threads are created on first use so
// a configured THREAD_ID works against a fresh process.
func (b *Backend) CreateMessage(ctx context.Context, threadID string, role models.Role, parts []models.Part) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: message has no content", domain.ErrValidation)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.thread(threadID)
	for _, part := range parts {
		if part.Type == models.PartTypeImageFile {
			if _, ok := b.files[part.FileID]; !ok {
				return "", &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", part.FileID)}
			}
		}
	}
	if run := t.activeRun(b); run != nil {
		return "", fmt.Errorf("%w: thread %s has active run %s", domain.ErrConflict, threadID, run.ID)
	}

	msg := models.Message{
		ID:        newID("msg"),
		ThreadID:  threadID,
		Role:      role,
		Parts:     slices.Clone(parts),
		CreatedAt: b.now(),
	}
	t.messages = append(t.messages, msg)
	return msg.ID, nil
}

// ListMessages returns up to limit messages of the thread.
func (b *Backend) ListMessages(ctx context.Context, threadID string, limit int, order models.ListOrder) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.thread(threadID)
	for _, r := range t.runs {
		b.advance(t, r)
	}

	// the remote API windows from the newest end for both orders
	msgs := slices.Clone(t.messages)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	if order == models.OrderDesc {
		slices.Reverse(msgs)
	}
	return msgs, nil
}

// CreateRun queues a run over the thread.
func (b *Backend) CreateRun(ctx context.Context, threadID, assistantID string) (*models.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.thread(threadID)
	if active := t.activeRun(b); active != nil {
		return nil, fmt.Errorf("%w: thread %s already has active run %s", domain.ErrConflict, threadID, active.ID)
	}

	r := &run{
		Run: models.Run{
			ID:          newID("run"),
			ThreadID:    threadID,
			AssistantID: assistantID,
			Status:      models.RunStatusQueued,
		},
		created: b.now(),
	}
	t.runs = append(t.runs, r)
	out := r.Run
	return &out, nil
}

// GetRun returns the run's current state.
func (b *Backend) GetRun(ctx context.Context, threadID, runID string) (*models.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.findRun(threadID, runID)
	if err != nil {
		return nil, err
	}
	out := r.Run
	return &out, nil
}

// ListRuns returns the thread's runs newest first.
func (b *Backend) ListRuns(ctx context.Context, threadID string) ([]models.Run, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.thread(threadID)
	runs := make([]models.Run, 0, len(t.runs))
	for i := len(t.runs) - 1; i >= 0; i-- {
		b.advance(t, t.runs[i])
		runs = append(runs, t.runs[i].Run)
	}
	return runs, nil
}

// CancelRun moves a live run to cancelling. Cancelling a terminal run is an error,
// as it is remotely.
func (b *Backend) CancelRun(ctx context.Context, threadID, runID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, err := b.findRun(threadID, runID)
	if err != nil {
		return err
	}
	switch r.Status {
	case models.RunStatusCancelling:
		return fmt.Errorf("%w: run %s is already cancelling", domain.ErrConflict, runID)
	case models.RunStatusQueued, models.RunStatusInProgress, models.RunStatusRequiresAction:
		r.Status = models.RunStatusCancelling
		r.cancelledAt = b.now()
		return nil
	default:
		return fmt.Errorf("%w: cannot cancel run %s with status %s", domain.ErrConflict, runID, r.Status)
	}
}

// UploadFile registers a file. Contents are discarded; only metadata is kept.
func (b *Backend) UploadFile(ctx context.Context, data []byte, mimeType, filename, purpose string) (*models.StoredFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f := models.StoredFile{
		ID:        newID("file"),
		Filename:  filename,
		Bytes:     int64(len(data)),
		Purpose:   purpose,
		CreatedAt: b.now(),
	}
	b.files[f.ID] = f
	return &f, nil
}

// ListFiles returns files registered under purpose, in no particular order.
func (b *Backend) ListFiles(ctx context.Context, purpose string) ([]models.StoredFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var files []models.StoredFile
	for _, f := range b.files {
		if purpose == "" || f.Purpose == purpose {
			files = append(files, f)
		}
	}
	return files, nil
}

// DeleteFile removes a file from the registry.
func (b *Backend) DeleteFile(ctx context.Context, fileID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.files[fileID]; !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
	}
	delete(b.files, fileID)
	return nil
}

// thread returns the thread, creating it when unknown. Callers hold b.mu.
func (b *Backend) thread(id string) *thread {
	t, ok := b.threads[id]
	if !ok {
		t = &thread{id: id, created: b.now()}
		b.threads[id] = t
	}
	return t
}

func (b *Backend) findRun(threadID, runID string) (*run, error) {
	t, ok := b.threads[threadID]
	if ok {
		for _, r := range t.runs {
			if r.ID == runID {
				b.advance(t, r)
				return r, nil
			}
		}
	}
	return nil, &domain.NotFoundError{Message: fmt.Sprintf("run %s not found", runID)}
}

func (t *thread) activeRun(b *Backend) *run {
	for _, r := range t.runs {
		b.advance(t, r)
		if r.Status.IsLive() {
			return r
		}
	}
	return nil
}

// advance moves r forward according to its age. Callers hold b.mu.
func (b *Backend) advance(t *thread, r *run) {
	now := b.now()

	switch r.Status {
	case models.RunStatusCancelling:
		if now.Sub(r.cancelledAt) >= b.cancelFor {
			r.Status = models.RunStatusCancelled
		}
		return
	case models.RunStatusQueued, models.RunStatusInProgress:
	default:
		return
	}

	working := b.workingFor
	if strings.Contains(r.AssistantID, behaviorSlow) {
		working *= 10
	}

	age := now.Sub(r.created)
	switch {
	case age < b.queuedFor:
		r.Status = models.RunStatusQueued
	case age < b.queuedFor+working || strings.Contains(r.AssistantID, behaviorStuck):
		r.Status = models.RunStatusInProgress
	case strings.Contains(r.AssistantID, behaviorFail):
		r.Status = models.RunStatusFailed
		r.LastError = &models.RunError{
			Code:    "rate_limit_exceeded",
			Message: "lorem backend simulated a rate limit",
		}
	default:
		r.Status = models.RunStatusCompleted
		t.messages = append(t.messages, models.Message{
			ID:        newID("msg"),
			ThreadID:  t.id,
			Role:      models.RoleAssistant,
			Parts:     []models.Part{models.TextPart(b.reply())},
			CreatedAt: now,
		})
	}
}

// reply produces a paragraph with one citation marker, the way file-search answers look.
func (b *Backend) reply() string {
	return fmt.Sprintf("%s【4:0†source】 %s",
		b.generator.Sentence(6, 14),
		b.generator.Paragraph(2, 4),
	)
}

func newID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
