package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"threadkeeper/internal/domain"
	models "threadkeeper/internal/domain/models/assistant"
)

func newTestExecutor(backend *fakeBackend, maxWait time.Duration) *TurnExecutor {
	return NewTurnExecutor(backend, time.Millisecond, maxWait, testLogger())
}

func textUnit(text string) models.ContentUnit {
	return Package(text, nil)
}

func TestExecute_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		script      []models.RunStatus
		reply       string
		runError    *models.RunError
		wantOutcome models.Outcome
		wantStatus  models.RunStatus
		wantReply   string
		wantCode    string
	}{
		{
			name:        "completed reply without citations",
			script:      []models.RunStatus{models.RunStatusQueued, models.RunStatusInProgress, models.RunStatusCompleted},
			reply:       "Paris is the capital【4:0†source】.",
			wantOutcome: models.OutcomeCompleted,
			wantStatus:  models.RunStatusCompleted,
			wantReply:   "Paris is the capital.",
		},
		{
			name:        "failed run keeps backend error",
			script:      []models.RunStatus{models.RunStatusInProgress, models.RunStatusFailed},
			runError:    &models.RunError{Code: "rate_limit_exceeded", Message: "You exceeded your quota"},
			wantOutcome: models.OutcomeFailed,
			wantStatus:  models.RunStatusFailed,
			wantCode:    "rate_limit_exceeded",
		},
		{
			name:        "expired is unexpected",
			script:      []models.RunStatus{models.RunStatusExpired},
			wantOutcome: models.OutcomeUnexpected,
			wantStatus:  models.RunStatusExpired,
		},
		{
			name:        "cancelled elsewhere is unexpected",
			script:      []models.RunStatus{models.RunStatusCancelling, models.RunStatusCancelled},
			wantOutcome: models.OutcomeUnexpected,
			wantStatus:  models.RunStatusCancelled,
		},
		{
			name:        "incomplete is unexpected",
			script:      []models.RunStatus{models.RunStatusIncomplete},
			wantOutcome: models.OutcomeUnexpected,
			wantStatus:  models.RunStatusIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.newRunScript = tt.script
			backend.reply = tt.reply
			if tt.runError != nil {
				backend.runErrors["*"] = tt.runError
			}

			result, err := newTestExecutor(backend, time.Second).Execute(context.Background(), "thread_1", "asst_1", textUnit("hi"))
			if err != nil {
				t.Fatalf("execute: %v", err)
			}

			if result.Outcome != tt.wantOutcome {
				t.Errorf("outcome = %s, want %s", result.Outcome, tt.wantOutcome)
			}
			if result.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", result.Status, tt.wantStatus)
			}
			if result.Reply != tt.wantReply {
				t.Errorf("reply = %q, want %q", result.Reply, tt.wantReply)
			}
			if result.ErrorCode != tt.wantCode {
				t.Errorf("code = %q, want %q", result.ErrorCode, tt.wantCode)
			}
			if backend.count("create_message") != 1 || backend.count("create_run") != 1 {
				t.Errorf("expected exactly one message and one run, calls: %v", backend.Calls())
			}
		})
	}
}

func TestLatestReply_TextPartsOnly(t *testing.T) {
	backend := newFakeBackend()
	backend.addMessage(models.RoleUser, models.TextPart("hi"))
	backend.addMessage(models.RoleAssistant, models.TextPart("see "), models.ImageFilePart("file_1"), models.TextPart("this【1:0†x】"))

	reply, err := newTestExecutor(backend, time.Second).latestReply(context.Background(), "thread_1")
	if err != nil {
		t.Fatal(err)
	}
	if reply != "see this" {
		t.Errorf("reply = %q, want text parts only", reply)
	}
}

func TestExecute_CompletedWithoutReadableReply(t *testing.T) {
	backend := newFakeBackend()
	backend.newRunScript = []models.RunStatus{models.RunStatusCompleted}
	backend.listMessagesErr = errors.New("list failed")

	result, err := newTestExecutor(backend, time.Second).Execute(context.Background(), "thread_1", "asst_1", textUnit("hi"))
	if err != nil {
		t.Fatal(err)
	}
	if result.Outcome != models.OutcomeCompleted || result.Reply != "" || result.ErrorMessage == "" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestExecute_Timeout(t *testing.T) {
	backend := newFakeBackend()
	backend.newRunScript = []models.RunStatus{models.RunStatusInProgress}

	result, err := newTestExecutor(backend, 30*time.Millisecond).Execute(context.Background(), "thread_1", "asst_1", textUnit("hi"))
	if err != nil {
		t.Fatalf("timeout must be an outcome, not an error: %v", err)
	}
	if result.Outcome != models.OutcomeTimeout {
		t.Fatalf("outcome = %s, want timeout", result.Outcome)
	}
	if result.Status != models.RunStatusInProgress {
		t.Errorf("status = %s, want last observed in_progress", result.Status)
	}
	if backend.count("cancel:"+result.RunID) != 1 {
		t.Errorf("timed out run was not cancelled, calls: %v", backend.Calls())
	}
}

func TestExecute_SubmissionErrors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*fakeBackend)
		wantStage string
		wantRuns  int
	}{
		{
			name:      "create message fails",
			setup:     func(b *fakeBackend) { b.createMessageErr = errors.New("network down") },
			wantStage: "create_message",
			wantRuns:  0,
		},
		{
			name:      "create run fails",
			setup:     func(b *fakeBackend) { b.createRunErr = errors.New("thread locked") },
			wantStage: "create_run",
			wantRuns:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			tt.setup(backend)

			result, err := newTestExecutor(backend, time.Second).Execute(context.Background(), "thread_1", "asst_1", textUnit("hi"))
			if result != nil {
				t.Errorf("expected no result, got %+v", result)
			}

			var subErr *domain.SubmissionError
			if !errors.As(err, &subErr) {
				t.Fatalf("expected SubmissionError, got %v", err)
			}
			if subErr.Stage != tt.wantStage {
				t.Errorf("stage = %s, want %s", subErr.Stage, tt.wantStage)
			}
			if n := backend.count("create_run"); n != tt.wantRuns {
				t.Errorf("create_run calls = %d, want %d", n, tt.wantRuns)
			}
			if n := backend.count("create_message"); n != 1 {
				t.Errorf("create_message calls = %d, want exactly 1 (no retry)", n)
			}
		})
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	backend := newFakeBackend()
	backend.newRunScript = []models.RunStatus{models.RunStatusInProgress}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newTestExecutor(backend, time.Minute).Execute(ctx, "thread_1", "asst_1", textUnit("hi"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}

func TestNewTurnExecutor_ZeroDurationsUseDefaults(t *testing.T) {
	e := NewTurnExecutor(newFakeBackend(), 0, -time.Second, testLogger())
	if e.pollInterval <= 0 || e.maxWait <= 0 {
		t.Errorf("durations not defaulted: poll=%v wait=%v", e.pollInterval, e.maxWait)
	}
}
