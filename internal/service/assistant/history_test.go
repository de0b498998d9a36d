package assistant

import (
	"context"
	"errors"
	"testing"

	models "threadkeeper/internal/domain/models/assistant"
)

func TestHistoryLoad_FlattensInOrder(t *testing.T) {
	backend := newFakeBackend()
	backend.addMessage(models.RoleUser, models.TextPart("what is "), models.ImageFilePart("file_1"), models.TextPart("?"))
	backend.addMessage(models.RoleAssistant, models.TextPart("a cat"))
	backend.addMessage(models.RoleUser, models.ImageFilePart("file_2"))

	history := NewHistoryService(backend, 20, testLogger())
	entries := history.Load(context.Background(), "thread_1")

	want := []models.Entry{
		{Role: models.RoleUser, Content: "what is " + models.ImagePlaceholder + "?"},
		{Role: models.RoleAssistant, Content: "a cat"},
		{Role: models.RoleUser, Content: models.ImagePlaceholder},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestHistoryLoad_RespectsLimit(t *testing.T) {
	backend := newFakeBackend()
	for _, text := range []string{"1", "2", "3", "4"} {
		backend.addMessage(models.RoleUser, models.TextPart(text))
	}

	entries := NewHistoryService(backend, 2, testLogger()).Load(context.Background(), "thread_1")

	if len(entries) != 2 || entries[0].Content != "3" || entries[1].Content != "4" {
		t.Errorf("expected the two newest messages oldest-first, got %+v", entries)
	}
}

func TestHistoryLoad_EmptyOnFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.addMessage(models.RoleUser, models.TextPart("hidden"))
	backend.listMessagesErr = errors.New("connection reset")

	entries := NewHistoryService(backend, 20, testLogger()).Load(context.Background(), "thread_1")

	if entries == nil {
		t.Fatal("expected an empty slice, got nil")
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %+v", entries)
	}
}

func TestHistoryLoad_EmptyThread(t *testing.T) {
	entries := NewHistoryService(newFakeBackend(), 20, testLogger()).Load(context.Background(), "thread_1")
	if entries == nil || len(entries) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", entries)
	}
}
