package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"threadkeeper/internal/domain"
)

type stubBindings map[string]string

func (b stubBindings) Get(_ context.Context, key string) (string, error) {
	if key == "broken" {
		return "", errors.New("database unavailable")
	}
	if id, ok := b[key]; ok {
		return id, nil
	}
	return "", fmt.Errorf("binding %s: %w", key, domain.ErrNotFound)
}

func (b stubBindings) Put(_ context.Context, key, threadID string) error {
	b[key] = threadID
	return nil
}

func testManager(bindings stubBindings) *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if bindings == nil {
		return NewManager("thread_default", "asst_1", nil, logger)
	}
	return NewManager("thread_default", "asst_1", bindings, logger)
}

func TestManager_GetOrCreate(t *testing.T) {
	m := testManager(stubBindings{"bound": "thread_bound"})
	ctx := context.Background()

	tests := []struct {
		id         string
		wantThread string
	}{
		{"bound", "thread_bound"},
		{"fresh", "thread_default"},
		{"broken", "thread_default"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			s := m.GetOrCreate(ctx, tt.id)
			if s.ThreadID() != tt.wantThread {
				t.Errorf("thread = %s, want %s", s.ThreadID(), tt.wantThread)
			}
			if s.AssistantID() != "asst_1" {
				t.Errorf("assistant = %s", s.AssistantID())
			}
		})
	}

	if a, b := m.GetOrCreate(ctx, "fresh"), m.GetOrCreate(ctx, "fresh"); a != b {
		t.Error("same id should return the same session")
	}
	if m.Count() != 3 {
		t.Errorf("count = %d, want 3", m.Count())
	}

	m.Remove("fresh")
	if m.Count() != 2 {
		t.Errorf("count after remove = %d, want 2", m.Count())
	}
}

func TestManager_NilBindings(t *testing.T) {
	m := testManager(nil)
	if got := m.GetOrCreate(context.Background(), "x").ThreadID(); got != "thread_default" {
		t.Errorf("thread = %s", got)
	}
}

func TestManager_Sweep(t *testing.T) {
	m := testManager(nil)
	ctx := context.Background()

	idle := m.GetOrCreate(ctx, "idle")
	active := m.GetOrCreate(ctx, "active")

	now := time.Now()
	idle.touch(now.Add(-InactivityTimeout - time.Minute))
	active.touch(now)

	if n := m.Sweep(now); n != 1 {
		t.Errorf("swept %d sessions, want 1", n)
	}
	if m.Count() != 1 {
		t.Errorf("count = %d, want 1", m.Count())
	}
}

func TestManager_EvictsLeastRecentlyUsed(t *testing.T) {
	m := testManager(nil)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < MaxSessions; i++ {
		s := m.GetOrCreate(ctx, fmt.Sprintf("s%d", i))
		s.touch(base.Add(time.Duration(i) * time.Second))
	}

	m.GetOrCreate(ctx, "newcomer")

	if m.Count() != MaxSessions {
		t.Errorf("count = %d, want %d", m.Count(), MaxSessions)
	}
	m.mu.Lock()
	_, oldestKept := m.sessions["s0"]
	m.mu.Unlock()
	if oldestKept {
		t.Error("least recently used session was not evicted")
	}
}
