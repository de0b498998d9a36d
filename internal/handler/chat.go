package handler

import (
	"log/slog"
	"net/http"

	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
	"threadkeeper/internal/httputil"
	"threadkeeper/internal/session"
)

// ChatHandler serves the conversation endpoints of the caller's session.
type ChatHandler struct {
	chatService svc.ChatService
	sessions    *session.Manager
	logger      *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService svc.ChatService, sessions *session.Manager, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		sessions:    sessions,
		logger:      logger,
	}
}

// SessionResponse describes the caller's session.
type SessionResponse struct {
	SessionID     string       `json:"session_id"`
	ThreadID      string       `json:"thread_id"`
	AssistantID   string       `json:"assistant_id"`
	Synced        bool         `json:"synced"`
	CachedEntries int          `json:"cached_entries"`
	LiveRuns      []models.Run `json:"live_runs"`
	Blocked       bool         `json:"blocked"`
	// LiveRunsError is set when the run listing failed; LiveRuns is then unknown.
	LiveRunsError string `json:"live_runs_error,omitempty"`
}

// HistoryResponse is the session's local conversation cache.
type HistoryResponse struct {
	ThreadID string         `json:"thread_id"`
	Entries  []models.Entry `json:"entries"`
}

// GetSession returns session info and the runs that would block the next turn
// GET /api/session
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)

	resp := SessionResponse{
		SessionID:     sess.ID(),
		ThreadID:      sess.ThreadID(),
		AssistantID:   sess.AssistantID(),
		Synced:        sess.Synced(),
		CachedEntries: sess.Cache().Len(),
		LiveRuns:      []models.Run{},
	}

	live, err := h.chatService.LiveRuns(r.Context(), sess)
	if err != nil {
		h.logger.Warn("live run listing failed", "session_id", sess.ID(), "error", err)
		resp.LiveRunsError = err.Error()
	} else if len(live) > 0 {
		resp.LiveRuns = live
		resp.Blocked = true
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// GetHistory returns the cached conversation, loading it on first use
// GET /api/history
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	entries := h.chatService.History(r.Context(), sess)

	httputil.RespondJSON(w, http.StatusOK, HistoryResponse{
		ThreadID: sess.ThreadID(),
		Entries:  entries,
	})
}

// RefreshHistory discards the cache and reloads it from the backend
// POST /api/history/refresh
func (h *ChatHandler) RefreshHistory(w http.ResponseWriter, r *http.Request) {
	sess := h.session(r)
	entries := h.chatService.Refresh(r.Context(), sess)

	httputil.RespondJSON(w, http.StatusOK, HistoryResponse{
		ThreadID: sess.ThreadID(),
		Entries:  entries,
	})
}

// SendTurn submits one user turn and waits for the assistant
// POST /api/turns
// Run failures and timeouts are 200 responses; the outcome field tells them apart.
func (h *ChatHandler) SendTurn(w http.ResponseWriter, r *http.Request) {
	var req svc.SendTurnRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess := h.session(r)
	resp, err := h.chatService.SendTurn(r.Context(), sess, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}

// Unblock cancels the thread's live runs
// POST /api/runs/unblock
func (h *ChatHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	report, err := h.chatService.Unblock(r.Context(), h.session(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, report)
}

// ResetThread starts a new conversation for the session
// POST /api/thread/reset
func (h *ChatHandler) ResetThread(w http.ResponseWriter, r *http.Request) {
	thread, err := h.chatService.Reset(r.Context(), h.session(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, thread)
}

func (h *ChatHandler) session(r *http.Request) *session.Session {
	return h.sessions.GetOrCreate(r.Context(), httputil.GetSessionID(r))
}
