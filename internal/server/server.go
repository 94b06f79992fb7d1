package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"librarydesk/internal/ratelimit"
	"librarydesk/internal/util"
	"librarydesk/pkg/agent"
	"librarydesk/pkg/ai"
	"librarydesk/pkg/domain"
	"librarydesk/pkg/store"
)

const fallbackReply = "Sorry, I could not process your request."

// Config wires required dependencies for the HTTP server.
type Config struct {
	Store        store.Store
	Agent        *agent.Agent
	Limiter      *ratelimit.FixedWindowLimiter
	Trusted      *util.TrustedProxies
	HistoryLimit int
}

// Server exposes the session and chat endpoints.
type Server struct {
	store        store.Store
	agent        *agent.Agent
	limiter      *ratelimit.FixedWindowLimiter
	trusted      *util.TrustedProxies
	historyLimit int
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		store:        cfg.Store,
		agent:        cfg.Agent,
		limiter:      cfg.Limiter,
		trusted:      cfg.Trusted,
		historyLimit: cfg.HistoryLimit,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/sessions", s.handleSessions)
	s.mux.HandleFunc("/api/sessions/", s.handleSessionByID)
	s.mux.HandleFunc("/api/chat", s.handleChat)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createSession(w, r)
	case http.MethodGet:
		s.listSessions(w)
	default:
		methodNotAllowed(w)
	}
}

// createSession mints an opaque token and materializes the session through a
// system marker row.
func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	sessionID := uuid.NewString()
	marker := domain.Message{
		ID:        util.NewID(),
		SessionID: sessionID,
		Role:      domain.RoleSystem,
		Content:   "New session started",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(marker); err != nil {
		slog.Error("create session", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	slog.Info("session created", "session_id", sessionID)
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": sessionID})
}

func (s *Server) listSessions(w http.ResponseWriter) {
	sessions, err := s.store.ListSessions()
	if err != nil {
		slog.Error("list sessions", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

// handleSessionByID serves /api/sessions/{id}/messages and session deletion.
func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if suffix, ok := strings.CutSuffix(path, "/messages"); ok {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.listMessages(w, suffix)
		return
	}
	if strings.Contains(path, "/") || path == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.store.DeleteSession(path); err != nil {
		slog.Error("delete session", "err", err, "session_id", path)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listMessages(w http.ResponseWriter, sessionID string) {
	if sessionID == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	msgs, err := s.store.ListMessages(sessionID)
	if err != nil {
		slog.Error("list messages", "err", err, "session_id", sessionID)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Content     string           `json:"content"`
	ToolCalls   []agent.ToolCall `json:"toolCalls"`
	ToolResults []any            `json:"toolResults"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.limiter != nil && !s.limiter.Allow(util.ClientIP(r, s.trusted)) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "sessionId and message are required")
		return
	}

	prior, err := s.store.ListMessages(req.SessionID)
	if err != nil {
		slog.Error("load history", "err", err, "session_id", req.SessionID)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if s.historyLimit > 0 && len(prior) > s.historyLimit {
		prior = prior[len(prior)-s.historyLimit:]
	}

	// The user message commits before the model call, independent of
	// assistant success.
	now := time.Now().UTC()
	if err := s.store.AppendMessage(domain.Message{
		ID:        util.NewID(),
		SessionID: req.SessionID,
		Role:      domain.RoleUser,
		Content:   req.Message,
		CreatedAt: now,
	}); err != nil {
		slog.Error("save user message", "err", err, "session_id", req.SessionID)
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	history := make([]ai.Message, 0, len(prior))
	for _, msg := range prior {
		history = append(history, ai.Message{Role: string(msg.Role), Content: msg.Content})
	}

	result, err := s.agent.ProcessTurn(r.Context(), history, req.Message)
	if err != nil {
		slog.Error("agent run failed", "err", err, "session_id", req.SessionID)
		msg := classifyRunError(err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg, "content": msg})
		return
	}

	content := result.Content
	if strings.TrimSpace(content) == "" {
		content = fallbackReply
	}
	if err := s.store.AppendMessage(domain.Message{
		ID:        util.NewID(),
		SessionID: req.SessionID,
		Role:      domain.RoleAssistant,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		slog.Error("save assistant message", "err", err, "session_id", req.SessionID)
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}
	s.auditToolCalls(req.SessionID, result)

	writeJSON(w, http.StatusOK, chatResponse{
		Content:     content,
		ToolCalls:   result.ToolCalls,
		ToolResults: result.ToolResults,
	})
}

// auditToolCalls persists one record per tool invocation. Audit failures are
// logged, not surfaced: the reply already exists.
func (s *Server) auditToolCalls(sessionID string, result agent.TurnResult) {
	for i, call := range result.ToolCalls {
		argsJSON, err := json.Marshal(call.Args)
		if err != nil {
			slog.Error("encode tool args", "err", err, "tool", call.Name)
			continue
		}
		var resultJSON []byte
		if i < len(result.ToolResults) {
			resultJSON, err = json.Marshal(result.ToolResults[i])
			if err != nil {
				slog.Error("encode tool result", "err", err, "tool", call.Name)
				continue
			}
		}
		if err := s.store.AppendToolCall(domain.ToolCallRecord{
			ID:        util.NewID(),
			SessionID: sessionID,
			Name:      call.Name,
			Args:      argsJSON,
			Result:    resultJSON,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			slog.Error("save tool call", "err", err, "tool", call.Name)
		}
	}
}

// classifyRunError maps a fatal run error onto one of three user-facing
// categories. Wording only; no control flow depends on this.
func classifyRunError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "ollama"):
		return "Cannot connect to the language model. Make sure Ollama is running."
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "config"):
		return "The assistant is misconfigured. Check the server configuration."
	default:
		return "An unexpected error occurred."
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
