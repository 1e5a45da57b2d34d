package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"botmesero-backend/internal/config"
	"botmesero-backend/internal/dialogue"
	"botmesero-backend/internal/logging"
	"botmesero-backend/internal/models"
	"botmesero-backend/internal/types"
)

type EventHandler interface {
	Handle(ctx context.Context, ev dialogue.Event, r dialogue.Renderer) error
}

// HistoryStore is the conversation state shared with the dialogue. The
// server only reaches chats in the web namespace.
type HistoryStore interface {
	History(ctx context.Context, chatID string) ([]models.Turn, error)
	Clear(ctx context.Context, chatID string) error
}

// HealthChecker is satisfied by *db.DB. A nil checker means the bot runs on
// the in-memory menu.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server exposes the dialogue as a JSON API so web clients and tests can
// drive the same flows as Telegram.
type Server struct {
	router  *chi.Mux
	handler EventHandler
	history HistoryStore
	health  HealthChecker
	log     *slog.Logger
}

func NewServer(cfg config.Config, handler EventHandler, history HistoryStore, health HealthChecker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(logging.Middleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Chat-Id"},
		ExposedHeaders:   []string{"X-Chat-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:  r,
		handler: handler,
		history: history,
		health:  health,
		log:     logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/events", s.handleEvent)
	s.router.Get("/api/chats/{chatID}/history", s.handleHistory)
	s.router.Delete("/api/chats/{chatID}/history", s.handleClearHistory)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{Status: "ok", Database: "disabled"}
	code := http.StatusOK
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.HealthCheck(ctx); err != nil {
			s.log.Warn("database health check failed", "error", err)
			resp = types.HealthResponse{Status: "degraded", Database: "unreachable"}
			code = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	s.writeJSON(w, code, resp)
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req types.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ev := dialogue.Event{
		ID:       uuid.NewString(),
		Kind:     dialogue.EventKind(strings.ToLower(strings.TrimSpace(req.Type))),
		UserName: req.FirstName,
		Data:     req.Data,
		Text:     req.Text,
	}
	switch ev.Kind {
	case dialogue.EventStart:
	case dialogue.EventButton:
		if strings.TrimSpace(ev.Data) == "" {
			s.writeError(w, http.StatusBadRequest, "data is required for button events")
			return
		}
	case dialogue.EventText:
		if strings.TrimSpace(ev.Text) == "" {
			s.writeError(w, http.StatusBadRequest, "text is required")
			return
		}
	default:
		s.writeError(w, http.StatusBadRequest, "type must be one of start, button, text")
		return
	}

	chatID, ok := resolveChatID(w, r, req.ChatID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "chat id must start with "+webChatPrefix)
		return
	}
	ev.ChatID = chatID
	w.Header().Set("X-Chat-Id", ev.ChatID)

	rec := dialogue.NewRecorder(ev.Kind == dialogue.EventButton)
	if err := s.handler.Handle(r.Context(), ev, rec); err != nil {
		s.log.Error("failed to handle event", "event_id", ev.ID, "chat_id", ev.ChatID, "kind", string(ev.Kind), "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to handle event")
		return
	}

	renders := rec.Renders()
	if renders == nil {
		renders = []dialogue.Render{}
	}
	s.writeJSON(w, http.StatusOK, types.EventResponse{ChatID: ev.ChatID, EventID: ev.ID, Renders: renders})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	chatID, ok := ownChatID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	turns, err := s.history.History(r.Context(), chatID)
	if err != nil {
		s.log.Error("failed to read history", "chat_id", chatID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	s.writeJSON(w, http.StatusOK, types.HistoryResponse{ChatID: chatID, Turns: turns})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	chatID, ok := ownChatID(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	if err := s.history.Clear(r.Context(), chatID); err != nil {
		s.log.Error("failed to clear history", "chat_id", chatID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	s.log.Info("history cleared", "chat_id", chatID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

const webChatPrefix = "web_"

func isWebChatID(id string) bool {
	return strings.HasPrefix(id, webChatPrefix) && len(id) > len(webChatPrefix)
}

func newChatID() string {
	return webChatPrefix + uuid.NewString()
}

// resolveChatID picks the chat for an event from the body, the chat cookie or
// the X-Chat-Id header, and starts a new web chat when none is given. Ids
// outside the web namespace belong to Telegram and are refused.
func resolveChatID(w http.ResponseWriter, r *http.Request, bodyID string) (string, bool) {
	if id := strings.TrimSpace(bodyID); id != "" {
		return id, isWebChatID(id)
	}
	if id, err := GetChatCookie(r); err == nil && isWebChatID(id) {
		return id, true
	}
	if id := strings.TrimSpace(r.Header.Get("X-Chat-Id")); id != "" {
		return id, isWebChatID(id)
	}
	id := newChatID()
	SetChatCookie(w, r, id)
	return id, true
}

// ownChatID returns the {chatID} path parameter when it names the caller's
// own web chat, as carried by the chat cookie or the X-Chat-Id header.
func ownChatID(r *http.Request) (string, bool) {
	chatID := chi.URLParam(r, "chatID")
	if !isWebChatID(chatID) {
		return "", false
	}
	if id, err := GetChatCookie(r); err == nil && id == chatID {
		return chatID, true
	}
	return chatID, strings.TrimSpace(r.Header.Get("X-Chat-Id")) == chatID
}
