package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"botmesero-backend/internal/catalog"
	"botmesero-backend/internal/config"
	"botmesero-backend/internal/dialogue"
	"botmesero-backend/internal/logging"
	"botmesero-backend/internal/models"
	"botmesero-backend/internal/store"
	"botmesero-backend/internal/types"
)

type stubCompleter struct {
	calls int
	err   error
}

func (s *stubCompleter) Complete(context.Context, []models.Turn) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "Tenemos flan de postre.", nil
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context) error { return s.err }

type failingHandler struct{}

func (failingHandler) Handle(context.Context, dialogue.Event, dialogue.Renderer) error {
	return errors.New("database is down")
}

type setup struct {
	srv     *Server
	llm     *stubCompleter
	history *store.MemoryHistory
}

func newSetup(t *testing.T, health HealthChecker) setup {
	t.Helper()
	menu, err := store.NewMemoryMenu(store.MenuFixture{
		Categories: []models.Category{{ID: 1, Name: "Postres", Slug: "postres"}},
		Products:   []models.Product{{ID: 5, Name: "Flan", Price: decimal.RequireFromString("2.5"), CategoryID: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	cat := catalog.New(map[string]string{
		"greeting_message":        "{greeting} {user_first_name}",
		"menu_message":            "¿Qué deseas?",
		"other_questions_message": "Preguntas:",
	}, []string{"Eres un mesero."})
	llm := &stubCompleter{}
	history := store.NewMemoryHistory(0, 0)
	ctrl := dialogue.NewController(cat, menu, history, llm, dialogue.Options{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) },
		Logger:   logging.Discard(),
	})
	srv := NewServer(config.Config{AllowedOrigin: "*"}, ctrl, history, health, logging.Discard())
	return setup{srv: srv, llm: llm, history: history}
}

func postEvent(t *testing.T, h http.Handler, req types.EventRequest, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	payload, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeEvent(t *testing.T, w *httptest.ResponseRecorder) types.EventResponse {
	t.Helper()
	var resp types.EventResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthChecker
		wantCode   int
		wantStatus string
		wantDB     string
	}{
		{"no database", nil, http.StatusOK, "ok", "disabled"},
		{"healthy", stubHealth{}, http.StatusOK, "ok", "ok"},
		{"unreachable", stubHealth{err: errors.New("timeout")}, http.StatusServiceUnavailable, "degraded", "unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSetup(t, tt.health)
			w := httptest.NewRecorder()
			s.srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, w.Code)
			}
			var resp types.HealthResponse
			_ = json.NewDecoder(w.Body).Decode(&resp)
			if resp.Status != tt.wantStatus || resp.Database != tt.wantDB {
				t.Fatalf("unexpected body %+v", resp)
			}
		})
	}
}

func TestStartEventCreatesWebChat(t *testing.T) {
	s := newSetup(t, nil)
	w := postEvent(t, s.srv.Router(), types.EventRequest{FirstName: "Ana", Type: "start"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeEvent(t, w)
	if !strings.HasPrefix(resp.ChatID, "web_") || w.Header().Get("X-Chat-Id") != resp.ChatID {
		t.Fatalf("unexpected chat id %q", resp.ChatID)
	}
	if len(resp.Renders) != 2 || resp.Renders[0].Text != "Buenas noches Ana" || !resp.Renders[0].Markdown {
		t.Fatalf("unexpected renders %+v", resp.Renders)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != resp.ChatID {
		t.Fatal("expected chat cookie")
	}

	w = postEvent(t, s.srv.Router(), types.EventRequest{Type: "button", Data: "menu"}, cookie)
	resp2 := decodeEvent(t, w)
	if resp2.ChatID != resp.ChatID {
		t.Fatalf("cookie chat id not reused: %q vs %q", resp2.ChatID, resp.ChatID)
	}
	if len(resp2.Renders) != 1 || !resp2.Renders[0].Edit || resp2.Renders[0].Keyboard[0][0].Data != "category_1" {
		t.Fatalf("unexpected category render %+v", resp2.Renders)
	}
}

func chatCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("expected chat cookie")
	return nil
}

func doHistory(h http.Handler, method, chatID string, cookie *http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, "/api/chats/"+chatID+"/history", nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestTextEventAndHistory(t *testing.T) {
	s := newSetup(t, nil)
	h := s.srv.Router()

	w := postEvent(t, h, types.EventRequest{Type: "text", Text: "¿hay postres?"})
	resp := decodeEvent(t, w)
	if len(resp.Renders) != 1 || resp.Renders[0].Text != "Tenemos flan de postre." {
		t.Fatalf("unexpected renders %+v", resp.Renders)
	}
	cookie := chatCookie(t, w)

	w = postEvent(t, h, types.EventRequest{Type: "text", Text: "muéstrame el menú"}, cookie)
	resp = decodeEvent(t, w)
	if resp.Renders[0].Text != dialogue.SelectCategoryMessage || s.llm.calls != 1 {
		t.Fatalf("menu keyword should bypass completion, calls=%d renders=%+v", s.llm.calls, resp.Renders)
	}

	rec := doHistory(h, http.MethodGet, cookie.Value, cookie)
	var hist types.HistoryResponse
	if err := json.NewDecoder(rec.Body).Decode(&hist); err != nil {
		t.Fatal(err)
	}
	if len(hist.Turns) != 2 || hist.Turns[0].Role != models.RoleUser || hist.Turns[1].Role != models.RoleAssistant {
		t.Fatalf("unexpected history %+v", hist.Turns)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/chats/"+cookie.Value+"/history", nil)
	r.Header.Set("X-Chat-Id", cookie.Value)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("X-Chat-Id should identify the caller, got %d", rec.Code)
	}
}

func TestHistoryIsScopedToCallersWebChat(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, nil)
	h := s.srv.Router()

	if err := s.history.Append(ctx, "123456789", models.Turn{Role: models.RoleUser, Content: "mi dirección es Calle 5 #12"}); err != nil {
		t.Fatal(err)
	}
	own := chatCookie(t, postEvent(t, h, types.EventRequest{Type: "start"}))
	other := chatCookie(t, postEvent(t, h, types.EventRequest{Type: "text", Text: "hola"}))

	tests := []struct {
		name   string
		chatID string
		cookie *http.Cookie
	}{
		{"telegram chat without cookie", "123456789", nil},
		{"telegram chat with web cookie", "123456789", own},
		{"another web chat", other.Value, own},
		{"web chat without cookie", other.Value, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, method := range []string{http.MethodGet, http.MethodDelete} {
				if w := doHistory(h, method, tt.chatID, tt.cookie); w.Code != http.StatusNotFound {
					t.Fatalf("%s: expected 404, got %d: %s", method, w.Code, w.Body.String())
				}
			}
		})
	}

	if turns, _ := s.history.History(ctx, "123456789"); len(turns) != 1 {
		t.Fatalf("telegram chat must be untouched, got %+v", turns)
	}
	if turns, _ := s.history.History(ctx, other.Value); len(turns) != 2 {
		t.Fatalf("other web chat must be untouched, got %+v", turns)
	}
}

func TestEventsRejectNonWebChatIDs(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, nil)
	h := s.srv.Router()

	w := postEvent(t, h, types.EventRequest{ChatID: "123456789", Type: "text", Text: "hola"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for body chat id, got %d", w.Code)
	}

	payload, _ := json.Marshal(types.EventRequest{Type: "text", Text: "hola"})
	r := httptest.NewRequest(http.MethodPost, "/api/events", bytes.NewReader(payload))
	r.Header.Set("X-Chat-Id", "123456789")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for header chat id, got %d", w.Code)
	}

	if s.llm.calls != 0 {
		t.Fatalf("completion must not run, calls=%d", s.llm.calls)
	}
	if turns, _ := s.history.History(ctx, "123456789"); len(turns) != 0 {
		t.Fatalf("expected no turns, got %+v", turns)
	}

	forged := &http.Cookie{Name: CookieName, Value: "123456789"}
	w = postEvent(t, h, types.EventRequest{Type: "start"}, forged)
	if resp := decodeEvent(t, w); !strings.HasPrefix(resp.ChatID, "web_") {
		t.Fatalf("non-web cookie should start a new web chat, got %q", resp.ChatID)
	}
}

func TestClearHistory(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, nil)
	h := s.srv.Router()

	cookie := chatCookie(t, postEvent(t, h, types.EventRequest{Type: "text", Text: "hola"}))
	if w := doHistory(h, http.MethodDelete, cookie.Value, cookie); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if turns, _ := s.history.History(ctx, cookie.Value); len(turns) != 0 {
		t.Fatalf("expected empty history, got %+v", turns)
	}
}

func TestEventValidation(t *testing.T) {
	s := newSetup(t, nil)
	tests := []types.EventRequest{
		{Type: "sticker"},
		{Type: "button"},
		{Type: "text", Text: "   "},
	}
	for _, req := range tests {
		w := postEvent(t, s.srv.Router(), req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%+v: expected 400, got %d", req, w.Code)
		}
	}

	r := httptest.NewRequest(http.MethodPost, "/api/events", strings.NewReader("{"))
	w := httptest.NewRecorder()
	s.srv.Router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", w.Code)
	}
}

func TestHandlerFailureReturns500(t *testing.T) {
	srv := NewServer(config.Config{AllowedOrigin: "*"}, failingHandler{}, store.NewMemoryHistory(0, 0), nil, logging.Discard())
	w := postEvent(t, srv.Router(), types.EventRequest{ChatID: "web_1", Type: "button", Data: "menu"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
