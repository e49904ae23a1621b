package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sajilotech/frontdesk/internal/chat"
	"github.com/sajilotech/frontdesk/internal/http/middleware"
	"github.com/sajilotech/frontdesk/internal/http/response"
	"github.com/sajilotech/frontdesk/internal/ledger"
	"github.com/sajilotech/frontdesk/internal/session"
	"github.com/sajilotech/frontdesk/pkg/logger"
)

type ChatHandler struct {
	bot       *chat.Bot
	registry  *session.Registry
	store     ledger.Store
	transport *middleware.SessionTransport
}

func NewChatHandler(bot *chat.Bot, registry *session.Registry, store ledger.Store, transport *middleware.SessionTransport) *ChatHandler {
	return &ChatHandler{
		bot:       bot,
		registry:  registry,
		store:     store,
		transport: transport,
	}
}

func (h *ChatHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) { // message and history need a live session
		pr.Use(h.transport.Middleware())
		pr.Post("/messages", h.postMessage)
		pr.Get("/history", h.history)
	})

	r.Post("/reset", h.reset)
	r.Get("/session", h.sessionInfo)

	return r
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Response string `json:"response"`
}

func (h *ChatHandler) postMessage(w http.ResponseWriter, r *http.Request) {
	var in messageRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	if in.Message == "" {
		response.BadRequest(w, "message is required")
		return
	}

	sess := middleware.SessionFrom(r)
	if sess == nil {
		response.InternalError(w, "no session")
		return
	}

	reply := h.bot.Process(r.Context(), sess, in.Message)
	writeJSON(w, http.StatusOK, messageResponse{Response: reply})
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r)
	if sess == nil {
		response.InternalError(w, "no session")
		return
	}

	turns, err := h.store.History(r.Context(), sess.Key)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load history", "session_id", sess.Key, "error", err)
		response.InternalError(w, "could not load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": turns})
}

// reset always hands out a fresh session identity, regardless of whether
// the presented one was still alive.
func (h *ChatHandler) reset(w http.ResponseWriter, r *http.Request) {
	if key, ok := h.transport.ResolveKey(r); ok {
		h.registry.EndSession(r.Context(), key)
	}

	sess, _, err := h.registry.GetOrCreate(r.Context(), "", r.UserAgent(), r.RemoteAddr)
	if err != nil {
		response.InternalError(w, "could not create session")
		return
	}
	if err := h.transport.IssueCookie(w, sess.Key); err != nil {
		logger.ErrorContext(r.Context(), "failed to issue session cookie", "error", err)
		response.InternalError(w, "could not issue session")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Response: "Your session has been reset. How can I help you today?"})
}

func (h *ChatHandler) sessionInfo(w http.ResponseWriter, r *http.Request) {
	key, ok := h.transport.ResolveKey(r)
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"active": false, "collecting": false})
		return
	}

	sess := h.registry.Get(key)
	if sess == nil || h.registry.IsExpired(key) {
		writeJSON(w, http.StatusOK, map[string]any{"active": false, "collecting": false})
		return
	}

	sess.Lock()
	collecting := sess.Collector.Collecting()
	sess.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"active": true, "collecting": collecting})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
