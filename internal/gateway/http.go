package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rahul/gridmind/internal/plan"
)

// HTTPGateway exposes the copilot to the sidebar frontend.
type HTTPGateway struct {
	Addr    string
	Service *Service
	server  *http.Server
}

func NewHTTPGateway(addr string, service *Service) *HTTPGateway {
	return &HTTPGateway{
		Addr:    addr,
		Service: service,
	}
}

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type stepView struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Result      string `json:"result,omitempty"`
}

type chatResponse struct {
	MessageID      string     `json:"messageId"`
	ConversationID string     `json:"conversationId"`
	Content        string     `json:"content"`
	Steps          []stepView `json:"steps,omitempty"`
	Undoable       bool       `json:"undoable"`
}

func (hg *HTTPGateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", hg.handleChat)
	mux.HandleFunc("POST /api/ask", hg.handleAsk)
	mux.HandleFunc("GET /api/messages/{id}/steps", hg.handleSteps)
	mux.HandleFunc("POST /api/messages/{id}/undo", hg.handleUndo)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (hg *HTTPGateway) Start() error {
	hg.server = &http.Server{
		Addr:         hg.Addr,
		Handler:      hg.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // plans can run long
	}
	log.Printf("HTTP gateway listening on %s", hg.Addr)
	if err := hg.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (hg *HTTPGateway) Send(chatID string, text string) error {
	// HTTP is request/response; there is no push channel.
	return nil
}

func (hg *HTTPGateway) Stop() error {
	if hg.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return hg.server.Shutdown(ctx)
}

func (hg *HTTPGateway) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	convID, ok := parseConversationID(w, req.ConversationID)
	if !ok {
		return
	}

	m, err := hg.Service.HandleChat(r.Context(), convID, "http", req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messageView(m))
}

func (hg *HTTPGateway) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	convID, ok := parseConversationID(w, req.ConversationID)
	if !ok {
		return
	}

	answer, err := hg.Service.HandleAsk(r.Context(), convID, "http", req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conversationId": convID.String(),
		"content":        answer,
	})
}

func (hg *HTTPGateway) handleSteps(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	m, err := hg.Service.Store.GetMessage(messageID)
	if err != nil {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messageId": m.ID.String(),
		"steps":     stepViews(m),
	})
}

func (hg *HTTPGateway) handleUndo(w http.ResponseWriter, r *http.Request) {
	messageID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}

	result, err := hg.Service.HandleUndoMessage(r.Context(), messageID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"result": result})
	case errors.Is(err, ErrNothingToUndo):
		writeError(w, http.StatusNotFound, "message not found")
	case errors.Is(err, plan.ErrAlreadyUndone):
		writeError(w, http.StatusConflict, "plan was already undone")
	case errors.Is(err, plan.ErrUndoUnavailable):
		writeError(w, http.StatusConflict, "plan completed no steps")
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func parseConversationID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	if raw == "" {
		return uuid.New(), true
	}
	convID, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conversationId")
		return uuid.Nil, false
	}
	return convID, true
}

func messageView(m *plan.Message) chatResponse {
	return chatResponse{
		MessageID:      m.ID.String(),
		ConversationID: m.ConversationID.String(),
		Content:        m.Content,
		Steps:          stepViews(m),
		Undoable:       m.Undo != nil && !m.Undo.Empty() && !m.Undone(),
	}
}

func stepViews(m *plan.Message) []stepView {
	if m.Plan == nil {
		return nil
	}
	steps := m.Plan.Snapshot()
	out := make([]stepView, 0, len(steps))
	for _, s := range steps {
		out = append(out, stepView{
			Step:        s.Index,
			Description: s.Description,
			Status:      string(s.Status),
			Result:      s.Result,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
