package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dbhatt90/StudyBotAgent/session"
)

// inboundEvent is the wire frame for every client request.
type inboundEvent struct {
	Event string      `json:"event"`
	Data  inboundData `json:"data"`
}

type inboundData struct {
	SessionID     string            `json:"session_id"`
	Message       string            `json:"message"`
	InitialFields map[string]string `json:"initial_fields,omitempty"`
}

// Handler runs the websocket endpoint: one read loop per connection, events
// routed to the session registry, pushes fanned out through the hub.
type Handler struct {
	registry *session.Registry
	hub      *Hub
}

func NewHandler(registry *session.Registry, hub *Hub) *Handler {
	return &Handler{registry: registry, hub: hub}
}

// Router assembles the HTTP surface.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/ws", h.ServeHTTP)
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept failed", "error", err)
		return
	}
	defer func() {
		h.hub.Unsubscribe(conn)
		_ = conn.Close(websocket.StatusNormalClosure, "session ended")
	}()

	slog.Info("websocket connected", "remote", r.RemoteAddr)
	h.readLoop(r, conn)
	slog.Info("websocket disconnected", "remote", r.RemoteAddr)
}

func (h *Handler) readLoop(r *http.Request, conn *websocket.Conn) {
	ctx := r.Context()
	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				slog.Warn("websocket read error", "error", err)
			}
			return
		}

		var ev inboundEvent
		if err := sonic.Unmarshal(frame, &ev); err != nil {
			h.sendError(conn, "invalid event frame")
			continue
		}

		switch ev.Event {
		case "join":
			h.handleJoin(r, conn, ev.Data)
		case "message":
			h.handleMessage(r, conn, ev.Data)
		case "status":
			h.handleStatus(conn, ev.Data)
		case "reset":
			h.handleReset(r, conn, ev.Data)
		default:
			h.sendError(conn, fmt.Sprintf("unknown event %q", ev.Event))
		}
	}
}

func (h *Handler) handleJoin(r *http.Request, conn *websocket.Conn, data inboundData) {
	sessionID := data.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := h.registry.Join(r.Context(), sessionID, data.InitialFields)
	if err != nil {
		slog.Error("join failed", "session_id", sessionID, "error", err)
		h.sendError(conn, "failed to join session")
		return
	}

	h.hub.Subscribe(sessionID, conn)

	// History travels only in the join reply; regular turns stay light.
	h.hub.Send(conn, "joined", map[string]any{
		"session_id":           result.SessionID,
		"is_new_session":       result.IsNew,
		"status":               result.Status,
		"conversation_history": result.History,
	})

	if !result.IsNew {
		h.hub.Send(conn, "status", map[string]any{
			"session_id": result.SessionID,
			"message":    fmt.Sprintf("Session restored (%.1f%% complete)", result.Status.ProgressPct),
			"status":     result.Status,
		})
	}
}

func (h *Handler) handleMessage(r *http.Request, conn *websocket.Conn, data inboundData) {
	if data.SessionID == "" {
		h.sendError(conn, "missing session id")
		return
	}
	if strings.TrimSpace(data.Message) == "" {
		h.sendError(conn, "empty message")
		return
	}

	h.hub.Broadcast(data.SessionID, "user_message", map[string]string{
		"session_id": data.SessionID,
		"message":    data.Message,
	})

	resp, err := h.registry.HandleMessage(r.Context(), data.SessionID, data.Message)
	if err != nil {
		slog.Error("message handling failed", "session_id", data.SessionID, "error", err)
		h.sendError(conn, err.Error())
		return
	}

	h.hub.Broadcast(data.SessionID, "agent_response", resp)
}

func (h *Handler) handleStatus(conn *websocket.Conn, data inboundData) {
	status, err := h.registry.Status(data.SessionID)
	if err != nil {
		h.sendError(conn, err.Error())
		return
	}
	h.hub.Send(conn, "status", status)
}

func (h *Handler) handleReset(r *http.Request, conn *websocket.Conn, data inboundData) {
	if data.SessionID == "" {
		h.sendError(conn, "missing session id")
		return
	}
	if err := h.registry.Reset(r.Context(), data.SessionID); err != nil {
		slog.Error("reset failed", "session_id", data.SessionID, "error", err)
		h.sendError(conn, "failed to reset session")
		return
	}
	h.hub.Broadcast(data.SessionID, "reset", map[string]string{"session_id": data.SessionID})
}

func (h *Handler) sendError(conn *websocket.Conn, message string) {
	h.hub.Send(conn, "error", map[string]string{"message": message})
}
