// Package server exposes the agent over a websocket event channel.
package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/coder/websocket"

	"github.com/dbhatt90/StudyBotAgent/types"
)

// Envelope is the wire frame for every outbound event.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub fans session events out to every connection subscribed to that session.
// It implements the dispatcher's Emitter so agent-side pushes and
// handler-side replies share one channel.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

// Subscribe registers conn for sessionID's events.
func (h *Hub) Subscribe(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.conns[sessionID]
	if !ok {
		set = make(map[*websocket.Conn]struct{})
		h.conns[sessionID] = set
	}
	set[conn] = struct{}{}
}

// Unsubscribe removes conn from every session it watched.
func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID, set := range h.conns {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, sessionID)
		}
	}
}

// Emit pushes one agent-side UI message to the session's subscribers.
func (h *Hub) Emit(sessionID string, msg *types.UIMessage) {
	h.Broadcast(sessionID, "agent_message", msg)
}

// Broadcast sends an event to every subscriber of sessionID. Send failures
// drop the connection from the session; the read loop notices the close.
func (h *Hub) Broadcast(sessionID, event string, data any) {
	frame, err := sonic.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		slog.Warn("marshal event failed", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(h.conns[sessionID]))
	for conn := range h.conns[sessionID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Write(context.Background(), websocket.MessageText, frame); err != nil {
			slog.Debug("websocket write failed", "session_id", sessionID, "error", err)
		}
	}
}

// Send writes one event to a single connection.
func (h *Hub) Send(conn *websocket.Conn, event string, data any) {
	frame, err := sonic.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		slog.Warn("marshal event failed", "event", event, "error", err)
		return
	}
	if err := conn.Write(context.Background(), websocket.MessageText, frame); err != nil {
		slog.Debug("websocket write failed", "event", event, "error", err)
	}
}
