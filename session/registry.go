package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dbhatt90/StudyBotAgent/dispatch"
	"github.com/dbhatt90/StudyBotAgent/types"
)

// JoinResult is what a client learns when it joins a session.
type JoinResult struct {
	SessionID string
	IsNew     bool
	Status    *Status
	History   []types.ConversationEntry
}

// Registry is the concurrency-safe session table. Orchestrators are created
// on first join and kept in memory until Reset; rejoining an evicted session
// rebuilds it from its checkpoint.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Orchestrator
	deps     Deps
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		sessions: make(map[string]*Orchestrator),
		deps:     deps,
	}
}

// Join returns the session for id, creating or restoring it as needed.
// initial prefills field values on a brand new session and is ignored for
// existing ones.
func (r *Registry) Join(ctx context.Context, id string, initial map[string]string) (*JoinResult, error) {
	if id == "" {
		return nil, fmt.Errorf("missing session id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.sessions[id]
	if !ok {
		deps := r.deps
		deps.InitialFields = initial
		var err error
		o, err = New(ctx, id, deps)
		if err != nil {
			return nil, fmt.Errorf("join session %s: %w", id, err)
		}
		r.sessions[id] = o
	}

	return &JoinResult{
		SessionID: id,
		IsNew:     !ok && !o.Restored(),
		Status:    o.Status(),
		History:   o.History(),
	}, nil
}

// HandleMessage routes one user message to an existing session.
func (r *Registry) HandleMessage(ctx context.Context, id, message string) (*dispatch.Response, error) {
	o, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return o.HandleMessage(ctx, message)
}

// Status returns the snapshot of an existing session.
func (r *Registry) Status(id string) (*Status, error) {
	o, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return o.Status(), nil
}

// Reset drops the session's checkpoint and in-memory state. The next join
// starts fresh.
func (r *Registry) Reset(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("missing session id")
	}

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()

	if err := r.deps.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("reset session %s: %w", id, err)
	}
	return nil
}

// Len returns the number of live in-memory sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) get(id string) (*Orchestrator, error) {
	if id == "" {
		return nil, fmt.Errorf("missing session id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session %s", id)
	}
	return o, nil
}
