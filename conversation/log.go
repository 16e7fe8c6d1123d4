// Package conversation keeps the bounded, ordered transcript of one session.
// The log serves both UI replay on rejoin and prompt context.
package conversation

import (
	"time"

	"github.com/dbhatt90/StudyBotAgent/types"
)

// DefaultCap is the default maximum number of retained entries.
const DefaultCap = 50

// Log is a bounded FIFO record of conversation turns. Oldest entries are
// evicted first once the cap is exceeded. Not safe for concurrent use; the
// orchestrator serializes turns per session.
type Log struct {
	entries []types.ConversationEntry
	cap     int
}

// NewLog creates a log. A non-positive cap falls back to DefaultCap.
func NewLog(cap int) *Log {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Log{cap: cap}
}

// Append adds one entry, evicting from the front when the cap is exceeded.
// The action tag is optional and records which agent action produced an
// assistant turn.
func (l *Log) Append(role, content, action string) {
	l.entries = append(l.entries, types.ConversationEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Action:    action,
	})
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// Recent returns a copy of the newest n entries.
func (l *Log) Recent(n int) []types.ConversationEntry {
	if n <= 0 || len(l.entries) == 0 {
		return nil
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]types.ConversationEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// All returns a copy of every retained entry, oldest first.
func (l *Log) All() []types.ConversationEntry {
	out := make([]types.ConversationEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Snapshot exports the retained entries for checkpointing.
func (l *Log) Snapshot() []types.ConversationEntry {
	return l.All()
}

// Restore replaces the log contents from a snapshot, keeping only the newest
// cap entries so the length invariant holds for oversized snapshots.
func (l *Log) Restore(entries []types.ConversationEntry) {
	if len(entries) > l.cap {
		entries = entries[len(entries)-l.cap:]
	}
	l.entries = make([]types.ConversationEntry, len(entries))
	copy(l.entries, entries)
}

// Clear drops every entry.
func (l *Log) Clear() {
	l.entries = nil
}
