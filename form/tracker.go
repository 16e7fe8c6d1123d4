package form

import (
	"log/slog"
	"math"
)

// Tracker holds the mutable field→value mapping for one session. Keys are
// fixed to the schema; values toggle between unset (empty string) and set.
// Tracker is not safe for concurrent use; the session orchestrator serializes
// all access per session.
type Tracker struct {
	schema *Schema
	values map[string]string
}

// NewTracker creates a tracker with every schema field unset.
func NewTracker(schema *Schema) *Tracker {
	values := make(map[string]string, schema.Size())
	for _, name := range schema.Names() {
		values[name] = ""
	}
	return &Tracker{schema: schema, values: values}
}

// Schema returns the tracker's schema.
func (t *Tracker) Schema() *Schema {
	return t.schema
}

// Update overwrites stored values for every key present in both updates and
// the schema. Unknown keys are silently ignored. It returns the subset that
// was actually applied.
func (t *Tracker) Update(updates map[string]string) map[string]string {
	applied := make(map[string]string, len(updates))
	for name, value := range updates {
		if !t.schema.Has(name) {
			continue
		}
		if !t.schema.Validate(name, value) {
			slog.Debug("field value failed validation, applying anyway", "field", name, "value", value)
		}
		t.values[name] = value
		applied[name] = value
	}
	return applied
}

// Get returns the value for name and whether it is set.
func (t *Tracker) Get(name string) (string, bool) {
	v, ok := t.values[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Filled returns every field that has a value.
func (t *Tracker) Filled() map[string]string {
	out := make(map[string]string)
	for name, v := range t.values {
		if v != "" {
			out[name] = v
		}
	}
	return out
}

// Empty returns unset field names in schema order.
func (t *Tracker) Empty() []string {
	var out []string
	for _, name := range t.schema.Names() {
		if t.values[name] == "" {
			out = append(out, name)
		}
	}
	return out
}

// Progress returns the completion percentage rounded to one decimal place.
// It is recomputed on every call so it is always consistent with the latest
// mutation.
func (t *Tracker) Progress() float64 {
	total := t.schema.Size()
	filled := 0
	for _, v := range t.values {
		if v != "" {
			filled++
		}
	}
	return math.Round(float64(filled)/float64(total)*1000) / 10
}

// IsComplete reports whether every schema field has a value.
func (t *Tracker) IsComplete() bool {
	for _, v := range t.values {
		if v == "" {
			return false
		}
	}
	return true
}

// Snapshot exports the full mapping, including unset fields, for
// checkpointing.
func (t *Tracker) Snapshot() map[string]string {
	out := make(map[string]string, len(t.values))
	for name, v := range t.values {
		out[name] = v
	}
	return out
}

// Restore imports a snapshot. Keys not present in the schema are dropped,
// keeping restore forward-compatible with schema growth.
func (t *Tracker) Restore(snapshot map[string]string) {
	for name, v := range snapshot {
		if t.schema.Has(name) {
			t.values[name] = v
		}
	}
}

// Reset clears every field back to unset.
func (t *Tracker) Reset() {
	for name := range t.values {
		t.values[name] = ""
	}
}
