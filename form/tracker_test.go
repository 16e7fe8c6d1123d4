package form

import (
	"testing"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	s, err := NewSchema([]Field{
		{Name: "Client", Description: "Name of requester"},
		{Name: "Problem", Description: "What needs to be studied"},
		{Name: "Priority", Description: "Urgency level", AllowedValues: []string{"Low", "High"}},
		{Name: "Sample ID", Description: "Sample identifier"},
	})
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return s
}

func TestTrackerUpdateFiltersUnknownKeys(t *testing.T) {
	tr := NewTracker(testSchema(t))

	applied := tr.Update(map[string]string{
		"Client":  "Alice",
		"Unknown": "dropped",
	})

	if len(applied) != 1 {
		t.Fatalf("applied = %v, want only Client", applied)
	}
	if v, ok := tr.Get("Client"); !ok || v != "Alice" {
		t.Errorf("Get(Client) = %q, %v", v, ok)
	}
	if _, ok := tr.Get("Unknown"); ok {
		t.Error("unknown key must not be stored")
	}
}

func TestTrackerUpdateAllowsInvalidValues(t *testing.T) {
	tr := NewTracker(testSchema(t))

	applied := tr.Update(map[string]string{"Priority": "Urgent"})
	if len(applied) != 1 {
		t.Fatalf("applied = %v, want Priority accepted despite validation", applied)
	}
	if v, _ := tr.Get("Priority"); v != "Urgent" {
		t.Errorf("Priority = %q, want Urgent", v)
	}
}

func TestTrackerProgressRounding(t *testing.T) {
	tr := NewTracker(testSchema(t))
	if got := tr.Progress(); got != 0.0 {
		t.Fatalf("fresh progress = %v, want 0", got)
	}

	tr.Update(map[string]string{"Client": "Alice"})
	if got := tr.Progress(); got != 25.0 {
		t.Errorf("progress = %v, want 25.0", got)
	}

	tr.Update(map[string]string{"Problem": "yellowing", "Priority": "High"})
	if got := tr.Progress(); got != 75.0 {
		t.Errorf("progress = %v, want 75.0", got)
	}

	tr.Update(map[string]string{"Sample ID": "S-1"})
	if got := tr.Progress(); got != 100.0 {
		t.Errorf("progress = %v, want 100.0", got)
	}
	if !tr.IsComplete() {
		t.Error("tracker should be complete")
	}
}

func TestTrackerProgressOneDecimal(t *testing.T) {
	fields := make([]Field, 12)
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for i, n := range names {
		fields[i] = Field{Name: n, Description: n}
	}
	s, err := NewSchema(fields)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	tr := NewTracker(s)
	tr.Update(map[string]string{"a": "1"})
	if got := tr.Progress(); got != 8.3 {
		t.Errorf("progress = %v, want 8.3", got)
	}
	tr.Update(map[string]string{"b": "1"})
	if got := tr.Progress(); got != 16.7 {
		t.Errorf("progress = %v, want 16.7", got)
	}
}

func TestTrackerEmptySchemaOrder(t *testing.T) {
	tr := NewTracker(testSchema(t))
	tr.Update(map[string]string{"Problem": "discoloration"})

	want := []string{"Client", "Priority", "Sample ID"}
	got := tr.Empty()
	if len(got) != len(want) {
		t.Fatalf("Empty() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Empty() = %v, want %v", got, want)
		}
	}
}

func TestTrackerSnapshotRestore(t *testing.T) {
	tr := NewTracker(testSchema(t))
	tr.Update(map[string]string{"Client": "Alice", "Priority": "High"})

	snap := tr.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("snapshot should contain every schema key, got %v", snap)
	}

	snap["Retired Field"] = "stale"
	restored := NewTracker(testSchema(t))
	restored.Restore(snap)

	if _, ok := restored.Get("Retired Field"); ok {
		t.Error("unknown snapshot key must be dropped on restore")
	}
	if v, _ := restored.Get("Client"); v != "Alice" {
		t.Errorf("Client = %q after restore", v)
	}
	if restored.Progress() != tr.Progress() {
		t.Errorf("progress changed across restore: %v != %v", restored.Progress(), tr.Progress())
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker(testSchema(t))
	tr.Update(map[string]string{"Client": "Alice"})
	tr.Reset()

	if tr.Progress() != 0 {
		t.Errorf("progress after reset = %v", tr.Progress())
	}
	if len(tr.Filled()) != 0 {
		t.Errorf("filled after reset = %v", tr.Filled())
	}
}

func TestTrackerPrefill(t *testing.T) {
	tr := NewTracker(testSchema(t))

	err := tr.Prefill(map[string]string{
		"Client":  "Bob",
		"Problem": "",
		"Unknown": "ignored",
	})
	if err != nil {
		t.Fatalf("prefill: %v", err)
	}

	if v, _ := tr.Get("Client"); v != "Bob" {
		t.Errorf("Client = %q, want Bob", v)
	}
	if _, ok := tr.Get("Problem"); ok {
		t.Error("blank prefill value must stay unset")
	}
	if got := tr.Progress(); got != 25.0 {
		t.Errorf("progress = %v, want 25.0", got)
	}
}
