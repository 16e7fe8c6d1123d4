package form

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// Prefill applies initial field values to the tracker as an RFC6902 patch
// against its snapshot document. Keys outside the schema and blank values are
// skipped. It is used at session creation when some values are already known,
// before any conversation happens.
func (t *Tracker) Prefill(initial map[string]string) error {
	ops := make([]patchOp, 0, len(initial))
	for _, name := range t.schema.Names() {
		value, ok := initial[name]
		if !ok || value == "" {
			continue
		}
		ops = append(ops, patchOp{Op: "replace", Path: pointerPath(name), Value: value})
	}
	if len(ops) == 0 {
		return nil
	}

	doc, err := json.Marshal(t.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal field snapshot: %w", err)
	}
	patchJSON, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("marshal patch operations: %w", err)
	}
	patch, err := jsonpatch.DecodePatch(patchJSON)
	if err != nil {
		return fmt.Errorf("decode patch: %w", err)
	}
	modified, err := patch.Apply(doc)
	if err != nil {
		return fmt.Errorf("apply patch: %w", err)
	}

	var result map[string]string
	if err := json.Unmarshal(modified, &result); err != nil {
		return fmt.Errorf("unmarshal patched snapshot: %w", err)
	}
	t.Restore(result)
	return nil
}

// pointerPath escapes a field name into a JSON pointer token per RFC6901.
func pointerPath(name string) string {
	name = strings.ReplaceAll(name, "~", "~0")
	name = strings.ReplaceAll(name, "/", "~1")
	return "/" + name
}
