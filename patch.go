package goserdes

import (
	"bytes"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/goccy/go-json"

	"github.com/reoring/goserdes/format"
)

// Patch is a JSON document modifying a loaded mapping before records are
// generated from it: either an RFC 6902 JSON Patch (an array of operations)
// or an RFC 7386 JSON Merge Patch (an object).
type Patch []byte

// IsJSONPatch reports whether p is an operation list rather than a merge patch.
func (p Patch) IsJSONPatch() bool {
	trimmed := bytes.TrimSpace(p)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// ApplyPatches applies patches to doc in order and returns the patched copy.
// Values round-trip through JSON, so time values come back as RFC 3339
// strings.
func ApplyPatches(doc map[string]any, patches ...Patch) (map[string]any, error) {
	if len(patches) == 0 {
		return doc, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("goserdes: encode document for patching: %w", err)
	}
	for i, p := range patches {
		if p.IsJSONPatch() {
			ops, err := jsonpatch.DecodePatch(p)
			if err != nil {
				return nil, fmt.Errorf("goserdes: patch %d: %w", i, err)
			}
			if data, err = ops.Apply(data); err != nil {
				return nil, fmt.Errorf("goserdes: patch %d: %w", i, err)
			}
			continue
		}
		if data, err = jsonpatch.MergePatch(data, p); err != nil {
			return nil, fmt.Errorf("goserdes: merge patch %d: %w", i, err)
		}
	}
	return format.JSON.Load(bytes.NewReader(data))
}
