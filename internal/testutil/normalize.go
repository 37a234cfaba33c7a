package testutil

import (
	"encoding/json"
	"strings"
	"testing"

	"langidx/internal/paths"
)

// volatileFields change on every compile and are dropped before comparison.
var volatileFields = map[string]bool{
	"runId":      true,
	"createdAt":  true,
	"storedAt":   true,
	"duration":   true,
	"durationMs": true,
	"hash":       true,
}

// Normalize round-trips data through JSON, drops volatile fields and
// replaces the fixture root with a placeholder.
func Normalize(t *testing.T, fixture *FixtureContext, data any) any {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("Failed to marshal data for normalization: %v", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("Failed to unmarshal data for normalization: %v", err)
	}

	replacer := strings.NewReplacer(
		paths.PathToURI(fixture.Root), "file://<fixture>",
		fixture.Root, "<fixture>",
	)
	return normalizeValue(generic, replacer)
}

func normalizeValue(v any, r *strings.Replacer) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if volatileFields[k] {
				continue
			}
			out[k] = normalizeValue(item, r)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item, r)
		}
		return out
	case string:
		return strings.ReplaceAll(r.Replace(val), "\\", "/")
	default:
		return v
	}
}

// MarshalNormalized normalizes data and marshals it to stable JSON with
// sorted keys, 2-space indentation and a trailing newline.
func MarshalNormalized(t *testing.T, fixture *FixtureContext, data any) []byte {
	t.Helper()

	out, err := json.MarshalIndent(Normalize(t, fixture, data), "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal normalized data: %v", err)
	}
	return append(out, '\n')
}
