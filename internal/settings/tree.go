package settings

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Tree is the nested settings document. Values use the JSON data model:
// map[string]any, []any, float64, string, bool and nil.
type Tree map[string]any

// Clone returns a deep copy of the tree.
func (t Tree) Clone() Tree {
	if t == nil {
		return Tree{}
	}
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = cloneValue(v)
	}

	return out
}

// Lookup resolves a dotted path. Missing segments report ok=false.
func (t Tree) Lookup(path string) (any, bool) {
	parts, err := splitPath(path)
	if err != nil {
		return nil, false
	}
	var cur any = map[string]any(t)
	for _, part := range parts {
		m, ok := asRecord(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return cur, true
}

// Assign writes value at a dotted path. Every intermediate segment must
// already exist and be a record; nothing is created on the way.
func (t Tree) Assign(path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	cur := map[string]any(t)
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part]
		if !ok {
			return &PathError{Path: path, Segment: part, Reason: "segment does not exist"}
		}
		m, ok := asRecord(next)
		if !ok {
			return &PathError{Path: path, Segment: part, Reason: "segment is not a record"}
		}
		cur = m
	}
	cur[parts[len(parts)-1]] = value

	return nil
}

// AssignCreate writes value at a dotted path and creates missing
// intermediate records. Non-record intermediates are replaced.
func (t Tree) AssignCreate(path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}
	cur := map[string]any(t)
	for _, part := range parts[:len(parts)-1] {
		m, ok := asRecord(cur[part])
		if !ok {
			m = map[string]any{}
			cur[part] = m
		}
		cur = m
	}
	cur[parts[len(parts)-1]] = value

	return nil
}

// RootKey returns the first segment of a dotted path.
func RootKey(path string) string {
	root, _, _ := strings.Cut(path, ".")

	return root
}

func splitPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &PathError{Path: path, Reason: "empty path"}
	}
	parts := strings.Split(path, ".")
	for _, part := range parts {
		if part == "" {
			return nil, &PathError{Path: path, Reason: "empty segment"}
		}
	}

	return parts, nil
}

func asRecord(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Tree:
		return map[string]any(m), true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = cloneValue(item)
		}

		return out
	case Tree:
		return map[string]any(typed.Clone())
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}

		return out
	default:
		return v
	}
}

// Canonical converts an arbitrary Go value into the JSON data model used by
// Tree so that locally confirmed values compare equal to loaded ones.
func Canonical(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, float64:
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode setting value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode setting value: %w", err)
	}

	return out, nil
}

// AsFloat converts JSON-like numbers to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

// AsStrings converts a JSON list to strings, skipping non-string items.
func AsStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}
