package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
)

// probe extracts one candidate value from a parsed payload, reporting whether
// it matched. The "try field A, else field B, else field C" discipline used
// for error messages, identifiers, and relation arrays is always the same
// operation: run an ordered probe list and take the first hit.
type probe[T any] func(payload any) (T, bool)

// firstMatch runs probes in priority order and returns the first hit.
func firstMatch[T any](payload any, probes []probe[T]) (T, bool) {
	for _, p := range probes {
		if v, ok := p(payload); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// valueAt walks a dotted path through nested objects, indexing into arrays
// when a segment is numeric. An empty path yields the payload itself.
func valueAt(root any, path string) (any, bool) {
	if path == "" {
		return root, root != nil
	}

	cur := root
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// stringAt matches a non-empty string at path.
func stringAt(path string) probe[string] {
	return func(payload any) (string, bool) {
		v, ok := valueAt(payload, path)
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", false
		}
		return s, true
	}
}

// identifierAt matches an identifier at path: a non-empty string, or a JSON
// number rendered back to its exact textual form.
func identifierAt(path string) probe[string] {
	return func(payload any) (string, bool) {
		v, ok := valueAt(payload, path)
		if !ok {
			return "", false
		}
		switch id := v.(type) {
		case string:
			return id, id != ""
		case json.Number:
			return id.String(), true
		default:
			return "", false
		}
	}
}

// arrayAt matches a JSON array at path. The empty path matches a payload that
// is itself an array.
func arrayAt(path string) probe[[]any] {
	return func(payload any) ([]any, bool) {
		v, ok := valueAt(payload, path)
		if !ok {
			return nil, false
		}
		arr, ok := v.([]any)
		return arr, ok
	}
}
