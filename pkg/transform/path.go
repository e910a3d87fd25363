package transform

import "strings"

// Lookup resolves a dotted path against a nested record. It is the
// exported form of the engine's own path resolution, shared with the
// materialization pipeline's identity and extraction logic.
func Lookup(record map[string]any, path string) (any, bool) {
	return lookupPath(record, path)
}

// lookupPath resolves a dotted path against a nested record. The second
// return reports whether the full path was present, which lets callers
// distinguish an absent key from a present-but-null one. Resolution stops
// at the first nil or non-map ancestor; array indexing is not supported.
func lookupPath(record map[string]any, path string) (any, bool) {
	if record == nil || path == "" {
		return nil, false
	}

	var current any = record
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[segment]
		if !ok {
			return nil, false
		}
		current = v
	}
	return current, true
}

// setPath writes value at a dotted path inside doc, creating intermediate
// maps as needed. An intermediate key holding a non-map value is replaced.
func setPath(doc map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}
