package upstream

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// previewLimit bounds raw-body excerpts used in logs and error details.
const previewLimit = 300

// DocumentKind discriminates the parse outcomes for an upstream body.
type DocumentKind int

const (
	// KindEmpty means the body was absent or whitespace; no parse was attempted.
	KindEmpty DocumentKind = iota

	// KindInvalid means the body was present but not valid JSON.
	KindInvalid

	// KindObject means the body parsed to a JSON object.
	KindObject

	// KindArray means the body parsed to a JSON array.
	KindArray

	// KindScalar means the body parsed to a bare JSON scalar.
	KindScalar
)

// Document is the parse outcome for an upstream body, an explicit tagged
// union rather than a nil-able any. Extraction code branches on Kind instead
// of type-asserting its way through control flow.
type Document struct {
	kind  DocumentKind
	value any
}

// ParseDocument decodes raw body text opportunistically as JSON. It never
// fails: unusable input yields the Empty or Invalid variant. Numbers decode
// as json.Number so wide identifiers are never routed through a float.
func ParseDocument(raw string) Document {
	if strings.TrimSpace(raw) == "" {
		return Document{kind: KindEmpty}
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Document{kind: KindInvalid}
	}
	if dec.More() {
		// Trailing content after the first value
		return Document{kind: KindInvalid}
	}

	switch v.(type) {
	case map[string]any:
		return Document{kind: KindObject, value: v}
	case []any:
		return Document{kind: KindArray, value: v}
	default:
		return Document{kind: KindScalar, value: v}
	}
}

// Kind reports which variant the document holds.
func (d Document) Kind() DocumentKind { return d.kind }

// Usable reports whether the document holds parsed JSON at all.
func (d Document) Usable() bool {
	switch d.kind {
	case KindObject, KindArray, KindScalar:
		return true
	default:
		return false
	}
}

// Value returns the parsed payload, or nil for Empty and Invalid documents.
func (d Document) Value() any { return d.value }

// Object returns the payload as a JSON object.
func (d Document) Object() (map[string]any, bool) {
	obj, ok := d.value.(map[string]any)
	return obj, ok
}

// Preview bounds a raw body for diagnostics, cutting on a rune boundary so
// log and error payloads stay valid UTF-8.
func Preview(raw string) string {
	if len(raw) <= previewLimit {
		return raw
	}

	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return raw[:cut] + "..."
}
