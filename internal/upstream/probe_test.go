package upstream

import (
	"testing"
)

func parse(t *testing.T, raw string) any {
	t.Helper()
	doc := ParseDocument(raw)
	if !doc.Usable() {
		t.Fatalf("test payload did not parse: %q", raw)
	}
	return doc.Value()
}

func TestValueAt(t *testing.T) {
	payload := parse(t, `{
		"message": "top",
		"error": {"message": "nested"},
		"errors": [{"message": "first"}, {"message": "second"}],
		"data": {"users": [{"screen_name": "bob"}]}
	}`)

	tests := []struct {
		name  string
		path  string
		want  any
		match bool
	}{
		{name: "top-level field", path: "message", want: "top", match: true},
		{name: "nested field", path: "error.message", want: "nested", match: true},
		{name: "array index", path: "errors.0.message", want: "first", match: true},
		{name: "later array index", path: "errors.1.message", want: "second", match: true},
		{name: "index out of range", path: "errors.2.message", match: false},
		{name: "negative index", path: "errors.-1.message", match: false},
		{name: "non-numeric segment on array", path: "errors.first.message", match: false},
		{name: "missing field", path: "absent", match: false},
		{name: "descend through scalar", path: "message.deeper", match: false},
		{name: "empty path returns payload", path: "", match: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := valueAt(payload, tt.path)
			if ok != tt.match {
				t.Fatalf("valueAt(%q) match = %v, want %v", tt.path, ok, tt.match)
			}
			if tt.match && tt.want != nil && got != tt.want {
				t.Errorf("valueAt(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFirstMatch_Order(t *testing.T) {
	payload := parse(t, `{"a": "first", "b": "second"}`)

	got, ok := firstMatch(payload, []probe[string]{
		stringAt("missing"),
		stringAt("a"),
		stringAt("b"),
	})
	if !ok {
		t.Fatalf("firstMatch did not match")
	}
	if got != "first" {
		t.Errorf("firstMatch = %q, want %q", got, "first")
	}
}

func TestFirstMatch_NoMatch(t *testing.T) {
	payload := parse(t, `{"a": 1}`)

	if _, ok := firstMatch(payload, []probe[string]{stringAt("a"), stringAt("b")}); ok {
		t.Errorf("firstMatch matched, want miss")
	}
}

func TestStringAt_RejectsNonStrings(t *testing.T) {
	payload := parse(t, `{"empty": "", "num": 42, "bool": true, "null": null, "obj": {}}`)

	for _, path := range []string{"empty", "num", "bool", "null", "obj"} {
		if _, ok := stringAt(path)(payload); ok {
			t.Errorf("stringAt(%q) matched, want miss", path)
		}
	}
}

func TestIdentifierAt(t *testing.T) {
	payload := parse(t, `{"str": "123", "num": 456, "wide": 9007199254740993, "frac": 1.5, "empty": "", "bool": true}`)

	tests := []struct {
		name  string
		path  string
		want  string
		match bool
	}{
		{name: "string identifier", path: "str", want: "123", match: true},
		{name: "numeric identifier", path: "num", want: "456", match: true},
		{name: "identifier beyond float53", path: "wide", want: "9007199254740993", match: true},
		{name: "fractional number still renders", path: "frac", want: "1.5", match: true},
		{name: "empty string misses", path: "empty", match: false},
		{name: "boolean misses", path: "bool", match: false},
		{name: "absent misses", path: "absent", match: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := identifierAt(tt.path)(payload)
			if ok != tt.match {
				t.Fatalf("identifierAt(%q) match = %v, want %v", tt.path, ok, tt.match)
			}
			if tt.match && got != tt.want {
				t.Errorf("identifierAt(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestArrayAt(t *testing.T) {
	payload := parse(t, `{"data": [1, 2], "users": {"not": "array"}}`)

	if arr, ok := arrayAt("data")(payload); !ok || len(arr) != 2 {
		t.Errorf("arrayAt(data) = %v, %v, want 2-element array", arr, ok)
	}
	if _, ok := arrayAt("users")(payload); ok {
		t.Errorf("arrayAt(users) matched an object")
	}

	top := parse(t, `[{"screen_name": "bob"}]`)
	if arr, ok := arrayAt("")(top); !ok || len(arr) != 1 {
		t.Errorf("arrayAt(\"\") = %v, %v, want 1-element array", arr, ok)
	}
}
