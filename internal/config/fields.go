package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// fields is one decoded JSON object whose keys are consumed leaf by leaf.
// Keys still present at finish() are reported as unknown.
type fields struct {
	path     string
	values   map[string]json.RawMessage
	warnings *[]Warning
}

func newFields(path string, raw json.RawMessage, warnings *[]Warning) (*fields, bool) {
	values := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &values); err != nil {
		*warnings = append(*warnings, Warning{Field: path, Message: "expected an object; keeping defaults"})
		return nil, false
	}
	return &fields{path: path, values: values, warnings: warnings}, true
}

func (f *fields) field(key string) string {
	if f.path == "" {
		return key
	}
	return f.path + "." + key
}

func (f *fields) warn(key string, message string) {
	*f.warnings = append(*f.warnings, Warning{Field: f.field(key), Message: message})
}

// take removes and returns key; explicit nulls count as absent.
func (f *fields) take(key string) (json.RawMessage, bool) {
	raw, ok := f.values[key]
	if !ok {
		return nil, false
	}
	delete(f.values, key)
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

// object descends into a nested object.
func (f *fields) object(key string) (*fields, bool) {
	raw, ok := f.take(key)
	if !ok {
		return nil, false
	}
	return newFields(f.field(key), raw, f.warnings)
}

// finish warns about keys nobody consumed.
func (f *fields) finish() {
	unknown := make([]string, 0, len(f.values))
	for key := range f.values {
		unknown = append(unknown, key)
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		f.warn(key, "unknown key ignored")
	}
}

// decodeLeaf decodes key into T and hands it to apply. Wrong types and
// rejected values leave the current value untouched and record a warning.
func decodeLeaf[T any](f *fields, key string, apply func(T) error) {
	raw, ok := f.take(key)
	if !ok {
		return
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		f.warn(key, fmt.Sprintf("expected %s; keeping default", typeLabel(value)))
		return
	}
	if err := apply(value); err != nil {
		f.warn(key, err.Error()+"; keeping default")
	}
}

func typeLabel(value any) string {
	switch value.(type) {
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int, int64:
		return "an integer"
	case float64:
		return "a number"
	case []string:
		return "a list of strings"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setBool(dst *bool) func(bool) error {
	return func(v bool) error {
		*dst = v
		return nil
	}
}
