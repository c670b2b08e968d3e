package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnsafeFieldPath is returned for --field paths with empty or reserved
// segments.
var ErrUnsafeFieldPath = errors.New("unsafe field path")

var reservedSegments = map[string]struct{}{
	"__proto__":   {},
	"prototype":   {},
	"constructor": {},
}

// buildInput decodes inputJSON and applies each "path=value" field on top.
func buildInput(inputJSON string, fields []string) (map[string]any, error) {
	input := map[string]any{}
	if s := strings.TrimSpace(inputJSON); s != "" {
		var v any
		if err := decodeJSON(s, &v); err != nil {
			return nil, fmt.Errorf("--input-json: %w", err)
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, errors.New("--input-json must be a JSON object")
		}
		input = obj
	}

	for _, field := range fields {
		path, raw, found := strings.Cut(field, "=")
		if !found {
			return nil, fmt.Errorf("--field %q: expected path=value", field)
		}
		if err := setPath(input, path, parseLoose(raw)); err != nil {
			return nil, err
		}
	}
	return input, nil
}

// setPath assigns value at a dotted path, creating intermediate objects.
// Non-object intermediates are replaced.
func setPath(obj map[string]any, path string, value any) error {
	segments := strings.Split(path, ".")
	for _, seg := range segments {
		if _, reserved := reservedSegments[seg]; seg == "" || reserved {
			return fmt.Errorf("%w %q", ErrUnsafeFieldPath, path)
		}
	}

	cur := obj
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = value
	return nil
}

// parseLoose interprets a field value: true, false, null, numbers and JSON
// objects, arrays or quoted strings are decoded; anything else is a string.
func parseLoose(raw string) any {
	s := strings.TrimSpace(raw)
	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	case "":
		return raw
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil && isJSONNumber(s) {
		return json.Number(s)
	}
	switch s[0] {
	case '{', '[', '"':
		var v any
		if err := decodeJSON(s, &v); err == nil {
			return v
		}
	}
	return raw
}

// isJSONNumber rejects forms ParseFloat accepts but JSON does not, such as
// "Inf", "0x10" or "1_000".
func isJSONNumber(s string) bool {
	var n json.Number
	return json.Unmarshal([]byte(s), &n) == nil
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
