package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator checks data against a registered schema.
type Validator interface {
	// HasSchema reports whether ref is registered.
	HasSchema(ref string) bool

	// Validate checks data against the schema registered under ref.
	Validate(ref string, data any) Result
}

// Result is the outcome of a validation.
type Result struct {
	Errors []FieldError `json:"errors"`
	Valid  bool         `json:"valid"`
}

// FieldError is a single failed constraint. Path is a JSON pointer into the
// instance, "/" for the root.
type FieldError struct {
	Path    string `json:"instancePath"`
	Message string `json:"message"`
}

func invalid(path, format string, args ...any) Result {
	return Result{Errors: []FieldError{{Path: path, Message: fmt.Sprintf(format, args...)}}}
}

// Validate checks data against the schema registered under ref. data is
// never mutated; it is copied into a plain JSON value first.
func (r *Registry) Validate(ref string, data any) Result {
	if !r.HasSchema(ref) {
		return invalid("/", "schema not found: %s", ref)
	}

	s, err := r.validator(ref)
	if err != nil {
		return invalid("/", "%v", err)
	}

	instance, err := ToJSONValue(data)
	if err != nil {
		return invalid("/", "input is not JSON serializable: %v", err)
	}

	if err := s.Validate(instance); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return invalid("/", "%v", err)
		}
		out := Result{}
		collectLeaves(ve, &out.Errors)
		return out
	}
	return Result{Valid: true, Errors: []FieldError{}}
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]FieldError) {
	if len(ve.Causes) == 0 {
		path := ve.InstanceLocation
		if path == "" {
			path = "/"
		}
		*out = append(*out, FieldError{Path: path, Message: ve.Message})
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}

// ToJSONValue deep copies v into the generic JSON representation
// (map[string]any, []any, json.Number, string, bool, nil).
func ToJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
