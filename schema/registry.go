// Package schema holds the forest JSON schema documents and validates
// envelopes against them.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"sort"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BaseURL is the resource prefix every document is registered under. Bare
// "$ref" names such as "schema.common.inputBase.v1" resolve against it.
const BaseURL = "https://schemas.eforest.finance/forest/"

//go:embed documents/*.json
var documents embed.FS

// ErrAlreadyRegistered is returned when a ref is registered twice.
var ErrAlreadyRegistered = errors.New("schema already registered")

// Ensure implementations satisfy the interface.
var _ Validator = (*Registry)(nil)

// Registry maps schema refs to documents and caches compiled validators.
type Registry struct {
	docs       map[string]json.RawMessage
	validators map[string]*jsonschema.Schema
	compiler   *jsonschema.Compiler
	reflector  *invopop.Reflector
	mu         sync.RWMutex
}

// RegistryOption configures the Registry.
type RegistryOption func(*Registry)

// WithReflector replaces the reflector used for Go model registration.
func WithReflector(r *invopop.Reflector) RegistryOption {
	return func(reg *Registry) {
		if r != nil {
			reg.reflector = r
		}
	}
}

var defaultRegistry = sync.OnceValues(func() (*Registry, error) {
	return NewRegistry()
})

// Default returns the process wide registry of embedded forest schemas.
func Default() *Registry {
	r, err := defaultRegistry()
	if err != nil {
		panic(fmt.Sprintf("schema: embedded documents are invalid: %v", err))
	}
	return r
}

// NewRegistry creates a registry preloaded with the embedded documents.
func NewRegistry(opts ...RegistryOption) (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.LoadURL = func(s string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("schema %q is not registered", s)
	}

	r := &Registry{
		docs:       make(map[string]json.RawMessage),
		validators: make(map[string]*jsonschema.Schema),
		compiler:   compiler,
		reflector:  &invopop.Reflector{ExpandedStruct: true, Anonymous: true},
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.loadEmbedded(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) loadEmbedded() error {
	entries, err := fs.ReadDir(documents, "documents")
	if err != nil {
		return fmt.Errorf("reading embedded documents: %w", err)
	}
	for _, entry := range entries {
		raw, err := documents.ReadFile("documents/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		var bundle map[string]json.RawMessage
		if err := json.Unmarshal(raw, &bundle); err != nil {
			return fmt.Errorf("decoding %s: %w", entry.Name(), err)
		}
		for ref, doc := range bundle {
			if err := r.add(ref, doc); err != nil {
				return err
			}
		}
	}
	return nil
}

// add registers doc under ref. Callers hold the write lock or own r exclusively.
func (r *Registry) add(ref string, doc json.RawMessage) error {
	if _, exists := r.docs[ref]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, ref)
	}
	if err := r.compiler.AddResource(BaseURL+ref, bytes.NewReader(doc)); err != nil {
		return fmt.Errorf("adding schema %s: %w", ref, err)
	}
	r.docs[ref] = doc
	return nil
}

// Register adds a schema under ref. model can be a raw JSON document
// (string, []byte, json.RawMessage or map) or a Go struct, in which case the
// schema is reflected from its type.
func (r *Registry) Register(ref string, model any) error {
	var doc []byte

	switch v := model.(type) {
	case string:
		doc = []byte(v)
	case json.RawMessage:
		doc = v
	case []byte:
		doc = v
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal schema map: %w", err)
		}
		doc = b
	default:
		t := reflect.TypeOf(model)
		if t == nil || (t.Kind() != reflect.Struct && (t.Kind() != reflect.Ptr || t.Elem().Kind() != reflect.Struct)) {
			return fmt.Errorf("unsupported schema model %T for %s", model, ref)
		}
		b, err := json.Marshal(r.reflector.Reflect(model))
		if err != nil {
			return fmt.Errorf("failed to marshal generated schema: %w", err)
		}
		doc = b
	}

	if !json.Valid(doc) {
		return fmt.Errorf("schema %s is not valid JSON", ref)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.add(ref, json.RawMessage(doc))
}

// HasSchema reports whether ref is registered.
func (r *Registry) HasSchema(ref string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.docs[ref]
	return ok
}

// GetSchema returns the raw document registered under ref.
func (r *Registry) GetSchema(ref string) (json.RawMessage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[ref]
	return doc, ok
}

// List returns every registered ref, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refs := make([]string, 0, len(r.docs))
	for ref := range r.docs {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// ListPrefix returns the sorted refs starting with prefix.
func (r *Registry) ListPrefix(prefix string) []string {
	var out []string
	for _, ref := range r.List() {
		if strings.HasPrefix(ref, prefix) {
			out = append(out, ref)
		}
	}
	return out
}

// validator returns the compiled schema for ref, compiling it on first use.
func (r *Registry) validator(ref string) (*jsonschema.Schema, error) {
	r.mu.RLock()
	s, ok := r.validators[ref]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.validators[ref]; ok {
		return s, nil
	}
	s, err := r.compiler.Compile(BaseURL + ref)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", ref, err)
	}
	r.validators[ref] = s
	return s, nil
}
