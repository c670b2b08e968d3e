package routing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/eforest-finance/forest-agent-kit/schema"
)

// RouteFileSchemaRef is the ref the route file schema is registered under.
const RouteFileSchemaRef = "schema.routing.routeFile.v1"

// RouteFile is the on-disk form of an action map.
//
//	routes:
//	  aelf-forest-api-market:fetchTokens: /market/tokens
//	skills:
//	  aelf-forest-api-sync:
//	    fetchSyncCollection: {method: POST, path: /sync/collection}
type RouteFile struct {
	// Routes maps compound "skill:action" keys to routes.
	Routes map[string]RouteSpec `json:"routes,omitempty" yaml:"routes,omitempty"`
	// Skills maps skill names to per-action routes.
	Skills map[string]map[string]RouteSpec `json:"skills,omitempty" yaml:"skills,omitempty"`
}

// RouteSpec is one route entry. In YAML a bare string is shorthand for
// a GET path.
type RouteSpec struct {
	Method string `json:"method,omitempty" yaml:"method,omitempty" jsonschema:"enum=GET,enum=POST,enum=PUT,enum=DELETE"`
	Path   string `json:"path,omitempty" yaml:"path,omitempty"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Auth   *bool  `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// UnmarshalYAML accepts either a mapping or a plain path string. Methods
// are upper-cased.
func (s *RouteSpec) UnmarshalYAML(unmarshal func(any) error) error {
	var path string
	if err := unmarshal(&path); err == nil {
		*s = RouteSpec{Path: path}
		return nil
	}
	type plain RouteSpec
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*s = RouteSpec(p)
	s.Method = strings.ToUpper(s.Method)
	return nil
}

// ErrEmptyRouteFile is returned when a route file defines no routes.
var ErrEmptyRouteFile = errors.New("route file defines no routes")

// ActionMap converts the file into the action map shape read by
// ResolveRoute.
func (f *RouteFile) ActionMap() map[string]any {
	out := make(map[string]any, len(f.Routes)+len(f.Skills))
	for key, spec := range f.Routes {
		out[key] = spec.value()
	}
	for skill, actions := range f.Skills {
		nested := make(map[string]any, len(actions))
		for action, spec := range actions {
			nested[action] = spec.value()
		}
		out[skill] = nested
	}
	return out
}

// ActionMapJSON encodes ActionMap as the value of EnvActionMap.
func (f *RouteFile) ActionMapJSON() (string, error) {
	b, err := json.Marshal(f.ActionMap())
	if err != nil {
		return "", fmt.Errorf("encoding action map: %w", err)
	}
	return string(b), nil
}

func (s RouteSpec) value() map[string]any {
	v := map[string]any{}
	if s.Method != "" {
		v["method"] = strings.ToUpper(s.Method)
	}
	if s.Path != "" {
		v["path"] = s.Path
	}
	if s.URL != "" {
		v["url"] = s.URL
	}
	if s.Auth != nil {
		v["auth"] = *s.Auth
	}
	return v
}

// FileStore reads and writes route files.
type FileStore struct {
	schemas *schema.Registry
}

// NewFileStore creates a FileStore validating against reg, registering
// the route file schema on first use.
func NewFileStore(reg *schema.Registry) (*FileStore, error) {
	if reg == nil {
		reg = schema.Default()
	}
	if !reg.HasSchema(RouteFileSchemaRef) {
		err := reg.Register(RouteFileSchemaRef, &RouteFile{})
		if err != nil && !errors.Is(err, schema.ErrAlreadyRegistered) {
			return nil, fmt.Errorf("registering route file schema: %w", err)
		}
	}
	return &FileStore{schemas: reg}, nil
}

// Load reads a YAML or JSON route file.
func (s *FileStore) Load(path string) (*RouteFile, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open directory %q: %w", filepath.Dir(path), err)
	}
	defer func() { _ = root.Close() }()

	file, err := root.Open(filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open route file %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var out RouteFile
	if err := yaml.NewDecoder(file).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding route file: %w", err)
	}
	if err := s.Validate(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks f against the route file schema and requires every
// entry to carry a path or url.
func (s *FileStore) Validate(f *RouteFile) error {
	if len(f.Routes) == 0 && len(f.Skills) == 0 {
		return ErrEmptyRouteFile
	}
	res := s.schemas.Validate(RouteFileSchemaRef, f)
	if !res.Valid {
		msgs := make([]string, 0, len(res.Errors))
		for _, e := range res.Errors {
			msgs = append(msgs, e.Path+": "+e.Message)
		}
		return fmt.Errorf("invalid route file: %s", strings.Join(msgs, "; "))
	}
	for key := range f.Routes {
		skill, action, ok := strings.Cut(key, ":")
		if !ok || skill == "" || action == "" {
			return fmt.Errorf("invalid route key %q: want skill:action", key)
		}
	}
	for key, spec := range f.Routes {
		if spec.Path == "" && spec.URL == "" {
			return fmt.Errorf("route %s has no path", key)
		}
	}
	for skill, actions := range f.Skills {
		for action, spec := range actions {
			if spec.Path == "" && spec.URL == "" {
				return fmt.Errorf("route %s:%s has no path", skill, action)
			}
		}
	}
	return nil
}

// Save writes f as YAML, creating the parent directory.
func (s *FileStore) Save(f *RouteFile, path string) error {
	if err := s.Validate(f); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory %q: %w", dir, err)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encoding route file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding route file: %w", err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("opening directory for write %q: %w", dir, err)
	}
	defer func() { _ = root.Close() }()

	file, err := root.OpenFile(filepath.Base(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating route file %q: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing route file: %w", err)
	}
	return nil
}
