package config

import (
	"os"
	"strings"
)

// Snapshot is a point-in-time view of environment style configuration keys.
// It is a plain value: gating and route resolution are pure functions of it.
type Snapshot map[string]string

// Get returns the value for key, or "" when unset.
func (s Snapshot) Get(key string) string {
	return s[key]
}

// Lookup returns the value for key and whether it is set.
func (s Snapshot) Lookup(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// First returns the first non-empty value among keys.
func (s Snapshot) First(keys ...string) string {
	for _, k := range keys {
		if v := s[k]; v != "" {
			return v
		}
	}
	return ""
}

// Bool parses key as a boolean switch. ok is false when the key is unset or
// holds an unrecognized value.
func (s Snapshot) Bool(key string) (value bool, ok bool) {
	raw, exists := s[key]
	if !exists {
		return false, false
	}
	return ParseBool(raw)
}

// List splits key on commas, trimming entries and dropping empty ones.
func (s Snapshot) List(key string) []string {
	return SplitList(s[key])
}

// With returns a copy of s with extra keys set only where s has no value.
func (s Snapshot) With(extra map[string]string) Snapshot {
	out := make(Snapshot, len(s)+len(extra))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range extra {
		if out[k] == "" {
			out[k] = v
		}
	}
	return out
}

// ParseBool accepts 1/true/yes/on and 0/false/no/off, case-insensitively.
func ParseBool(raw string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// SplitList splits a comma separated list.
func SplitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Source produces a fresh Snapshot on every call.
type Source interface {
	Snapshot() Snapshot
}

// SourceFunc adapts a function to Source.
type SourceFunc func() Snapshot

// Snapshot implements Source.
func (f SourceFunc) Snapshot() Snapshot { return f() }

// EnvSource reads the process environment on every call.
type EnvSource struct {
	// Prefixes limits the captured keys. Empty captures everything.
	Prefixes []string
}

// DefaultPrefixes covers every key the dispatcher and its adapters read.
var DefaultPrefixes = []string{"EFOREST_", "FOREST_", "AELF_", "PORTKEY_"}

// NewEnvSource returns an EnvSource restricted to DefaultPrefixes.
func NewEnvSource() *EnvSource {
	return &EnvSource{Prefixes: DefaultPrefixes}
}

// Snapshot implements Source.
func (e *EnvSource) Snapshot() Snapshot {
	snap := make(Snapshot)
	for _, kv := range os.Environ() {
		key, value, found := strings.Cut(kv, "=")
		if !found || !e.keep(key) {
			continue
		}
		snap[key] = value
	}
	return snap
}

func (e *EnvSource) keep(key string) bool {
	if len(e.Prefixes) == 0 {
		return true
	}
	for _, p := range e.Prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// StaticSource always returns a copy of the given values.
func StaticSource(values map[string]string) Source {
	return SourceFunc(func() Snapshot {
		return Snapshot{}.With(values)
	})
}

// Overlay returns a Source whose snapshots fill gaps in base from extra.
func Overlay(base Source, extra map[string]string) Source {
	return SourceFunc(func() Snapshot {
		return base.Snapshot().With(extra)
	})
}
