// Package skills holds the static catalog of forest skills: their schema
// bindings, tier, execution kind and service key.
package skills

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/eforest-finance/forest-agent-kit/policy"
)

// Kind is the execution strategy of a skill.
type Kind string

// Supported kinds. The set is closed.
const (
	KindWorkflow       Kind = "workflow"
	KindMethodContract Kind = "method.contract"
	KindMethodAPI      Kind = "method.api"
)

// Kinds lists every Kind.
var Kinds = []Kind{KindWorkflow, KindMethodContract, KindMethodAPI}

// Suffix is the last segment of service keys for the kind.
func (k Kind) Suffix() string {
	switch k {
	case KindWorkflow:
		return "workflow"
	case KindMethodContract:
		return "contract"
	case KindMethodAPI:
		return "api"
	default:
		return ""
	}
}

// Tier is the rollout priority of a skill.
type Tier string

const (
	TierP0 Tier = "P0"
	TierP1 Tier = "P1"
	TierP2 Tier = "P2"
)

// ParseTier accepts P0, P1 or P2 in any case.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(s))); t {
	case TierP0, TierP1, TierP2:
		return t, nil
	default:
		return "", fmt.Errorf("unknown tier %q", s)
	}
}

// Schema ref prefixes that determine Kind.
const (
	WorkflowSchemaPrefix = "schema.workflow."
	ContractSchemaPrefix = "schema.method.contract."
	APISchemaPrefix      = "schema.method.api."
)

// Entry is a row of the static skill table.
type Entry struct {
	Name string
	In   string
	Out  string
	Tier Tier
}

// Definition is a fully resolved skill.
type Definition struct {
	Name       string `json:"name" yaml:"name"`
	In         string `json:"in" yaml:"in"`
	Out        string `json:"out" yaml:"out"`
	Tier       Tier   `json:"tier" yaml:"tier"`
	Kind       Kind   `json:"kind" yaml:"kind"`
	ServiceKey string `json:"serviceKey" yaml:"serviceKey"`
}

// ErrUnknownKind is returned when an input schema ref has no known prefix.
var ErrUnknownKind = errors.New("unknown skill kind")

// KindOf derives the kind from an input schema ref.
func KindOf(inRef string) (Kind, error) {
	switch {
	case strings.HasPrefix(inRef, WorkflowSchemaPrefix):
		return KindWorkflow, nil
	case strings.HasPrefix(inRef, ContractSchemaPrefix):
		return KindMethodContract, nil
	case strings.HasPrefix(inRef, APISchemaPrefix):
		return KindMethodAPI, nil
	default:
		return "", fmt.Errorf("%w for schema %s", ErrUnknownKind, inRef)
	}
}

type domainRule struct {
	domain   string
	keywords []string
}

// Rules are tried in order on plain substrings of the name; first hit wins.
var domainRules = []domainRule{
	{"forest.whitelist", []string{"whitelist"}},
	{"forest.drop", []string{"drop"}},
	{"forest.ai", []string{"ai"}},
	{"forest.miniapp", []string{"miniapp"}},
	{"forest.profile", []string{"profile", "-user"}},
	{"forest.realtime", []string{"watch-market-signals", "realtime"}},
	{"forest.quote", []string{"quote"}},
	{"forest.discover", []string{"query-collections", "collection", "discover", "-system"}},
	{"forest.create", []string{"create", "issue", "token-adapter", "sync", "platform"}},
}

// ServiceDomain infers the service domain from a skill name.
func ServiceDomain(name string) string {
	for _, rule := range domainRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.domain
			}
		}
	}
	return "forest.market"
}

// ServiceKey returns "<domain>.<kind suffix>".
func ServiceKey(name string, kind Kind) string {
	return ServiceDomain(name) + "." + kind.Suffix()
}

// Registry is an immutable skill catalog.
type Registry struct {
	byName map[string]Definition
	names  []string
}

// New builds a registry from entries. It fails on duplicate names, unknown
// kinds, unknown tiers and service keys outside policy.ServiceDomains.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{byName: make(map[string]Definition, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, errors.New("skill name is empty")
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, fmt.Errorf("duplicate skill %s", e.Name)
		}
		if _, err := ParseTier(string(e.Tier)); err != nil {
			return nil, fmt.Errorf("skill %s: %w", e.Name, err)
		}
		kind, err := KindOf(e.In)
		if err != nil {
			return nil, fmt.Errorf("skill %s: %w", e.Name, err)
		}
		key := ServiceKey(e.Name, kind)
		if !policy.IsAllowedServiceKey(key) {
			return nil, fmt.Errorf("service key %q is outside forest service namespaces", key)
		}
		r.byName[e.Name] = Definition{
			Name:       e.Name,
			In:         e.In,
			Out:        e.Out,
			Tier:       e.Tier,
			Kind:       kind,
			ServiceKey: key,
		}
		r.names = append(r.names, e.Name)
	}
	return r, nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// List returns all definitions in table order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, r.byName[n])
	}
	return out
}

// ListByTier returns the definitions of one tier in table order.
func (r *Registry) ListByTier(tier Tier) []Definition {
	var out []Definition
	for _, n := range r.names {
		if d := r.byName[n]; d.Tier == tier {
			out = append(out, d)
		}
	}
	return out
}

// Names returns every skill name, sorted.
func (r *Registry) Names() []string {
	out := append([]string(nil), r.names...)
	sort.Strings(out)
	return out
}

// ServiceKeys returns the distinct service keys, sorted.
func (r *Registry) ServiceKeys() []string {
	seen := make(map[string]struct{})
	for _, d := range r.byName {
		seen[d.ServiceKey] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
