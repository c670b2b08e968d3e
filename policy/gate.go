// Package policy decides whether a forest service is enabled or in
// maintenance from layered environment switches.
package policy

import (
	"strings"

	"github.com/eforest-finance/forest-agent-kit/config"
)

// Configuration keys read by the gate.
const (
	EnvDisableAll       = "EFOREST_DISABLE_ALL_SERVICES"
	EnvEnabledServices  = "EFOREST_ENABLED_SERVICES"
	EnvDisabledServices = "EFOREST_DISABLED_SERVICES"
	EnvMaintenance      = "EFOREST_MAINTENANCE_SERVICES"
	ServiceEnvPrefix    = "EFOREST_SERVICE_"
)

// ServiceDomains are the namespaces every service key must live under.
var ServiceDomains = []string{
	"forest.create.*",
	"forest.market.*",
	"forest.quote.*",
	"forest.drop.*",
	"forest.whitelist.*",
	"forest.ai.*",
	"forest.miniapp.*",
	"forest.profile.*",
	"forest.discover.*",
	"forest.realtime.*",
}

// IsAllowedServiceKey reports whether key falls under one of ServiceDomains.
func IsAllowedServiceKey(key string) bool {
	for _, domain := range ServiceDomains {
		if strings.HasPrefix(key, strings.TrimSuffix(domain, "*")) {
			return true
		}
	}
	return false
}

// ServiceState is the operational state of a service key.
type ServiceState struct {
	Enabled     bool `json:"enabled"`
	Maintenance bool `json:"maintenance"`
}

var disabled = ServiceState{Enabled: false, Maintenance: true}

// Decision is a ServiceState together with the rule that produced it.
type Decision struct {
	Reason string
	State  ServiceState
}

// ServiceEnvKey returns the explicit override key for a service key:
// "forest.market.*" becomes "EFOREST_SERVICE_FOREST_MARKET_ALL".
func ServiceEnvKey(serviceKey string) string {
	key := strings.ReplaceAll(serviceKey, ".", "_")
	key = strings.ReplaceAll(key, "*", "ALL")
	return ServiceEnvPrefix + strings.ToUpper(key)
}

// Evaluate resolves the state of serviceKey. The first matching rule wins:
// global kill switch, explicit false override, allow/deny lists, then the
// maintenance list.
func Evaluate(serviceKey string, snap config.Snapshot) Decision {
	if all, ok := snap.Bool(EnvDisableAll); ok && all {
		return Decision{State: disabled, Reason: "all services disabled"}
	}

	overrideKey := ServiceEnvKey(serviceKey)
	if enabled, ok := snap.Bool(overrideKey); ok && !enabled {
		return Decision{State: disabled, Reason: "explicit override " + overrideKey}
	}

	if allow := snap.List(EnvEnabledServices); len(allow) > 0 && !MatchAny(serviceKey, allow) {
		return Decision{State: disabled, Reason: "not in enabled services"}
	}
	if MatchAny(serviceKey, snap.List(EnvDisabledServices)) {
		return Decision{State: disabled, Reason: "in disabled services"}
	}

	if MatchAny(serviceKey, snap.List(EnvMaintenance)) {
		return Decision{State: ServiceState{Enabled: true, Maintenance: true}, Reason: "in maintenance services"}
	}
	return Decision{State: ServiceState{Enabled: true}}
}

// GetServiceState is Evaluate without the reason.
func GetServiceState(serviceKey string, snap config.Snapshot) ServiceState {
	return Evaluate(serviceKey, snap).State
}

// Gate evaluates service state and reports denials.
type Gate struct {
	handler DenialHandler
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithDenialHandler sets the handler notified when a service is unavailable.
func WithDenialHandler(h DenialHandler) GateOption {
	return func(g *Gate) {
		if h != nil {
			g.handler = h
		}
	}
}

// NewGate creates a Gate. Denials are dropped unless a handler is set.
func NewGate(opts ...GateOption) *Gate {
	g := &Gate{handler: &NopDenialHandler{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate returns the decision without side effects.
func (g *Gate) Evaluate(serviceKey string, snap config.Snapshot) Decision {
	return Evaluate(serviceKey, snap)
}

// Check returns the service state, notifying the denial handler when the
// service is disabled or in maintenance.
func (g *Gate) Check(serviceKey string, snap config.Snapshot) ServiceState {
	d := Evaluate(serviceKey, snap)
	if !d.State.Enabled || d.State.Maintenance {
		g.handler.OnDenial(serviceKey, d.State, d.Reason)
	}
	return d.State
}
