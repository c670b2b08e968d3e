// Package forest dispatches named eForest skills. Every call goes through the
// same pipeline: lookup, normalize, validate, gate, execute, finalize. The
// result is always an envelope.Envelope; errors and panics never escape.
package forest

import (
	"log/slog"
	"time"

	"github.com/eforest-finance/forest-agent-kit/config"
	"github.com/eforest-finance/forest-agent-kit/ledger"
	"github.com/eforest-finance/forest-agent-kit/policy"
	"github.com/eforest-finance/forest-agent-kit/schema"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

// Dispatcher routes skill calls to their executors. It is safe for
// concurrent use; configuration is read from its Source on every call.
type Dispatcher struct {
	contracts  ContractInvoker
	apis       APIInvoker
	source     config.Source
	skills     *skills.Registry
	schemas    *schema.Registry
	gate       *policy.Gate
	network    *config.Network
	networks   map[string]*config.Network
	logger     *slog.Logger
	now        func() time.Time
	execute    ExecuteFunc
	middleware []Middleware
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithNetwork sets the network used for every env without its own entry.
func WithNetwork(n *config.Network) Option {
	return func(d *Dispatcher) { d.network = n }
}

// WithNetworkFor sets the network used for calls whose env is env.
func WithNetworkFor(env string, n *config.Network) Option {
	return func(d *Dispatcher) {
		if d.networks == nil {
			d.networks = make(map[string]*config.Network)
		}
		d.networks[env] = n
	}
}

// WithContractInvoker replaces the ledger invoker.
func WithContractInvoker(inv ContractInvoker) Option {
	return func(d *Dispatcher) { d.contracts = inv }
}

// WithAPIInvoker replaces the backend API invoker.
func WithAPIInvoker(inv APIInvoker) Option {
	return func(d *Dispatcher) { d.apis = inv }
}

// WithSnapshotSource sets where gating and route configuration is read from.
// Defaults to the process environment.
func WithSnapshotSource(src config.Source) Option {
	return func(d *Dispatcher) { d.source = src }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithMiddleware appends middleware around the execute stage. Middleware
// runs in registration order inside panic recovery and logging.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) { d.middleware = append(d.middleware, mw...) }
}

// WithSkills replaces the skill catalog.
func WithSkills(r *skills.Registry) Option {
	return func(d *Dispatcher) { d.skills = r }
}

// WithSchemas replaces the schema registry.
func WithSchemas(r *schema.Registry) Option {
	return func(d *Dispatcher) { d.schemas = r }
}

// WithGate replaces the service gate.
func WithGate(g *policy.Gate) Option {
	return func(d *Dispatcher) { d.gate = g }
}

// WithClock sets the time source used for generated trace ids.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// New creates a Dispatcher. Without invoker options, contract calls go
// through the ledger gateway of the call's network (see config.Network
// LedgerURL) and API calls through the HTTP client configured by the call's
// network.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.skills == nil {
		d.skills = skills.Default()
	}
	if d.schemas == nil {
		d.schemas = schema.Default()
	}
	if d.source == nil {
		d.source = config.NewEnvSource()
	}
	if d.gate == nil {
		d.gate = policy.NewGate(policy.WithDenialHandler(&policy.LogDenialHandler{Logger: d.logger}))
	}
	if d.contracts == nil {
		d.contracts = &LedgerInvoker{Ledger: ledger.New(ledger.WithLogger(d.logger)), Logger: d.logger}
	}
	if d.apis == nil {
		d.apis = NewHTTPAPIInvoker(d.logger)
	}

	mws := append([]Middleware{PanicRecoveryMiddleware(d.logger), LoggingMiddleware(d.logger)}, d.middleware...)
	d.execute = Chain(d.executeKind, mws...)
	return d
}

// Skills returns the skill catalog.
func (d *Dispatcher) Skills() *skills.Registry { return d.skills }

// Schemas returns the schema registry.
func (d *Dispatcher) Schemas() *schema.Registry { return d.schemas }

// ServiceStates evaluates every service key of the catalog against the
// current configuration.
func (d *Dispatcher) ServiceStates() map[string]policy.Decision {
	snap := d.source.Snapshot()
	keys := d.skills.ServiceKeys()
	out := make(map[string]policy.Decision, len(keys))
	for _, key := range keys {
		out[key] = d.gate.Evaluate(key, snap)
	}
	return out
}

func (d *Dispatcher) networkFor(env string) *config.Network {
	if n, ok := d.networks[env]; ok && n != nil {
		return n
	}
	return d.network
}
