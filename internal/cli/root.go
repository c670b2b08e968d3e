// Package cli implements the forest-skill command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	forest "github.com/eforest-finance/forest-agent-kit"
	"github.com/eforest-finance/forest-agent-kit/config"
	"github.com/eforest-finance/forest-agent-kit/routing"
	"github.com/eforest-finance/forest-agent-kit/schema"
)

// ErrFailure is returned when the printed envelope is a failure. The
// envelope has already been written; callers only set the exit code.
var ErrFailure = errors.New("skill call failed")

// DispatcherFactory builds the dispatcher used by run and serve. envs lists
// the networks the command needs; the first one is the default.
type DispatcherFactory func(ctx context.Context, envs []string, src config.Source, logger *slog.Logger) (*forest.Dispatcher, error)

type app struct {
	out       io.Writer
	errOut    io.Writer
	v         *viper.Viper
	confirmer Confirmer
	factory   DispatcherFactory
	logger    *slog.Logger

	cfgFile   string
	routeFile string
	logLevel  string
	logFormat string
}

// Option configures the root command.
type Option func(*app)

// WithOutput sets the writers for results and diagnostics.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *app) {
		a.out = out
		a.errOut = errOut
	}
}

// WithConfirmer replaces the interactive prompt.
func WithConfirmer(c Confirmer) Option {
	return func(a *app) { a.confirmer = c }
}

// WithDispatcherFactory replaces how dispatchers are built.
func WithDispatcherFactory(f DispatcherFactory) Option {
	return func(a *app) { a.factory = f }
}

// WithViper sets the viper instance flags are bound to.
func WithViper(v *viper.Viper) Option {
	return func(a *app) { a.v = v }
}

// NewRootCommand builds the forest-skill command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	a := &app{
		out:       os.Stdout,
		errOut:    os.Stderr,
		confirmer: NewTerminalPrompter(os.Stderr),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.v == nil {
		a.v = viper.New()
	}
	if a.factory == nil {
		a.factory = a.loadDispatcher
	}

	root := &cobra.Command{
		Use:   "forest-skill",
		Short: "Dispatch eForest marketplace skills",
		Long: `forest-skill runs eForest NFT marketplace skills by name.

Every call prints a JSON envelope as the last line of stdout and exits
non-zero when the envelope is a failure.

Live contract calls go through the wallet gateway named by --ledger-url
or EFOREST_LEDGER_URL. It holds the keys, signs sends and encodes views.
Dry runs need no gateway.

Example:
  forest-skill run aelf-forest-list-item --dry-run \
    --field payload.symbol=TREE-1 --field payload.quantity=1`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(a.errOut, a.logLevel, a.logFormat)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./forest.yaml or ~/.forest/forest.yaml)")
	pf.StringVar(&a.routeFile, "routes", "", "YAML or JSON route map file for backend API actions")
	pf.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	pf.String("api-url", "", "backend API base URL")
	pf.String("rpc-url", "", "AELF main chain RPC URL")
	pf.Bool("skip-cms", false, "do not fetch contract addresses from the CMS")
	pf.String("ledger-url", "", "wallet gateway that signs transactions and serves contract views")
	_ = a.v.BindPFlag("api_url", pf.Lookup("api-url"))
	_ = a.v.BindPFlag("rpc_url", pf.Lookup("rpc-url"))
	_ = a.v.BindPFlag("skip_cms", pf.Lookup("skip-cms"))
	_ = a.v.BindPFlag("ledger_url", pf.Lookup("ledger-url"))

	root.AddCommand(
		a.newRunCommand(),
		a.newListCommand(),
		a.newSchemaCommand(),
		a.newStateCommand(),
		a.newServeCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, opts ...Option) int {
	root := NewRootCommand(opts...)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrFailure) {
			fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		}
		return 1
	}
	return 0
}

// newLogger builds the slog handler selected by --log-level and --log-format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q: use text or json", format)
	}
}

// parseLogLevel converts a string level to slog.Level, falling back to info.
func parseLogLevel(levelStr string) slog.Level {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// source returns the process environment, with the route file filling in
// the action map when the environment has none.
func (a *app) source() (config.Source, error) {
	base := config.NewEnvSource()
	if a.routeFile == "" {
		return base, nil
	}
	store, err := routing.NewFileStore(schema.Default())
	if err != nil {
		return nil, err
	}
	f, err := store.Load(a.routeFile)
	if err != nil {
		return nil, err
	}
	raw, err := f.ActionMapJSON()
	if err != nil {
		return nil, err
	}
	a.logger.Debug("route file loaded", slog.String("path", a.routeFile))
	return config.Overlay(base, map[string]string{routing.EnvActionMap: raw}), nil
}

func (a *app) dispatcher(ctx context.Context, envs ...string) (*forest.Dispatcher, error) {
	src, err := a.source()
	if err != nil {
		return nil, err
	}
	return a.factory(ctx, envs, src, a.logger)
}

// loadDispatcher is the default DispatcherFactory: it loads each network
// through config.Load and uses the default invokers.
func (a *app) loadDispatcher(ctx context.Context, envs []string, src config.Source, logger *slog.Logger) (*forest.Dispatcher, error) {
	opts := []forest.Option{
		forest.WithSnapshotSource(src),
		forest.WithLogger(logger),
	}
	for i, env := range envs {
		loadOpts := []config.LoadOption{
			config.WithEnv(env),
			config.WithViper(a.v),
			config.WithLogger(logger),
		}
		if a.cfgFile != "" {
			loadOpts = append(loadOpts, config.WithConfigFile(a.cfgFile))
		}
		n, err := config.Load(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load %s network: %w", env, err)
		}
		if i == 0 {
			opts = append(opts, forest.WithNetwork(n))
		}
		opts = append(opts, forest.WithNetworkFor(env, n))
	}
	return forest.New(opts...), nil
}
