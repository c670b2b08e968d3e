package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eforest-finance/forest-agent-kit/envelope"
	"github.com/eforest-finance/forest-agent-kit/routing"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

// ErrAborted is returned when the operator declines a live send.
var ErrAborted = errors.New("aborted by user")

type runOptions struct {
	env       string
	traceID   string
	inputJSON string
	fields    []string
	timeoutMs int64
	dryRun    bool
	yes       bool
}

func (a *app) newRunCommand() *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run <skill>",
		Short: "Run a skill and print its envelope",
		Long: `Run a skill by name. The input envelope is built from --input-json,
then each --field path=value is applied, then the envelope flags.

Examples:
  forest-skill run aelf-forest-contract-market --dry-run \
    --input-json '{"method":"Delist","args":{"symbol":"TREE-1"}}'
  forest-skill run aelf-forest-api-market --field action=fetchTokens --field params.chainId=tDVV`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], o)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.env, "env", "", "network: mainnet or testnet")
	f.BoolVar(&o.dryRun, "dry-run", false, "plan the call without side effects")
	f.StringVar(&o.traceID, "trace-id", "", "trace id to propagate")
	f.Int64Var(&o.timeoutMs, "timeout-ms", 0, "advisory timeout in milliseconds")
	f.StringVar(&o.inputJSON, "input-json", "", "input envelope as a JSON object")
	f.StringArrayVar(&o.fields, "field", nil, "set input field path=value (repeatable)")
	f.BoolVarP(&o.yes, "yes", "y", false, "do not ask before sending transactions")
	return cmd
}

func (a *app) run(cmd *cobra.Command, skill string, o runOptions) error {
	input, err := buildInput(o.inputJSON, o.fields)
	if err != nil {
		return a.print(envelope.Failure(envelope.CodeInvalidParams, err.Error(),
			envelope.WithTraceID(o.traceID)))
	}
	if cmd.Flags().Changed("env") {
		input["env"] = o.env
	}
	if cmd.Flags().Changed("dry-run") {
		input["dryRun"] = o.dryRun
	}
	if o.traceID != "" {
		input["traceId"] = o.traceID
	}
	if o.timeoutMs > 0 {
		input["timeoutMs"] = o.timeoutMs
	}

	env, _ := input["env"].(string)
	if env == "" {
		env = envelope.EnvMainnet
	}
	d, err := a.dispatcher(cmd.Context(), env)
	if err != nil {
		return err
	}

	if def, ok := d.Skills().Get(skill); ok && !o.yes && sends(def, input) && a.confirmer.IsInteractive() {
		confirmed, err := a.confirmer.Confirm(
			fmt.Sprintf("Run %s on %s?", skill, env),
			describeSend(def, input))
		if err != nil {
			return err
		}
		if !confirmed {
			return ErrAborted
		}
	}

	return a.print(d.Dispatch(cmd.Context(), skill, input))
}

// sends reports whether the call can broadcast a transaction.
func sends(def skills.Definition, input map[string]any) bool {
	if dry, _ := input["dryRun"].(bool); dry {
		return false
	}
	switch def.Kind {
	case skills.KindWorkflow:
		return true
	case skills.KindMethodContract:
		method, _ := input["method"].(string)
		return routing.ExecutionModeFor(def.Name, method) == routing.ModeSend
	default:
		return false
	}
}

func describeSend(def skills.Definition, input map[string]any) string {
	if method, ok := input["method"].(string); ok && def.Kind == skills.KindMethodContract {
		return fmt.Sprintf("%s will send %s as a signed transaction.", def.Name, method)
	}
	return fmt.Sprintf("%s may send signed transactions.", def.Name)
}

// print writes e as one JSON line and maps failures to ErrFailure.
func (a *app) print(e envelope.Envelope) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, string(b))
	if !e.Success {
		return ErrFailure
	}
	return nil
}
