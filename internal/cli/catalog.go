package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	forest "github.com/eforest-finance/forest-agent-kit"
	"github.com/eforest-finance/forest-agent-kit/policy"
	"github.com/eforest-finance/forest-agent-kit/schema"
	"github.com/eforest-finance/forest-agent-kit/skills"
)

// Output formats accepted by --output.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

func (a *app) newListCommand() *cobra.Command {
	var tier, output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the skill catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := skills.Default()
			defs := reg.List()
			if tier != "" {
				t, err := skills.ParseTier(tier)
				if err != nil {
					return err
				}
				defs = reg.ListByTier(t)
			}

			switch output {
			case OutputTable:
				rows := make([][]string, 0, len(defs))
				for _, d := range defs {
					rows = append(rows, []string{d.Name, string(d.Tier), string(d.Kind), d.ServiceKey})
				}
				return writeTable(a.out, []string{"NAME", "TIER", "KIND", "SERVICE KEY"}, rows)
			case OutputJSON:
				return writeJSON(a.out, defs)
			case OutputYAML:
				return writeYAML(a.out, defs)
			default:
				return fmt.Errorf("unknown output %q: use table, json or yaml", output)
			}
		},
	}
	cmd.Flags().StringVar(&tier, "tier", "", "only list skills of this tier (P0, P1, P2)")
	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "output format: table, json or yaml")
	return cmd
}

func (a *app) newSchemaCommand() *cobra.Command {
	var output bool

	cmd := &cobra.Command{
		Use:   "schema <ref|skill>",
		Short: "Print a schema document",
		Long: `Print a registered schema document by ref. Given a skill name, print
the skill's input schema, or its output schema with --output-schema.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			if def, ok := skills.Default().Get(ref); ok {
				ref = def.In
				if output {
					ref = def.Out
				}
			}
			doc, ok := schema.Default().GetSchema(ref)
			if !ok {
				return fmt.Errorf("schema not found: %s", ref)
			}
			var v any
			if err := json.Unmarshal(doc, &v); err != nil {
				return err
			}
			return writeJSON(a.out, v)
		},
	}
	cmd.Flags().BoolVar(&output, "output-schema", false, "print the output schema of a skill")
	return cmd
}

func (a *app) newStateCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the state of every service key",
		Long: `Print whether each service key is enabled or in maintenance, as
resolved from the EFOREST_* switches in the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.source()
			if err != nil {
				return err
			}
			states := forest.New(forest.WithSnapshotSource(src), forest.WithLogger(a.logger)).ServiceStates()
			return writeStates(a.out, output, states)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", OutputTable, "output format: table, json or yaml")
	return cmd
}

type stateRow struct {
	ServiceKey  string `json:"serviceKey" yaml:"serviceKey"`
	Reason      string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Maintenance bool   `json:"maintenance" yaml:"maintenance"`
}

func writeStates(w io.Writer, output string, states map[string]policy.Decision) error {
	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]stateRow, 0, len(keys))
	for _, k := range keys {
		d := states[k]
		rows = append(rows, stateRow{
			ServiceKey:  k,
			Reason:      d.Reason,
			Enabled:     d.State.Enabled,
			Maintenance: d.State.Maintenance,
		})
	}

	switch output {
	case OutputTable:
		cells := make([][]string, 0, len(rows))
		for _, r := range rows {
			cells = append(cells, []string{r.ServiceKey, strconv.FormatBool(r.Enabled), strconv.FormatBool(r.Maintenance), r.Reason})
		}
		return writeTable(w, []string{"SERVICE KEY", "ENABLED", "MAINTENANCE", "REASON"}, cells)
	case OutputJSON:
		return writeJSON(w, rows)
	case OutputYAML:
		return writeYAML(w, rows)
	default:
		return fmt.Errorf("unknown output %q: use table, json or yaml", output)
	}
}

func writeTable(w io.Writer, headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
