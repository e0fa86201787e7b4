// actions.go implements 'kdash actions': the per-kind action catalog consumers
// can offer for a selected row.
package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/example/kdash/internal/actions"
)

type actionRow struct {
	Kind    string `json:"kind" yaml:"kind"`
	Action  string `json:"action" yaml:"action"`
	Label   string `json:"label" yaml:"label"`
	Command string `json:"command" yaml:"command"`
	Confirm bool   `json:"confirm" yaml:"confirm"`
}

func actionRows(kind string) ([]actionRow, error) {
	kinds := actions.Kinds()
	if kind != "" {
		if specs := actions.For(kind); specs == nil {
			return nil, fmt.Errorf("no actions for kind %q (kinds with actions: %s)", kind, strings.Join(kinds, ", "))
		}
		kinds = []string{kind}
	}
	var out []actionRow
	for _, k := range kinds {
		for _, spec := range actions.For(k) {
			out = append(out, actionRow{
				Kind:    k,
				Action:  spec.ID,
				Label:   spec.Label,
				Command: strings.Join(spec.Command, " "),
				Confirm: spec.Confirm,
			})
		}
	}
	return out, nil
}

func newActionsCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "actions [KIND]",
		Short: "List the row actions available per resource kind",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := ""
			if len(args) == 1 {
				kind = strings.ToLower(strings.TrimSpace(args[0]))
			}
			rows, err := actionRows(kind)
			if err != nil {
				return err
			}
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "table":
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tACTION\tLABEL\tCONFIRM\tCOMMAND")
				for _, row := range rows {
					confirm := ""
					if row.Confirm {
						confirm = "yes"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.Kind, row.Action, row.Label, confirm, row.Command)
				}
				return tw.Flush()
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "yaml", "yml":
				b, err := yaml.Marshal(rows)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(b)
				return err
			default:
				return fmt.Errorf("unsupported --format %q (expected table, json, or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, yaml")
	return cmd
}
