// kinds.go implements 'kdash kinds': a listing of the resource catalog the
// dashboard can display.
package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/example/kdash/internal/resources"
)

type kindRow struct {
	Kind    string `json:"kind" yaml:"kind"`
	API     string `json:"api" yaml:"api"`
	Scope   string `json:"scope" yaml:"scope"`
	Columns string `json:"columns" yaml:"columns"`
}

func kindRows() []kindRow {
	tables := resources.Catalog()
	out := make([]kindRow, 0, len(tables))
	for _, table := range tables {
		scope := "namespaced"
		if !table.Namespaced() {
			scope = "cluster"
		}
		titles := make([]string, 0, len(table.Columns()))
		for _, col := range table.Columns() {
			titles = append(titles, col.Title)
		}
		gvr := table.GVR()
		api := gvr.Version + "/" + gvr.Resource
		if gvr.Group != "" {
			api = gvr.Group + "/" + api
		}
		out = append(out, kindRow{
			Kind:    table.Kind(),
			API:     api,
			Scope:   scope,
			Columns: strings.Join(titles, ", "),
		})
	}
	return out
}

func newKindsCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List the resource kinds kdash can watch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := kindRows()
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "table":
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KIND\tAPI\tSCOPE\tCOLUMNS")
				for _, row := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Kind, row.API, row.Scope, row.Columns)
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
