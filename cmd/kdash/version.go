package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/kdash/internal/version"
)

func newVersionCommand() *cobra.Command {
	var short bool
	var asJSON bool
	cmd := &cobra.Command{
		Use:           "version",
		Short:         "Print the kdash version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			switch {
			case short:
				fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return nil
			case asJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print just the version number")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full build info as JSON")
	return cmd
}
