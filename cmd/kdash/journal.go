// journal.go implements 'kdash journal': offline queries against the SQLite
// event journal a dashboard run recorded with --journal.
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/kdash/internal/journal"
)

func newJournalCommand() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:           "journal",
		Short:         "Inspect a recorded event journal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&path, "journal", "", "Path to the journal SQLite file (required)")
	cmd.AddCommand(
		newJournalDiffCommand(&path),
		newJournalHistoryCommand(&path),
	)
	return cmd
}

func newJournalDiffCommand(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "diff KIND [NAMESPACE] NAME",
		Short: "Show a unified diff between the two latest recorded revisions of one object",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			jnl, err := openJournalFile(*path)
			if err != nil {
				return err
			}
			defer jnl.Close()
			kind, namespace, name := journalTarget(args)
			diff, err := jnl.DiffLatest(cmd.Context(), kind, namespace, name)
			if err != nil {
				return err
			}
			if diff == "" {
				target := name
				if namespace != "" {
					target = namespace + "/" + name
				}
				fmt.Fprintf(cmd.OutOrStdout(), "no changes between the two latest revisions of %s %s\n", kind, target)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

func newJournalHistoryCommand(path *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history KIND [NAMESPACE] NAME",
		Short: "List the recorded revisions of one object, newest first",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			jnl, err := openJournalFile(*path)
			if err != nil {
				return err
			}
			defer jnl.Close()
			kind, namespace, name := journalTarget(args)
			revs, err := jnl.Revisions(cmd.Context(), kind, namespace, name, limit)
			if err != nil {
				return err
			}
			if len(revs) == 0 {
				target := name
				if namespace != "" {
					target = namespace + "/" + name
				}
				fmt.Fprintf(cmd.OutOrStdout(), "no recorded revisions of %s %s\n", kind, target)
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tRECORDED\tEVENT\tRESOURCE VERSION")
			for _, rev := range revs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", rev.ID, rev.RecordedAt.Local().Format(time.RFC3339), rev.Event, rev.ResourceVersion)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of revisions to list")
	return cmd
}

// openJournalFile opens an existing journal for queries. Unlike the recording
// path it refuses to create the file.
func openJournalFile(path string) (*journal.Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("--journal is required")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("journal %s does not exist", path)
		}
		return nil, err
	}
	return journal.Open(path, journal.Options{})
}

func journalTarget(args []string) (kind, namespace, name string) {
	kind = strings.ToLower(strings.TrimSpace(args[0]))
	if len(args) == 3 {
		return kind, args[1], args[2]
	}
	return kind, "", args[1]
}
