package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSearchCmd(global *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <pack-dir> <query>",
		Short: "Full-text search over entity IDs, names and summaries",
		Long: `Refresh the SQLite entity index for the pack and search it. Words are
matched as terms; a trailing * makes a prefix match (e.g. "distinc*").`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := global.openService(args[0], true)
			if err != nil {
				return err
			}
			defer svc.Close()

			if _, err := svc.Refresh(cmd.Context()); err != nil {
				return err
			}

			query := strings.Join(args[1:], " ")
			results, err := svc.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintf(out, "No entities match %q\n", query)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSUMMARY")
			for _, r := range results {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, truncate(r.Summary, 80))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of results")
	return cmd
}

func truncate(s string, max int) string {
	r := []rune(strings.ReplaceAll(s, "\n", " "))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-3]) + "..."
}
