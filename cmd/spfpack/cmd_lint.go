package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spfpack/internal/lint"
)

type lintFlags struct {
	format string
	strict bool
	rules  bool
}

func newLintCmd(global *globalFlags) *cobra.Command {
	flags := &lintFlags{}

	cmd := &cobra.Command{
		Use:   "lint [pack-dir]",
		Short: "Check the pack for process problems",
		Long: `Report missing summaries, stale entities, invalid dates, duplicate or
malformed IDs and other process findings. Exits 1 when there are errors,
or warnings with --strict. --rules lists the checks instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.rules {
				return listRules(cmd.OutOrStdout())
			}
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return err
			}
			return runLint(cmd, global, flags, args[0])
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&flags.strict, "strict", false, "treat warnings as failures")
	cmd.Flags().BoolVar(&flags.rules, "rules", false, "list the lint rules and exit")

	return cmd
}

func listRules(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tSEVERITY\tDESCRIPTION")
	for _, r := range lint.Rules() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Code, r.Severity, r.Description)
	}
	return tw.Flush()
}

func runLint(cmd *cobra.Command, global *globalFlags, flags *lintFlags, packDir string) error {
	if flags.format != "text" && flags.format != "json" {
		return fmt.Errorf("unknown format %q: want text or json", flags.format)
	}

	svc, err := global.openService(packDir, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	snap, err := svc.Refresh(cmd.Context())
	if err != nil {
		return err
	}
	report := snap.Lint
	out := cmd.OutOrStdout()

	if flags.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else if err := report.WriteText(out); err != nil {
		return err
	}

	if report.HasErrors() || (flags.strict && report.HasWarnings()) {
		return &exitError{code: 1}
	}
	return nil
}
