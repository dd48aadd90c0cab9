package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spfpack/internal/pack"
)

func newInitCmd(global *globalFlags) *cobra.Command {
	var (
		domain string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Scaffold a new pack",
		Long: `Create the standard pack layout in dir: the manifest, the ontology, and
one directory per section with an entity template. Existing files are kept
unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := global.load(""); err != nil {
				return err
			}

			result, err := pack.Init(args[0], domain, force, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range result.Created {
				fmt.Fprintf(out, "created  %s\n", relTo(args[0], path))
			}
			for _, path := range result.Kept {
				fmt.Fprintf(out, "kept     %s\n", relTo(args[0], path))
			}
			fmt.Fprintln(out, result.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&domain, "domain", "d", "", "pack domain code, 2-4 uppercase letters (e.g. DP)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	cmd.MarkFlagRequired("domain")

	return cmd
}

func relTo(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}
