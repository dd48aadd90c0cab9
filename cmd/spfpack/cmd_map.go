package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

type mapFlags struct {
	manifest bool
	stdout   bool
	render   bool
}

func newMapCmd(global *globalFlags) *cobra.Command {
	flags := &mapFlags{}

	cmd := &cobra.Command{
		Use:   "map <pack-dir>",
		Short: "Regenerate the pack MAP and print the Entity Index",
		Long: `Scan the pack, write 07-map/<DOMAIN>.MAP.001.md and print the Entity
Index table. With --manifest the index is also spliced into the manifest's
"## Entity Index" section.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd, global, flags, args[0])
		},
	}

	cmd.Flags().BoolVar(&flags.manifest, "manifest", false, "update the Entity Index in the pack manifest")
	cmd.Flags().BoolVar(&flags.stdout, "stdout", false, "print the MAP instead of writing it")
	cmd.Flags().BoolVar(&flags.render, "render", false, "print the MAP rendered for the terminal instead of writing it")

	return cmd
}

func runMap(cmd *cobra.Command, global *globalFlags, flags *mapFlags, packDir string) error {
	svc, err := global.openService(packDir, false)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if flags.stdout || flags.render {
		result, err := svc.GenerateMap(ctx)
		if err != nil {
			return err
		}
		if !flags.render {
			fmt.Fprintln(out, result.Content)
			return nil
		}
		rendered, err := renderMarkdown(result.Content)
		if err != nil {
			return err
		}
		fmt.Fprint(out, rendered)
		return nil
	}

	result, err := svc.WriteMap(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Domain: %s\n", result.Domain)
	fmt.Fprintf(out, "Pack directory: %s\n", svc.Dir())
	if result.Written {
		fmt.Fprintf(out, "MAP written to: %s\n", result.Path)
		// The MAP is an entity too; rescan so the index lists it.
		if _, err := svc.Refresh(ctx); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "MAP up to date: %s\n", result.Path)
	}

	entityIndex, err := svc.EntityIndex(ctx)
	if err != nil {
		return err
	}

	if flags.manifest {
		changed, err := svc.UpdateManifest(ctx)
		if err != nil {
			return err
		}
		if changed {
			fmt.Fprintf(out, "Manifest updated: %s\n", svc.ManifestPath())
		}
		fmt.Fprint(out, "\nEntity Index (for manifest):\n\n")
	}
	fmt.Fprintln(out, entityIndex)
	return nil
}

func renderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return renderer.Render(content)
}

func newIndexCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index <pack-dir>",
		Short: "Print the Entity Index table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := global.openService(args[0], false)
			if err != nil {
				return err
			}
			defer svc.Close()

			entityIndex, err := svc.EntityIndex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), entityIndex)
			return nil
		},
	}
}
