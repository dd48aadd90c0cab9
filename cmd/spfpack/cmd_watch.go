package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spfpack/internal/service"
)

func newWatchCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <pack-dir>",
		Short: "Regenerate the MAP whenever pack files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := global.openService(args[0], false)
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", svc.Dir())

			return svc.Watch(ctx, func(result *service.MapResult, err error) {
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "regenerate failed: %v\n", err)
					return
				}
				if result.Written {
					fmt.Fprintf(out, "MAP written to: %s\n", result.Path)
				}
			})
		},
	}
}
