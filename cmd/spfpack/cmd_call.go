package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spfpack/internal/daemon"
)

func newCallCmd(global *globalFlags) *cobra.Command {
	var (
		socketPath string
		args       string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "call [tool]",
		Short: "Call a tool on a running spfpack daemon",
		Long: `Connect to a daemon started with "spfpack serve --daemon" (or --socket)
and call one of its MCP tools. Without a tool name the available tools are
listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			cfg, err := global.load("")
			if err != nil {
				return err
			}
			if socketPath == "" {
				socketPath = cfg.SocketPath()
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := daemon.Dial(ctx, socketPath)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.Initialize(ctx); err != nil {
				return fmt.Errorf("initialize: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(positional) == 0 {
				list, err := client.ListTools(ctx)
				if err != nil {
					return err
				}
				for _, t := range list.Tools {
					fmt.Fprintf(out, "%-20s %s\n", t.Name, t.Description)
				}
				return nil
			}

			var raw json.RawMessage
			if args != "" {
				if !json.Valid([]byte(args)) {
					return fmt.Errorf("--args is not valid JSON")
				}
				raw = json.RawMessage(args)
			}

			result, err := client.CallTool(ctx, positional[0], raw)
			if err != nil {
				return err
			}
			for _, c := range result.Content {
				fmt.Fprintln(out, c.Text)
			}
			if result.IsError {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "", "daemon socket (default from config)")
	cmd.Flags().StringVar(&args, "args", "", "tool arguments as a JSON object")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "call timeout")

	return cmd
}
