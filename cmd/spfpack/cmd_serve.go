package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alucardeht/spfpack/internal/daemon"
	"github.com/alucardeht/spfpack/internal/httpapi"
	"github.com/alucardeht/spfpack/internal/logger"
	"github.com/alucardeht/spfpack/internal/mcp"
	"github.com/alucardeht/spfpack/internal/service"
	"github.com/alucardeht/spfpack/internal/tools"
	"github.com/alucardeht/spfpack/internal/tools/packtools"
	"github.com/alucardeht/spfpack/pkg/version"
)

var log = logger.ForComponent("cli")

type serveFlags struct {
	mcp        bool
	daemon     bool
	socketPath string
	httpAddr   string
	watch      bool
}

func newServeCmd(global *globalFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve <pack-dir>",
		Short: "Serve the pack over MCP and HTTP",
		Long: `Serve the pack to agents. Transports can be combined:

  --mcp            MCP over stdin/stdout (the default when nothing is chosen)
  --socket <path>  MCP over a unix socket, one session per client
  --daemon         MCP over the configured socket path
  --http <addr>    read-only JSON API plus /metrics

With --watch the MAP is regenerated whenever pack files change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, global, flags, args[0])
		},
	}

	cmd.Flags().BoolVar(&flags.mcp, "mcp", false, "serve MCP on stdio")
	cmd.Flags().BoolVar(&flags.daemon, "daemon", false, "serve MCP on the configured unix socket")
	cmd.Flags().StringVar(&flags.socketPath, "socket", "", "serve MCP on this unix socket")
	cmd.Flags().StringVar(&flags.httpAddr, "http", "", "serve the HTTP API on this address (e.g. :8420)")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "regenerate the MAP on change")

	return cmd
}

func runServe(cmd *cobra.Command, global *globalFlags, flags *serveFlags, packDir string) error {
	cfg, err := global.load(packDir)
	if err != nil {
		return err
	}

	socketPath := flags.socketPath
	if socketPath == "" && flags.daemon {
		socketPath = cfg.SocketPath()
	}
	httpAddr := flags.httpAddr
	if httpAddr == "" {
		httpAddr = cfg.Server.HTTPAddr
	}
	useStdio := flags.mcp || (socketPath == "" && httpAddr == "")

	svc, err := service.New(packDir, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := svc.Refresh(ctx); err != nil {
		return err
	}

	registry, err := newRegistry(svc)
	if err != nil {
		return err
	}
	server := mcp.NewServer(registry, mcp.Options{
		Name:        "spfpack",
		Version:     version.Version,
		ToolTimeout: cfg.Server.ToolTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)

	if useStdio {
		g.Go(func() error {
			defer stop()
			return server.ServeStdio(gctx, os.Stdin, os.Stdout)
		})
	}

	if socketPath != "" {
		d := daemon.New(socketPath, server)
		g.Go(func() error {
			return d.Run(gctx)
		})
	}

	if httpAddr != "" {
		g.Go(func() error {
			return serveHTTP(gctx, httpAddr, svc)
		})
	}

	if flags.watch {
		g.Go(func() error {
			return svc.Watch(gctx, func(result *service.MapResult, err error) {
				if err != nil {
					log.Warn("regenerate failed", "error", err)
				}
			})
		})
	}

	log.Info("serving pack", "dir", svc.Dir(), "stdio", useStdio, "socket", socketPath, "http", httpAddr, "watch", flags.watch)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRegistry(svc *service.Service) (*tools.Registry, error) {
	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewHealthTool(version.Version, packtools.Status(svc))); err != nil {
		return nil, err
	}
	if err := registry.RegisterAll(packtools.GetTools(svc)...); err != nil {
		return nil, fmt.Errorf("register pack tools: %w", err)
	}
	return registry, nil
}

func serveHTTP(ctx context.Context, addr string, svc *service.Service) error {
	srv := httpapi.NewServer(addr, httpapi.New(svc).Routes())

	errCh := make(chan error, 1)
	go func() {
		log.Info("http api listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
