package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alucardeht/spfpack/internal/config"
	"github.com/alucardeht/spfpack/internal/logger"
	"github.com/alucardeht/spfpack/internal/service"
	"github.com/alucardeht/spfpack/pkg/version"
)

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "spfpack",
		Short: "Tooling for Second Principles Framework packs",
		Long: `spfpack reads the frontmatter of every entity in an SPF pack and
keeps the pack's navigation artifacts current:

- the MAP (07-map/<DOMAIN>.MAP.001.md) with per-kind tables and statistics
- the Entity Index table in 00-pack-manifest.md
- process lint: missing summaries, stale entities, malformed IDs

It can also serve the pack to agents over MCP and as a read-only HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: <pack-dir>/"+config.FileName+")")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "log format (text, json)")

	cmd.AddCommand(
		newMapCmd(flags),
		newIndexCmd(flags),
		newLintCmd(flags),
		newSearchCmd(flags),
		newWatchCmd(flags),
		newServeCmd(flags),
		newCallCmd(flags),
		newInitCmd(flags),
		newVersionCmd(),
	)

	return cmd
}

// load resolves the configuration for packDir, applies the global flags and
// initializes logging on stderr.
func (f *globalFlags) load(packDir string) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, packDir)
	if err != nil {
		return nil, err
	}

	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	if err := f.initLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *globalFlags) initLogging(cfg *config.Config) error {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("log format must be text or json, got %q", cfg.LogFormat)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = level
	logCfg.Format = cfg.LogFormat
	logCfg.Output = os.Stderr
	logger.Init(logCfg)
	return nil
}

// openService builds the pack service. Commands that never search pass
// withIndex=false so no SQLite file is created for them.
func (f *globalFlags) openService(packDir string, withIndex bool, opts ...service.Option) (*service.Service, error) {
	cfg, err := f.load(packDir)
	if err != nil {
		return nil, err
	}
	if !withIndex {
		cfg.Index.Enabled = false
	}
	return service.New(packDir, cfg, opts...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spfpack %s (MCP protocol %s)\n", version.Version, version.ProtocolVersion)
		},
	}
}
