package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/isetdb/internal/config"
	"github.com/Sumatoshi-tech/isetdb/internal/mcp"
	"github.com/Sumatoshi-tech/isetdb/internal/observability"
	"github.com/Sumatoshi-tech/isetdb/pkg/store"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes the interval-set store as tools AI agents can discover
and invoke:
  - iset_add: add intervals with member values to a key
  - iset_query: find intervals overlapping a range
  - iset_remove: remove members from a key
  - iset_card: count the members of a key

The store lives for the duration of the MCP session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			providers, err := initObservability(cobraCmd.Context(), cfg, debug)
			if err != nil {
				return err
			}

			defer shutdownObservability(providers)

			metrics, err := observability.NewCommandMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				DB:      store.New(store.WithHibernationThreshold(cfg.Store.HibernationThreshold)),
				Logger:  providers.Logger,
				Metrics: metrics,
				Tracer:  providers.Tracer,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: .isetdb.yaml in cwd or $HOME)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
