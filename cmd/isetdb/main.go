// Package main provides the entry point for the isetdb CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/isetdb/cmd/isetdb/commands"
	"github.com/Sumatoshi-tech/isetdb/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "isetdb",
		Short: "isetdb - In-memory interval-set store",
		Long: `isetdb stores sets of scored intervals with attached member values
and answers overlap queries against them.

Commands:
  repl      Interactive command session
  load      Load a JSON dataset and report statistics
  render    Render the intervals of a key as an HTML chart
  bench     Run a synthetic workload
  mcp       Serve the store over the Model Context Protocol`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewReplCommand())
	rootCmd.AddCommand(commands.NewLoadCommand())
	rootCmd.AddCommand(commands.NewRenderCommand())
	rootCmd.AddCommand(commands.NewBenchCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintln(os.Stdout, version.String())
		},
	}
}
