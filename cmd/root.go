// Package cmd defines and implements the CLI commands for the portarc executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "portarc",
		Short: "Archives portal-reachable pages as PDF snapshots, exactly once.",
		Long: `portarc renders a portal page in headless Chrome, follows the links it
exposes breadth-first, and exports each page as a PDF. A durable history
file keeps every URL to a single archive across restarts.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "portarc.yaml", "config file path")
	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
