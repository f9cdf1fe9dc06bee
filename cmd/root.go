// Package cmd defines the CLI commands for the enricher executable.
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
		Use:   "enricher",
		Short: "Finds contact emails for lists of companies.",
		Long: `enricher takes a CSV of company names and discovers each company's
website, crawls it politely for contact addresses, merges results from
Hunter and Apollo, and writes an enriched CSV/JSON report. Progress is
checkpointed so an interrupted run picks up where it left off.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./enricher.yaml)")
	cmd.AddCommand(newRunCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
