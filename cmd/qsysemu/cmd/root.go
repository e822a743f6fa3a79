package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qsysemu",
	Short: "Local emulator of the SystemLink systems management job service",
	Long: `qsysemu serves the nisysmgmt job endpoints (create, list, summary, query,
cancel) backed by memory, Valkey or Postgres. It records jobs but never
dispatches them; use it for development and integration tests.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
