package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cronbot",
	Short: "Cronbot - Scheduled AI Agent Runner",
	Long: `Cronbot runs AI agents and agent teams on cron schedules and
persists their reports as text, markdown, HTML, JSON or PDF files.`,
	Version: Version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
