package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/cronbot/internal/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Display the version, build time, git commit and Go version of Cronbot.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Cronbot - Scheduled AI Agent Runner")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Go Version: %s\n", version.GoVersion)
	},
}
