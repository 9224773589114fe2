package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/cronbot/internal/app"
	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/constants"
	"github.com/aatumaykin/cronbot/internal/logger"
	"github.com/aatumaykin/cronbot/internal/version"
)

var (
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Cronbot scheduler (main command)",
	Long: `Start the Cronbot scheduler with the specified configuration.
Every job in the jobs file is registered with the cron dispatcher and
fires on its schedule until a termination signal arrives. Shutdown
drains in-flight job runs before exiting.

The serve command is the main entry point for running Cronbot.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	// Load .env file if exists
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		fmt.Printf(constants.MsgErrorEnvLoad, err)
		os.Exit(1)
	}

	// Determine config path
	configPath := serveConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf(constants.MsgErrorConfigLoad, err)
		os.Exit(1)
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	// Validate configuration
	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf(constants.MsgErrorConfigInvalid)
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf(constants.MsgErrorLoggerInit, err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	fmt.Println(version.FormatStartupMessage())

	// Log startup information
	log.Info("🚀 Starting Cronbot",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "workspace", Value: cfg.Workspace.Path},
		logger.Field{Key: "jobs_file", Value: cfg.JobsFile()},
		logger.Field{Key: "timezone", Value: cfg.Scheduler.Timezone})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("⏳ Received shutdown signal",
			logger.Field{Key: "signal", Value: sig.String()})
		log.Info("🛑 Shutting down Cronbot...")
		cancel()
	}()

	application := app.New(cfg, log)
	if err := application.Run(ctx); err != nil {
		log.Error("Cronbot failed", err)
		os.Exit(1)
	}

	log.Info("👋 Cronbot stopped gracefully")
	os.Exit(0)
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}
