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
)

var (
	runConfigPath string
	runDebug      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run a single job immediately",
	Long: `Run the named job once, outside its schedule, and exit.
The job executes synchronously: the command returns after the job's
output has been written, with exit code 0 on success and 1 on failure.`,
	Args: cobra.ExactArgs(1),
	Run:  runHandler,
}

func runHandler(cmd *cobra.Command, args []string) {
	jobName := args[0]

	// Determine config path
	configPath := runConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf(constants.MsgErrorConfigLoad, err)
		os.Exit(1)
	}

	// Validate configuration
	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf(constants.MsgErrorConfigInvalid)
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	// Enable debug mode if flag is set
	if runDebug {
		cfg.Logging.Level = "debug"
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

	log.Info("🚀 Starting Cronbot",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "workspace", Value: cfg.Workspace.Path},
		logger.Field{Key: "job", Value: jobName})

	// Create context for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling so Ctrl-C aborts the run
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("⏳ Received shutdown signal",
			logger.Field{Key: "signal", Value: sig.String()})
		cancel()
	}()

	application := app.New(cfg, log)
	if err := application.RunJob(ctx, jobName); err != nil {
		log.Error("Job run failed", err,
			logger.Field{Key: "job", Value: jobName})
		os.Exit(1)
	}

	log.Info("✅ Job completed",
		logger.Field{Key: "job", Value: jobName})
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	runCmd.Flags().BoolVarP(&runDebug, "debug", "d", false, "Enable debug logging")
}
