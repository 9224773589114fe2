package main

import (
	"fmt"
	"os"

	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/constants"
	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/schedule"
	"github.com/spf13/cobra"
)

var listConfigPath string

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured jobs",
	Long:  `Print every configured job with its target, schedule, task and output. No job is executed.`,
	Run:   listHandler,
}

func listHandler(cmd *cobra.Command, args []string) {
	configPath := listConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, constants.MsgErrorConfigLoad, err)
		os.Exit(1)
	}

	jobsFile, err := jobs.Load(cfg.JobsFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, constants.MsgErrorLoadingJobs, err)
		os.Exit(1)
	}

	if len(jobsFile.Jobs) == 0 {
		fmt.Print(constants.MsgJobsNotFound)
		return
	}

	fmt.Print(constants.MsgJobsListHeader)
	for i := range jobsFile.Jobs {
		job := &jobsFile.Jobs[i]
		kind, name := job.Target()

		fmt.Printf(constants.MsgJobName, job.Name)
		fmt.Printf(constants.MsgJobTarget, kind, name)
		fmt.Printf(constants.MsgJobSchedule, scheduleDisplay(job.Schedule))
		fmt.Printf(constants.MsgJobTask, job.Task)
		if job.Output != nil {
			dir := job.Output.Path
			if dir == "" {
				dir = "output"
			}
			fmt.Printf(constants.MsgJobOutput, job.Output.Type, dir)
		}
		fmt.Print(constants.MsgJobsListSep)
	}
	fmt.Printf(constants.MsgJobsTotal, len(jobsFile.Jobs))
}

// scheduleDisplay renders a schedule in normalized form, falling back to
// the raw value when it does not parse.
func scheduleDisplay(spec any) string {
	fields, err := schedule.Parse(spec)
	if err != nil {
		return fmt.Sprintf("%v (invalid)", spec)
	}
	return fields.String()
}

func init() {
	listCmd.Flags().StringVarP(&listConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
