package constants

// CLI error messages
const (
	// MsgErrorConfigLoad is the error message when the config cannot be loaded.
	MsgErrorConfigLoad = "❌ Failed to load configuration: %v\n"

	// MsgErrorConfigInvalid is the header printed before validation errors.
	MsgErrorConfigInvalid = "❌ Configuration validation failed:\n"

	// MsgErrorLoggerInit is the error message when the logger cannot be built.
	MsgErrorLoggerInit = "❌ Failed to initialize logger: %v\n"

	// MsgErrorEnvLoad is the error message when the .env file cannot be read.
	MsgErrorEnvLoad = "❌ Failed to load .env file: %v\n"

	// MsgErrorLoadingJobs is the error message when the jobs file cannot be loaded.
	MsgErrorLoadingJobs = "Error loading jobs: %v\n"
)

// Jobs list messages
const (
	// MsgJobsListHeader is the header for the jobs list display.
	MsgJobsListHeader = "Configured Jobs:\n-----------------\n"

	// MsgJobsListSep is the separator between jobs in the list.
	MsgJobsListSep = "-----------------\n"

	// MsgJobName is the label for the job name field.
	MsgJobName = "   Name:     %s\n"

	// MsgJobTarget is the label for the job target field.
	MsgJobTarget = "   Target:   %s/%s\n"

	// MsgJobSchedule is the label for the job schedule field.
	MsgJobSchedule = "   Schedule: %s\n"

	// MsgJobTask is the label for the job task field.
	MsgJobTask = "   Task:     %s\n"

	// MsgJobOutput is the label for the job output field.
	MsgJobOutput = "   Output:   %s (%s)\n"

	// MsgJobsTotal is the message showing the total count of jobs.
	MsgJobsTotal = "Total: %d job(s)\n"

	// MsgJobsNotFound is the message when no jobs are configured.
	MsgJobsNotFound = "No jobs configured.\n"
)
