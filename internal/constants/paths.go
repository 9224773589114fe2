package constants

// DefaultEnvPath is the default path to the .env file
const DefaultEnvPath = "./.env"

// DefaultConfigPath is the default path to the config.toml file
const DefaultConfigPath = "./config.toml"

// DefaultJobsFile is the default jobs file name inside the workspace
const DefaultJobsFile = "jobs.yaml"

// DefaultStoreFile is the default conversation store file name inside the workspace
const DefaultStoreFile = "scheduler.db"
