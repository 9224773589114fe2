// Package jobs defines the YAML jobs file: scheduled jobs plus the agents,
// teams and plugins they run against.
package jobs

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// File is a parsed jobs file.
type File struct {
	Agents  []AgentDef  `yaml:"agents"`
	Teams   []TeamDef   `yaml:"teams"`
	Plugins []PluginDef `yaml:"plugins"`
	Jobs    []Job       `yaml:"jobs"`
}

// AgentDef configures a single agent. Provider and Model fall back to the
// application defaults when empty.
type AgentDef struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	Instructions []string `yaml:"instructions"`
	Markdown     *bool    `yaml:"markdown"`
	Plugin       string   `yaml:"plugin"`
	Tools        []string `yaml:"tools"`
}

// TeamDef configures a team: an ordered list of member agents coordinated
// by a leader model.
type TeamDef struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Members      []string `yaml:"members"`
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	Instructions []string `yaml:"instructions"`
	Markdown     *bool    `yaml:"markdown"`
}

// PluginDef configures a container-backed capability plugin. Each
// invocation runs the image once with the input as its command; Command,
// when set, additionally runs as a long-lived service alongside the
// invocations.
type PluginDef struct {
	Name    string            `yaml:"name"`
	Image   string            `yaml:"image"`
	Command []string          `yaml:"command"`
	Env     map[string]string `yaml:"env"`
}

// Job binds a schedule to a target and a task. Exactly one of Agent and
// Team is set. Schedule is either a cron string or a field mapping and is
// normalized by the schedule package.
type Job struct {
	Name           string      `yaml:"name"`
	Description    string      `yaml:"description"`
	Schedule       any         `yaml:"schedule"`
	Agent          string      `yaml:"agent"`
	Team           string      `yaml:"team"`
	Task           string      `yaml:"task"`
	Output         *OutputSpec `yaml:"output"`
	NotifyOnError  bool        `yaml:"notify_on_error"`
	Tools          []string    `yaml:"tools"`
	TimeoutSeconds int         `yaml:"timeout_seconds"`
}

// OutputSpec describes where and how a job's result is persisted.
type OutputSpec struct {
	Type     string `yaml:"type"`
	Path     string `yaml:"path"`
	Title    string `yaml:"title"`
	Filename string `yaml:"filename"`
}

// Target returns the job's target kind and name.
func (j *Job) Target() (kind, name string) {
	if j.Agent != "" {
		return "agent", j.Agent
	}
	return "team", j.Team
}

// AugmentKey renders the job's extra tool set in canonical order. Jobs with
// the same target but different augmentations must not share a cached
// handle, so this feeds the handle cache key.
func (j *Job) AugmentKey() string {
	if len(j.Tools) == 0 {
		return ""
	}
	tools := make([]string, len(j.Tools))
	copy(tools, j.Tools)
	sort.Strings(tools)
	key := tools[0]
	for _, t := range tools[1:] {
		key += "," + t
	}
	return key
}

// Load reads and parses a jobs file. Validation is separate; call Validate
// on the result before scheduling.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jobs file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse jobs file %s: %w", path, err)
	}

	return &f, nil
}

// Job looks up a job by name.
func (f *File) Job(name string) (*Job, bool) {
	for i := range f.Jobs {
		if f.Jobs[i].Name == name {
			return &f.Jobs[i], true
		}
	}
	return nil, false
}

// Agent looks up an agent definition by name.
func (f *File) Agent(name string) (*AgentDef, bool) {
	for i := range f.Agents {
		if f.Agents[i].Name == name {
			return &f.Agents[i], true
		}
	}
	return nil, false
}

// Team looks up a team definition by name.
func (f *File) Team(name string) (*TeamDef, bool) {
	for i := range f.Teams {
		if f.Teams[i].Name == name {
			return &f.Teams[i], true
		}
	}
	return nil, false
}

// Plugin looks up a plugin definition by name.
func (f *File) Plugin(name string) (*PluginDef, bool) {
	for i := range f.Plugins {
		if f.Plugins[i].Name == name {
			return &f.Plugins[i], true
		}
	}
	return nil, false
}

// JobNames returns all job names in file order.
func (f *File) JobNames() []string {
	names := make([]string, 0, len(f.Jobs))
	for i := range f.Jobs {
		names = append(names, f.Jobs[i].Name)
	}
	return names
}
