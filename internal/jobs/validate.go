package jobs

import "fmt"

// Validate checks the structural invariants of the file and returns the
// first violation as a ConfigError. Target names are not resolved here:
// a job may reference an agent or team supplied by the shared hub file,
// so unknown names surface at execution time instead.
func (f *File) Validate() error {
	if len(f.Jobs) == 0 {
		return &ConfigError{Field: "jobs", Msg: "at least one job must be defined"}
	}

	if err := f.validateAgents(); err != nil {
		return err
	}
	if err := f.validateTeams(); err != nil {
		return err
	}
	if err := f.validatePlugins(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(f.Jobs))
	for i := range f.Jobs {
		job := &f.Jobs[i]
		if job.Name == "" {
			return &ConfigError{Field: fmt.Sprintf("jobs[%d].name", i), Msg: "is required"}
		}
		if seen[job.Name] {
			return &ConfigError{Field: "jobs." + job.Name, Msg: "duplicate job name"}
		}
		seen[job.Name] = true

		field := "jobs." + job.Name
		if job.Schedule == nil {
			return &ConfigError{Field: field + ".schedule", Msg: "is required"}
		}
		if job.Agent == "" && job.Team == "" {
			return &ConfigError{Field: field, Msg: "must specify either agent or team"}
		}
		if job.Agent != "" && job.Team != "" {
			return &ConfigError{Field: field, Msg: "cannot specify both agent and team"}
		}
		if job.Task == "" {
			return &ConfigError{Field: field + ".task", Msg: "is required"}
		}
		if job.Output != nil && job.Output.Type == "" {
			return &ConfigError{Field: field + ".output.type", Msg: "is required"}
		}
		if job.TimeoutSeconds < 0 {
			return &ConfigError{Field: field + ".timeout_seconds", Msg: "must not be negative"}
		}
	}

	return nil
}

func (f *File) validateAgents() error {
	seen := make(map[string]bool, len(f.Agents))
	for i := range f.Agents {
		agent := &f.Agents[i]
		if agent.Name == "" {
			return &ConfigError{Field: fmt.Sprintf("agents[%d].name", i), Msg: "is required"}
		}
		if seen[agent.Name] {
			return &ConfigError{Field: "agents." + agent.Name, Msg: "duplicate agent name"}
		}
		seen[agent.Name] = true

		if agent.Plugin != "" {
			if _, ok := f.Plugin(agent.Plugin); !ok {
				return &ConfigError{
					Field: "agents." + agent.Name + ".plugin",
					Msg:   fmt.Sprintf("references unknown plugin %q", agent.Plugin),
				}
			}
		}
	}
	return nil
}

func (f *File) validateTeams() error {
	seen := make(map[string]bool, len(f.Teams))
	for i := range f.Teams {
		team := &f.Teams[i]
		if team.Name == "" {
			return &ConfigError{Field: fmt.Sprintf("teams[%d].name", i), Msg: "is required"}
		}
		if seen[team.Name] {
			return &ConfigError{Field: "teams." + team.Name, Msg: "duplicate team name"}
		}
		seen[team.Name] = true

		if len(team.Members) == 0 {
			return &ConfigError{Field: "teams." + team.Name + ".members", Msg: "must not be empty"}
		}
	}
	return nil
}

func (f *File) validatePlugins() error {
	seen := make(map[string]bool, len(f.Plugins))
	for i := range f.Plugins {
		plugin := &f.Plugins[i]
		if plugin.Name == "" {
			return &ConfigError{Field: fmt.Sprintf("plugins[%d].name", i), Msg: "is required"}
		}
		if seen[plugin.Name] {
			return &ConfigError{Field: "plugins." + plugin.Name, Msg: "duplicate plugin name"}
		}
		seen[plugin.Name] = true

		if plugin.Image == "" {
			return &ConfigError{Field: "plugins." + plugin.Name + ".image", Msg: "is required"}
		}
	}
	return nil
}
