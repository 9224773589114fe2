// Package hub loads the shared registry of agent, team and plugin
// definitions. Target resolution falls back to the hub when a name is not
// defined in the jobs file, so common agents can be shared between job
// files.
package hub

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aatumaykin/cronbot/internal/jobs"
)

// File is the on-disk shape of the hub registry.
type File struct {
	Agents  []jobs.AgentDef  `yaml:"agents"`
	Teams   []jobs.TeamDef   `yaml:"teams"`
	Plugins []jobs.PluginDef `yaml:"plugins"`
}

// Registry holds the shared definitions keyed by name.
type Registry struct {
	agents  map[string]jobs.AgentDef
	teams   map[string]jobs.TeamDef
	plugins map[string]jobs.PluginDef
}

// Empty returns a registry with no definitions.
func Empty() *Registry {
	return &Registry{
		agents:  make(map[string]jobs.AgentDef),
		teams:   make(map[string]jobs.TeamDef),
		plugins: make(map[string]jobs.PluginDef),
	}
}

// Load reads the hub file at path. A missing file yields an empty
// registry since the hub is optional; an empty path does the same.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Empty(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hub file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse hub file %s: %w", path, err)
	}
	return Build(&f)
}

// Build indexes a parsed hub file, rejecting unnamed and duplicate
// definitions.
func Build(f *File) (*Registry, error) {
	r := Empty()
	for _, a := range f.Agents {
		if a.Name == "" {
			return nil, fmt.Errorf("hub agent with empty name")
		}
		if _, dup := r.agents[a.Name]; dup {
			return nil, fmt.Errorf("duplicate hub agent %q", a.Name)
		}
		r.agents[a.Name] = a
	}
	for _, t := range f.Teams {
		if t.Name == "" {
			return nil, fmt.Errorf("hub team with empty name")
		}
		if _, dup := r.teams[t.Name]; dup {
			return nil, fmt.Errorf("duplicate hub team %q", t.Name)
		}
		r.teams[t.Name] = t
	}
	for _, p := range f.Plugins {
		if p.Name == "" {
			return nil, fmt.Errorf("hub plugin with empty name")
		}
		if _, dup := r.plugins[p.Name]; dup {
			return nil, fmt.Errorf("duplicate hub plugin %q", p.Name)
		}
		r.plugins[p.Name] = p
	}
	return r, nil
}

// Agent returns the shared agent definition with the given name.
func (r *Registry) Agent(name string) (*jobs.AgentDef, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.agents[name]
	if !ok {
		return nil, false
	}
	return &a, true
}

// Team returns the shared team definition with the given name.
func (r *Registry) Team(name string) (*jobs.TeamDef, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.teams[name]
	if !ok {
		return nil, false
	}
	return &t, true
}

// Plugin returns the shared plugin definition with the given name.
func (r *Registry) Plugin(name string) (*jobs.PluginDef, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.plugins[name]
	if !ok {
		return nil, false
	}
	return &p, true
}

// Counts reports how many definitions of each kind the registry holds.
func (r *Registry) Counts() (agents, teams, plugins int) {
	if r == nil {
		return 0, 0, 0
	}
	return len(r.agents), len(r.teams), len(r.plugins)
}
