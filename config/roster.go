package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/triage/agent"
	"github.com/hupe1980/triage/strategy"
)

//go:embed agents.yaml
var defaultRosterYAML []byte

// Roster models agents.yaml: the participant names plus optional prompt
// overrides. Empty fields keep the built-in values.
type Roster struct {
	Roles             agent.Roles   `yaml:"roles"`
	Prompts           agent.Prompts `yaml:"prompts"`
	SelectionPrompt   string        `yaml:"selection_prompt"`
	TerminationPrompt string        `yaml:"termination_prompt"`
}

// DefaultRoster returns the embedded roster.
func DefaultRoster() Roster {
	r, err := RosterFromYAML(defaultRosterYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded agents.yaml: %v", err))
	}
	return r
}

// LoadRoster reads a roster file. An empty path selects the embedded default.
func LoadRoster(path string) (Roster, error) {
	if path == "" {
		return RosterFromYAML(defaultRosterYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster %s: %w", path, err)
	}
	r, err := RosterFromYAML(data)
	if err != nil {
		return Roster{}, fmt.Errorf("roster %s: %w", path, err)
	}
	return r, nil
}

// RosterFromYAML parses a roster and fills unset fields from the defaults.
func RosterFromYAML(data []byte) (Roster, error) {
	var r Roster
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&r); err != nil && !errors.Is(err, io.EOF) {
		return Roster{}, err
	}

	def := agent.DefaultRoles()
	if r.Roles.Analyst == "" {
		r.Roles.Analyst = def.Analyst
	}
	if r.Roles.Network == "" {
		r.Roles.Network = def.Network
	}
	if r.Roles.Common == "" {
		r.Roles.Common = def.Common
	}
	if r.Roles.Resolver == "" {
		r.Roles.Resolver = def.Resolver
	}

	r.Prompts = r.Prompts.Merge(agent.DefaultPrompts())
	if r.SelectionPrompt == "" {
		r.SelectionPrompt = strategy.DefaultSelectionPrompt
	}
	if r.TerminationPrompt == "" {
		r.TerminationPrompt = strategy.DefaultTerminationPrompt
	}

	if err := r.Roles.Validate(); err != nil {
		return Roster{}, err
	}
	return r, nil
}
