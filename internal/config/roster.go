package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RosterFile is a standalone YAML file assigning models to pipeline
// roles, for swapping model line-ups without touching the main config:
//
//	models:
//	  - google/gemini-2.5-flash-lite
//	  - anthropic/claude-3-haiku
//	critic: deepseek/deepseek-v3.2
//	synthesizer: deepseek/deepseek-v3.2
//	agreement: openai/gpt-4o-mini
type RosterFile struct {
	Models      []string `yaml:"models"`
	Critic      string   `yaml:"critic"`
	Synthesizer string   `yaml:"synthesizer"`
	Agreement   string   `yaml:"agreement"`
}

// LoadRoster reads a roster file and applies it over cfg's model
// assignments. Empty fields in the file leave cfg untouched.
func LoadRoster(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read roster file: %w", err)
	}

	var roster RosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return fmt.Errorf("parse roster file %s: %w", path, err)
	}

	if len(roster.Models) > 0 {
		cfg.Models.Roster = roster.Models
	}
	if roster.Critic != "" {
		cfg.Models.Critic = roster.Critic
	}
	if roster.Synthesizer != "" {
		cfg.Models.Synthesizer = roster.Synthesizer
	}
	if roster.Agreement != "" {
		cfg.Models.Agreement = roster.Agreement
	}
	return nil
}
