package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Models.Roster) != 3 {
		t.Errorf("default roster has %d models, want 3", len(cfg.Models.Roster))
	}
	if cfg.Models.Critic == "" {
		t.Error("default critic model should be set")
	}
	if cfg.Models.Synthesizer == "" {
		t.Error("default synthesizer model should be set")
	}
	if cfg.Pipeline.CallTimeout != 30*time.Second {
		t.Errorf("default call timeout = %v, want 30s", cfg.Pipeline.CallTimeout)
	}
	if cfg.Pipeline.MaxDebateRounds != 2 {
		t.Errorf("default max debate rounds = %d, want 2", cfg.Pipeline.MaxDebateRounds)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
models:
  roster:
    - vendor/model-a
    - vendor/model-b
  critic: vendor/critic
pipeline:
  call_timeout: 45s
  max_debate_rounds: 3
  cache_size: 64
logs:
  debug_file: /tmp/quorum-debug.log
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}

	if len(cfg.Models.Roster) != 2 || cfg.Models.Roster[0] != "vendor/model-a" {
		t.Errorf("Roster = %v", cfg.Models.Roster)
	}
	if cfg.Models.Critic != "vendor/critic" {
		t.Errorf("Critic = %q, want %q", cfg.Models.Critic, "vendor/critic")
	}
	// Unset keys keep their defaults.
	if cfg.Models.Synthesizer != "deepseek/deepseek-v3.2" {
		t.Errorf("Synthesizer = %q, want the default", cfg.Models.Synthesizer)
	}
	if cfg.Pipeline.CallTimeout != 45*time.Second {
		t.Errorf("CallTimeout = %v, want 45s", cfg.Pipeline.CallTimeout)
	}
	if cfg.Pipeline.MaxDebateRounds != 3 {
		t.Errorf("MaxDebateRounds = %d, want 3", cfg.Pipeline.MaxDebateRounds)
	}
	if cfg.Pipeline.CacheSize != 64 {
		t.Errorf("CacheSize = %d, want 64", cfg.Pipeline.CacheSize)
	}
	if cfg.Logs.DebugFile != "/tmp/quorum-debug.log" {
		t.Errorf("DebugFile = %q", cfg.Logs.DebugFile)
	}
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFromPath() should fail for a missing file")
	}
}

func TestLoadRoster_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	writeFile(t, path, `
models:
  - vendor/fast
  - vendor/careful
critic: vendor/judge
`)

	cfg := Default()
	original := cfg.Models.Synthesizer
	if err := LoadRoster(path, cfg); err != nil {
		t.Fatalf("LoadRoster() error = %v", err)
	}

	if len(cfg.Models.Roster) != 2 || cfg.Models.Roster[1] != "vendor/careful" {
		t.Errorf("Roster = %v", cfg.Models.Roster)
	}
	if cfg.Models.Critic != "vendor/judge" {
		t.Errorf("Critic = %q, want %q", cfg.Models.Critic, "vendor/judge")
	}
	if cfg.Models.Synthesizer != original {
		t.Errorf("Synthesizer = %q, empty roster fields must not overwrite config", cfg.Models.Synthesizer)
	}
}

func TestLoadRoster_MissingFile(t *testing.T) {
	cfg := Default()
	if err := LoadRoster(filepath.Join(t.TempDir(), "nope.yaml"), cfg); err == nil {
		t.Error("LoadRoster() should fail for a missing file")
	}
}

func TestLoadRoster_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	writeFile(t, path, "models: [unterminated")

	cfg := Default()
	if err := LoadRoster(path, cfg); err == nil {
		t.Error("LoadRoster() should fail on malformed YAML")
	}
}

func TestGetUserConfigPath_HonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "quorum", "config.yaml")
	if got := GetUserConfigPath(); got != want {
		t.Errorf("GetUserConfigPath() = %q, want %q", got, want)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Models.Critic = "vendor/judge"
	cfg.Pipeline.CacheSize = 32
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if got.Models.Critic != "vendor/judge" {
		t.Errorf("Critic = %q after round trip", got.Models.Critic)
	}
	if got.Pipeline.CacheSize != 32 {
		t.Errorf("CacheSize = %d after round trip", got.Pipeline.CacheSize)
	}
}
