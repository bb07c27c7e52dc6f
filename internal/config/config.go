// Package config handles configuration loading and management for Quorum.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for Quorum.
type Config struct {
	Providers ProvidersConfig `mapstructure:"providers"`
	Models    ModelsConfig    `mapstructure:"models"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Logs      LogsConfig      `mapstructure:"logs"`
}

// ProvidersConfig holds per-provider credentials and settings.
type ProvidersConfig struct {
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// AnthropicConfig holds Anthropic API settings. When UseBedrock is set,
// calls go through AWS Bedrock instead of the direct API.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// ModelsConfig assigns models to pipeline roles.
type ModelsConfig struct {
	// Roster lists the models queried in the initial and debate stages.
	Roster []string `mapstructure:"roster"`
	// Critic is the fast model that extracts discrepancies.
	Critic string `mapstructure:"critic"`
	// Synthesizer is the strong model that produces the final answer.
	Synthesizer string `mapstructure:"synthesizer"`
	// Agreement is the fast model that classifies bare-agreement replies.
	// Empty disables agreement detection.
	Agreement string `mapstructure:"agreement"`
}

// PipelineConfig holds execution settings.
type PipelineConfig struct {
	// CallTimeout is the hard per-call deadline for every model call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	// MaxDebateRounds caps the debate loop.
	MaxDebateRounds int `mapstructure:"max_debate_rounds"`
	// CacheSize is the completion cache capacity; 0 disables caching.
	CacheSize int `mapstructure:"cache_size"`
}

// LogsConfig holds run-log settings.
type LogsConfig struct {
	// DBPath overrides the run-log database location.
	DBPath string `mapstructure:"db_path"`
	// DebugFile, when set, enables the pipeline debug log.
	DebugFile string `mapstructure:"debug_file"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (OPENROUTER_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY)
// 2. Project config (.quorum.yaml in current directory or parent)
// 3. User config (~/.config/quorum/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("providers.openrouter.api_key", "OPENROUTER_API_KEY")
	v.BindEnv("providers.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("providers.gemini.api_key", "GEMINI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references in keys
	cfg.Providers.OpenRouter.APIKey = os.ExpandEnv(cfg.Providers.OpenRouter.APIKey)
	cfg.Providers.Anthropic.APIKey = os.ExpandEnv(cfg.Providers.Anthropic.APIKey)
	cfg.Providers.Gemini.APIKey = os.ExpandEnv(cfg.Providers.Gemini.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("providers.openrouter.api_key", cfg.Providers.OpenRouter.APIKey)
	v.Set("providers.anthropic.api_key", cfg.Providers.Anthropic.APIKey)
	v.Set("providers.anthropic.use_bedrock", cfg.Providers.Anthropic.UseBedrock)
	v.Set("providers.anthropic.aws_region", cfg.Providers.Anthropic.AWSRegion)
	v.Set("providers.anthropic.aws_profile", cfg.Providers.Anthropic.AWSProfile)
	v.Set("providers.gemini.api_key", cfg.Providers.Gemini.APIKey)
	v.Set("models.roster", cfg.Models.Roster)
	v.Set("models.critic", cfg.Models.Critic)
	v.Set("models.synthesizer", cfg.Models.Synthesizer)
	v.Set("models.agreement", cfg.Models.Agreement)
	v.Set("pipeline.call_timeout", cfg.Pipeline.CallTimeout.String())
	v.Set("pipeline.max_debate_rounds", cfg.Pipeline.MaxDebateRounds)
	v.Set("pipeline.cache_size", cfg.Pipeline.CacheSize)
	v.Set("logs.db_path", cfg.Logs.DBPath)
	v.Set("logs.debug_file", cfg.Logs.DebugFile)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("providers.openrouter.api_key", "")
	v.SetDefault("providers.anthropic.api_key", "")
	v.SetDefault("providers.anthropic.use_bedrock", false)
	v.SetDefault("providers.gemini.api_key", "")

	v.SetDefault("models.roster", []string{
		"google/gemini-2.5-flash-lite",
		"anthropic/claude-3-haiku",
		"openai/gpt-4o-mini",
	})
	v.SetDefault("models.critic", "deepseek/deepseek-v3.2")
	v.SetDefault("models.synthesizer", "deepseek/deepseek-v3.2")
	v.SetDefault("models.agreement", "openai/gpt-4o-mini")

	v.SetDefault("pipeline.call_timeout", "30s")
	v.SetDefault("pipeline.max_debate_rounds", 2)
	v.SetDefault("pipeline.cache_size", 0)

	v.SetDefault("logs.db_path", "")
	v.SetDefault("logs.debug_file", "")
}

// getUserConfigDir returns the XDG config directory for Quorum.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "quorum")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "quorum")
	}
	return filepath.Join(home, ".config", "quorum")
}

// findProjectConfig searches for .quorum.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".quorum.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Models: ModelsConfig{
			Roster: []string{
				"google/gemini-2.5-flash-lite",
				"anthropic/claude-3-haiku",
				"openai/gpt-4o-mini",
			},
			Critic:      "deepseek/deepseek-v3.2",
			Synthesizer: "deepseek/deepseek-v3.2",
			Agreement:   "openai/gpt-4o-mini",
		},
		Pipeline: PipelineConfig{
			CallTimeout:     30 * time.Second,
			MaxDebateRounds: 2,
		},
	}
}
