package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/quorum/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Quorum configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/quorum/config.yaml
Project-specific overrides can be placed in .quorum.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("providers.openrouter.api_key: %s\n", maskKey(cfg.Providers.OpenRouter.APIKey))
	fmt.Printf("providers.anthropic.api_key: %s\n", maskKey(cfg.Providers.Anthropic.APIKey))
	fmt.Printf("providers.anthropic.use_bedrock: %t\n", cfg.Providers.Anthropic.UseBedrock)
	fmt.Printf("providers.gemini.api_key: %s\n", maskKey(cfg.Providers.Gemini.APIKey))
	fmt.Printf("models.roster: %s\n", strings.Join(cfg.Models.Roster, ", "))
	fmt.Printf("models.critic: %s\n", cfg.Models.Critic)
	fmt.Printf("models.synthesizer: %s\n", cfg.Models.Synthesizer)
	fmt.Printf("models.agreement: %s\n", cfg.Models.Agreement)
	fmt.Printf("pipeline.call_timeout: %s\n", cfg.Pipeline.CallTimeout)
	fmt.Printf("pipeline.max_debate_rounds: %d\n", cfg.Pipeline.MaxDebateRounds)
	fmt.Printf("pipeline.cache_size: %d\n", cfg.Pipeline.CacheSize)
	fmt.Printf("logs.db_path: %s\n", cfg.Logs.DBPath)
	fmt.Printf("logs.debug_file: %s\n", cfg.Logs.DebugFile)
}

// maskKey hides a credential while showing whether it is set.
func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return "****"
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "providers.openrouter.api_key":
		return maskKey(cfg.Providers.OpenRouter.APIKey), nil
	case "providers.anthropic.api_key":
		return maskKey(cfg.Providers.Anthropic.APIKey), nil
	case "providers.anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Providers.Anthropic.UseBedrock), nil
	case "providers.gemini.api_key":
		return maskKey(cfg.Providers.Gemini.APIKey), nil
	case "models.roster":
		return strings.Join(cfg.Models.Roster, ", "), nil
	case "models.critic":
		return cfg.Models.Critic, nil
	case "models.synthesizer":
		return cfg.Models.Synthesizer, nil
	case "models.agreement":
		return cfg.Models.Agreement, nil
	case "pipeline.call_timeout":
		return cfg.Pipeline.CallTimeout.String(), nil
	case "pipeline.max_debate_rounds":
		return strconv.Itoa(cfg.Pipeline.MaxDebateRounds), nil
	case "pipeline.cache_size":
		return strconv.Itoa(cfg.Pipeline.CacheSize), nil
	case "logs.db_path":
		return cfg.Logs.DBPath, nil
	case "logs.debug_file":
		return cfg.Logs.DebugFile, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "providers.openrouter.api_key":
		cfg.Providers.OpenRouter.APIKey = value
	case "providers.anthropic.api_key":
		cfg.Providers.Anthropic.APIKey = value
	case "providers.anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %s", value)
		}
		cfg.Providers.Anthropic.UseBedrock = b
	case "providers.anthropic.aws_region":
		cfg.Providers.Anthropic.AWSRegion = value
	case "providers.anthropic.aws_profile":
		cfg.Providers.Anthropic.AWSProfile = value
	case "providers.gemini.api_key":
		cfg.Providers.Gemini.APIKey = value
	case "models.roster":
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.Models.Roster = parts
	case "models.critic":
		cfg.Models.Critic = value
	case "models.synthesizer":
		cfg.Models.Synthesizer = value
	case "models.agreement":
		cfg.Models.Agreement = value
	case "pipeline.call_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Pipeline.CallTimeout = d
	case "pipeline.max_debate_rounds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		cfg.Pipeline.MaxDebateRounds = n
	case "pipeline.cache_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		cfg.Pipeline.CacheSize = n
	case "logs.db_path":
		cfg.Logs.DBPath = value
	case "logs.debug_file":
		cfg.Logs.DebugFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
