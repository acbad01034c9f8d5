package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if necessary
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Chain.Timeout == 0 {
		cfg.Chain.Timeout = 30 * time.Second
	}
	if cfg.Portal.Timeout == 0 {
		cfg.Portal.Timeout = 2 * time.Minute
	}
	if cfg.Farm.Threads == 0 {
		cfg.Farm.Threads = 5
	}
	if cfg.Farm.ActionPause.IsZero() {
		cfg.Farm.ActionPause = Range{Min: 15, Max: 60}
	}
	if cfg.Farm.StartDelay.IsZero() {
		cfg.Farm.StartDelay = Range{Min: 0, Max: 120}
	}
	if cfg.Farm.PassPause.IsZero() {
		cfg.Farm.PassPause = Range{Min: 60, Max: 180}
	}
	if cfg.Farm.Swaps.IsZero() {
		cfg.Farm.Swaps = Range{Min: 1, Max: 3}
	}
	if cfg.Farm.AIDialogs.IsZero() {
		cfg.Farm.AIDialogs = Range{Min: 1, Max: 2}
	}
	if cfg.Farm.SwapPercent.IsZero() {
		cfg.Farm.SwapPercent = Range{Min: 5, Max: 15}
	}
	if cfg.Farm.RewardChance == 0 {
		cfg.Farm.RewardChance = 0.1
	}

	return &cfg, nil
}
