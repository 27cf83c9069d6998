package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/orsi-pipeline/internal/config"
)

// loadSettings resolves configuration in order: defaults, --config file,
// environment, then any flag the caller applies afterwards via override.
func loadSettings(cmd *cobra.Command, override func(*config.Config)) (*config.Config, error) {
	var cfg config.Config
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	if err := cfg.FromEnv(); err != nil {
		return nil, err
	}
	if override != nil {
		override(&cfg)
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
