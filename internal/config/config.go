package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config represents the provisioning service configuration
type Config struct {
	Provisioning ProvisioningConfig `toml:"provisioning"`
	Defaults     BusinessDefaults   `toml:"defaults"`
	Retry        RetryConfig        `toml:"retry"`
}

// ProvisioningConfig contains timeouts and availability policy settings
type ProvisioningConfig struct {
	AcquireTimeoutSeconds int  `toml:"acquire_timeout_seconds"`
	FailOpen              bool `toml:"fail_open"`
}

// BusinessDefaults contains fallback values for the business profile
type BusinessDefaults struct {
	BusinessType string `toml:"business_type"`
	Country      string `toml:"country"`
}

// RetryConfig contains settings for the pending-provision retry job
type RetryConfig struct {
	IntervalSeconds int `toml:"interval_seconds"`
	BatchSize       int `toml:"batch_size"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Provisioning: ProvisioningConfig{
			AcquireTimeoutSeconds: 5,
			FailOpen:              true,
		},
		Defaults: BusinessDefaults{
			BusinessType: "Other",
			Country:      "US",
		},
		Retry: RetryConfig{
			IntervalSeconds: 60,
			BatchSize:       100,
		},
	}
}

// Load loads configuration from a TOML file, filling gaps with defaults.
func Load(filename string) (*Config, error) {
	config := Default()
	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return config, nil
}
