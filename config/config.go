// Package config loads the tool configuration via viper.
package config

import (
	"github.com/spf13/viper"
)

// Config holds all settings for an audit run. Values come from a config
// file when present, otherwise from the defaults below; CLI flags may
// override individual fields afterwards.
type Config struct {
	Audit struct {
		OutputDir string `mapstructure:"output_dir"`
		Threshold int    `mapstructure:"threshold"`
	}
	Logging struct {
		Level string
		File  string
	}
}

const (
	// DefaultOutputDir mirrors the historical audit directory default.
	DefaultOutputDir = "./duplicates_audit"
	// DefaultThreshold is the Hamming distance cutoff for grouping
	// similar images.
	DefaultThreshold = 5
)

// Load reads config.yaml from $HOME/.image-auditor or the working
// directory. A missing config file is not an error; the defaults apply.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.image-auditor")
	v.AddConfigPath(".")

	v.SetDefault("audit.output_dir", DefaultOutputDir)
	v.SetDefault("audit.threshold", DefaultThreshold)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
