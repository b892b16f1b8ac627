// Package config provides a reusable loader for the runtime's configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"linearis/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for a linearis host process.
// It mirrors the structure of the YAML files under config/.
type Config struct {
	Runtime struct {
		TransactionTimeoutMS int    `mapstructure:"transaction_timeout_ms" json:"transaction_timeout_ms"`
		KernelNamespace      string `mapstructure:"kernel_namespace" json:"kernel_namespace"`
		MaxStringLen         int    `mapstructure:"max_string_len" json:"max_string_len"`
	} `mapstructure:"runtime" json:"runtime"`

	Execution struct {
		DefaultStepBudget uint64 `mapstructure:"default_step_budget" json:"default_step_budget"`
		MaxLinearMemory   uint64 `mapstructure:"max_linear_memory" json:"max_linear_memory"`
		OpcodeDebug       bool   `mapstructure:"opcode_debug" json:"opcode_debug"`
	} `mapstructure:"execution" json:"execution"`

	Sandbox struct {
		MemoryLimitBytes uint64 `mapstructure:"memory_limit_bytes" json:"memory_limit_bytes"`
		CPULimitSteps    uint64 `mapstructure:"cpu_limit_steps" json:"cpu_limit_steps"`
	} `mapstructure:"sandbox" json:"sandbox"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up from .env

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the LINEARIS_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("LINEARIS_ENV", ""))
}

// Default returns a Config populated with sane defaults, used when no config
// file can be loaded (e.g. unit tests, or the `runtime` CLI commands when
// LoadFromEnv fails).
func Default() Config {
	var c Config
	c.Runtime.TransactionTimeoutMS = 5000
	c.Runtime.KernelNamespace = "kernel"
	c.Runtime.MaxStringLen = 1<<16 - 1
	c.Execution.DefaultStepBudget = 10_000_000
	c.Execution.MaxLinearMemory = 16 << 20
	c.Sandbox.MemoryLimitBytes = 64 << 20
	c.Sandbox.CPULimitSteps = 10_000_000
	c.Logging.Level = "info"
	return c
}
