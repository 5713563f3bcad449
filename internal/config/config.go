// Package config provides configuration types and loading for buildinstr.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"buildinstr/pkg/cargo"

	"github.com/spf13/viper"
)

// DefaultFile is looked up in the working directory when no config file is given
const DefaultFile = ".buildinstr.yaml"

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. BUILDINSTR_PREFIX
const EnvPrefix = "BUILDINSTR"

// Config holds all configuration options
type Config struct {
	Prefix   string `mapstructure:"prefix"`   // written before every directive
	Behavior string `mapstructure:"behavior"` // default path behavior for rerun-if-changed
	Verbose  bool   `mapstructure:"verbose"`
}

// Defaults returns the built-in configuration
func Defaults() Config {
	return Config{
		Prefix:   cargo.DefaultPrefix,
		Behavior: cargo.Always.String(),
	}
}

// PathBehavior returns the parsed Behavior
func (c Config) PathBehavior() (cargo.PathBehavior, error) {
	return cargo.ParsePathBehavior(c.Behavior)
}

// Validate checks the configuration
func (c Config) Validate() error {
	if _, err := c.PathBehavior(); err != nil {
		return fmt.Errorf("invalid behavior: %w", err)
	}
	return nil
}

// Load reads the configuration into v and unmarshals it.
//
// Lookup order, later wins: defaults, config file (cfgFile, or DefaultFile if
// it exists), BUILDINSTR_* environment variables, flags already bound to v.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	defaults := Defaults()
	v.SetDefault("prefix", defaults.Prefix)
	v.SetDefault("behavior", defaults.Behavior)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			cfgFile = DefaultFile
		}
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("reading config %s: %w", cfgFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
