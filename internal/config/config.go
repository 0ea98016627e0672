// Package config provides Viper-based configuration loading for the R2
// roll server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds Telnet listener settings.
type ServerConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for client connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for client connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DiceConfig bounds expression evaluation.
type DiceConfig struct {
	// MaxChain is the explosion-chain budget per acing die.
	MaxChain int `mapstructure:"max_chain"`
	// MaxDice is the maximum dice in a single roll term.
	MaxDice int `mapstructure:"max_dice"`
	// MaxBatch is the maximum iteration count of an "Nx" batch.
	MaxBatch int `mapstructure:"max_batch"`
	// MaxStatements is the maximum ';'-separated statements per expression.
	MaxStatements int `mapstructure:"max_statements"`
	// DefaultTarget is the Savage Worlds default target number.
	DefaultTarget int `mapstructure:"default_target"`
	// DefaultRaise is the Savage Worlds default raise interval.
	DefaultRaise int `mapstructure:"default_raise"`
	// DefaultWildSides is the Savage Worlds default wild die.
	DefaultWildSides int `mapstructure:"default_wild_sides"`
	// Seed, when non-zero, switches the server to a deterministic seeded
	// dice source. Leave zero in production.
	Seed int64 `mapstructure:"seed"`
}

// MacrosConfig holds the macro/alias layer settings.
type MacrosConfig struct {
	// ScriptDir is the directory of Lua macro files; empty disables Lua macros.
	ScriptDir string `mapstructure:"script_dir"`
	// AliasFile is a YAML file of static name -> expression aliases; empty
	// disables aliases.
	AliasFile string `mapstructure:"alias_file"`
	// InstructionLimit caps Lua opcodes per macro expansion; 0 uses the
	// package default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Dice    DiceConfig    `mapstructure:"dice"`
	Macros  MacrosConfig  `mapstructure:"macros"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateDice(c.Dice); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMacros(c.Macros); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", s.Port))
	}
	if s.ReadTimeout < 0 {
		errs = append(errs, "server.read_timeout must not be negative")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "server.write_timeout must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateDice(d DiceConfig) error {
	var errs []string
	if d.MaxChain < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_chain must be >= 1, got %d", d.MaxChain))
	}
	if d.MaxDice < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_dice must be >= 1, got %d", d.MaxDice))
	}
	if d.MaxBatch < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_batch must be >= 1, got %d", d.MaxBatch))
	}
	if d.MaxStatements < 1 {
		errs = append(errs, fmt.Sprintf("dice.max_statements must be >= 1, got %d", d.MaxStatements))
	}
	if d.DefaultTarget < 1 {
		errs = append(errs, fmt.Sprintf("dice.default_target must be >= 1, got %d", d.DefaultTarget))
	}
	if d.DefaultRaise < 1 {
		errs = append(errs, fmt.Sprintf("dice.default_raise must be >= 1, got %d", d.DefaultRaise))
	}
	if d.DefaultWildSides < 1 {
		errs = append(errs, fmt.Sprintf("dice.default_wild_sides must be >= 1, got %d", d.DefaultWildSides))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMacros(m MacrosConfig) error {
	if m.InstructionLimit < 0 {
		return errors.New("macros.instruction_limit must not be negative")
	}
	return nil
}

// Load reads configuration from the YAML file at path, applying defaults
// and R2_-prefixed environment variable overrides.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a validated Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with R2_ prefix
	v.SetEnvPrefix("R2")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper unmarshals and validates configuration from an existing
// Viper instance. Useful for tests that build configuration in memory.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration used when no file is given.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	cfg, err := LoadFromViper(v)
	if err != nil {
		panic("config: built-in defaults failed validation: " + err.Error())
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4200)
	v.SetDefault("server.read_timeout", 5*time.Minute)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("dice.max_chain", 100)
	v.SetDefault("dice.max_dice", 100)
	v.SetDefault("dice.max_batch", 50)
	v.SetDefault("dice.max_statements", 20)
	v.SetDefault("dice.default_target", 4)
	v.SetDefault("dice.default_raise", 4)
	v.SetDefault("dice.default_wild_sides", 6)
	v.SetDefault("dice.seed", 0)

	v.SetDefault("macros.script_dir", "")
	v.SetDefault("macros.alias_file", "")
	v.SetDefault("macros.instruction_limit", 0)
}
