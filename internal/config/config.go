// Package config loads praxis CLI configuration.
//
// Sources, later overriding earlier:
//
//	built-in defaults
//	TOML file (optional)
//	PRAXIS_* environment variables
//
// The merged result is validated before use.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/plures/praxis/internal/contract"
	"github.com/plures/praxis/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PRAXIS_"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// Config is the merged CLI configuration.
type Config struct {
	// LedgerRoot is the directory containing logic-ledger/.
	LedgerRoot string `toml:"ledger_root" env:"LEDGER_ROOT" validate:"required"`

	// Author is recorded on behavior ledger entries.
	Author string `toml:"author" env:"AUTHOR" validate:"required"`

	MissingSeverity string   `toml:"missing_severity" env:"MISSING_SEVERITY" validate:"oneof=error warning info"`
	RequiredFields  []string `toml:"required_fields" env:"REQUIRED_FIELDS" envSeparator:"," validate:"dive,oneof=behavior examples invariants"`

	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`

	LogLevel  string `toml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `toml:"log_format" env:"LOG_FORMAT" validate:"oneof=text json"`
}

// StorageConfig selects the key-value backend for the behavior ledger.
type StorageConfig struct {
	Backend string `toml:"backend" env:"BACKEND" validate:"oneof=memory sqlite badger"`
	Path    string `toml:"path" env:"PATH" validate:"required_unless=Backend memory"`
	Key     string `toml:"key" env:"KEY" validate:"required"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LedgerRoot:      ".",
		Author:          "praxis",
		MissingSeverity: string(contract.SeverityWarning),
		RequiredFields:  artifactNames(contract.DefaultRequiredFields),
		Storage: StorageConfig{
			Backend: BackendMemory,
			Key:     "praxis/behavior-ledger",
		},
		LogLevel:  "info",
		LogFormat: logging.FormatText,
	}
}

// LoadOptions configures Load.
type LoadOptions struct {
	// Path of a TOML file. Empty means no file.
	Path string

	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

var validate = validator.New()

// Load merges defaults, the TOML file and the environment, then validates
// the result.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.Path != "" {
		meta, err := toml.DecodeFile(opts.Path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("load config %s: %w", opts.Path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("load config %s: unknown keys: %s", opts.Path, strings.Join(keys, ", "))
		}
	}

	envOpts := env.Options{Prefix: EnvPrefix}
	if opts.Environ != nil {
		envOpts.Environment = opts.Environ
	}
	if err := env.ParseWithOptions(&cfg, envOpts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.MissingSeverity = strings.ToLower(strings.TrimSpace(c.MissingSeverity))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	for i, f := range c.RequiredFields {
		c.RequiredFields[i] = strings.ToLower(strings.TrimSpace(f))
	}
}

// Validate checks every field constraint and reports all failures at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// Severity returns the configured missing-contract severity.
func (c Config) Severity() contract.Severity {
	return contract.Severity(c.MissingSeverity)
}

// Artifacts returns the configured required fields.
func (c Config) Artifacts() []contract.Artifact {
	out := make([]contract.Artifact, len(c.RequiredFields))
	for i, f := range c.RequiredFields {
		out[i] = contract.Artifact(f)
	}
	return out
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	level, _ := logging.ParseLevel(c.LogLevel)
	return level
}

// Exists reports whether a config file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func artifactNames(artifacts []contract.Artifact) []string {
	out := make([]string, len(artifacts))
	for i, a := range artifacts {
		out[i] = string(a)
	}
	return out
}
