package config

import "codeberg.org/mutker/trapbridge/internal/errors"

const (
	ErrBindFlags       = errors.ErrBindFlags
	ErrReadConfig      = errors.ErrReadConfig
	ErrInvalidConfig   = errors.ErrInvalidConfig
	ErrInvalidLogLevel = errors.ErrInvalidLogLevel
	ErrInvalidArgument = errors.ErrInvalidArgument
)

// Option adjusts how Load finds its sources.
type Option func(*options) error

type options struct {
	configPath string
	configDirs []string
	envPrefix  string
}

// WithConfigFile specifies an explicit configuration file path. A missing
// explicit file is an error, unlike the default location.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithConfigDirs replaces the directories searched for trapbridge.toml.
func WithConfigDirs(dirs ...string) Option {
	return func(o *options) error {
		o.configDirs = dirs
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "TRAPBRIDGE"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		if prefix == "" {
			return errors.New().WithMessage(ErrInvalidArgument, "empty environment prefix")
		}
		o.envPrefix = prefix
		return nil
	}
}

// Payload formats the stdio host accepts
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)
