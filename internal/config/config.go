// Package config loads the host settings: flags, then TRAPBRIDGE_*
// environment variables, then /etc/trapbridge.toml, then defaults.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/trapbridge/internal/collector"
	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/journal"
	"codeberg.org/mutker/trapbridge/internal/logger"
	"codeberg.org/mutker/trapbridge/internal/trapconfig"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "TRAPBRIDGE"
	DefaultLogLevel  = "warning"
	DefaultFormat    = FormatJSON

	// DefaultReevaluateInterval is in seconds.
	DefaultReevaluateInterval = 10

	configName = "trapbridge"
	configType = "toml"
)

type Config struct {
	ConfigFile          string
	Debug               bool
	Verbose             bool
	LogLevel            string
	Format              string
	Journal             bool
	JournalPath         string
	JournalBatchSize    int
	JournalBatchTimeout int
	MetricsAddr         string
	GrantedPermissions  []string
	BatteryLevel        float64
	Charging            bool
	LowData             bool
	ReevaluateInterval  int
}

func defaults(v *viper.Viper) {
	jcfg := journal.DefaultConfig()

	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("journal", jcfg.Enabled)
	v.SetDefault("journal_path", jcfg.DBPath)
	v.SetDefault("journal_batch_size", jcfg.BatchSize)
	v.SetDefault("journal_batch_timeout", jcfg.BatchTimeout)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("granted_permissions", []string{})
	v.SetDefault("battery_level", -1.0)
	v.SetDefault("charging", false)
	v.SetDefault("low_data", false)
	v.SetDefault("reevaluate_interval", DefaultReevaluateInterval)
}

func flagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("trapbridge", pflag.ContinueOnError)

	fs.String("config", "", "Path to the configuration file")
	fs.Bool("debug", false, "Enable debugging mode")
	fs.Bool("verbose", false, "Enable verbose logging")
	fs.String("log-level", DefaultLogLevel, "Log level: debug, info, warning, error")
	fs.String("format", DefaultFormat, "Call payload format: json or yaml")
	fs.Bool("journal", false, "Record custom data and lifecycle changes in sqlite")
	fs.String("journal-path", journal.DefaultConfig().DBPath, "Journal database path")
	fs.Int("journal-batch-size", journal.DefaultConfig().BatchSize, "Journal entries written per transaction")
	fs.Int("journal-batch-timeout", journal.DefaultConfig().BatchTimeout, "Seconds between journal flushes")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringSlice("grant", nil, "Collectors whose platform permission is granted")
	fs.Float64("battery-level", -1, "Battery charge fraction reported to profile selection, negative for unknown")
	fs.Bool("charging", false, "Report the device as charging")
	fs.Bool("low-data", false, "Report the device as on a low data connection")
	fs.Int("reevaluate-interval", DefaultReevaluateInterval, "Seconds between collection profile checks, 0 to disable")

	return fs
}

var flagKeys = map[string]string{
	"debug":                 "debug",
	"verbose":               "verbose",
	"log-level":             "log_level",
	"format":                "format",
	"journal":               "journal",
	"journal-path":          "journal_path",
	"journal-batch-size":    "journal_batch_size",
	"journal-batch-timeout": "journal_batch_timeout",
	"metrics-addr":          "metrics_addr",
	"grant":                 "granted_permissions",
	"battery-level":         "battery_level",
	"charging":              "charging",
	"low-data":              "low_data",
	"reevaluate-interval":   "reevaluate_interval",
}

// Load reads the host settings. args are the command line arguments without
// the program name. pflag.ErrHelp is returned unwrapped for --help.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := &options{
		configDirs: []string{"/etc"},
		envPrefix:  DefaultEnvPrefix,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	fs := flagSet()
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, errFactory.Wrap(ErrInvalidArgument, err)
	}

	v := viper.New()
	defaults(v)

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(ErrBindFlags, err)
		}
	}

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path, explicit := configPath(fs, v, o)
	if err := readConfigFile(v, path, explicit, o.configDirs); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigFile:          v.ConfigFileUsed(),
		Debug:               v.GetBool("debug"),
		Verbose:             v.GetBool("verbose"),
		LogLevel:            strings.ToLower(v.GetString("log_level")),
		Format:              strings.ToLower(v.GetString("format")),
		Journal:             v.GetBool("journal"),
		JournalPath:         v.GetString("journal_path"),
		JournalBatchSize:    v.GetInt("journal_batch_size"),
		JournalBatchTimeout: v.GetInt("journal_batch_timeout"),
		MetricsAddr:         v.GetString("metrics_addr"),
		GrantedPermissions:  splitList(v.GetStringSlice("granted_permissions")),
		BatteryLevel:        v.GetFloat64("battery_level"),
		Charging:            v.GetBool("charging"),
		LowData:             v.GetBool("low_data"),
		ReevaluateInterval:  v.GetInt("reevaluate_interval"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("config_file", cfg.ConfigFile).
		Str("format", cfg.Format).
		Bool("journal", cfg.Journal).
		Msg("Configuration loaded")

	return cfg, nil
}

// configPath resolves an explicitly requested file: the --config flag,
// then <PREFIX>_CONFIG, then WithConfigFile.
func configPath(fs *pflag.FlagSet, v *viper.Viper, o *options) (string, bool) {
	if p, _ := fs.GetString("config"); p != "" {
		return p, true
	}
	if err := v.BindEnv("config"); err == nil {
		if p := v.GetString("config"); p != "" {
			return p, true
		}
	}
	if o.configPath != "" {
		return o.configPath, true
	}
	return "", false
}

func readConfigFile(v *viper.Viper, path string, explicit bool, dirs []string) error {
	errFactory := errors.New()

	if explicit {
		v.SetConfigFile(path)
		if ext := filepath.Ext(path); ext == "" || ext == ".conf" {
			v.SetConfigType(configType)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && errors.As(err, &notFound) {
			return nil
		}
		return errFactory.WithData(ErrReadConfig, struct {
			Path  string
			Error string
		}{
			Path:  path,
			Error: err.Error(),
		})
	}

	return nil
}

// splitList accepts both list entries and comma separated strings, as
// environment variables deliver the latter.
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return errFactory.WithData(ErrInvalidLogLevel, struct {
			LogLevel string
		}{
			LogLevel: c.LogLevel,
		})
	}

	if c.Format != FormatJSON && c.Format != FormatYAML {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value string
		}{
			Field: "format",
			Value: c.Format,
		})
	}

	if c.BatteryLevel > 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value float64
		}{
			Field: "battery_level",
			Value: c.BatteryLevel,
		})
	}

	for _, tag := range c.GrantedPermissions {
		if _, err := collector.Parse(tag); err != nil {
			return errFactory.Wrap(ErrInvalidConfig, err)
		}
	}

	if err := c.JournalConfig().Validate(); err != nil {
		return errFactory.Wrap(ErrInvalidConfig, err)
	}

	return nil
}

// LogLevelValue returns the configured level. Debug and verbose flags win
// over log_level, as in logger.Init.
func (c *Config) LogLevelValue() logger.LogLevel {
	switch {
	case c.Debug:
		return logger.DebugLevel
	case c.Verbose:
		return logger.InfoLevel
	}
	level, _ := logger.ParseLevel(c.LogLevel)
	return level
}

func (c *Config) JournalConfig() journal.Config {
	jcfg := journal.DefaultConfig()
	jcfg.Enabled = c.Journal
	jcfg.DBPath = c.JournalPath
	jcfg.BackupDir = filepath.Join(filepath.Dir(c.JournalPath), "backups")
	jcfg.BatchSize = c.JournalBatchSize
	jcfg.BatchTimeout = c.JournalBatchTimeout
	return jcfg
}

// Signals are the static device conditions the host reports.
func (c *Config) Signals() trapconfig.Signals {
	return trapconfig.Signals{
		BatteryLevel: c.BatteryLevel,
		Charging:     c.Charging,
		LowData:      c.LowData,
	}
}

// ReevaluateEvery is the profile polling period. Zero disables polling.
func (c *Config) ReevaluateEvery() time.Duration {
	if c.ReevaluateInterval <= 0 {
		return 0
	}
	return time.Duration(c.ReevaluateInterval) * time.Second
}

// Granted returns the collectors the static platform starts out granting.
// Validate has already rejected unknown names.
func (c *Config) Granted() []collector.Type {
	out := make([]collector.Type, 0, len(c.GrantedPermissions))
	for _, tag := range c.GrantedPermissions {
		if t, err := collector.Parse(tag); err == nil {
			out = append(out, t)
		}
	}
	return out
}
