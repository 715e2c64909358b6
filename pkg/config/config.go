package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is the prefix for environment variable overrides.
	EnvPrefix = "FETCHOOR"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultFetchConcurrency is the default number of parallel reads in
	// a batch fetch.
	DefaultFetchConcurrency = 4
)

// Config is the root configuration for fetchoor.
type Config struct {
	Global  GlobalConfig             `yaml:"global" mapstructure:"global"`
	Readers map[string]*ReaderConfig `yaml:"readers" mapstructure:"readers"`
	Fetch   FetchConfig              `yaml:"fetch" mapstructure:"fetch"`
	API     *APIConfig               `yaml:"api,omitempty" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// FetchConfig controls batch fetches issued by the CLI.
type FetchConfig struct {
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" mapstructure:"requests_per_second"`
	OutputDir         string  `yaml:"output_dir,omitempty" mapstructure:"output_dir"`
	// Owner is an optional "UID:GID" applied to written files.
	Owner string `yaml:"owner,omitempty" mapstructure:"owner"`
}

// Load reads one or more YAML configuration files. Later files are merged
// over earlier ones, then FETCHOOR_* environment variables override any key
// present in the merged result (e.g. FETCHOOR_GLOBAL_LOG_LEVEL).
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no config file given")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("fetch.concurrency", DefaultFetchConcurrency)

	for i, path := range paths {
		data, err := os.ReadFile(path) //nolint:gosec // user supplied config path
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}

		if i == 0 {
			err = v.ReadConfig(bytes.NewReader(data))
		} else {
			err = v.MergeConfig(bytes.NewReader(data))
		}

		if err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := decode(v.AllSettings(), &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// decode maps viper's settings tree onto the typed config. Weakly typed
// input lets environment overrides (always strings) populate bools and
// numbers.
func decode(input map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}

	return dec.Decode(input)
}

// applyDefaults sets default values for unspecified configuration options.
func (c *Config) applyDefaults() {
	if c.Global.LogLevel == "" {
		c.Global.LogLevel = DefaultLogLevel
	}

	if c.Fetch.Concurrency <= 0 {
		c.Fetch.Concurrency = DefaultFetchConcurrency
	}

	if c.Readers == nil {
		c.Readers = make(map[string]*ReaderConfig)
	}

	for _, r := range c.Readers {
		if r != nil {
			r.applyDefaults()
		}
	}

	if c.API != nil {
		c.API.applyDefaults()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Readers) == 0 {
		return fmt.Errorf("at least one reader must be configured")
	}

	for _, name := range c.ReaderNames() {
		r := c.Readers[name]
		if r == nil {
			return fmt.Errorf("reader %q: configuration is empty", name)
		}

		if err := r.Validate(); err != nil {
			return fmt.Errorf("reader %q: %w", name, err)
		}
	}

	if c.Fetch.RequestsPerSecond < 0 {
		return fmt.Errorf("fetch.requests_per_second must not be negative")
	}

	return nil
}

// ValidateAPI checks the api section for errors.
func (c *Config) ValidateAPI() error {
	if c.API == nil {
		return fmt.Errorf("api section is required")
	}

	return c.API.Validate()
}

// ReaderNames returns the configured reader names sorted.
func (c *Config) ReaderNames() []string {
	names := make([]string, 0, len(c.Readers))
	for name := range c.Readers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Redacted returns a copy of the config with credentials masked, suitable
// for printing.
func (c *Config) Redacted() *Config {
	out := *c

	out.Readers = make(map[string]*ReaderConfig, len(c.Readers))
	for name, r := range c.Readers {
		if r == nil {
			continue
		}

		out.Readers[name] = r.redacted()
	}

	if c.API != nil {
		api := *c.API
		api.Auth.Basic.Users = make([]BasicAuthUser, len(c.API.Auth.Basic.Users))

		for i, u := range c.API.Auth.Basic.Users {
			u.PasswordHash = redact(u.PasswordHash)
			api.Auth.Basic.Users[i] = u
		}

		out.API = &api
	}

	return &out
}

const redactedValue = "<redacted>"

func redact(s string) string {
	if s == "" {
		return ""
	}

	return redactedValue
}
