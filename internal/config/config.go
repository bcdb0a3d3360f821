package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"jarscan/internal/archive"
	"jarscan/internal/errors"
	"jarscan/internal/output"
	"jarscan/internal/slogutil"
)

// EnvPrefix prefixes every environment variable that overrides a config key.
const EnvPrefix = "JARSCAN"

// Config represents the complete jarscan configuration
type Config struct {
	Scan   ScanConfig   `json:"scan" yaml:"scan" toml:"scan" mapstructure:"scan"`
	Output OutputConfig `json:"output" yaml:"output" toml:"output" mapstructure:"output"`
	Log    LogConfig    `json:"log" yaml:"log" toml:"log" mapstructure:"log"`
}

// ScanConfig controls which files are opened and how.
type ScanConfig struct {
	// Extensions are the file name suffixes treated as archives.
	Extensions []string `json:"extensions" yaml:"extensions" toml:"extensions" mapstructure:"extensions"`
	// SkipDirs are directory base names never descended into.
	SkipDirs []string `json:"skip_dirs" yaml:"skip_dirs" toml:"skip_dirs" mapstructure:"skip_dirs"`
	// Verify decompresses every class entry to detect corrupt data.
	Verify bool `json:"verify" yaml:"verify" toml:"verify" mapstructure:"verify"`
}

// OutputConfig controls how matches are written.
type OutputConfig struct {
	Format  string `json:"format" yaml:"format" toml:"format" mapstructure:"format"`
	Color   string `json:"color" yaml:"color" toml:"color" mapstructure:"color"`
	Summary bool   `json:"summary" yaml:"summary" toml:"summary" mapstructure:"summary"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" toml:"format" mapstructure:"format"`
	File   string `json:"file" yaml:"file" toml:"file" mapstructure:"file"`
}

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	outputFormats = formatNames(output.Formats)
	logFormats    = []string{string(slogutil.FormatHuman), string(slogutil.FormatJSON)}
	colorModes    = []string{ColorAuto, ColorAlways, ColorNever}
)

// FlagKeys maps command-line flag names to the config keys they override.
var FlagKeys = map[string]string{
	"ext":        "scan.extensions",
	"skip-dir":   "scan.skip_dirs",
	"verify":     "scan.verify",
	"format":     "output.format",
	"color":      "output.color",
	"summary":    "output.summary",
	"log-level":  "log.level",
	"log-format": "log.format",
	"log-file":   "log.file",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Extensions: []string{".jar"},
			SkipDirs:   []string{},
			Verify:     false,
		},
		Output: OutputConfig{
			Format:  "text",
			Color:   ColorNever,
			Summary: false,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: string(slogutil.FormatHuman),
			File:   "",
		},
	}
}

// Load builds the effective configuration. Precedence, highest first:
// changed flags, JARSCAN_* environment variables, the config file, defaults.
// file may be empty; flags may be nil. Unknown keys found in a TOML file are
// returned as warnings.
func Load(file string, flags *pflag.FlagSet) (*Config, []string, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, nil, errors.NewScanError(errors.InternalError, "bind flag", name, err)
			}
		}
	}

	var warnings []string
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, errors.NewScanError(errors.ConfigInvalid, "failed to read config file", file, err)
		}
		if isTOML(file) {
			unknown, err := undecodedTOMLKeys(file)
			if err != nil {
				return nil, nil, errors.NewScanError(errors.ConfigInvalid, "failed to parse config file", file, err)
			}
			for _, k := range unknown {
				warnings = append(warnings, fmt.Sprintf("unknown config key %q in %s", k, file))
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, errors.NewScanError(errors.ConfigInvalid, "failed to decode config", file, err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, warnings, err
	}
	return &cfg, warnings, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scan.extensions", d.Scan.Extensions)
	v.SetDefault("scan.skip_dirs", d.Scan.SkipDirs)
	v.SetDefault("scan.verify", d.Scan.Verify)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.color", d.Output.Color)
	v.SetDefault("output.summary", d.Output.Summary)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

func isTOML(file string) bool {
	return strings.EqualFold(filepath.Ext(file), ".toml")
}

// undecodedTOMLKeys lists keys present in a TOML file that do not map to
// any Config field. viper drops such keys silently.
func undecodedTOMLKeys(file string) ([]string, error) {
	var decoded Config
	md, err := toml.DecodeFile(file, &decoded)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, k := range md.Undecoded() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys, nil
}

// normalize lowercases enumerations and gives every extension a leading dot.
func (c *Config) normalize() {
	exts := make([]string, 0, len(c.Scan.Extensions))
	for _, e := range c.Scan.Extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	c.Scan.Extensions = exts

	dirs := make([]string, 0, len(c.Scan.SkipDirs))
	for _, d := range c.Scan.SkipDirs {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	c.Scan.SkipDirs = dirs

	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	c.Output.Color = strings.ToLower(strings.TrimSpace(c.Output.Color))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var cerr *ConfigError
	switch {
	case len(c.Scan.Extensions) == 0:
		cerr = &ConfigError{Field: "scan.extensions", Message: "at least one archive extension is required"}
	case c.hasBareDot():
		cerr = &ConfigError{Field: "scan.extensions", Message: "extension must not be empty"}
	case c.unreadableExtension() != "":
		cerr = &ConfigError{
			Field:   "scan.extensions",
			Message: "no archive reader for " + c.unreadableExtension() + ", supported: " + strings.Join(archive.DefaultRegistry().Suffixes(), ", "),
		}
	case !contains(outputFormats, c.Output.Format):
		cerr = &ConfigError{Field: "output.format", Message: "must be one of " + strings.Join(outputFormats, ", ")}
	case !contains(colorModes, c.Output.Color):
		cerr = &ConfigError{Field: "output.color", Message: "must be one of " + strings.Join(colorModes, ", ")}
	case !slogutil.ValidLevel(c.Log.Level):
		cerr = &ConfigError{Field: "log.level", Message: "unknown level " + c.Log.Level}
	case !contains(logFormats, c.Log.Format):
		cerr = &ConfigError{Field: "log.format", Message: "must be one of " + strings.Join(logFormats, ", ")}
	}
	if cerr != nil {
		return errors.NewScanError(errors.ConfigInvalid, "invalid configuration", "", cerr)
	}
	return nil
}

func (c *Config) hasBareDot() bool {
	for _, e := range c.Scan.Extensions {
		if e == "." {
			return true
		}
	}
	return false
}

// unreadableExtension returns the first extension no archive format handles.
func (c *Config) unreadableExtension() string {
	registry := archive.DefaultRegistry()
	for _, e := range c.Scan.Extensions {
		if _, ok := registry.Lookup("archive" + e); !ok {
			return e
		}
	}
	return ""
}

func formatNames(formats []output.Format) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
