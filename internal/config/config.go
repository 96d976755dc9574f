// Package config loads pyshare settings from defaults, pyshare.yaml, .env and
// PYSHARE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configBaseName = "pyshare"
	FileName       = configBaseName + ".yaml"

	envPrefix = "PYSHARE"

	UtilsModuleKey      = "utils.module"
	UtilsPathKey        = "utils.path"
	UtilsFunctionsKey   = "utils.functions"
	ProjectRootKey      = "project.root"
	OutputDirKey        = "output.dir"
	OutputSuffixKey     = "output.suffix"
	SplicePolicyKey     = "splice.policy"
	SpliceMarkerKey     = "splice.marker"
	SpliceOccurrenceKey = "splice.marker_occurrence"
	LintEnabledKey      = "lint.enabled"
	LintCommandsKey     = "lint.commands"
	LintTimeoutKey      = "lint.timeout"

	LogFilenameKey   = "log.filename"
	LogLevelKey      = "log.level"
	LogMaxSizeKey    = "log.max_size"
	LogMaxBackupsKey = "log.max_backups"
	LogMaxAgeKey     = "log.max_age"
	LogCompressKey   = "log.compress"
)

type Config struct {
	Utils   UtilsConfig   `mapstructure:"utils" yaml:"utils"`
	Project ProjectConfig `mapstructure:"project" yaml:"project"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Splice  SpliceConfig  `mapstructure:"splice" yaml:"splice"`
	Lint    LintConfig    `mapstructure:"lint" yaml:"lint"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// UtilsConfig describes the shared utilities module. An empty Functions list
// means every public top-level function of the module.
type UtilsConfig struct {
	Module    string   `mapstructure:"module" yaml:"module"`
	Path      string   `mapstructure:"path" yaml:"path"`
	Functions []string `mapstructure:"functions" yaml:"functions"`
}

// ProjectConfig.Root defaults to the git toplevel of the working directory.
type ProjectConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

type OutputConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Suffix string `mapstructure:"suffix" yaml:"suffix"`
}

type SpliceConfig struct {
	Policy           string `mapstructure:"policy" yaml:"policy"`
	Marker           string `mapstructure:"marker" yaml:"marker"`
	MarkerOccurrence int    `mapstructure:"marker_occurrence" yaml:"marker_occurrence"`
}

type LintConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Commands []string      `mapstructure:"commands" yaml:"commands"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type LogConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	Level      string `mapstructure:"level" yaml:"level"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Utils: UtilsConfig{
			Module:    "tm.utils",
			Path:      filepath.Join("src", "tm", "utils.py"),
			Functions: []string{"ts_plot", "format_args"},
		},
		Output: OutputConfig{Dir: "share", Suffix: "_ext"},
		Splice: SpliceConfig{Policy: "auto", Marker: "# %%", MarkerOccurrence: 2},
		Lint: LintConfig{
			Enabled:  true,
			Commands: []string{"ruff check --select F,I --fix", "ruff format"},
			Timeout:  2 * time.Minute,
		},
		Log: LogConfig{
			Filename:   "",
			Level:      "warn",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
	}
}

// New returns a viper instance with defaults applied, reading dir/pyshare.yaml
// when present. A .env file in dir is loaded into the environment first.
func New(dir string) (*viper.Viper, error) {
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(filepath.Join(dir, FileName))
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault(UtilsModuleKey, d.Utils.Module)
	v.SetDefault(UtilsPathKey, d.Utils.Path)
	v.SetDefault(UtilsFunctionsKey, d.Utils.Functions)
	v.SetDefault(ProjectRootKey, d.Project.Root)
	v.SetDefault(OutputDirKey, d.Output.Dir)
	v.SetDefault(OutputSuffixKey, d.Output.Suffix)
	v.SetDefault(SplicePolicyKey, d.Splice.Policy)
	v.SetDefault(SpliceMarkerKey, d.Splice.Marker)
	v.SetDefault(SpliceOccurrenceKey, d.Splice.MarkerOccurrence)
	v.SetDefault(LintEnabledKey, d.Lint.Enabled)
	v.SetDefault(LintCommandsKey, d.Lint.Commands)
	v.SetDefault(LintTimeoutKey, d.Lint.Timeout)

	// Logging defaults (used by config/env and as fallbacks for flags).
	v.SetDefault(LogFilenameKey, d.Log.Filename)
	v.SetDefault(LogLevelKey, d.Log.Level)
	v.SetDefault(LogMaxSizeKey, d.Log.MaxSize)
	v.SetDefault(LogMaxBackupsKey, d.Log.MaxBackups)
	v.SetDefault(LogMaxAgeKey, d.Log.MaxAge)
	v.SetDefault(LogCompressKey, d.Log.Compress)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return v, nil
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Utils.Module) == "" {
		return fmt.Errorf("%s must not be empty", UtilsModuleKey)
	}
	if strings.TrimSpace(c.Utils.Path) == "" {
		return fmt.Errorf("%s must not be empty", UtilsPathKey)
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("%s must not be empty", OutputDirKey)
	}
	if c.Splice.MarkerOccurrence < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", SpliceOccurrenceKey, c.Splice.MarkerOccurrence)
	}
	if strings.TrimSpace(c.Splice.Marker) == "" {
		return fmt.Errorf("%s must not be empty", SpliceMarkerKey)
	}
	if c.Lint.Timeout < 0 {
		return fmt.Errorf("%s must not be negative", LintTimeoutKey)
	}
	return nil
}

// Marshal renders c as the contents of a pyshare.yaml file.
func Marshal(c Config) ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	return data, nil
}
