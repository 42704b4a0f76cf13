// Package config loads search tunables and paths from file and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/eliteGoblin/bluecore/internal/domain"
	"github.com/eliteGoblin/bluecore/internal/infra"
	"github.com/eliteGoblin/bluecore/internal/search"
)

const (
	// EnvPrefix prefixes every environment override (BLUECORE_CONCURRENCY, ...).
	EnvPrefix = "BLUECORE"

	configFileName = "config"
	configFileType = "yaml"
)

// SearchConfig tunes one search variant.
type SearchConfig struct {
	TaskTimeout   time.Duration
	GlobalTimeout time.Duration
	MaxDirs       int
	Skip          []string // directory names skipped on top of the built-in policy
}

// RootsConfig controls which directories a search starts from.
type RootsConfig struct {
	Extra         []string
	IncludeDrives bool
}

// Config is the resolved configuration.
type Config struct {
	Concurrency    int
	Marker         SearchConfig
	Package        SearchConfig
	Roots          RootsConfig
	DataDir        string
	HistoryEnabled bool

	// File is the config file actually read ("" when none was found).
	File string
}

// Default returns the built-in configuration for the given home directory.
func Default(home string) *Config {
	return &Config{
		Concurrency: search.DefaultConcurrency,
		Marker: SearchConfig{
			TaskTimeout:   search.DefaultMarkerTimeout,
			GlobalTimeout: 2 * search.DefaultMarkerTimeout,
			MaxDirs:       search.DefaultMarkerMaxDirs,
		},
		Package: SearchConfig{
			TaskTimeout:   search.DefaultPackageTimeout,
			GlobalTimeout: 2 * search.DefaultPackageTimeout,
			MaxDirs:       search.DefaultPackageMaxDirs,
		},
		Roots:          RootsConfig{IncludeDrives: true},
		DataDir:        filepath.Join(home, infra.DataDirName),
		HistoryEnabled: true,
	}
}

// LoadWithHome reads the config file at path (or <data dir>/config.yaml when
// path is empty) and applies BLUECORE_* environment overrides. home anchors
// ~ expansion and the default data dir. A missing file is not an error.
func LoadWithHome(path, home string) (*Config, error) {
	defaults := Default(home)

	v := viper.New()
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("marker.task_timeout_ms", defaults.Marker.TaskTimeout.Milliseconds())
	v.SetDefault("marker.global_timeout_ms", 0)
	v.SetDefault("marker.max_dirs", defaults.Marker.MaxDirs)
	v.SetDefault("marker.skip", []string{})
	v.SetDefault("package.task_timeout_ms", defaults.Package.TaskTimeout.Milliseconds())
	v.SetDefault("package.global_timeout_ms", 0)
	v.SetDefault("package.max_dirs", defaults.Package.MaxDirs)
	v.SetDefault("package.skip", []string{})
	v.SetDefault("roots.extra", []string{})
	v.SetDefault("roots.include_drives", defaults.Roots.IncludeDrives)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("history.enabled", defaults.HistoryEnabled)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(expandHome(path, home))
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(defaults.DataDir)
	}

	cfg := &Config{}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	cfg.Concurrency = v.GetInt("concurrency")
	cfg.Marker = SearchConfig{
		TaskTimeout:   millis(v.GetInt64("marker.task_timeout_ms")),
		GlobalTimeout: millis(v.GetInt64("marker.global_timeout_ms")),
		MaxDirs:       v.GetInt("marker.max_dirs"),
		Skip:          v.GetStringSlice("marker.skip"),
	}
	cfg.Package = SearchConfig{
		TaskTimeout:   millis(v.GetInt64("package.task_timeout_ms")),
		GlobalTimeout: millis(v.GetInt64("package.global_timeout_ms")),
		MaxDirs:       v.GetInt("package.max_dirs"),
		Skip:          v.GetStringSlice("package.skip"),
	}
	cfg.Roots = RootsConfig{
		Extra:         v.GetStringSlice("roots.extra"),
		IncludeDrives: v.GetBool("roots.include_drives"),
	}
	cfg.DataDir = expandHome(v.GetString("data_dir"), home)
	cfg.HistoryEnabled = v.GetBool("history.enabled")

	cfg.normalize(defaults)
	return cfg, nil
}

// normalize clamps non-positive values to defaults and derives unset
// global timeouts as twice the per-root timeout.
func (c *Config) normalize(defaults *Config) {
	if c.Concurrency < 1 {
		c.Concurrency = defaults.Concurrency
	}
	c.Marker.normalize(defaults.Marker)
	c.Package.normalize(defaults.Package)
	if c.DataDir == "" {
		c.DataDir = defaults.DataDir
	}
	for i, root := range c.Roots.Extra {
		c.Roots.Extra[i] = filepath.Clean(root)
	}
}

func (s *SearchConfig) normalize(defaults SearchConfig) {
	if s.TaskTimeout <= 0 {
		s.TaskTimeout = defaults.TaskTimeout
	}
	if s.GlobalTimeout <= 0 {
		s.GlobalTimeout = 2 * s.TaskTimeout
	}
	if s.MaxDirs <= 0 {
		s.MaxDirs = defaults.MaxDirs
	}
}

// Engine converts the config into search engine settings. Configured skip
// names extend the built-in skip policies.
func (c *Config) Engine() search.EngineConfig {
	cfg := search.DefaultEngineConfig()
	cfg.Concurrency = c.Concurrency
	cfg.Markers.TaskTimeout = c.Marker.TaskTimeout
	cfg.Markers.GlobalTimeout = c.Marker.GlobalTimeout
	cfg.Markers.MaxDirs = c.Marker.MaxDirs
	cfg.Markers.Skip = cfg.Markers.Skip.With(c.Marker.Skip...)
	cfg.Packages.TaskTimeout = c.Package.TaskTimeout
	cfg.Packages.GlobalTimeout = c.Package.GlobalTimeout
	cfg.Packages.MaxDirs = c.Package.MaxDirs
	cfg.Packages.Skip = cfg.Packages.Skip.With(c.Package.Skip...)
	return cfg
}

// GlobalRegistryPath is where the merged registry is saved.
func (c *Config) GlobalRegistryPath() string {
	return filepath.Join(c.DataDir, domain.MarkerFileName)
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
