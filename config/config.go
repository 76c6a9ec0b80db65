// Package config loads the settings shared by the CLI and the HTTP server.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Yarin78/morphy-sub004/cache"
)

type Config struct {
	// DataDir holds one directory per database.
	DataDir   string `yaml:"data_dir"`
	Listen    string `yaml:"listen"`
	CacheSize int    `yaml:"cache_size"`
	LogLevel  string `yaml:"log_level"`
}

func Default() Config {
	return Config{
		DataDir:   "./files",
		Listen:    ":3000",
		CacheSize: cache.DefaultMaxSize,
		LogLevel:  "info",
	}
}

// Load reads the YAML file at path over the defaults and applies the MORPHY_*
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("MORPHY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MORPHY_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("MORPHY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MORPHY_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid MORPHY_CACHE_SIZE %q", v)
		}
		cfg.CacheSize = n
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}
