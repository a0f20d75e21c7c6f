// Package config loads the on-disk TOML configuration and layers REMIND_*
// environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "remind.toml"

	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type Config struct {
	DataDir         string `toml:"data_dir"`
	Backend         string `toml:"backend"`
	MaxInstances    int    `toml:"max_instances"`
	WindowMonths    int    `toml:"window_months"`
	SchedulerBuffer int    `toml:"scheduler_buffer"`
}

func Default() Config {
	return Config{
		DataDir:         ".",
		Backend:         BackendJSON,
		MaxInstances:    1000,
		WindowMonths:    2,
		SchedulerBuffer: 64,
	}
}

// LoadOrCreate reads the config at path, writing the defaults there first
// if no file exists yet.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg.normalized()
}

// FromEnv returns base with any REMIND_* environment overrides applied.
func FromEnv(base Config) (Config, error) {
	cfg := base
	if v := strings.TrimSpace(os.Getenv("REMIND_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(strings.ToLower(os.Getenv("REMIND_BACKEND"))); v != "" {
		cfg.Backend = v
	}
	if v, ok := getEnvInt("REMIND_MAX_INSTANCES"); ok && v > 0 {
		cfg.MaxInstances = v
	}
	if v, ok := getEnvInt("REMIND_WINDOW_MONTHS"); ok && v > 0 {
		cfg.WindowMonths = v
	}
	if v, ok := getEnvInt("REMIND_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	return cfg.normalized()
}

func (c Config) normalized() (Config, error) {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Backend == "" {
		c.Backend = BackendJSON
	}
	if c.Backend != BackendJSON && c.Backend != BackendSQLite {
		return c, fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.MaxInstances <= 0 {
		c.MaxInstances = Default().MaxInstances
	}
	if c.WindowMonths <= 0 {
		c.WindowMonths = Default().WindowMonths
	}
	if c.SchedulerBuffer <= 0 {
		c.SchedulerBuffer = Default().SchedulerBuffer
	}
	return c, nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
