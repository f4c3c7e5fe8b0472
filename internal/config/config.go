package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	DefaultDownloadDir = "downloads"
	DefaultMaxRetries  = 3

	// Auto-sized pools never exceed this, matching the dispatcher's cap for
	// large task sets.
	maxAutoWorkers = 8
	// Below this much available memory the auto-sized pool is halved.
	lowMemoryBytes = 512 << 20

	envPrefix = "MEDIAFETCH_"
)

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type HistoryConfig struct {
	RedisURL string `yaml:"redis_url"`
}

type Config struct {
	DownloadDir    string        `yaml:"download_dir"`
	UseDescription bool          `yaml:"use_description"`
	SkipExisting   bool          `yaml:"skip_existing"`
	Workers        int           `yaml:"workers"` // 0 sizes the pool from the host.
	MaxRetries     int           `yaml:"max_retries"` // Attempts per asset; 0 means a single attempt without retrying.
	Log            LogConfig     `yaml:"log"`
	History        HistoryConfig `yaml:"history"`
}

func MustLoad(path string) *Config {
	cfg, err := LoadWithFS(afero.NewOsFs(), path)
	if err != nil {
		panic(fmt.Sprintf("cannot load config: %v", err))
	}

	return cfg
}

// LoadWithFS reads the YAML config at path, then applies .env and process
// environment overrides. An empty path yields defaults plus overrides.
func LoadWithFS(fs afero.Fs, path string) (*Config, error) {
	cfg := &Config{
		DownloadDir:    DefaultDownloadDir,
		UseDescription: true,
		SkipExisting:   true,
		MaxRetries:     DefaultMaxRetries,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}

	// A missing file means defaults; a present but broken file is an error.
	if ok, _ := afero.Exists(fs, path); path != "" && ok {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file: %w", err)
		}
	}

	// Missing .env is fine.
	_ = godotenv.Load()
	cfg.applyEnv()

	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must not be negative, got %d", cfg.MaxRetries)
	}
	// An absent key keeps the seeded default; an explicit zero asks for a
	// single attempt without retrying.
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envPrefix + "DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv(envPrefix + "WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(envPrefix + "LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv(envPrefix + "REDIS_URL"); v != "" {
		c.History.RedisURL = v
	}
}

// EffectiveWorkers resolves the pool size. Zero means auto: one worker per
// logical CPU, capped, and halved when the host is short on memory.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}

	workers := maxAutoWorkers
	if n, err := cpu.Counts(true); err == nil && n > 0 && n < workers {
		workers = n
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm.Available < lowMemoryBytes {
		workers /= 2
	}

	if workers < 1 {
		workers = 1
	}

	return workers
}

func (c *LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}

	return level
}
