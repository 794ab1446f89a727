package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jathurchan/lockdir/lock"
)

// Config represents the lockdir tool configuration, loaded from a YAML file
// and overridden by command line flags.
type Config struct {
	StaleThreshold   string        `yaml:"stale_threshold"`
	RenewInterval    string        `yaml:"renew_interval"`
	Retries          int           `yaml:"retries"`
	NoFollowSymlinks bool          `yaml:"no_follow_symlinks"`
	Logging          LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StaleThreshold: lock.DefaultStaleThreshold.String(),
		RenewInterval:  lock.DefaultRenewInterval.String(),
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// LoadConfig loads configuration from path, or from $HOME/.lockdir.yaml when
// path is empty. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".lockdir.yaml")
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// loadEffectiveConfig loads the config file and applies flag overrides.
func loadEffectiveConfig() (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if staleThreshold > 0 {
		cfg.StaleThreshold = staleThreshold.String()
	}
	if renewInterval > 0 {
		cfg.RenewInterval = renewInterval.String()
	}
	if retries >= 0 {
		cfg.Retries = retries
	}
	if noFollowLinks {
		cfg.NoFollowSymlinks = true
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

// durations parses the configured durations.
func (c *Config) durations() (stale, renew time.Duration, err error) {
	if c.StaleThreshold != "" {
		stale, err = time.ParseDuration(c.StaleThreshold)
		if err != nil {
			return 0, 0, fmt.Errorf("parse stale_threshold: %w", err)
		}
	} else {
		stale = lock.DefaultStaleThreshold
	}

	if c.RenewInterval != "" {
		renew, err = time.ParseDuration(c.RenewInterval)
		if err != nil {
			return 0, 0, fmt.Errorf("parse renew_interval: %w", err)
		}
	} else {
		renew = lock.DefaultRenewInterval
	}
	return stale, renew, nil
}
