// Package appconfig reads the user's dashboard defaults from
// ~/.kdash/config.yaml. Values here sit below command line flags: a flag the
// user set always wins.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ViewConfig carries dashboard view defaults. Durations are Go duration
// strings ("2s", "1m").
type ViewConfig struct {
	Kinds           []string `yaml:"kinds,omitempty"`
	Namespace       string   `yaml:"namespace,omitempty"`
	Tick            string   `yaml:"tick,omitempty"`
	MetricsInterval string   `yaml:"metricsInterval,omitempty"`
	Listen          string   `yaml:"listen,omitempty"`
	Journal         string   `yaml:"journal,omitempty"`
}

type Config struct {
	View ViewConfig `yaml:"view,omitempty"`
}

func DefaultPath() string {
	home, _ := os.UserHomeDir()
	if strings.TrimSpace(home) == "" {
		return ""
	}
	return filepath.Join(home, ".kdash", "config.yaml")
}

// Load reads the config file at path. A missing or empty file yields a zero
// Config without error.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Config{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("load dashboard config: %w", err)
	}
	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return Config{}, nil
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse dashboard config %s: %w", path, err)
	}
	if _, err := cfg.View.TickDuration(); err != nil {
		return Config{}, fmt.Errorf("dashboard config %s: %w", path, err)
	}
	if _, err := cfg.View.MetricsIntervalDuration(); err != nil {
		return Config{}, fmt.Errorf("dashboard config %s: %w", path, err)
	}
	return cfg, nil
}

// TickDuration parses the tick default. Zero means unset.
func (v ViewConfig) TickDuration() (time.Duration, error) {
	return parseDuration("view.tick", v.Tick)
}

// MetricsIntervalDuration parses the metrics poll default. Zero means unset.
func (v ViewConfig) MetricsIntervalDuration() (time.Duration, error) {
	return parseDuration("view.metricsInterval", v.MetricsInterval)
}

func parseDuration(field, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration %q: %w", field, raw, err)
	}
	return d, nil
}
