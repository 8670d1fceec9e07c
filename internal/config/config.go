package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// WebhookConfig holds alert webhook settings.
type WebhookConfig struct {
	URL      string   `yaml:"url"`
	Cooldown Duration `yaml:"cooldown"`
}

// AlertsConfig holds all alert configuration.
type AlertsConfig struct {
	Webhook WebhookConfig `yaml:"webhook"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Settings configures the long-running serve mode.
type Settings struct {
	Interval Duration      `yaml:"interval"`
	Timeout  Duration      `yaml:"timeout"`
	Alerts   AlertsConfig  `yaml:"alerts"`
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
}

// Defaults returns the settings used when no settings file is given.
func Defaults() *Settings {
	return &Settings{
		Interval: Duration{time.Minute},
		Timeout:  Duration{10 * time.Second},
		Server:   ServerConfig{Address: ":8080"},
		Storage:  StorageConfig{Path: "pacprobe.db"},
	}
}

// Load reads, parses, and validates the settings file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}

	// Durations are decoded as strings first so errors can name the field.
	type rawSettings struct {
		Interval string        `yaml:"interval"`
		Timeout  string        `yaml:"timeout"`
		Alerts   AlertsConfig  `yaml:"alerts"`
		Server   ServerConfig  `yaml:"server"`
		Storage  StorageConfig `yaml:"storage"`
	}

	var raw rawSettings
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	s := Defaults()
	s.Alerts = raw.Alerts
	if raw.Server.Address != "" {
		s.Server.Address = raw.Server.Address
	}
	if raw.Storage.Path != "" {
		s.Storage.Path = raw.Storage.Path
	}

	if raw.Interval != "" {
		d, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", raw.Interval, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid interval %q: must be positive", raw.Interval)
		}
		s.Interval = Duration{d}
	}

	if raw.Timeout != "" {
		d, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", raw.Timeout, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("invalid timeout %q: must be positive", raw.Timeout)
		}
		s.Timeout = Duration{d}
	}

	return s, nil
}
