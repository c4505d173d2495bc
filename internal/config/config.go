// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"riskgate/internal/risk"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Intake configures where inbound signals are consumed from.
type Intake struct {
	Provider string `yaml:"provider"` // stub | push
	Endpoint string `yaml:"endpoint"`
}

// Regime configures the market sentiment feed.
type Regime struct {
	Provider     string `yaml:"provider"` // stub | http | push
	Endpoint     string `yaml:"endpoint"`
	PollInterval int    `yaml:"poll_interval_ms"`
}

// Reasoner configures the fallback reasoning service. The API key is read
// from the environment variable named here, never from the file itself.
type Reasoner struct {
	Endpoint  string `yaml:"endpoint"`
	Model     string `yaml:"model"`
	TimeoutMs int    `yaml:"timeout_ms"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// Engine groups dispatch tuning knobs.
type Engine struct {
	OrderBuffer int    `yaml:"order_buffer"`
	OrdersPath  string `yaml:"orders_path"` // optional JSONL record of published orders
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App                    `yaml:"app"`
	Intake   Intake                 `yaml:"intake"`
	Regime   Regime                 `yaml:"regime"`
	Reasoner Reasoner               `yaml:"reasoner"`
	Engine   Engine                 `yaml:"engine"`
	Users    map[string]risk.Config `yaml:"users"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
