package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv  = "RESEARCH_AGENT_CONFIG"
	databaseURLEnv = "DATABASE_URL"
	serverPortEnv  = "SERVER_PORT"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Providers ProvidersConfig `yaml:"providers"`
	Workers   WorkersConfig   `yaml:"workers"`
	LogLevel  string          `yaml:"logLevel"`
}

// ServerConfig describes the HTTP listener
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig describes the Postgres connection
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// ProvidersConfig groups external content source settings
type ProvidersConfig struct {
	TimeoutSeconds int            `yaml:"timeoutSeconds"`
	Wikipedia      ProviderConfig `yaml:"wikipedia"`
	HackerNews     ProviderConfig `yaml:"hackernews"`
}

// ProviderConfig describes one content source and its result cap
type ProviderConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Limit   int    `yaml:"limit"`
}

// Timeout resolves the provider HTTP timeout
func (p ProvidersConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// WorkersConfig sizes the background workflow pool
type WorkersConfig struct {
	Count     int `yaml:"count"`
	QueueSize int `yaml:"queueSize"`
}

// Load builds the configuration from defaults, an optional YAML file pointed
// at by RESEARCH_AGENT_CONFIG, and environment overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{URL: "postgres://localhost/research_agent?sslmode=disable"},
		Providers: ProvidersConfig{
			TimeoutSeconds: 30,
			Wikipedia: ProviderConfig{
				BaseURL: "https://en.wikipedia.org/api/rest_v1",
				Limit:   3,
			},
			HackerNews: ProviderConfig{
				BaseURL: "https://hacker-news.firebaseio.com/v0",
				Limit:   2,
			},
		},
		Workers:  WorkersConfig{Count: 4, QueueSize: 64},
		LogLevel: "info",
	}

	if path := os.Getenv(configPathEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if url := os.Getenv(databaseURLEnv); url != "" {
		cfg.Database.URL = url
	}
	if port := os.Getenv(serverPortEnv); port != "" {
		cfg.Server.Port = port
	}

	return cfg, nil
}
