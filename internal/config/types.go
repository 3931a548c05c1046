package config

import "time"

// Config represents the main server configuration (attune.yaml)
type Config struct {
	Name     string         `yaml:"name" json:"name"`
	Version  string         `yaml:"version" json:"version"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Provider ProviderConfig `yaml:"provider" json:"provider"`
	Embedder EmbedderConfig `yaml:"embedder" json:"embedder"`
	Memory   MemoryConfig   `yaml:"memory" json:"memory"`
	Store    StoreConfig    `yaml:"store" json:"store"`
	Defaults DefaultsConfig `yaml:"defaults" json:"defaults"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	Heartbeat string `yaml:"heartbeat" json:"heartbeat"` // SSE keep-alive interval, e.g. "15s"
}

// ProviderConfig configures the LLM provider
type ProviderConfig struct {
	Name      string  `yaml:"name" json:"name"`   // anthropic, mock
	Model     string  `yaml:"model" json:"model"` // claude-sonnet-4-20250514, etc.
	APIKey    string  `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	MaxTokens int     `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// EmbedderConfig configures the embedding provider used for memory retrieval
type EmbedderConfig struct {
	Provider   string `yaml:"provider" json:"provider"` // openai, mock
	Model      string `yaml:"model" json:"model"`       // text-embedding-3-small, etc.
	APIKey     string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	CacheSize  int    `yaml:"cache_size" json:"cache_size"` // LRU entries for repeated queries
}

// MemoryConfig configures the semantic memory subsystem
type MemoryConfig struct {
	Driver               string   `yaml:"driver" json:"driver"` // sqlite, chromem
	Path                 string   `yaml:"path" json:"path"`
	TopK                 int      `yaml:"top_k" json:"top_k"`
	PersistentCategories []string `yaml:"persistent_categories" json:"persistent_categories"`
	CaptureWindow        int      `yaml:"capture_window" json:"capture_window"` // recent messages sent to the trigger classifier
	CaptureRate          float64  `yaml:"capture_rate" json:"capture_rate"`     // max capture runs per second, 0 = unlimited
}

// StoreConfig configures relational storage
type StoreConfig struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite
	Path   string `yaml:"path" json:"path"`
}

// DefaultsConfig provides default values
type DefaultsConfig struct {
	Timeout    string `yaml:"timeout" json:"timeout"` // e.g., "2m"
	MaxRetries int    `yaml:"max_retries" json:"max_retries"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format string `yaml:"format" json:"format"` // text, json
	File   string `yaml:"file,omitempty" json:"file,omitempty"`
}

// MetricsConfig configures metrics export
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"` // JSONL export file
}

// ParsedHeartbeat converts the heartbeat string to time.Duration
func (s *ServerConfig) ParsedHeartbeat() (time.Duration, error) {
	if s.Heartbeat == "" {
		return 15 * time.Second, nil // default
	}
	return time.ParseDuration(s.Heartbeat)
}

// ParsedTimeout converts the timeout string to time.Duration
func (d *DefaultsConfig) ParsedTimeout() (time.Duration, error) {
	if d.Timeout == "" {
		return 2 * time.Minute, nil // default
	}
	return time.ParseDuration(d.Timeout)
}

// Addr returns the host:port listen address
func (s *ServerConfig) Addr() string {
	host := s.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := s.Port
	if port == 0 {
		port = 8135
	}
	return hostPort(host, port)
}
