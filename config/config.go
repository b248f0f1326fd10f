// Package config provides configuration loading and management for HERITRACE.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Data backends.
const (
	BackendMemory = "memory"
	BackendSPARQL = "sparql"
)

// Counter backends for the meta URI generator.
const (
	CounterMemory = "memory"
	CounterNATS   = "nats"
)

// Config represents the complete HERITRACE configuration
type Config struct {
	Shapes ShapesConfig `yaml:"shapes"`
	Data   DataConfig   `yaml:"data"`
	URI    URIConfig    `yaml:"uri"`
	NATS   NATSConfig   `yaml:"nats"`
	Server ServerConfig `yaml:"server"`

	// Language is the default message language (BCP 47, e.g. "en", "it")
	Language string `yaml:"language"`
}

// ShapesConfig configures the SHACL shapes and display rules
type ShapesConfig struct {
	// Files are shapes files or doublestar globs (e.g., "shapes/**/*.ttl")
	Files []string `yaml:"files"`
	// DisplayRules is the optional display rules YAML file
	DisplayRules string `yaml:"display_rules"`
	// MaxDepth bounds nested shape expansion in forms (0 = default)
	MaxDepth int `yaml:"max_depth"`
	// Watch reloads shapes and display rules when they change. Nil leaves
	// the lower layer's setting in place.
	Watch *bool `yaml:"watch,omitempty"`
	// Debounce is how long to wait for more changes before reloading
	Debounce time.Duration `yaml:"debounce"`
}

// DataConfig configures where entity data lives
type DataConfig struct {
	// Backend is "memory" or "sparql"
	Backend string `yaml:"backend"`
	// Files seed the memory backend
	Files []string `yaml:"files"`
	// SPARQL configures the sparql backend
	SPARQL SPARQLConfig `yaml:"sparql"`
}

// SPARQLConfig configures a remote SPARQL endpoint
type SPARQLConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	UpdateEndpoint string        `yaml:"update_endpoint"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Timeout        time.Duration `yaml:"timeout"`
}

// URIConfig configures how new entity URIs are minted
type URIConfig struct {
	// Generator is "uuid" or "meta"
	Generator string `yaml:"generator"`
	// Base is the IRI prefix of generated URIs
	Base string `yaml:"base"`
	// SupplierPrefix is prepended to meta sequence numbers
	SupplierPrefix string `yaml:"supplier_prefix"`
	// Counter is "memory" or "nats"
	Counter string `yaml:"counter"`
}

// NATSConfig configures the NATS connection used by the nats counter
type NATSConfig struct {
	// URL is the NATS server URL
	URL string `yaml:"url"`
	// Bucket is the key-value bucket holding counters
	Bucket string `yaml:"bucket"`
	// Events publishes a change event for every entity write. Nil leaves
	// the lower layer's setting in place.
	Events *bool `yaml:"events,omitempty"`
	// Subject is the change event subject (default: heritrace.entity.changed)
	Subject string `yaml:"subject"`
}

// Watching reports whether shapes are reloaded on change.
func (s ShapesConfig) Watching() bool {
	return s.Watch != nil && *s.Watch
}

// EventsEnabled reports whether entity writes publish change events.
func (n NATSConfig) EventsEnabled() bool {
	return n.Events != nil && *n.Events
}

// ServerConfig configures the HTTP server
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Shapes: ShapesConfig{
			Debounce: 500 * time.Millisecond,
		},
		Data: DataConfig{
			Backend: BackendMemory,
			SPARQL: SPARQLConfig{
				Timeout: 30 * time.Second,
			},
		},
		URI: URIConfig{
			Generator: "uuid",
			Base:      "https://w3id.org/heritrace/entity",
			Counter:   CounterMemory,
		},
		NATS: NATSConfig{
			Bucket:  "HERITRACE_COUNTERS",
			Subject: "heritrace.entity.changed",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Language: "en",
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Shapes.MaxDepth < 0 {
		return fmt.Errorf("shapes.max_depth must not be negative")
	}
	switch c.Data.Backend {
	case BackendMemory:
	case BackendSPARQL:
		if c.Data.SPARQL.Endpoint == "" {
			return fmt.Errorf("data.sparql.endpoint is required for the sparql backend")
		}
	default:
		return fmt.Errorf("data.backend must be %q or %q", BackendMemory, BackendSPARQL)
	}
	switch c.URI.Generator {
	case "uuid", "meta":
	default:
		return fmt.Errorf("uri.generator must be \"uuid\" or \"meta\"")
	}
	if c.URI.Base == "" {
		return fmt.Errorf("uri.base is required")
	}
	switch c.URI.Counter {
	case CounterMemory:
	case CounterNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required for the nats counter")
		}
	default:
		return fmt.Errorf("uri.counter must be %q or %q", CounterMemory, CounterNATS)
	}
	if c.NATS.EventsEnabled() && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required for change events")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. Relative shapes, rules
// and data paths are resolved against the file's directory.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	config.resolvePaths(filepath.Dir(path))

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Shapes
	if len(other.Shapes.Files) > 0 {
		c.Shapes.Files = other.Shapes.Files
	}
	if other.Shapes.DisplayRules != "" {
		c.Shapes.DisplayRules = other.Shapes.DisplayRules
	}
	if other.Shapes.MaxDepth != 0 {
		c.Shapes.MaxDepth = other.Shapes.MaxDepth
	}
	if other.Shapes.Watch != nil {
		c.Shapes.Watch = other.Shapes.Watch
	}
	if other.Shapes.Debounce != 0 {
		c.Shapes.Debounce = other.Shapes.Debounce
	}

	// Data
	if other.Data.Backend != "" {
		c.Data.Backend = other.Data.Backend
	}
	if len(other.Data.Files) > 0 {
		c.Data.Files = other.Data.Files
	}
	if other.Data.SPARQL.Endpoint != "" {
		c.Data.SPARQL.Endpoint = other.Data.SPARQL.Endpoint
	}
	if other.Data.SPARQL.UpdateEndpoint != "" {
		c.Data.SPARQL.UpdateEndpoint = other.Data.SPARQL.UpdateEndpoint
	}
	if other.Data.SPARQL.Username != "" {
		c.Data.SPARQL.Username = other.Data.SPARQL.Username
	}
	if other.Data.SPARQL.Password != "" {
		c.Data.SPARQL.Password = other.Data.SPARQL.Password
	}
	if other.Data.SPARQL.Timeout != 0 {
		c.Data.SPARQL.Timeout = other.Data.SPARQL.Timeout
	}

	// URI
	if other.URI.Generator != "" {
		c.URI.Generator = other.URI.Generator
	}
	if other.URI.Base != "" {
		c.URI.Base = other.URI.Base
	}
	if other.URI.SupplierPrefix != "" {
		c.URI.SupplierPrefix = other.URI.SupplierPrefix
	}
	if other.URI.Counter != "" {
		c.URI.Counter = other.URI.Counter
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Bucket != "" {
		c.NATS.Bucket = other.NATS.Bucket
	}
	if other.NATS.Events != nil {
		c.NATS.Events = other.NATS.Events
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
	if other.Server.ShutdownTimeout != 0 {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}

	if other.Language != "" {
		c.Language = other.Language
	}
}

// resolvePaths makes relative file paths relative to dir.
func (c *Config) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i, p := range c.Shapes.Files {
		c.Shapes.Files[i] = resolve(p)
	}
	c.Shapes.DisplayRules = resolve(c.Shapes.DisplayRules)
	for i, p := range c.Data.Files {
		c.Data.Files[i] = resolve(p)
	}
}
