package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "heritrace.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/heritrace"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides (e.g., HERITRACE_ADDR)
	EnvPrefix = "HERITRACE_"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/heritrace/config.yaml)
// 3. Project config (heritrace.yaml in current or parent directories)
// 4. Environment variables (HERITRACE_*)
func (l *Loader) Load() (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	userConfigPath := l.userConfigPath()
	if userConfig, err := LoadFromFile(userConfigPath); err == nil {
		l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		config.Merge(userConfig)
	} else if !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
	}

	// Load project config
	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	return l.finish(config)
}

// LoadFile loads defaults, then the given file, then environment overrides.
// Unlike Load, a missing or malformed file is an error.
func (l *Loader) LoadFile(path string) (*Config, error) {
	config := DefaultConfig()
	fileConfig, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Loaded config", slog.String("path", path))
	config.Merge(fileConfig)
	return l.finish(config)
}

func (l *Loader) finish(config *Config) (*Config, error) {
	env, err := envConfig()
	if err != nil {
		return nil, err
	}
	config.Merge(env)

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// envConfig reads HERITRACE_* overrides.
func envConfig() (*Config, error) {
	c := &Config{}
	env := func(name string) string {
		return strings.TrimSpace(os.Getenv(EnvPrefix + name))
	}
	invalid := func(name, value string, err error) error {
		return fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, value, err)
	}

	if v := env("SHAPES"); v != "" {
		c.Shapes.Files = splitList(v)
	}
	c.Shapes.DisplayRules = env("DISPLAY_RULES")
	if v := env("MAX_DEPTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, invalid("MAX_DEPTH", v, err)
		}
		c.Shapes.MaxDepth = n
	}
	if v := env("WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, invalid("WATCH", v, err)
		}
		c.Shapes.Watch = &b
	}
	c.Data.Backend = env("DATA_BACKEND")
	if v := env("DATA"); v != "" {
		c.Data.Files = splitList(v)
	}
	c.Data.SPARQL.Endpoint = env("SPARQL_ENDPOINT")
	c.Data.SPARQL.UpdateEndpoint = env("SPARQL_UPDATE_ENDPOINT")
	c.Data.SPARQL.Username = env("SPARQL_USERNAME")
	c.Data.SPARQL.Password = env("SPARQL_PASSWORD")
	if v := env("SPARQL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, invalid("SPARQL_TIMEOUT", v, err)
		}
		c.Data.SPARQL.Timeout = d
	}
	c.URI.Generator = env("URI_GENERATOR")
	c.URI.Base = env("URI_BASE")
	c.URI.SupplierPrefix = env("SUPPLIER_PREFIX")
	c.URI.Counter = env("URI_COUNTER")
	c.NATS.URL = env("NATS_URL")
	if v := env("EVENTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, invalid("EVENTS", v, err)
		}
		c.NATS.Events = &b
	}
	c.Server.Addr = env("ADDR")
	c.Language = env("LANGUAGE")
	return c, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	// Check if it already exists
	if _, err := os.Stat(userConfigPath); err == nil {
		return nil // Already exists
	}

	// Create default config
	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for heritrace.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
