// Package config loads shardsearch configuration.
//
// Precedence, lowest to highest: built-in defaults, the user config file
// ($XDG_CONFIG_HOME/shardsearch/config.yaml), an explicit --config file,
// SHARDSEARCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
	"github.com/xkfz007/shardsearch/internal/logging"
)

// CurrentVersion is the config schema version written by WriteYAML.
const CurrentVersion = 1

// Config represents the complete shardsearch configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	DataDir  string         `yaml:"data_dir" json:"data_dir"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Engine   EngineConfig   `yaml:"engine" json:"engine"`
	Registry RegistryConfig `yaml:"registry" json:"registry"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// SearchConfig configures query parsing and result paging.
type SearchConfig struct {
	// PageSize is the number of documents per result page.
	PageSize int `yaml:"page_size" json:"page_size"`

	// MaxResults caps unpaged searches.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// UseOrOperator makes OR the implicit operator between bare clauses.
	// Default: false (AND).
	UseOrOperator bool `yaml:"use_or_operator" json:"use_or_operator"`

	// QueryCacheSize is the number of compiled queries kept in the LRU.
	// 0 disables the cache.
	QueryCacheSize int `yaml:"query_cache_size" json:"query_cache_size"`

	// MaxClauseCount caps the terms a multi-term query may expand to.
	// 0 keeps the engine default.
	MaxClauseCount int `yaml:"max_clause_count" json:"max_clause_count"`
}

// EngineConfig configures the index engine.
type EngineConfig struct {
	// OpenWorkers bounds parallel shard opens during a rebuild.
	OpenWorkers int `yaml:"open_workers" json:"open_workers"`

	// MemoryBudgetMB is the estimated memory one search may reserve before
	// it is rejected as resource exhaustion. 0 disables the guard.
	MemoryBudgetMB int `yaml:"memory_budget_mb" json:"memory_budget_mb"`

	// SnippetLength is the default snippet length for shards that don't set one.
	SnippetLength int `yaml:"snippet_length" json:"snippet_length"`
}

// RegistryConfig configures the shard registry.
type RegistryConfig struct {
	// Watch enables discovery of shard directories dropped into <data_dir>/shards.
	Watch bool `yaml:"watch" json:"watch"`

	// WatchDebounce coalesces bursts of filesystem events (e.g. "500ms").
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// NewConfig returns a configuration populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		DataDir: DefaultDataDir(),
		Search: SearchConfig{
			PageSize:       50,
			MaxResults:     10000,
			UseOrOperator:  false,
			QueryCacheSize: 256,
		},
		Engine: EngineConfig{
			OpenWorkers:    runtime.NumCPU(),
			MemoryBudgetMB: 512,
			SnippetLength:  200,
		},
		Registry: RegistryConfig{
			Watch:         true,
			WatchDebounce: "500ms",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  logging.DefaultLogPath(),
		},
	}
}

// DefaultDataDir returns ~/.shardsearch/data, or a temp-dir fallback.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".shardsearch", "data")
	}
	return filepath.Join(home, ".shardsearch", "data")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory layout:
//   - $XDG_CONFIG_HOME/shardsearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/shardsearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "shardsearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "shardsearch", "config.yaml")
}

// Load builds the effective configuration. explicitPath, when non-empty,
// must exist.
func Load(explicitPath string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); userPath != "" && fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if explicitPath != "" {
		if !fileExists(explicitPath) {
			return nil, sserrors.Newf(sserrors.ErrCodeConfigNotFound, nil, "%s", explicitPath)
		}
		if err := cfg.loadYAML(explicitPath); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML decodes path over c, so keys absent from the file keep their
// current values.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return sserrors.Newf(sserrors.ErrCodeConfigInvalid, err, "parse %s", path)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHARDSEARCH_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SHARDSEARCH_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.PageSize = n
		}
	}
	if v := os.Getenv("SHARDSEARCH_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("SHARDSEARCH_USE_OR_OPERATOR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Search.UseOrOperator = b
		}
	}
	if v := os.Getenv("SHARDSEARCH_MEMORY_BUDGET_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.MemoryBudgetMB = n
		}
	}
	if v := os.Getenv("SHARDSEARCH_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Registry.Watch = b
		}
	}
	if v := os.Getenv("SHARDSEARCH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.DataDir) == "" {
		problems = append(problems, "data_dir must be set")
	}
	if c.Search.PageSize <= 0 {
		problems = append(problems, fmt.Sprintf("search.page_size must be positive, got %d", c.Search.PageSize))
	}
	if c.Search.MaxResults <= 0 {
		problems = append(problems, fmt.Sprintf("search.max_results must be positive, got %d", c.Search.MaxResults))
	}
	if c.Search.QueryCacheSize < 0 {
		problems = append(problems, fmt.Sprintf("search.query_cache_size must be non-negative, got %d", c.Search.QueryCacheSize))
	}
	if c.Search.MaxClauseCount < 0 {
		problems = append(problems, fmt.Sprintf("search.max_clause_count must be non-negative, got %d", c.Search.MaxClauseCount))
	}
	if c.Engine.OpenWorkers <= 0 {
		problems = append(problems, fmt.Sprintf("engine.open_workers must be positive, got %d", c.Engine.OpenWorkers))
	}
	if c.Engine.MemoryBudgetMB < 0 {
		problems = append(problems, fmt.Sprintf("engine.memory_budget_mb must be non-negative, got %d", c.Engine.MemoryBudgetMB))
	}
	if c.Engine.SnippetLength < 0 {
		problems = append(problems, fmt.Sprintf("engine.snippet_length must be non-negative, got %d", c.Engine.SnippetLength))
	}
	if _, err := c.Registry.Debounce(); err != nil {
		problems = append(problems, fmt.Sprintf("registry.watch_debounce: %v", err))
	}
	if !logging.ValidLevel(c.Logging.Level) {
		problems = append(problems, fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level))
	}

	if len(problems) > 0 {
		return sserrors.Newf(sserrors.ErrCodeConfigInvalid, errors.New(strings.Join(problems, "; ")),
			"%s", strings.Join(problems, "; "))
	}
	return nil
}

// Debounce parses WatchDebounce; empty means no debounce.
func (r RegistryConfig) Debounce() (time.Duration, error) {
	if r.WatchDebounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.WatchDebounce)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must be non-negative, got %s", r.WatchDebounce)
	}
	return d, nil
}

// MemoryBudgetBytes converts the engine budget to bytes.
func (e EngineConfig) MemoryBudgetBytes() uint64 {
	if e.MemoryBudgetMB <= 0 {
		return 0
	}
	return uint64(e.MemoryBudgetMB) * 1024 * 1024
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.Render()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Render renders the configuration as YAML bytes.
func (c *Config) Render() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
