// ABOUTME: Configuration loading and parsing for coven-desk
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable that overrides the config location.
const EnvPath = "COVEN_DESK_CONFIG"

// Config represents the complete coven-desk configuration
type Config struct {
	Conversation ConversationConfig `yaml:"conversation"`
	Streaming    StreamingConfig    `yaml:"streaming"`
	Personas     PersonasConfig     `yaml:"personas"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Database     DatabaseConfig     `yaml:"database"`
	History      HistoryConfig      `yaml:"history"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ConversationConfig holds message log and context settings
type ConversationConfig struct {
	MaxMessages        int           `yaml:"max_messages"`
	MaxContextMessages int           `yaml:"max_context_messages"`
	InactivityTimeout  time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	InactivityTimeoutRaw string `yaml:"inactivity_timeout"`
}

// StreamingConfig holds stream processor settings
type StreamingConfig struct {
	ProgressInterval int `yaml:"progress_interval"`
}

// PersonasConfig locates the persona definitions
type PersonasConfig struct {
	Path    string `yaml:"path"`
	Default string `yaml:"default"`
}

// ProvidersConfig holds credentials and options per provider
type ProvidersConfig struct {
	Anthropic ProviderConfig `yaml:"anthropic"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Echo      EchoConfig     `yaml:"echo"`
}

// ProviderConfig holds one provider's credentials
type ProviderConfig struct {
	APIKey string `yaml:"api_key"`
}

// EchoConfig holds the local echo provider settings
type EchoConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Delay    time.Duration `yaml:"-"`
	DelayRaw string        `yaml:"delay"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HistoryConfig controls history restored at startup
type HistoryConfig struct {
	LoadLimit int `yaml:"load_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// APIKey returns the configured key for a provider name.
func (p ProvidersConfig) APIKey(provider string) (string, bool) {
	var key string
	switch strings.ToLower(provider) {
	case "anthropic":
		key = p.Anthropic.APIKey
	case "openai":
		key = p.OpenAI.APIKey
	}
	return key, key != ""
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{
		Conversation: ConversationConfig{
			MaxMessages:          500,
			MaxContextMessages:   20,
			InactivityTimeoutRaw: "30m",
		},
		Streaming: StreamingConfig{
			ProgressInterval: 10,
		},
		Personas: PersonasConfig{
			Path: "~/.config/coven/personas.toml",
		},
		Providers: ProvidersConfig{
			Echo: EchoConfig{Enabled: true, DelayRaw: "30ms"},
		},
		Database: DatabaseConfig{
			Path: "~/.local/share/coven/desk.db",
		},
		History: HistoryConfig{
			LoadLimit: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
	// Defaults always parse.
	_ = parseDurations(cfg)
	cfg.expandPaths()
	return cfg
}

// Path returns the config file location following the lookup order.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "coven", "desk.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "coven", "desk.yaml")
	}
	return filepath.Join(home, ".config", "coven", "desk.yaml")
}

// LoadDefault loads the file at Path, or returns Default when it is absent.
func LoadDefault() (*Config, error) {
	cfg, err := Load(Path())
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Conversation.MaxMessages < 1 {
		return fmt.Errorf("conversation.max_messages must be at least 1")
	}
	if c.Conversation.MaxContextMessages < 0 {
		return fmt.Errorf("conversation.max_context_messages must not be negative")
	}
	if c.Conversation.MaxContextMessages > c.Conversation.MaxMessages {
		return fmt.Errorf("conversation.max_context_messages (%d) exceeds max_messages (%d)",
			c.Conversation.MaxContextMessages, c.Conversation.MaxMessages)
	}
	if c.Conversation.InactivityTimeout < 0 {
		return fmt.Errorf("conversation.inactivity_timeout must not be negative")
	}
	if c.Streaming.ProgressInterval < 1 {
		return fmt.Errorf("streaming.progress_interval must be at least 1")
	}
	if c.History.LoadLimit < 0 {
		return fmt.Errorf("history.load_limit must not be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q must be json or text", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Conversation.InactivityTimeoutRaw != "" {
		cfg.Conversation.InactivityTimeout, err = time.ParseDuration(cfg.Conversation.InactivityTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing inactivity_timeout %q: %w", cfg.Conversation.InactivityTimeoutRaw, err)
		}
	} else {
		cfg.Conversation.InactivityTimeout = 0
	}

	if cfg.Providers.Echo.DelayRaw != "" {
		cfg.Providers.Echo.Delay, err = time.ParseDuration(cfg.Providers.Echo.DelayRaw)
		if err != nil {
			return fmt.Errorf("parsing echo delay %q: %w", cfg.Providers.Echo.DelayRaw, err)
		}
	} else {
		cfg.Providers.Echo.Delay = 0
	}

	return nil
}

func (c *Config) expandPaths() {
	c.Database.Path = expandHome(c.Database.Path)
	c.Personas.Path = expandHome(c.Personas.Path)
}

// expandHome replaces a leading "~/" with the home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
