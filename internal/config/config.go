// ABOUTME: Configuration loading for the fold-call CLI.
// ABOUTME: Loads TOML from the XDG path with environment variable expansion and duration parsing.

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the optional fold-call configuration file. Everything in it
// can also be supplied as a flag; flags win.
type Config struct {
	Gateway GatewayConfig `toml:"gateway"`
	Client  ClientConfig  `toml:"client"`
	Call    CallConfig    `toml:"call"`
	Logging LoggingConfig `toml:"logging"`
}

// GatewayConfig holds the connection target and credentials.
type GatewayConfig struct {
	URL      string `toml:"url"`
	Token    string `toml:"token"`
	Password string `toml:"password"`
}

// ClientConfig holds the identity sent in the hello frame.
type ClientConfig struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Platform    string `toml:"platform"`
	Mode        string `toml:"mode"`
	MinProtocol int    `toml:"min_protocol"`
	MaxProtocol int    `toml:"max_protocol"`
}

// CallConfig holds per-call policy.
type CallConfig struct {
	Timeout time.Duration `toml:"-"`

	// Raw string value for TOML unmarshaling
	TimeoutRaw string `toml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultPath returns the config file location.
// Priority: FOLD_CALL_CONFIG env var > XDG_CONFIG_HOME/fold/call.toml > ~/.config/fold/call.toml
func DefaultPath() string {
	if envPath := os.Getenv("FOLD_CALL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "call.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "fold", "call.toml")
}

// Load reads config from the given path, expanding environment variables.
// A missing file is not an error: the CLI can run on flags alone, so Load
// returns an empty Config when the path does not exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables (${VAR} syntax)
	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// Validate checks that present config fields are well-formed. All fields
// are optional; only malformed values fail.
func (c *Config) Validate() error {
	if c.Gateway.URL != "" {
		u, err := url.Parse(c.Gateway.URL)
		if err != nil {
			return fmt.Errorf("gateway.url is not a valid URL: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("gateway.url must use ws or wss scheme")
		}
	}

	if c.Client.MinProtocol < 0 || c.Client.MaxProtocol < 0 {
		return fmt.Errorf("client protocol versions must not be negative")
	}
	if c.Client.MaxProtocol != 0 && c.Client.MinProtocol > c.Client.MaxProtocol {
		return fmt.Errorf("client.min_protocol %d exceeds client.max_protocol %d",
			c.Client.MinProtocol, c.Client.MaxProtocol)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	if cfg.Call.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(cfg.Call.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing call.timeout %q: %w", cfg.Call.TimeoutRaw, err)
		}
		cfg.Call.Timeout = timeout
	}
	return nil
}
