// ABOUTME: Configuration loading for familiar-bridge.
// ABOUTME: TOML with ${VAR} environment expansion, duration parsing, and validation.

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the complete bridge configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Tailscale TailscaleConfig `toml:"tailscale"`
	Backend   BackendConfig   `toml:"backend"`
	Chat      ChatConfig      `toml:"chat"`
	Auth      AuthConfig      `toml:"auth"`
	Bridge    BridgeConfig    `toml:"bridge"`
	Logging   LoggingConfig   `toml:"logging"`
}

// ServerConfig holds the plain TCP listen address.
type ServerConfig struct {
	HTTPAddr string `toml:"http_addr"`
}

// TailscaleConfig holds tsnet settings for serving the webhook over a
// tailnet, optionally exposed publicly via Funnel.
type TailscaleConfig struct {
	Enabled   bool   `toml:"enabled"`
	Hostname  string `toml:"hostname"`
	AuthKey   string `toml:"auth_key"`
	StateDir  string `toml:"state_dir"`
	Ephemeral bool   `toml:"ephemeral"`
	HTTPS     bool   `toml:"https"`  // serve TLS with Tailscale certs
	Funnel    bool   `toml:"funnel"` // public HTTPS (implies TLS)
}

// BackendConfig holds conversational-AI backend settings.
type BackendConfig struct {
	URL     string        `toml:"url"`
	APIKey  string        `toml:"api_key"`
	Timeout time.Duration `toml:"-"`

	TimeoutRaw string `toml:"timeout"`
}

// ChatConfig holds Google Chat platform settings.
type ChatConfig struct {
	CredentialsFile string `toml:"credentials_file"`
	AsyncReplies    bool   `toml:"async_replies"`
}

// AuthConfig controls inbound webhook token verification.
type AuthConfig struct {
	Enabled  bool   `toml:"enabled"`
	Audience string `toml:"audience"` // Cloud project number
}

// BridgeConfig holds message-handling knobs.
type BridgeConfig struct {
	Greeting     string        `toml:"greeting"`
	DedupeMax    int           `toml:"dedupe_max"`
	DedupeTTL    time.Duration `toml:"-"`
	ReplyTimeout time.Duration `toml:"-"`

	DedupeTTLRaw    string `toml:"dedupe_ttl"`
	ReplyTimeoutRaw string `toml:"reply_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults
const (
	DefaultHTTPAddr       = "0.0.0.0:8080"
	DefaultGreeting       = "Thanks for adding me! Mention me with a question to get started."
	DefaultDedupeMax      = 10000
	DefaultDedupeTTL      = 10 * time.Minute
	DefaultReplyTimeout   = 25 * time.Second
	DefaultBackendTimeout = 30 * time.Second
)

// Load reads a configuration file, expanding ${VAR} environment references
// and parsing duration strings. Missing optional values get defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values. Unset
// variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration.
func (c *Config) parseDurations() error {
	parse := func(name, raw string, out *time.Duration) error {
		if raw == "" {
			return nil
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*out = d
		return nil
	}

	if err := parse("backend.timeout", c.Backend.TimeoutRaw, &c.Backend.Timeout); err != nil {
		return err
	}
	if err := parse("bridge.dedupe_ttl", c.Bridge.DedupeTTLRaw, &c.Bridge.DedupeTTL); err != nil {
		return err
	}
	return parse("bridge.reply_timeout", c.Bridge.ReplyTimeoutRaw, &c.Bridge.ReplyTimeout)
}

// applyDefaults fills unset optional values.
func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Bridge.Greeting == "" {
		c.Bridge.Greeting = DefaultGreeting
	}
	if c.Bridge.DedupeMax == 0 {
		c.Bridge.DedupeMax = DefaultDedupeMax
	}
	if c.Bridge.DedupeTTL == 0 {
		c.Bridge.DedupeTTL = DefaultDedupeTTL
	}
	if c.Bridge.ReplyTimeout == 0 {
		c.Bridge.ReplyTimeout = DefaultReplyTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that required fields are present and coherent.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	u, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.url must use http or https scheme")
	}

	if c.Auth.Enabled && c.Auth.Audience == "" {
		return fmt.Errorf("auth.audience is required when auth is enabled (the Cloud project number)")
	}

	if c.Chat.AsyncReplies && c.Chat.CredentialsFile == "" {
		return fmt.Errorf("chat.credentials_file is required when async replies are enabled")
	}

	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	return nil
}
