// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/courier/lib/blockfmt"
	"github.com/bureau-foundation/courier/lib/markup"
	"github.com/bureau-foundation/courier/lib/ref"
	"github.com/bureau-foundation/courier/lib/render"
	"github.com/bureau-foundation/courier/lib/secret"
)

// Environment is the deployment type.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete courier configuration.
type Config struct {
	Environment Environment   `yaml:"environment"`
	Slack       SlackConfig   `yaml:"slack"`
	Agent       AgentConfig   `yaml:"agent"`
	Render      RenderConfig  `yaml:"render"`
	History     HistoryConfig `yaml:"history"`
	Logging     LoggingConfig `yaml:"logging"`

	// Per-environment sections, decoded over the base values when
	// Environment matches. They may contain any of the keys above
	// except environment.
	Development yaml.Node `yaml:"development,omitempty"`
	Staging     yaml.Node `yaml:"staging,omitempty"`
	Production  yaml.Node `yaml:"production,omitempty"`
}

// SlackConfig configures the Slack Web API and Socket Mode clients.
type SlackConfig struct {
	// BotToken is the xoxb- token used for chat.postMessage,
	// chat.update, auth.test and users.info.
	BotToken secret.Source `yaml:"bot_token"`

	// AppToken is the xapp- token that opens the Socket Mode
	// connection.
	AppToken secret.Source `yaml:"app_token"`

	// APIURL overrides https://slack.com/api/, for tests and proxies.
	APIURL string `yaml:"api_url"`

	// RequestsPerSecond and Burst pace outbound Web API calls. Slack's
	// chat.update tier allows roughly one call per second per channel.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// MaxAttempts bounds how often one call is retried after
	// rate limiting.
	MaxAttempts int `yaml:"max_attempts"`

	// AllowedChannels restricts which conversations the bot answers
	// in. Empty means every conversation the bot is a member of.
	AllowedChannels []ref.ChannelID `yaml:"allowed_channels"`
}

// AgentConfig configures the agent backend client.
type AgentConfig struct {
	// BaseURL is the backend root; requests go to BaseURL/generate.
	BaseURL string `yaml:"base_url"`

	// ConnectTimeout bounds establishing the connection and receiving
	// response headers. The streamed body is not time-limited.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// TurnTimeout bounds one whole turn including streaming. Zero
	// disables the limit.
	TurnTimeout time.Duration `yaml:"turn_timeout"`
}

// RenderConfig configures how responses are rendered.
type RenderConfig struct {
	Flush       render.Policy   `yaml:"flush"`
	Markers     markup.Markers  `yaml:"markers"`
	Limits      blockfmt.Limits `yaml:"limits"`
	Placeholder string          `yaml:"placeholder"`
}

// HistoryConfig selects the conversation history store.
type HistoryConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `yaml:"driver"`

	// Path is the SQLite database file. Required for the sqlite
	// driver.
	Path string `yaml:"path"`

	// MaxEntries caps how many prior entries are sent to the agent,
	// newest kept. Zero sends everything.
	MaxEntries int `yaml:"max_entries"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  slog.Level `yaml:"level"`
	Format string     `yaml:"format"`
}

// Default returns the values a configuration file is decoded over.
func Default() *Config {
	return &Config{
		Environment: Development,
		Slack: SlackConfig{
			BotToken:          secret.Source{Env: "SLACK_BOT_TOKEN"},
			AppToken:          secret.Source{Env: "SLACK_APP_TOKEN"},
			RequestsPerSecond: 1,
			Burst:             3,
			MaxAttempts:       3,
		},
		Agent: AgentConfig{
			BaseURL:        "http://localhost:8000",
			ConnectTimeout: 30 * time.Second,
			TurnTimeout:    10 * time.Minute,
		},
		Render: RenderConfig{
			Flush:       render.DefaultPolicy,
			Markers:     markup.DefaultMarkers,
			Limits:      blockfmt.DefaultLimits,
			Placeholder: render.DefaultPlaceholder,
		},
		History: HistoryConfig{
			Driver:     "memory",
			MaxEntries: 50,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: "text",
		},
	}
}

// Load reads the file named by COURIER_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv("COURIER_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("COURIER_CONFIG environment variable not set; " +
			"set it to the path of your courier.yaml or pass --config")
	}
	return LoadFile(path)
}

// LoadFile reads and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration over Default, applies the
// environment section, expands variables and validates.
func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: parsing: %w", err)
	}
	if err := config.applyEnvironment(); err != nil {
		return nil, err
	}
	config.expandVariables()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnvironment() error {
	var section *yaml.Node
	switch c.Environment {
	case Development:
		section = &c.Development
	case Staging:
		section = &c.Staging
	case Production:
		section = &c.Production
	default:
		return fmt.Errorf("config: invalid environment %q", c.Environment)
	}
	if section.Kind == 0 {
		return nil
	}
	if section.Kind != yaml.MappingNode {
		return fmt.Errorf("config: %s section must be a mapping", c.Environment)
	}
	for index := 0; index < len(section.Content); index += 2 {
		if section.Content[index].Value == "environment" {
			return fmt.Errorf("config: %s section cannot change environment", c.Environment)
		}
	}
	environment := c.Environment
	if err := section.Decode(c); err != nil {
		return fmt.Errorf("config: applying %s section: %w", environment, err)
	}
	c.Environment = environment
	return nil
}

func (c *Config) expandVariables() {
	c.Slack.BotToken = expandSource(c.Slack.BotToken)
	c.Slack.AppToken = expandSource(c.Slack.AppToken)
	c.Slack.APIURL = expandVars(c.Slack.APIURL)
	c.Agent.BaseURL = expandVars(c.Agent.BaseURL)
	c.History.Path = expandVars(c.History.Path)
}

func expandSource(source secret.Source) secret.Source {
	source.Path = expandVars(source.Path)
	return source
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${VAR} and ${VAR:-default}. An unset or empty
// variable without a default expands to the empty string.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}

	if c.Slack.BotToken.IsZero() {
		errs = append(errs, errors.New("slack.bot_token is required"))
	}
	if c.Slack.AppToken.IsZero() {
		errs = append(errs, errors.New("slack.app_token is required"))
	}
	if c.Slack.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("slack.requests_per_second must be positive"))
	}
	if c.Slack.Burst < 1 {
		errs = append(errs, errors.New("slack.burst must be at least 1"))
	}
	if c.Slack.MaxAttempts < 1 {
		errs = append(errs, errors.New("slack.max_attempts must be at least 1"))
	}

	if !strings.HasPrefix(c.Agent.BaseURL, "http://") && !strings.HasPrefix(c.Agent.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("agent.base_url must be an http or https URL: %q", c.Agent.BaseURL))
	}
	if c.Agent.ConnectTimeout < 0 || c.Agent.TurnTimeout < 0 {
		errs = append(errs, errors.New("agent timeouts must not be negative"))
	}

	if err := c.Render.Flush.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("render.flush: %w", err))
	}
	if err := c.Render.Markers.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("render.markers: %w", err))
	}
	if err := c.Render.Limits.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("render.limits: %w", err))
	}
	if strings.TrimSpace(c.Render.Placeholder) == "" {
		errs = append(errs, errors.New("render.placeholder must not be empty"))
	}

	switch c.History.Driver {
	case "memory":
	case "sqlite":
		if c.History.Path == "" {
			errs = append(errs, errors.New("history.path is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("history.driver must be memory or sqlite: %q", c.History.Driver))
	}
	if c.History.MaxEntries < 0 {
		errs = append(errs, errors.New("history.max_entries must not be negative"))
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be text or json: %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
