// Package config holds the explicit configuration of the relay. Nothing below reads
// process-wide state except Load, which layers a YAML file and the environment on
// top of the defaults.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL       = "https://prod-1-data.ke.pinecone.io/assistant/chat"
	DefaultAssistantName = "thrive-coach"
	DefaultModel         = "gpt-4o"
	DefaultSender        = "ThriveCoach"
	DefaultAddr          = ":3080"
	DefaultNATSSubject   = "relay.exchanges"
)

// Upstream configures the assistant service the session talks to.
type Upstream struct {
	BaseURL       string        `yaml:"base_url"`
	AssistantName string        `yaml:"assistant_name"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	Debug         bool          `yaml:"-"`
}

// Relay configures the downstream labels.
type Relay struct {
	Sender string `yaml:"sender"`
}

// Server configures the HTTP surface.
type Server struct {
	Addr string `yaml:"addr"`
}

// Titles configures conversation title persistence. An empty DSN keeps titles in memory.
type Titles struct {
	DSN string `yaml:"dsn"`
}

// Broker configures the optional NATS mirror of relayed events.
type Broker struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Config is the root configuration.
type Config struct {
	Upstream Upstream `yaml:"upstream"`
	Relay    Relay    `yaml:"relay"`
	Server   Server   `yaml:"server"`
	Titles   Titles   `yaml:"titles"`
	Broker   Broker   `yaml:"broker"`
	Debug    bool     `yaml:"debug"`
}

// Default returns the configuration with every default applied.
func Default() Config {
	return Config{
		Upstream: Upstream{
			BaseURL:       DefaultBaseURL,
			AssistantName: DefaultAssistantName,
			Model:         DefaultModel,
		},
		Relay:  Relay{Sender: DefaultSender},
		Server: Server{Addr: DefaultAddr},
		Broker: Broker{Subject: DefaultNATSSubject},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped when path is
// empty) and finally the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("PINECONE_API_KEY", &c.Upstream.APIKey)
	set("PINECONE_BASE_URL", &c.Upstream.BaseURL)
	set("PINECONE_ASSISTANT", &c.Upstream.AssistantName)
	set("PINECONE_MODEL", &c.Upstream.Model)
	set("RELAY_SENDER", &c.Relay.Sender)
	set("RELAY_ADDR", &c.Server.Addr)
	set("RELAY_TITLE_DSN", &c.Titles.DSN)
	set("NATS_URL", &c.Broker.NATSURL)
	set("RELAY_NATS_SUBJECT", &c.Broker.Subject)
	if v, ok := lookup("PINECONE_TIMEOUT"); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			c.Upstream.Timeout = d
		}
	}
	if v, ok := lookup("DEBUG"); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Debug = b
		}
	}
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = def.Upstream.BaseURL
	}
	if c.Upstream.AssistantName == "" {
		c.Upstream.AssistantName = def.Upstream.AssistantName
	}
	if c.Upstream.Model == "" {
		c.Upstream.Model = def.Upstream.Model
	}
	if c.Relay.Sender == "" {
		c.Relay.Sender = def.Relay.Sender
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Broker.Subject == "" {
		c.Broker.Subject = def.Broker.Subject
	}
	c.Upstream.Debug = c.Debug
}

// Validate checks the values that cannot be defaulted. The API key is not checked
// here: it may also be supplied per request.
func (c Config) Validate() error {
	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil {
		return fmt.Errorf("config: invalid upstream base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: upstream base url must be http(s), got %q", c.Upstream.BaseURL)
	}
	if c.Upstream.Timeout < 0 {
		return errors.New("config: upstream timeout must not be negative")
	}
	return nil
}
