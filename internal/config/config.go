package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultGatewayURL is the endpoint used when the config does not name one.
const DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Identify IdentifyConfig `yaml:"identify"`
	Session  SessionConfig  `yaml:"session"`
	Ops      OpsConfig      `yaml:"ops"`
	Log      LogConfig      `yaml:"log"`
}

type GatewayConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	Fwmark           uint32        `yaml:"fwmark"` // linux only, 0 disables
}

type IdentifyConfig struct {
	Token   string `yaml:"token"` // falls back to $DISCORD_TOKEN
	Intents int    `yaml:"intents"`
}

type SessionConfig struct {
	HelloTimeout time.Duration   `yaml:"hello_timeout"`
	Reconnect    ReconnectConfig `yaml:"reconnect"`
}

type ReconnectConfig struct {
	Min    time.Duration `yaml:"min"`
	Max    time.Duration `yaml:"max"`
	Factor float64       `yaml:"factor"`
	Jitter time.Duration `yaml:"jitter"`
}

type OpsConfig struct {
	Addr string `yaml:"addr"` // empty disables the ops endpoint
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if c.Gateway.URL == "" {
		c.Gateway.URL = DefaultGatewayURL
	}
	if c.Gateway.HandshakeTimeout == 0 {
		c.Gateway.HandshakeTimeout = 45 * time.Second
	}
	if c.Identify.Token == "" {
		c.Identify.Token = os.Getenv("DISCORD_TOKEN")
	}
	if c.Session.HelloTimeout == 0 {
		c.Session.HelloTimeout = 15 * time.Second
	}
	if c.Session.Reconnect.Min == 0 {
		c.Session.Reconnect.Min = 1 * time.Second
	}
	if c.Session.Reconnect.Max == 0 {
		c.Session.Reconnect.Max = 60 * time.Second
	}
	if c.Session.Reconnect.Factor == 0 {
		c.Session.Reconnect.Factor = 1.6
	}
	if c.Session.Reconnect.Jitter == 0 {
		c.Session.Reconnect.Jitter = 200 * time.Millisecond
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	return &c, nil
}

// Validate rejects combinations the runtime cannot work with.
func (c *Config) Validate() error {
	if c.Gateway.URL == "" {
		return fmt.Errorf("gateway url is required")
	}
	if c.Identify.Token == "" {
		return fmt.Errorf("identify token is required (set identify.token or DISCORD_TOKEN)")
	}
	if c.Session.Reconnect.Min > c.Session.Reconnect.Max {
		return fmt.Errorf("reconnect min %v above max %v", c.Session.Reconnect.Min, c.Session.Reconnect.Max)
	}
	return nil
}
