package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultServerURL        = "ws://localhost:8765"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultPingInterval     = 30 * time.Second
	DefaultPingTimeout      = 90 * time.Second
	DefaultMaxAttempts      = 5
	DefaultBaseDelay        = 3 * time.Second
	DefaultTimezone         = "Local"
	DefaultHistoryLimit     = 500
	DefaultLogLevel         = "info"
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	// Server defaults
	if c.Server.URL == "" {
		c.Server.URL = DefaultServerURL
	}
	if c.Server.HandshakeTimeout == 0 {
		c.Server.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}
	if c.Server.PingTimeout == 0 {
		c.Server.PingTimeout = DefaultPingTimeout
	}

	// Reconnect defaults
	if c.Reconnect.MaxAttempts == 0 {
		c.Reconnect.MaxAttempts = DefaultMaxAttempts
	}
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultBaseDelay
	}

	// UI defaults
	if c.UI.Timezone == "" {
		c.UI.Timezone = DefaultTimezone
	}
	if c.UI.HistoryLimit == 0 {
		c.UI.HistoryLimit = DefaultHistoryLimit
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
