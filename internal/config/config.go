package config

import "time"

// Config is the root configuration for the chat client.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	UI        UIConfig        `yaml:"ui"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the chat server endpoint and websocket timings.
type ServerConfig struct {
	URL              string        `yaml:"url"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"` // negative disables keepalive pings
	PingTimeout      time.Duration `yaml:"ping_timeout"`
}

// ReconnectConfig holds the linear backoff policy.
type ReconnectConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

// UIConfig holds terminal rendering settings.
type UIConfig struct {
	Timezone     string `yaml:"timezone"` // IANA name or "Local"
	HistoryLimit int    `yaml:"history_limit"`
}

// LogConfig holds logging settings. Logs go to File; an empty File
// discards them because the terminal belongs to the UI.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}
