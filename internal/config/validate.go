package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}

	if c.Reconnect.MaxAttempts < 1 {
		return errors.New("reconnect.max_attempts must be >= 1")
	}
	if c.Reconnect.BaseDelay <= 0 {
		return errors.New("reconnect.base_delay must be > 0")
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("ui.timezone: %w", err)
	}
	if c.UI.HistoryLimit < 1 {
		return errors.New("ui.history_limit must be >= 1")
	}

	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

func (s *ServerConfig) validate() error {
	if s.URL == "" {
		return errors.New("server.url is required")
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("server.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url scheme must be ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("server.url host is required")
	}
	if s.HandshakeTimeout <= 0 {
		return errors.New("server.handshake_timeout must be > 0")
	}
	if s.WriteTimeout <= 0 {
		return errors.New("server.write_timeout must be > 0")
	}
	if s.PingInterval > 0 && s.PingTimeout <= s.PingInterval {
		return fmt.Errorf("server.ping_timeout (%s) must exceed ping_interval (%s)", s.PingTimeout, s.PingInterval)
	}
	return nil
}

// Location resolves ui.timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.UI.Timezone)
}

// LogLevel parses log.level (debug, info, warn, error).
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, err
	}
	return level, nil
}
