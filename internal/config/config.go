package config

import "time"

// Config holds client engine configuration values.
type Config struct {
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	APIAddr           string        `mapstructure:"api_addr" yaml:"api_addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// EventsRateLimit caps commands per minute on one event stream connection.
	EventsRateLimit int `mapstructure:"events_rate_limit" yaml:"events_rate_limit"`

	GraphQLURL       string        `mapstructure:"graphql_url" yaml:"graphql_url"`
	SubscriptionsURL string        `mapstructure:"subscriptions_url" yaml:"subscriptions_url"`
	Token            string        `mapstructure:"token" yaml:"token"`
	TokenSecret      string        `mapstructure:"token_secret" yaml:"token_secret"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`

	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay"`
	MaxImageBytes     int64         `mapstructure:"max_image_bytes" yaml:"max_image_bytes"`
	MessageIDLength   int           `mapstructure:"message_id_length" yaml:"message_id_length"`

	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
}

// PresenceConfig controls presence handling.
type PresenceConfig struct {
	// FilterByGroup drops presence events for users outside the active group.
	FilterByGroup bool `mapstructure:"filter_by_group" yaml:"filter_by_group"`
	// ExpiryMissedHeartbeats marks users offline after this many silent
	// heartbeat intervals. Zero keeps the explicit-signal-only behavior.
	ExpiryMissedHeartbeats int `mapstructure:"expiry_missed_heartbeats" yaml:"expiry_missed_heartbeats"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		LogLevel:          "info",
		LogFormat:         "console",
		APIAddr:           "127.0.0.1:8090",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		EventsRateLimit:   60,
		GraphQLURL:        "http://localhost:4000/graphql",
		SubscriptionsURL:  "ws://localhost:4000/subscriptions",
		RequestTimeout:    10 * time.Second,
		HeartbeatInterval: time.Minute,
		ReconnectDelay:    3 * time.Second,
		MaxImageBytes:     4 << 20,
		MessageIDLength:   24,
		Presence: PresenceConfig{
			FilterByGroup: true,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Boolean presence settings are not merged; they only come from Load.
func (c *Config) UpdateFrom(other Config) {
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.APIAddr != "" {
		c.APIAddr = other.APIAddr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.EventsRateLimit != 0 {
		c.EventsRateLimit = other.EventsRateLimit
	}
	if other.GraphQLURL != "" {
		c.GraphQLURL = other.GraphQLURL
	}
	if other.SubscriptionsURL != "" {
		c.SubscriptionsURL = other.SubscriptionsURL
	}
	if other.Token != "" {
		c.Token = other.Token
	}
	if other.TokenSecret != "" {
		c.TokenSecret = other.TokenSecret
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.HeartbeatInterval != 0 {
		c.HeartbeatInterval = other.HeartbeatInterval
	}
	if other.ReconnectDelay != 0 {
		c.ReconnectDelay = other.ReconnectDelay
	}
	if other.MaxImageBytes != 0 {
		c.MaxImageBytes = other.MaxImageBytes
	}
	if other.MessageIDLength != 0 {
		c.MessageIDLength = other.MessageIDLength
	}
	if other.Presence.ExpiryMissedHeartbeats != 0 {
		c.Presence.ExpiryMissedHeartbeats = other.Presence.ExpiryMissedHeartbeats
	}
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.GraphQLURL == "":
		return errMissing("graphql_url")
	case c.SubscriptionsURL == "":
		return errMissing("subscriptions_url")
	case c.HeartbeatInterval <= 0:
		return errInvalid("heartbeat_interval", "must be positive")
	case c.ReconnectDelay < 0:
		return errInvalid("reconnect_delay", "must not be negative")
	case c.MessageIDLength < 8:
		return errInvalid("message_id_length", "must be at least 8")
	case c.EventsRateLimit < 0:
		return errInvalid("events_rate_limit", "must not be negative")
	case c.Presence.ExpiryMissedHeartbeats < 0:
		return errInvalid("presence.expiry_missed_heartbeats", "must not be negative")
	}
	return nil
}

// PresenceExpiry returns the staleness window for heartbeat expiry, or zero
// when expiry is disabled.
func (c Config) PresenceExpiry() time.Duration {
	if c.Presence.ExpiryMissedHeartbeats <= 0 {
		return 0
	}
	return time.Duration(c.Presence.ExpiryMissedHeartbeats) * c.HeartbeatInterval
}
