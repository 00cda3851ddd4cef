package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for deckbridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Deck      DeckConfig      `yaml:"deck"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DeckConfig contains connection settings for the upstream HyperDeck device.
type DeckConfig struct {
	// Host is the device address, host or host:port (e.g. "192.168.173.200").
	Host string `yaml:"host"`

	// APIBase is the path prefix of the device REST control surface.
	// Default: "/control/api/v1"
	APIBase string `yaml:"api_base"`

	// EventPath is the path of the device property-change event stream.
	// Default: "/control/api/v1/event/websocket"
	EventPath string `yaml:"event_path"`

	// RequestTimeout bounds each proxied REST call, in seconds.
	RequestTimeout int `yaml:"request_timeout"`

	// ConnectTimeout bounds the event stream dial, in seconds.
	ConnectTimeout int `yaml:"connect_timeout"`

	// Reconnect controls the event stream reconnection policy.
	Reconnect DeckReconnectConfig `yaml:"reconnect"`

	// Properties overrides the default list of property paths subscribed
	// on the event stream. Leave empty to subscribe to the built-in set.
	Properties []string `yaml:"properties"`

	// SettleIntervalMS is the pause between clearing the timeline and
	// installing a new clip plan, in milliseconds. The device needs a brief
	// quiescence window after a clear before it accepts a new plan.
	SettleIntervalMS int `yaml:"settle_interval_ms"`

	// PlayPolicy selects how the clip playback sequence treats device-side
	// rejections of intermediate steps: "best_effort" proceeds through all
	// steps, "abort_on_reject" stops at the first non-2xx response.
	PlayPolicy string `yaml:"play_policy"`
}

// DeckReconnectConfig contains event stream reconnection settings.
type DeckReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains client-facing WebSocket settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`

	// SendBufferSize is the per-client bounded outbound queue. When the
	// queue is full, further records are dropped for that client.
	SendBufferSize int `yaml:"send_buffer_size"`
}

// MQTTConfig contains settings for the optional MQTT state mirror.
type MQTTConfig struct {
	Enabled bool             `yaml:"enabled"`
	Broker  MQTTBrokerConfig `yaml:"broker"`
	Auth    MQTTAuthConfig   `yaml:"auth"`
	QoS     int              `yaml:"qos"`

	// TopicPrefix is prepended to state topics, e.g. "deckbridge" yields
	// "deckbridge/state/timecode".
	TopicPrefix string `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains settings for the optional transport telemetry writer.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Play policy values accepted in deck.play_policy.
const (
	PlayPolicyBestEffort    = "best_effort"
	PlayPolicyAbortOnReject = "abort_on_reject"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DECKBRIDGE_SECTION_KEY
// For example: DECKBRIDGE_DECK_HOST, DECKBRIDGE_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Deck: DeckConfig{
			APIBase:        "/control/api/v1",
			EventPath:      "/control/api/v1/event/websocket",
			RequestTimeout: 10,
			ConnectTimeout: 10,
			Reconnect: DeckReconnectConfig{
				InitialDelay: 5,
				MaxDelay:     120,
			},
			SettleIntervalMS: 100,
			PlayPolicy:       PlayPolicyBestEffort,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 4000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
			SendBufferSize: 256,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "deckbridge",
			},
			QoS:         1,
			TopicPrefix: "deckbridge",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DECKBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Deck
	if v := os.Getenv("DECKBRIDGE_DECK_HOST"); v != "" {
		cfg.Deck.Host = v
	}

	// API
	if v := os.Getenv("DECKBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("DECKBRIDGE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// MQTT
	if v := os.Getenv("DECKBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DECKBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DECKBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("DECKBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("DECKBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Deck validation
	if c.Deck.Host == "" {
		errs = append(errs, "deck.host is required (set DECKBRIDGE_DECK_HOST environment variable)")
	}
	if !strings.HasPrefix(c.Deck.APIBase, "/") {
		errs = append(errs, "deck.api_base must start with /")
	}
	if !strings.HasPrefix(c.Deck.EventPath, "/") {
		errs = append(errs, "deck.event_path must start with /")
	}
	if c.Deck.SettleIntervalMS < 0 {
		errs = append(errs, "deck.settle_interval_ms must not be negative")
	}
	switch c.Deck.PlayPolicy {
	case PlayPolicyBestEffort, PlayPolicyAbortOnReject:
	default:
		errs = append(errs, fmt.Sprintf("deck.play_policy must be %q or %q", PlayPolicyBestEffort, PlayPolicyAbortOnReject))
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// MQTT validation (only when the mirror is enabled)
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	// InfluxDB validation (only when telemetry is enabled)
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetRequestTimeout returns the device request timeout as a Duration.
func (c *DeckConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetConnectTimeout returns the event stream dial timeout as a Duration.
func (c *DeckConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// GetSettleInterval returns the clear-to-set settle pause as a Duration.
func (c *DeckConfig) GetSettleInterval() time.Duration {
	return time.Duration(c.SettleIntervalMS) * time.Millisecond
}

// GetReconnectInitialDelay returns the initial reconnect backoff as a Duration.
func (c *DeckConfig) GetReconnectInitialDelay() time.Duration {
	return time.Duration(c.Reconnect.InitialDelay) * time.Second
}

// GetReconnectMaxDelay returns the maximum reconnect backoff as a Duration.
func (c *DeckConfig) GetReconnectMaxDelay() time.Duration {
	return time.Duration(c.Reconnect.MaxDelay) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
