// Package config handles configuration loading, validation, and persistence
// for mcnotify.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcnotify/mcnotify/internal/util"
)

const (
	DefaultConfigDir   = "config"
	DefaultConfigFile  = "config.json"
	DefaultAPIPort     = 8095
	DefaultMaxRequests = 5
	DefaultMQTTTopic   = "mcnotify/status"
)

// yamlNames are tried before DefaultConfigFile, in order.
var yamlNames = []string{"config.yaml", "config.yml"}

// Config is the root configuration structure for mcnotify.
type Config struct {
	path string

	Probe     ProbeConfig     `json:"probe" yaml:"probe"`
	Notifiers NotifiersConfig `json:"notifiers" yaml:"notifiers"`
	History   HistoryConfig   `json:"history" yaml:"history"`
	API       APIConfig       `json:"api" yaml:"api"`
	Logging   util.LogConfig  `json:"logging" yaml:"logging"`
}

// ProbeConfig controls the status probe and the poll loop.
type ProbeConfig struct {
	IntervalSec       int   `json:"interval_sec" yaml:"interval_sec"`
	ConnectTimeoutSec int   `json:"connect_timeout_sec" yaml:"connect_timeout_sec"`
	IOTimeoutSec      int   `json:"io_timeout_sec" yaml:"io_timeout_sec"`
	MaxFailures       int   `json:"max_failures" yaml:"max_failures"`
	MaxCorruptions    int   `json:"max_corruptions" yaml:"max_corruptions"`
	ProtocolVersion   int32 `json:"protocol_version" yaml:"protocol_version"`
	NotifyOnStartup   bool  `json:"notify_on_startup" yaml:"notify_on_startup"`
	SRVLookup         bool  `json:"srv_lookup" yaml:"srv_lookup"`
}

// Interval returns the pause between probes.
func (p ProbeConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSec) * time.Second
}

// ConnectTimeout returns the dial timeout.
func (p ProbeConfig) ConnectTimeout() time.Duration {
	return time.Duration(p.ConnectTimeoutSec) * time.Second
}

// IOTimeout returns the read/write deadline of one probe.
func (p ProbeConfig) IOTimeout() time.Duration {
	return time.Duration(p.IOTimeoutSec) * time.Second
}

// NotifiersConfig selects and configures the notification backends.
type NotifiersConfig struct {
	// PlayersSeparator joins player names in the %players placeholder.
	PlayersSeparator string `json:"players_separator" yaml:"players_separator"`
	// MaxRequests bounds delivery attempts of HTTP backends.
	MaxRequests int `json:"max_requests" yaml:"max_requests"`

	Discord  WebhookConfig  `json:"discord" yaml:"discord"`
	Slack    WebhookConfig  `json:"slack" yaml:"slack"`
	Custom   CustomConfig   `json:"custom" yaml:"custom"`
	Firebase FirebaseConfig `json:"firebase" yaml:"firebase"`
	MQTT     MQTTConfig     `json:"mqtt" yaml:"mqtt"`
	Console  ConsoleConfig  `json:"console" yaml:"console"`
}

// WebhookConfig holds chat webhook settings. EmptyMessage is used instead of
// Message when nobody is online; empty means Message.
type WebhookConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	URL          string `json:"url" yaml:"url"`
	Message      string `json:"message" yaml:"message"`
	EmptyMessage string `json:"empty_message" yaml:"empty_message"`
}

// CustomConfig holds settings of the generic JSON POST backend.
type CustomConfig struct {
	Enabled    bool              `json:"enabled" yaml:"enabled"`
	URL        string            `json:"url" yaml:"url"`
	Headers    map[string]string `json:"headers" yaml:"headers"`
	CustomData map[string]any    `json:"custom_data,omitempty" yaml:"custom_data,omitempty"`
}

// FirebaseConfig holds Firebase Cloud Messaging settings.
type FirebaseConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	ServerKey string `json:"server_key" yaml:"server_key"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	To        string `json:"to" yaml:"to"`
	Condition string `json:"condition" yaml:"condition"`

	// RegistrationIDs addresses devices directly. String values of Data
	// are formatted like the notification text.
	RegistrationIDs []string       `json:"registration_ids,omitempty" yaml:"registration_ids,omitempty"`
	Data            map[string]any `json:"data,omitempty" yaml:"data,omitempty"`

	Title     string `json:"title" yaml:"title"`
	Body      string `json:"body" yaml:"body"`
	EmptyBody string `json:"empty_body" yaml:"empty_body"`

	CollapseKey string `json:"collapse_key,omitempty" yaml:"collapse_key,omitempty"`
	Priority    string `json:"priority,omitempty" yaml:"priority,omitempty"`
	TimeToLive  int    `json:"time_to_live,omitempty" yaml:"time_to_live,omitempty"`
}

// MQTTConfig holds MQTT publishing settings.
type MQTTConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	BrokerURL string `json:"broker_url" yaml:"broker_url"`
	Port      int    `json:"port" yaml:"port"`
	UseTLS    bool   `json:"use_tls" yaml:"use_tls"`
	CertFile  string `json:"cert_file" yaml:"cert_file"`
	KeyFile   string `json:"key_file" yaml:"key_file"`
	CAFile    string `json:"ca_file" yaml:"ca_file"`
	ClientID  string `json:"client_id" yaml:"client_id"`
	Username  string `json:"username" yaml:"username"`
	Password  string `json:"password" yaml:"password"`
	Topic     string `json:"topic" yaml:"topic"`
}

// ConsoleConfig enables printing status changes to stdout.
type ConsoleConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// HistoryConfig holds the status change history settings.
type HistoryConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	Path          string `json:"path" yaml:"path"`
	RetentionDays int    `json:"retention_days" yaml:"retention_days"`
	CleanupTime   string `json:"cleanup_time" yaml:"cleanup_time"`
}

// APIConfig holds the status API settings.
type APIConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled"`
	Port           int      `json:"port" yaml:"port"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
	RateLimitRPS   int      `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	TLSEnabled     bool     `json:"tls_enabled" yaml:"tls_enabled"`
	TLSCertFile    string   `json:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile     string   `json:"tls_key_file" yaml:"tls_key_file"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Probe: ProbeConfig{
			IntervalSec:       1,
			ConnectTimeoutSec: 5,
			IOTimeoutSec:      10,
			MaxFailures:       10,
			MaxCorruptions:    10,
			ProtocolVersion:   -1,
			SRVLookup:         true,
		},
		Notifiers: NotifiersConfig{
			PlayersSeparator: "\n",
			MaxRequests:      DefaultMaxRequests,
			Discord: WebhookConfig{
				Message: "Status change: %online/%max\nPlayers:\n%players",
			},
			Slack: WebhookConfig{
				Message: "Status change: %online/%max\nPlayers:```%players```",
			},
			Firebase: FirebaseConfig{
				Endpoint:  "https://fcm.googleapis.com/fcm/send",
				To:        "/topics/all",
				Title:     "Status change: %online/%max",
				Body:      "Server: %host:%port\nPlayers:\n%players",
				EmptyBody: "Server: %host:%port",
			},
			MQTT: MQTTConfig{
				Port:   8883,
				UseTLS: true,
				Topic:  DefaultMQTTTopic,
			},
			Console: ConsoleConfig{Enabled: true},
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "data/mcnotify.db",
			RetentionDays: 30,
			CleanupTime:   "04:00",
		},
		API: APIConfig{
			Port:         DefaultAPIPort,
			RateLimitRPS: 20,
		},
		Logging: util.DefaultLogConfig(),
	}
}

// Load reads configuration from configDir. config.yaml or config.yml win
// over config.json. A missing file is replaced by the defaults, written as
// config.json.
func Load(configDir string) (*Config, error) {
	for _, name := range yamlNames {
		p := filepath.Join(configDir, name)
		if util.FileExists(p) {
			return loadFile(p)
		}
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)
	if !util.FileExists(configPath) {
		log.Info().Str("path", configPath).Msg("config file not found, creating default")
		cfg := DefaultConfig()
		cfg.path = configPath
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		return cfg, nil
	}
	return loadFile(configPath)
}

func loadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig() // Start with defaults, then overlay
	if isYAML(configPath) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	cfg.path = configPath
	log.Info().Str("path", configPath).Msg("configuration loaded")
	return cfg, nil
}

// Save writes the current configuration to disk in the format of its path.
func (c *Config) Save() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(c.path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Debug().Str("path", c.path).Msg("configuration saved")
	return nil
}

// Path returns the config file path.
func (c *Config) Path() string {
	return c.path
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
