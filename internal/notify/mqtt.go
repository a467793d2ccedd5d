package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

const (
	mqttQoS            = 1
	mqttPublishTimeout = 10 * time.Second
	mqttConnectTimeout = 15 * time.Second
)

// mqttPublisher is the part of mqtt.Client the notifier uses.
type mqttPublisher interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes status reports to a broker. Messages are retained so new
// subscribers see the latest status immediately.
type MQTT struct {
	cfg      config.MQTTConfig
	client   mqtt.Client
	pub      mqttPublisher
	topic    string
	metadata map[string]any
	now      func() time.Time
	logger   zerolog.Logger
}

// NewMQTT creates an MQTT notifier. Connect must be called before the first
// notification.
func NewMQTT(cfg config.MQTTConfig) (*MQTT, error) {
	sysInfo := util.GetSystemInfo()
	logger := util.ComponentLogger("mqtt")

	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if cfg.UseTLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.BrokerURL, cfg.Port))

	if cfg.ClientID != "" {
		opts.SetClientID(cfg.ClientID)
	} else {
		opts.SetClientID(fmt.Sprintf("mcnotify-%s", sysInfo.Hostname))
	}
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetCleanSession(false)

	if cfg.UseTLS {
		tlsConfig, err := mqttTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info().Msg("MQTT connected")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	})

	client := mqtt.NewClient(opts)
	return newMQTT(cfg, client, client, sysInfo, logger), nil
}

func newMQTT(cfg config.MQTTConfig, client mqtt.Client, pub mqttPublisher, sysInfo util.SystemInfo, logger zerolog.Logger) *MQTT {
	topic := cfg.Topic
	if topic == "" {
		topic = config.DefaultMQTTTopic
	}
	return &MQTT{
		cfg:    cfg,
		client: client,
		pub:    pub,
		topic:  topic,
		metadata: map[string]any{
			"watcher":   sysInfo.Hostname,
			"platform":  sysInfo.Platform,
			"os":        sysInfo.OS,
			"cpu_cores": sysInfo.CPUCores,
			"memory_mb": sysInfo.TotalMemory,
		},
		now:    time.Now,
		logger: logger,
	}
}

// mqttTLSConfig builds the client TLS config: an optional CA bundle for the
// broker and an optional client certificate for mTLS.
func mqttTLSConfig(cfg config.MQTTConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read MQTT CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in MQTT CA file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load MQTT TLS certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func (m *MQTT) Name() string { return "mqtt" }

// Connect connects to the broker.
func (m *MQTT) Connect(ctx context.Context) error {
	m.logger.Info().
		Str("broker", m.cfg.BrokerURL).
		Int("port", m.cfg.Port).
		Msg("connecting to MQTT broker")

	token := m.client.Connect()
	if err := waitToken(ctx, token, mqttConnectTimeout); err != nil {
		return fmt.Errorf("MQTT connect failed: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(250)
		m.logger.Info().Msg("MQTT disconnected")
	}
}

func (m *MQTT) Notify(ctx context.Context, st *status.Status) error {
	if !m.pub.IsConnected() {
		return errors.New("MQTT client not connected")
	}

	data, err := json.Marshal(m.buildMessage(st))
	if err != nil {
		return fmt.Errorf("failed to marshal MQTT message: %w", err)
	}

	token := m.pub.Publish(m.topic, mqttQoS, true, data)
	if err := waitToken(ctx, token, mqttPublishTimeout); err != nil {
		return fmt.Errorf("MQTT publish to %s failed: %w", m.topic, err)
	}
	return nil
}

// NotifyShutdown publishes a retained offline marker on <topic>/watcher.
func (m *MQTT) NotifyShutdown(ctx context.Context) error {
	if !m.pub.IsConnected() {
		return nil
	}

	msg := make(map[string]any, len(m.metadata)+2)
	for k, v := range m.metadata {
		msg[k] = v
	}
	msg["event"] = "shutdown"
	msg["timestamp"] = m.now().UTC().Format(time.RFC3339)

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	token := m.pub.Publish(m.topic+"/watcher", mqttQoS, true, data)
	return waitToken(ctx, token, mqttPublishTimeout)
}

// buildMessage combines the watcher metadata with the status report.
func (m *MQTT) buildMessage(st *status.Status) map[string]any {
	msg := make(map[string]any, len(m.metadata)+2)
	for k, v := range m.metadata {
		msg[k] = v
	}
	msg["payload"] = status.NewReport(st, m.now())
	msg["timestamp"] = m.now().UTC().Format(time.RFC3339)
	return msg
}

func waitToken(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return errors.New("timed out")
	case <-ctx.Done():
		return ctx.Err()
	}
}
