package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationResult holds the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// IsValid returns true if there are no validation errors.
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// AddError adds a validation error.
func (r *ValidationResult) AddError(field, message string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message})
}

// AddWarning adds a validation warning.
func (r *ValidationResult) AddWarning(field, message string) {
	r.Warnings = append(r.Warnings, ValidationError{Field: field, Message: message})
}

// Validate performs comprehensive validation of the configuration.
func Validate(cfg *Config) *ValidationResult {
	result := &ValidationResult{}

	validateProbe(&cfg.Probe, result)
	validateNotifiers(&cfg.Notifiers, result)
	validateHistory(&cfg.History, result)
	validateAPI(&cfg.API, result)

	return result
}

func validateProbe(p *ProbeConfig, result *ValidationResult) {
	if p.IntervalSec < 1 {
		result.AddError("probe.interval_sec", "interval must be at least 1 second")
	}
	if p.ConnectTimeoutSec < 0 {
		result.AddError("probe.connect_timeout_sec", "timeout cannot be negative")
	}
	if p.IOTimeoutSec < 0 {
		result.AddError("probe.io_timeout_sec", "timeout cannot be negative")
	}
	if p.ConnectTimeoutSec == 0 || p.IOTimeoutSec == 0 {
		result.AddWarning("probe", "a zero timeout lets an unresponsive server stall polling forever")
	}
	if p.MaxFailures < 1 {
		result.AddError("probe.max_failures", "must allow at least 1 failure")
	}
	if p.MaxCorruptions < 1 {
		result.AddError("probe.max_corruptions", "must allow at least 1 corruption")
	}
}

func validateNotifiers(n *NotifiersConfig, result *ValidationResult) {
	if n.MaxRequests < 1 {
		result.AddError("notifiers.max_requests", "must allow at least 1 request")
	}

	validateWebhook(&n.Discord, "notifiers.discord", result)
	validateWebhook(&n.Slack, "notifiers.slack", result)

	if n.Custom.Enabled {
		validateURL(n.Custom.URL, "notifiers.custom.url", result)
	}

	if n.Firebase.Enabled {
		if strings.TrimSpace(n.Firebase.ServerKey) == "" {
			result.AddError("notifiers.firebase.server_key", "server key is required when enabled")
		}
		validateURL(n.Firebase.Endpoint, "notifiers.firebase.endpoint", result)
		if n.Firebase.To == "" && n.Firebase.Condition == "" && len(n.Firebase.RegistrationIDs) == 0 {
			result.AddError("notifiers.firebase.to", "one of to, condition or registration_ids is required")
		}
	}

	if n.MQTT.Enabled {
		if strings.TrimSpace(n.MQTT.BrokerURL) == "" {
			result.AddError("notifiers.mqtt.broker_url", "MQTT broker URL is required when enabled")
		}
		validatePort(n.MQTT.Port, "notifiers.mqtt.port", result)
		if (n.MQTT.CertFile == "") != (n.MQTT.KeyFile == "") {
			result.AddError("notifiers.mqtt.cert_file", "cert_file and key_file must be set together")
		}
	}

	if !n.Discord.Enabled && !n.Slack.Enabled && !n.Custom.Enabled &&
		!n.Firebase.Enabled && !n.MQTT.Enabled && !n.Console.Enabled {
		result.AddWarning("notifiers", "no notifier enabled, status changes will only be logged")
	}
}

func validateWebhook(w *WebhookConfig, field string, result *ValidationResult) {
	if !w.Enabled {
		return
	}
	validateURL(w.URL, field+".url", result)
	if strings.TrimSpace(w.Message) == "" {
		result.AddError(field+".message", "message is required when enabled")
	}
}

func validateHistory(h *HistoryConfig, result *ValidationResult) {
	if !h.Enabled {
		return
	}
	if strings.TrimSpace(h.Path) == "" {
		result.AddError("history.path", "database path is required when enabled")
	}
	if h.RetentionDays < 1 {
		result.AddError("history.retention_days", "retention days must be at least 1")
	}
	if _, err := time.Parse("15:04", h.CleanupTime); err != nil {
		result.AddError("history.cleanup_time", fmt.Sprintf("invalid time %q (expected HH:MM)", h.CleanupTime))
	}
}

func validateAPI(a *APIConfig, result *ValidationResult) {
	if !a.Enabled {
		return
	}
	validatePort(a.Port, "api.port", result)

	if a.TLSEnabled && (a.TLSCertFile == "" || a.TLSKeyFile == "") {
		result.AddError("api.tls_cert_file", "TLS certificate and key files are required when TLS is enabled")
	}

	if a.RateLimitRPS < 1 {
		result.AddWarning("api.rate_limit_rps",
			"rate limit is disabled (0 RPS), this may expose the API to abuse")
	}
}

func validateURL(raw, field string, result *ValidationResult) {
	if strings.TrimSpace(raw) == "" {
		result.AddError(field, "URL is required when enabled")
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result.AddError(field, fmt.Sprintf("invalid URL: %s", raw))
	}
}

func validatePort(port int, field string, result *ValidationResult) {
	if port < 1 || port > 65535 {
		result.AddError(field, fmt.Sprintf("invalid port number: %d (must be 1-65535)", port))
		return
	}
	if port < 1024 {
		result.AddWarning(field,
			fmt.Sprintf("port %d is a privileged port, may require elevated permissions", port))
	}
}
