package notify

import (
	"context"
	"fmt"

	"github.com/mcnotify/mcnotify/internal/config"
)

// closer is implemented by notifiers holding a connection.
type closer interface {
	Close()
}

// Build creates the notifiers enabled in cfg. A backend that fails to
// initialize aborts the build.
func Build(ctx context.Context, cfg config.NotifiersConfig) ([]Notifier, error) {
	sep := cfg.PlayersSeparator
	var out []Notifier

	if cfg.Discord.Enabled {
		out = append(out, NewDiscord(cfg.Discord, sep, cfg.MaxRequests))
	}
	if cfg.Slack.Enabled {
		out = append(out, NewSlack(cfg.Slack, sep, cfg.MaxRequests))
	}
	if cfg.Custom.Enabled {
		out = append(out, NewCustom(cfg.Custom, sep, cfg.MaxRequests))
	}
	if cfg.Firebase.Enabled {
		out = append(out, NewFirebase(cfg.Firebase, sep, cfg.MaxRequests))
	}
	if cfg.Console.Enabled {
		out = append(out, NewConsole(nil))
	}
	if cfg.MQTT.Enabled {
		m, err := NewMQTT(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		if err := m.Connect(ctx); err != nil {
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		out = append(out, m)
	}

	return out, nil
}

// Close releases notifiers that hold connections.
func Close(notifiers []Notifier) {
	for _, n := range notifiers {
		if c, ok := n.(closer); ok {
			c.Close()
		}
	}
}
