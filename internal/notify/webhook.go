package notify

import (
	"context"
	"time"

	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/status"
)

const (
	colorOnline = 0x2ECC71
	colorEmpty  = 0x95A5A6
)

// Discord posts an embed to a Discord webhook.
type Discord struct {
	cfg    config.WebhookConfig
	sep    string
	poster poster
	now    func() time.Time
}

// NewDiscord creates a Discord webhook notifier.
func NewDiscord(cfg config.WebhookConfig, sep string, maxRequests int) *Discord {
	return &Discord{
		cfg:    cfg,
		sep:    separatorOrDefault(sep),
		poster: newPoster(maxRequests),
		now:    time.Now,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Notify(ctx context.Context, st *status.Status) error {
	color := colorOnline
	if st.Players.Online == 0 {
		color = colorEmpty
	}

	payload := map[string]any{
		"embeds": []map[string]any{
			{
				"title":       st.Hostname,
				"description": Format(pickMessage(st, d.cfg.Message, d.cfg.EmptyMessage), st, d.sep),
				"color":       color,
				"timestamp":   d.now().UTC().Format(time.RFC3339),
				"footer": map[string]string{
					"text": st.Version.Name,
				},
			},
		},
	}
	return d.poster.postJSON(ctx, d.cfg.URL, nil, payload)
}

// Slack posts a message to a Slack incoming webhook.
type Slack struct {
	cfg    config.WebhookConfig
	sep    string
	poster poster
}

// NewSlack creates a Slack webhook notifier.
func NewSlack(cfg config.WebhookConfig, sep string, maxRequests int) *Slack {
	return &Slack{
		cfg:    cfg,
		sep:    separatorOrDefault(sep),
		poster: newPoster(maxRequests),
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Notify(ctx context.Context, st *status.Status) error {
	text := Format(pickMessage(st, s.cfg.Message, s.cfg.EmptyMessage), st, s.sep)
	payload := map[string]any{
		"text": text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	}
	return s.poster.postJSON(ctx, s.cfg.URL, nil, payload)
}
