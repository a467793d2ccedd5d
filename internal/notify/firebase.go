package notify

import (
	"context"

	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/status"
)

// Firebase sends a push notification through the FCM legacy HTTP API.
type Firebase struct {
	cfg    config.FirebaseConfig
	sep    string
	poster poster
}

type fcmMessage struct {
	To              string          `json:"to,omitempty"`
	RegistrationIDs []string        `json:"registration_ids,omitempty"`
	Condition       string          `json:"condition,omitempty"`
	CollapseKey     string          `json:"collapse_key,omitempty"`
	Priority        string          `json:"priority,omitempty"`
	TimeToLive      int             `json:"time_to_live,omitempty"`
	Notification    fcmNotification `json:"notification"`
	Data            map[string]any  `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// NewFirebase creates a Firebase notifier.
func NewFirebase(cfg config.FirebaseConfig, sep string, maxRequests int) *Firebase {
	return &Firebase{
		cfg:    cfg,
		sep:    separatorOrDefault(sep),
		poster: newPoster(maxRequests),
	}
}

func (f *Firebase) Name() string { return "firebase" }

func (f *Firebase) Notify(ctx context.Context, st *status.Status) error {
	msg := fcmMessage{
		To:              f.cfg.To,
		RegistrationIDs: f.cfg.RegistrationIDs,
		Condition:       Format(f.cfg.Condition, st, f.sep),
		CollapseKey:     f.cfg.CollapseKey,
		Priority:        f.cfg.Priority,
		TimeToLive:      f.cfg.TimeToLive,
		Notification: fcmNotification{
			Title: Format(f.cfg.Title, st, f.sep),
			Body:  Format(pickMessage(st, f.cfg.Body, f.cfg.EmptyBody), st, f.sep),
		},
		Data: formatValues(f.cfg.Data, st, f.sep),
	}

	headers := map[string]string{"Authorization": "key=" + f.cfg.ServerKey}
	return f.poster.postJSON(ctx, f.cfg.Endpoint, headers, msg)
}
