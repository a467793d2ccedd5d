package notify

import (
	"context"
	"time"

	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/status"
)

// Custom POSTs the status report to an arbitrary URL. Header values and
// string values of custom_data are templated with Format.
type Custom struct {
	cfg    config.CustomConfig
	sep    string
	poster poster
	now    func() time.Time
}

type reportWithData struct {
	Status     status.Report  `json:"status"`
	CustomData map[string]any `json:"custom_data"`
}

// NewCustom creates a custom HTTP notifier.
func NewCustom(cfg config.CustomConfig, sep string, maxRequests int) *Custom {
	return &Custom{
		cfg:    cfg,
		sep:    separatorOrDefault(sep),
		poster: newPoster(maxRequests),
		now:    time.Now,
	}
}

func (c *Custom) Name() string { return "custom" }

func (c *Custom) Notify(ctx context.Context, st *status.Status) error {
	headers := make(map[string]string, len(c.cfg.Headers))
	for k, v := range c.cfg.Headers {
		headers[k] = Format(v, st, c.sep)
	}

	report := status.NewReport(st, c.now())
	if c.cfg.CustomData == nil {
		return c.poster.postJSON(ctx, c.cfg.URL, headers, report)
	}

	data := formatValues(c.cfg.CustomData, st, c.sep)
	return c.poster.postJSON(ctx, c.cfg.URL, headers, reportWithData{Status: report, CustomData: data})
}
