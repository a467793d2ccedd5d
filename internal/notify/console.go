package notify

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/mcnotify/mcnotify/internal/cli"
	"github.com/mcnotify/mcnotify/internal/status"
)

// Console prints every change as a table.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console notifier writing to w, or stdout if w is nil.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Notify(ctx context.Context, st *status.Status) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cli.RenderStatus(c.w, st)
	return nil
}
