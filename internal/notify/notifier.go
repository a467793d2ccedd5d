// Package notify delivers status changes to the configured backends. Every
// backend is a Notifier subscribed to the event bus, so each delivery runs
// in its own goroutine and a failing backend affects nobody else.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/events"
	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

// Notifier is one notification backend.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, st *status.Status) error
}

// ShutdownNotifier is implemented by notifiers that announce the watcher
// going away.
type ShutdownNotifier interface {
	NotifyShutdown(ctx context.Context) error
}

// Dispatcher fans status changes out to registered notifiers.
type Dispatcher struct {
	bus       *events.EventBus
	notifiers []string
	logger    zerolog.Logger
}

// NewDispatcher creates a dispatcher publishing on bus.
func NewDispatcher(bus *events.EventBus) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		logger: util.ComponentLogger("notify"),
	}
}

// Register subscribes n to status changes.
func (d *Dispatcher) Register(n Notifier) {
	name := n.Name()
	d.bus.Subscribe(events.EventStatusChanged, "notify."+name, func(ctx context.Context, e events.Event) error {
		st, ok := e.Status()
		if !ok {
			return nil
		}
		if err := n.Notify(ctx, st); err != nil {
			return err
		}
		d.logger.Debug().Str("notifier", name).Int("online", st.Players.Online).Msg("notification delivered")
		return nil
	})
	if sn, ok := n.(ShutdownNotifier); ok {
		d.bus.Subscribe(events.EventShutdown, "notify."+name+".shutdown", func(ctx context.Context, e events.Event) error {
			return sn.NotifyShutdown(ctx)
		})
	}
	d.notifiers = append(d.notifiers, name)
	d.logger.Info().Str("notifier", name).Msg("notifier registered")
}

// Notifiers returns the names of the registered notifiers.
func (d *Dispatcher) Notifiers() []string {
	return append([]string(nil), d.notifiers...)
}

// Shutdown announces the end of polling and waits for the notifiers that
// handle it.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	return d.bus.EmitSync(ctx, events.Event{
		Type:      events.EventShutdown,
		Source:    "poller",
		Timestamp: time.Now(),
	})
}

// Dispatch hands st to every notifier and returns without waiting.
// Deliveries keep the values of ctx but not its cancellation: stopping the
// poll loop leaves them running until the bus is drained.
func (d *Dispatcher) Dispatch(ctx context.Context, st *status.Status) {
	n := d.bus.Emit(context.WithoutCancel(ctx), events.StatusChanged("poller", st))
	if n == 0 {
		d.logger.Debug().Msg("no notifiers registered")
	}
}
