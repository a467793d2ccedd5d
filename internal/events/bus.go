package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/util"
)

// HandlerFunc is a function that handles an event.
type HandlerFunc func(ctx context.Context, event Event) error

// EventBus is an asynchronous publish-subscribe bus. Every handler of an
// event runs in its own goroutine, so a slow or failing handler never delays
// the emitter or the other handlers. Handler errors and panics are logged
// and go no further.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]handlerEntry
	stopped  bool
	wg       sync.WaitGroup
	logger   zerolog.Logger
}

type handlerEntry struct {
	name    string
	handler HandlerFunc
}

// NewEventBus creates a new EventBus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]handlerEntry),
		logger:   util.ComponentLogger("events"),
	}
}

// Subscribe registers a handler function for a specific event type.
// The name identifies the handler in logs.
func (eb *EventBus) Subscribe(eventType EventType, name string, handler HandlerFunc) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handlerEntry{
		name:    name,
		handler: handler,
	})

	eb.logger.Debug().
		Str("event", string(eventType)).
		Str("handler", name).
		Msg("subscribed to event")
}

// Emit publishes an event to all subscribed handlers and returns without
// waiting for them. It returns the number of handlers started.
func (eb *EventBus) Emit(ctx context.Context, event Event) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.stopped {
		return 0
	}

	handlers := eb.handlers[event.Type]
	if len(handlers) == 0 {
		return 0
	}

	eb.logger.Trace().
		Str("event", string(event.Type)).
		Str("source", event.Source).
		Int("handlers", len(handlers)).
		Msg("emitting event")

	for _, h := range handlers {
		h := h
		eb.wg.Add(1)
		go func() {
			defer eb.wg.Done()
			eb.run(ctx, h, event)
		}()
	}
	return len(handlers)
}

// EmitSync publishes an event and waits for all handlers to complete.
// Returns the first error encountered, if any.
func (eb *EventBus) EmitSync(ctx context.Context, event Event) error {
	eb.mu.RLock()
	if eb.stopped {
		eb.mu.RUnlock()
		return nil
	}
	handlers := make([]handlerEntry, len(eb.handlers[event.Type]))
	copy(handlers, eb.handlers[event.Type])
	eb.mu.RUnlock()

	errs := make([]error, len(handlers))
	var wg sync.WaitGroup
	for i, h := range handlers {
		i, h := i, h
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = eb.run(ctx, h, event)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// run invokes one handler, converting a panic into an error.
func (eb *EventBus) run(ctx context.Context, h handlerEntry, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error().
				Str("event", string(event.Type)).
				Str("handler", h.name).
				Interface("panic", r).
				Msg("handler panicked")
			err = fmt.Errorf("handler %s panicked: %v", h.name, r)
		}
	}()

	if err = h.handler(ctx, event); err != nil {
		eb.logger.Error().
			Err(err).
			Str("event", string(event.Type)).
			Str("handler", h.name).
			Msg("handler returned error")
	}
	return err
}

// Wait blocks until every handler started by Emit has returned.
func (eb *EventBus) Wait() {
	eb.wg.Wait()
}

// Stop makes the bus drop further events and waits for in-flight handlers.
func (eb *EventBus) Stop() {
	eb.mu.Lock()
	already := eb.stopped
	eb.stopped = true
	eb.mu.Unlock()

	eb.wg.Wait()
	if !already {
		eb.logger.Info().Msg("event bus stopped")
	}
}
