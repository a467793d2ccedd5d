// Package poller drives the probe loop for one target: it retries transient
// failures, escalates persistent ones and reports online-count changes.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/protocol"
	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

var (
	// ErrForgeCorruption is recorded as one transient failure after
	// MaxCorruptions consecutive control-character payloads.
	ErrForgeCorruption = errors.New("poller: repeated control characters in forge status payload")

	// ErrTooManyFailures is returned once MaxFailures consecutive probes
	// have failed.
	ErrTooManyFailures = errors.New("poller: too many consecutive failures")
)

// Prober performs one status probe. *client.Client satisfies it.
type Prober interface {
	Probe(ctx context.Context) (*status.Status, error)
}

// Dispatcher receives every snapshot whose online count changed. It must not
// block on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, st *status.Status)
}

// Config is the runtime config of a poller.
type Config struct {
	Interval       time.Duration
	MaxFailures    int
	MaxCorruptions int

	// NotifyOnStartup makes the first successful probe always dispatch,
	// even when nobody is online.
	NotifyOnStartup bool
}

// DefaultConfig returns the loop settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Interval:       time.Second,
		MaxFailures:    10,
		MaxCorruptions: 10,
	}
}

// State is the loop's memory between probes. It belongs to one poller
// goroutine.
type State struct {
	LastOnline  int
	Failures    int
	Corruptions int
}

// Poller owns the probe loop of one target.
type Poller struct {
	cfg        Config
	prober     Prober
	dispatcher Dispatcher
	state      State
	logger     zerolog.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a poller with immutable config.
func New(cfg Config, prober Prober, dispatcher Dispatcher) (*Poller, error) {
	if prober == nil {
		return nil, errors.New("poller: prober required")
	}
	if dispatcher == nil {
		return nil, errors.New("poller: dispatcher required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.MaxFailures <= 0 {
		return nil, errors.New("poller: max failures must be > 0")
	}
	if cfg.MaxCorruptions <= 0 {
		return nil, errors.New("poller: max corruptions must be > 0")
	}

	p := &Poller{
		cfg:        cfg,
		prober:     prober,
		dispatcher: dispatcher,
		logger:     util.ComponentLogger("poller"),
		sleep:      sleepContext,
	}
	if cfg.NotifyOnStartup {
		p.state.LastOnline = -1
	}
	return p, nil
}

// State returns a copy of the current loop state.
func (p *Poller) State() State {
	return p.state
}

// PollOnce performs exactly one probe and updates the state. retryNow asks
// the caller to probe again without waiting. The only error returned is
// ErrTooManyFailures.
func (p *Poller) PollOnce(ctx context.Context) (retryNow bool, err error) {
	st, err := p.prober.Probe(ctx)
	if err != nil {
		return p.fail(err)
	}

	p.state.Failures = 0
	p.state.Corruptions = 0

	if st.Players.Online == p.state.LastOnline {
		return false, nil
	}

	p.logger.Info().
		Str("host", st.Hostname).
		Int("from", p.state.LastOnline).
		Int("online", st.Players.Online).
		Int("max", st.Players.Max).
		Msg("online count changed")

	p.state.LastOnline = st.Players.Online
	p.dispatcher.Dispatch(ctx, st)
	return false, nil
}

func (p *Poller) fail(err error) (bool, error) {
	if errors.Is(err, protocol.ErrControlCharacter) {
		p.state.Corruptions++
		if p.state.Corruptions < p.cfg.MaxCorruptions {
			p.logger.Debug().
				Err(err).
				Int("corruptions", p.state.Corruptions).
				Msg("control characters in status payload, retrying")
			return true, nil
		}
		p.state.Corruptions = 0
		err = fmt.Errorf("%w: %w", ErrForgeCorruption, err)
	}

	p.state.Failures++
	p.logger.Warn().
		Err(err).
		Int("failures", p.state.Failures).
		Int("max", p.cfg.MaxFailures).
		Msg("probe failed")

	if p.state.Failures >= p.cfg.MaxFailures {
		return false, fmt.Errorf("%w (%d): %w", ErrTooManyFailures, p.state.Failures, err)
	}
	return false, nil
}

// Run polls until ctx is cancelled or the failure limit is reached.
// Cancellation returns nil.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info().
		Dur("interval", p.cfg.Interval).
		Int("max_failures", p.cfg.MaxFailures).
		Msg("poller started")

	for {
		if ctx.Err() != nil {
			p.logger.Info().Msg("poller stopped")
			return nil
		}

		retryNow, err := p.PollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if retryNow {
			continue
		}

		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			p.logger.Info().Msg("poller stopped")
			return nil
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
