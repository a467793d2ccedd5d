package poller

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mcnotify/mcnotify/internal/protocol"
	"github.com/mcnotify/mcnotify/internal/status"
)

// step is one scripted probe outcome: either online players or an error.
type step struct {
	online int
	err    error
}

type scriptedProber struct {
	steps []step
	calls int
}

func (s *scriptedProber) Probe(ctx context.Context) (*status.Status, error) {
	if s.calls >= len(s.steps) {
		return nil, errors.New("script exhausted")
	}
	st := s.steps[s.calls]
	s.calls++
	if st.err != nil {
		return nil, st.err
	}
	return &status.Status{
		Hostname: "play.example.net",
		Players:  status.Players{Online: st.online, Max: 20},
	}, nil
}

type recordingDispatcher struct {
	online []int
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, st *status.Status) {
	d.online = append(d.online, st.Players.Online)
}

func online(n ...int) []step {
	out := make([]step, len(n))
	for i, v := range n {
		out[i] = step{online: v}
	}
	return out
}

func repeat(err error, n int) []step {
	out := make([]step, n)
	for i := range out {
		out[i] = step{err: err}
	}
	return out
}

var (
	errConnect    = protocol.ConnectFailed("dial", errors.New("connection refused"))
	errCorruption = protocol.MalformedPayload(fmt.Errorf("%w: invalid character", protocol.ErrControlCharacter))
)

func newTestPoller(t *testing.T, cfg Config, steps []step) (*Poller, *scriptedProber, *recordingDispatcher) {
	t.Helper()
	prober := &scriptedProber{steps: steps}
	disp := &recordingDispatcher{}
	p, err := New(cfg, prober, disp)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, prober, disp
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewValidatesConfig(t *testing.T) {
	disp := &recordingDispatcher{}
	prober := &scriptedProber{}

	bad := []Config{
		{Interval: 0, MaxFailures: 10, MaxCorruptions: 10},
		{Interval: time.Second, MaxFailures: 0, MaxCorruptions: 10},
		{Interval: time.Second, MaxFailures: 10, MaxCorruptions: 0},
	}
	for _, cfg := range bad {
		if _, err := New(cfg, prober, disp); err == nil {
			t.Errorf("New(%+v) succeeded, want error", cfg)
		}
	}
	if _, err := New(DefaultConfig(), nil, disp); err == nil {
		t.Error("New with nil prober succeeded")
	}
}

func TestChangeDetection(t *testing.T) {
	p, _, disp := newTestPoller(t, DefaultConfig(), online(0, 0, 5, 5, 3))

	for i := 0; i < 5; i++ {
		retry, err := p.PollOnce(context.Background())
		if err != nil || retry {
			t.Fatalf("poll %d: retry=%v err=%v", i, retry, err)
		}
	}

	if want := []int{5, 3}; !equalInts(disp.online, want) {
		t.Errorf("dispatched %v, want %v", disp.online, want)
	}
	if got := p.State().LastOnline; got != 3 {
		t.Errorf("LastOnline = %d, want 3", got)
	}
}

func TestNotifyOnStartup(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NotifyOnStartup = true
	p, _, disp := newTestPoller(t, cfg, online(0, 0))

	for i := 0; i < 2; i++ {
		if _, err := p.PollOnce(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if want := []int{0}; !equalInts(disp.online, want) {
		t.Errorf("dispatched %v, want %v", disp.online, want)
	}
}

func TestCorruptionRetriesImmediately(t *testing.T) {
	steps := append(repeat(errCorruption, 9), step{online: 2})
	p, prober, disp := newTestPoller(t, DefaultConfig(), steps)

	for i := 0; i < 9; i++ {
		retry, err := p.PollOnce(context.Background())
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if !retry {
			t.Fatalf("poll %d: corruption should ask for immediate retry", i)
		}
		if f := p.State().Failures; f != 0 {
			t.Fatalf("poll %d: Failures = %d, want 0", i, f)
		}
	}

	retry, err := p.PollOnce(context.Background())
	if err != nil || retry {
		t.Fatalf("final poll: retry=%v err=%v", retry, err)
	}
	if prober.calls != 10 {
		t.Errorf("probes = %d, want 10", prober.calls)
	}
	if want := []int{2}; !equalInts(disp.online, want) {
		t.Errorf("dispatched %v, want %v", disp.online, want)
	}
	if st := p.State(); st.Corruptions != 0 || st.Failures != 0 {
		t.Errorf("state = %+v, want counters reset", st)
	}
}

func TestTenthCorruptionCountsAsFailure(t *testing.T) {
	p, _, _ := newTestPoller(t, DefaultConfig(), repeat(errCorruption, 10))

	var retry bool
	var err error
	for i := 0; i < 10; i++ {
		retry, err = p.PollOnce(context.Background())
	}
	if err != nil || retry {
		t.Fatalf("tenth corruption: retry=%v err=%v", retry, err)
	}
	if st := p.State(); st.Failures != 1 || st.Corruptions != 0 {
		t.Errorf("state = %+v, want Failures=1 Corruptions=0", st)
	}
}

func TestTooManyFailures(t *testing.T) {
	p, _, disp := newTestPoller(t, DefaultConfig(), repeat(errConnect, 10))

	for i := 0; i < 9; i++ {
		if _, err := p.PollOnce(context.Background()); err != nil {
			t.Fatalf("poll %d returned %v before the limit", i, err)
		}
	}

	_, err := p.PollOnce(context.Background())
	if !errors.Is(err, ErrTooManyFailures) {
		t.Fatalf("err = %v, want ErrTooManyFailures", err)
	}
	if !errors.Is(err, protocol.ErrConnectFailed) {
		t.Errorf("err = %v, want it to wrap the last probe error", err)
	}
	if len(disp.online) != 0 {
		t.Errorf("dispatched %v on failures", disp.online)
	}
}

func TestSuccessResetsFailures(t *testing.T) {
	steps := append(repeat(errConnect, 9), step{online: 1})
	steps = append(steps, repeat(errConnect, 9)...)
	p, _, _ := newTestPoller(t, DefaultConfig(), steps)

	for i := range steps {
		if _, err := p.PollOnce(context.Background()); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}
	if f := p.State().Failures; f != 9 {
		t.Errorf("Failures = %d, want 9", f)
	}
}

func TestRunSleepsExceptOnCorruption(t *testing.T) {
	steps := append(online(1), errorSteps(errCorruption, errCorruption)...)
	steps = append(steps, online(1)...)
	steps = append(steps, repeat(errConnect, 10)...)
	p, _, disp := newTestPoller(t, DefaultConfig(), steps)

	var sleeps int
	p.sleep = func(ctx context.Context, d time.Duration) error {
		if d != time.Second {
			t.Errorf("sleep %v, want 1s", d)
		}
		sleeps++
		return nil
	}

	err := p.Run(context.Background())
	if !errors.Is(err, ErrTooManyFailures) {
		t.Fatalf("Run err = %v, want ErrTooManyFailures", err)
	}
	// One after each success, none after the corruptions, nine after the
	// failures below the limit.
	if sleeps != 11 {
		t.Errorf("sleeps = %d, want 11", sleeps)
	}
	if want := []int{1}; !equalInts(disp.online, want) {
		t.Errorf("dispatched %v, want %v", disp.online, want)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	p, _, _ := newTestPoller(t, DefaultConfig(), online(1, 1, 1))

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run after cancel = %v, want nil", err)
	}
}

func errorSteps(errs ...error) []step {
	out := make([]step, len(errs))
	for i, err := range errs {
		out[i] = step{err: err}
	}
	return out
}
