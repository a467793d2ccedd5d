package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/events"
	"github.com/mcnotify/mcnotify/internal/status"
)

func testStatus(online int, names ...string) *status.Status {
	st := &status.Status{
		Version:     status.Version{Name: "1.20.4", Protocol: 765},
		Players:     status.Players{Online: online, Max: 20},
		Description: status.Description{Text: "Welcome"},
		Hostname:    "play.example.net",
		Host:        "mc1.example.net",
		Port:        25570,
	}
	for _, n := range names {
		st.Players.Sample = append(st.Players.Sample, status.Player{Name: n, ID: n + "-id"})
	}
	return st
}

// capture records requests received by an httptest server.
type capture struct {
	mu      sync.Mutex
	bodies  [][]byte
	headers []http.Header
}

func (c *capture) handler(codes ...int) http.HandlerFunc {
	var calls atomic.Int32
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.bodies = append(c.bodies, body)
		c.headers = append(c.headers, r.Header.Clone())
		c.mu.Unlock()

		i := int(calls.Add(1)) - 1
		code := http.StatusOK
		if i < len(codes) {
			code = codes[i]
		}
		w.WriteHeader(code)
	}
}

func (c *capture) last(t *testing.T) map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.bodies) == 0 {
		t.Fatal("no request received")
	}
	var m map[string]any
	if err := json.Unmarshal(c.bodies[len(c.bodies)-1], &m); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	return m
}

func TestFormat(t *testing.T) {
	st := testStatus(2, "alice", "bob")

	tests := []struct {
		template string
		sep      string
		want     string
	}{
		{"%online/%max", "\n", "2/20"},
		{"%hostname via %host:%port", "\n", "play.example.net via mc1.example.net:25570"},
		{"Players: %players", ", ", "Players: alice, bob"},
		{"%version - %description", "\n", "1.20.4 - Welcome"},
		{"no placeholders", "\n", "no placeholders"},
		{"100% %online", "\n", "100% 2"},
	}
	for _, tt := range tests {
		if got := Format(tt.template, st, tt.sep); got != tt.want {
			t.Errorf("Format(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestPostRetriesUntilSuccess(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler(http.StatusInternalServerError, http.StatusBadGateway, http.StatusNoContent))
	defer srv.Close()

	p := newPoster(5)
	if err := p.postJSON(context.Background(), srv.URL, nil, map[string]int{"a": 1}); err != nil {
		t.Fatalf("postJSON: %v", err)
	}
	if len(c.bodies) != 3 {
		t.Errorf("attempts = %d, want 3", len(c.bodies))
	}
}

func TestPostGivesUp(t *testing.T) {
	var c capture
	codes := []int{500, 500, 500, 500, 500, 500}
	srv := httptest.NewServer(c.handler(codes...))
	defer srv.Close()

	p := newPoster(5)
	err := p.postJSON(context.Background(), srv.URL, nil, "x")
	if err == nil || !strings.Contains(err.Error(), "5 attempts") {
		t.Fatalf("err = %v, want give-up error", err)
	}
	if len(c.bodies) != 5 {
		t.Errorf("attempts = %d, want 5", len(c.bodies))
	}
}

func TestDiscord(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	d := NewDiscord(config.WebhookConfig{
		URL:          srv.URL,
		Message:      "%online online: %players",
		EmptyMessage: "nobody on %hostname",
	}, ", ", 1)

	if err := d.Notify(context.Background(), testStatus(2, "alice", "bob")); err != nil {
		t.Fatal(err)
	}
	embed := c.last(t)["embeds"].([]any)[0].(map[string]any)
	if embed["description"] != "2 online: alice, bob" {
		t.Errorf("description = %v", embed["description"])
	}
	if embed["color"].(float64) != colorOnline {
		t.Errorf("color = %v", embed["color"])
	}

	if err := d.Notify(context.Background(), testStatus(0)); err != nil {
		t.Fatal(err)
	}
	embed = c.last(t)["embeds"].([]any)[0].(map[string]any)
	if embed["description"] != "nobody on play.example.net" {
		t.Errorf("empty description = %v", embed["description"])
	}
}

func TestSlack(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	s := NewSlack(config.WebhookConfig{URL: srv.URL, Message: "Status change: %online/%max\nPlayers:```%players```"}, "", 1)
	if err := s.Notify(context.Background(), testStatus(1, "alice")); err != nil {
		t.Fatal(err)
	}
	if got := c.last(t)["text"]; got != "Status change: 1/20\nPlayers:```alice```" {
		t.Errorf("text = %q", got)
	}
}

func TestCustom(t *testing.T) {
	t.Run("plain report", func(t *testing.T) {
		var c capture
		srv := httptest.NewServer(c.handler())
		defer srv.Close()

		n := NewCustom(config.CustomConfig{
			URL:     srv.URL,
			Headers: map[string]string{"X-Online": "%online"},
		}, "", 1)
		if err := n.Notify(context.Background(), testStatus(3)); err != nil {
			t.Fatal(err)
		}
		body := c.last(t)
		if body["hostname"] != "play.example.net" || body["port"].(float64) != 25570 {
			t.Errorf("body = %v", body)
		}
		if got := c.headers[0].Get("X-Online"); got != "3" {
			t.Errorf("X-Online = %q", got)
		}
	})

	t.Run("with custom data", func(t *testing.T) {
		var c capture
		srv := httptest.NewServer(c.handler())
		defer srv.Close()

		n := NewCustom(config.CustomConfig{
			URL:        srv.URL,
			CustomData: map[string]any{"summary": "%online/%max", "priority": 5},
		}, "", 1)
		if err := n.Notify(context.Background(), testStatus(3)); err != nil {
			t.Fatal(err)
		}
		body := c.last(t)
		data := body["custom_data"].(map[string]any)
		if data["summary"] != "3/20" || data["priority"].(float64) != 5 {
			t.Errorf("custom_data = %v", data)
		}
		if body["status"].(map[string]any)["host"] != "mc1.example.net" {
			t.Errorf("status = %v", body["status"])
		}
	})
}

func TestFirebase(t *testing.T) {
	var c capture
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	cfg := config.DefaultConfig().Notifiers.Firebase
	cfg.Endpoint = srv.URL
	cfg.ServerKey = "secret"
	cfg.RegistrationIDs = []string{"device-1", "device-2"}
	cfg.Data = map[string]any{"online": "%online", "silent": true}
	f := NewFirebase(cfg, "", 1)

	if err := f.Notify(context.Background(), testStatus(0)); err != nil {
		t.Fatal(err)
	}
	body := c.last(t)
	if ids, ok := body["registration_ids"].([]any); !ok || len(ids) != 2 || ids[0] != "device-1" {
		t.Errorf("registration_ids = %v", body["registration_ids"])
	}
	data, ok := body["data"].(map[string]any)
	if !ok || data["online"] != "0" || data["silent"] != true {
		t.Errorf("data = %v", body["data"])
	}
	if body["to"] != "/topics/all" {
		t.Errorf("to = %v", body["to"])
	}
	if _, ok := body["condition"]; ok {
		t.Errorf("unexpected condition in %v", body)
	}
	notif := body["notification"].(map[string]any)
	if notif["title"] != "Status change: 0/20" || notif["body"] != "Server: mc1.example.net:25570" {
		t.Errorf("notification = %v", notif)
	}
	if got := c.headers[0].Get("Authorization"); got != "key=secret" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestConsole(t *testing.T) {
	var buf strings.Builder
	c := NewConsole(&buf)
	if err := c.Notify(context.Background(), testStatus(1, "alice")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "alice") {
		t.Errorf("output = %q", buf.String())
	}
}

type fakeNotifier struct {
	name string
	err  error
	got  chan *status.Status
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(ctx context.Context, st *status.Status) error {
	f.got <- st
	return f.err
}

func TestDispatcherFansOut(t *testing.T) {
	bus := events.NewEventBus()
	d := NewDispatcher(bus)

	ok := &fakeNotifier{name: "ok", got: make(chan *status.Status, 1)}
	bad := &fakeNotifier{name: "bad", err: errors.New("down"), got: make(chan *status.Status, 1)}
	d.Register(ok)
	d.Register(bad)

	st := testStatus(4)
	d.Dispatch(context.Background(), st)
	bus.Wait()

	if got := <-ok.got; got != st {
		t.Error("ok notifier got a different snapshot")
	}
	if got := <-bad.got; got != st {
		t.Error("bad notifier got a different snapshot")
	}
	if names := d.Notifiers(); len(names) != 2 || names[0] != "ok" {
		t.Errorf("Notifiers = %v", names)
	}
}

type slowNotifier struct {
	delay  time.Duration
	result chan error
}

func (s *slowNotifier) Name() string { return "slow" }

func (s *slowNotifier) Notify(ctx context.Context, st *status.Status) error {
	select {
	case <-time.After(s.delay):
		s.result <- nil
	case <-ctx.Done():
		s.result <- ctx.Err()
	}
	return nil
}

func TestDispatchSurvivesPollCancel(t *testing.T) {
	bus := events.NewEventBus()
	d := NewDispatcher(bus)
	slow := &slowNotifier{delay: 100 * time.Millisecond, result: make(chan error, 1)}
	d.Register(slow)

	ctx, cancel := context.WithCancel(context.Background())
	d.Dispatch(ctx, testStatus(2))
	cancel()
	bus.Stop()

	select {
	case err := <-slow.result:
		if err != nil {
			t.Fatalf("in-flight delivery ended with %v, want completion", err)
		}
	default:
		t.Fatal("Stop returned before the delivery finished")
	}
}

func TestBuild(t *testing.T) {
	cfg := config.DefaultConfig().Notifiers
	cfg.Discord.Enabled = true
	cfg.Discord.URL = "https://discord.example/hook"
	cfg.Slack.Enabled = true
	cfg.Slack.URL = "https://slack.example/hook"

	ns, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, n := range ns {
		names = append(names, n.Name())
	}
	if strings.Join(names, ",") != "discord,slack,console" {
		t.Errorf("notifiers = %v", names)
	}
	Close(ns)
}
