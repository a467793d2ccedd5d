package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mcnotify/mcnotify/internal/config"
	"github.com/mcnotify/mcnotify/internal/db"
	"github.com/mcnotify/mcnotify/internal/status"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeHistory struct {
	limit   int
	entries []db.Entry
	err     error
}

func (f *fakeHistory) Recent(ctx context.Context, limit int) ([]db.Entry, error) {
	f.limit = limit
	return f.entries, f.err
}

func newTestServer(history HistoryReader) *Server {
	return NewServer(config.APIConfig{Port: 8095}, status.NewTarget("play.example.net", 25565), history, "test")
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: invalid JSON %q", path, w.Body.String())
	}
	return w, body
}

func TestPing(t *testing.T) {
	w, body := get(t, newTestServer(nil), "/api/public/ping")
	if w.Code != http.StatusOK || body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("ping = %d %v", w.Code, body)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(nil)

	w, body := get(t, s, "/api/status")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before first snapshot = %d", w.Code)
	}
	if body["target"].(map[string]any)["hostname"] != "play.example.net" {
		t.Errorf("target = %v", body["target"])
	}

	st := &status.Status{
		Version:  status.Version{Name: "1.20.4"},
		Players:  status.Players{Online: 3, Max: 10},
		Hostname: "play.example.net",
		Host:     "play.example.net",
		Port:     25565,
	}
	if err := s.Notify(context.Background(), st); err != nil {
		t.Fatal(err)
	}

	w, body = get(t, s, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	report := body["status"].(map[string]any)
	if report["players"].(map[string]any)["online"].(float64) != 3 {
		t.Errorf("report = %v", report)
	}
}

func TestHistory(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		w, _ := get(t, newTestServer(nil), "/api/history")
		if w.Code != http.StatusNotFound {
			t.Errorf("code = %d", w.Code)
		}
	})

	t.Run("limit", func(t *testing.T) {
		h := &fakeHistory{entries: []db.Entry{{ID: 1, Online: 2}}}
		s := newTestServer(h)

		w, body := get(t, s, "/api/history?limit=10000")
		if w.Code != http.StatusOK || body["count"].(float64) != 1 {
			t.Errorf("history = %d %v", w.Code, body)
		}
		if h.limit != maxHistoryLimit {
			t.Errorf("limit = %d, want %d", h.limit, maxHistoryLimit)
		}

		w, _ = get(t, s, "/api/history?limit=abc")
		if w.Code != http.StatusBadRequest {
			t.Errorf("bad limit code = %d", w.Code)
		}
	})

	t.Run("query error", func(t *testing.T) {
		w, _ := get(t, newTestServer(&fakeHistory{err: errors.New("locked")}), "/api/history")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("code = %d", w.Code)
		}
	})
}

func TestNotFound(t *testing.T) {
	w, _ := get(t, newTestServer(nil), "/api/nope")
	if w.Code != http.StatusNotFound {
		t.Errorf("code = %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("burst of 2 rejected")
	}
	if rl.Allow("a") {
		t.Fatal("third request allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("other client limited")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatal("token not refilled")
	}

	now = now.Add(time.Hour)
	rl.Sweep(time.Minute)
	if len(rl.clients) != 0 {
		t.Errorf("clients after sweep = %d", len(rl.clients))
	}

	if !NewRateLimiter(0).Allow("x") {
		t.Error("disabled limiter rejected")
	}
}
