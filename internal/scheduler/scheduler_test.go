package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mcnotify/mcnotify/internal/config"
)

type fakePruner struct {
	cutoff time.Time
	err    error
}

func (f *fakePruner) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestNextCleanupTime(t *testing.T) {
	tests := []struct {
		cleanup string
		now     time.Time
		want    time.Time
	}{
		{"04:00", time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC)},
		{"04:00", time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC), time.Date(2024, 5, 2, 4, 0, 0, 0, time.UTC)},
		{"23:30", time.Date(2024, 5, 31, 23, 45, 0, 0, time.UTC), time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)},
		{"garbage", time.Date(2024, 5, 1, 1, 0, 0, 0, time.UTC), time.Date(2024, 5, 1, 4, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		s := NewScheduler(config.HistoryConfig{CleanupTime: tt.cleanup}, &fakePruner{})
		s.now = func() time.Time { return tt.now }
		if got := s.nextCleanupTime(); !got.Equal(tt.want) {
			t.Errorf("nextCleanupTime(%s at %v) = %v, want %v", tt.cleanup, tt.now, got, tt.want)
		}
	}
}

func TestRunCleanup(t *testing.T) {
	now := time.Date(2024, 5, 10, 4, 0, 0, 0, time.UTC)
	p := &fakePruner{}
	s := NewScheduler(config.HistoryConfig{RetentionDays: 7}, p)
	s.now = func() time.Time { return now }

	s.RunCleanup(context.Background())
	if want := now.AddDate(0, 0, -7); !p.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", p.cutoff, want)
	}

	p.err = errors.New("locked")
	s.RunCleanup(context.Background())
}

func TestStartStopsOnCancel(t *testing.T) {
	s := NewScheduler(config.HistoryConfig{CleanupTime: "04:00"}, &fakePruner{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
