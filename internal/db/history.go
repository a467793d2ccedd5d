package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mcnotify/mcnotify/internal/status"
	"github.com/mcnotify/mcnotify/internal/util"
)

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 50

// Entry is one recorded online-count change.
type Entry struct {
	ID          int64     `json:"id"`
	ObservedAt  time.Time `json:"observed_at"`
	Hostname    string    `json:"hostname"`
	Host        string    `json:"host"`
	Port        uint16    `json:"port"`
	Online      int       `json:"online"`
	Max         int       `json:"max"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	Players     []string  `json:"players"`
}

// History stores status changes. It doubles as a notifier so every
// dispatched snapshot is recorded.
type History struct {
	db     *Database
	now    func() time.Time
	logger zerolog.Logger
}

// NewHistory opens the history at dbPath and applies the schema.
func NewHistory(dbPath string) (*History, error) {
	d, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	h := &History{
		db:     d,
		now:    time.Now,
		logger: util.ComponentLogger("history"),
	}
	if err := h.migrate(context.Background()); err != nil {
		d.Close()
		return nil, fmt.Errorf("history migration failed: %w", err)
	}
	return h, nil
}

func (h *History) migrate(ctx context.Context) error {
	return h.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS status_changes (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				observed_at INTEGER NOT NULL,
				hostname    TEXT NOT NULL,
				host        TEXT NOT NULL,
				port        INTEGER NOT NULL,
				online      INTEGER NOT NULL,
				max_players INTEGER NOT NULL,
				version     TEXT NOT NULL DEFAULT '',
				description TEXT NOT NULL DEFAULT '',
				players     TEXT NOT NULL DEFAULT '[]'
			)`,
			`CREATE INDEX IF NOT EXISTS idx_status_changes_observed ON status_changes(observed_at)`,
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// Name implements the notifier interface.
func (h *History) Name() string {
	return "history"
}

// Notify records st.
func (h *History) Notify(ctx context.Context, st *status.Status) error {
	_, err := h.Record(ctx, st)
	return err
}

// Record stores st as a change observed now and returns its row id.
func (h *History) Record(ctx context.Context, st *status.Status) (int64, error) {
	names := make([]string, 0, len(st.Players.Sample))
	for _, p := range st.Players.Sample {
		names = append(names, p.Name)
	}
	players, err := json.Marshal(names)
	if err != nil {
		return 0, fmt.Errorf("failed to encode players: %w", err)
	}

	res, err := h.db.Exec(ctx,
		`INSERT INTO status_changes
			(observed_at, hostname, host, port, online, max_players, version, description, players)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.now().UnixMilli(), st.Hostname, st.Host, int(st.Port),
		st.Players.Online, st.Players.Max, st.Version.Name, st.Description.Text, string(players),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record status change: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	h.logger.Debug().Int64("id", id).Int("online", st.Players.Online).Msg("status change recorded")
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	rows, err := h.db.Query(ctx,
		`SELECT id, observed_at, hostname, host, port, online, max_players, version, description, players
		 FROM status_changes ORDER BY observed_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e       Entry
			millis  int64
			port    int
			players string
		)
		if err := rows.Scan(&e.ID, &millis, &e.Hostname, &e.Host, &port,
			&e.Online, &e.Max, &e.Version, &e.Description, &players); err != nil {
			return nil, err
		}
		e.ObservedAt = time.UnixMilli(millis).UTC()
		e.Port = uint16(port)
		if err := json.Unmarshal([]byte(players), &e.Players); err != nil {
			h.logger.Warn().Err(err).Int64("id", e.ID).Msg("corrupt player list in history")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes entries observed before cutoff and returns how many were
// removed.
func (h *History) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := h.db.Exec(ctx, `DELETE FROM status_changes WHERE observed_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (h *History) Close() error {
	return h.db.Close()
}
