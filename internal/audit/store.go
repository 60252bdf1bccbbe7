package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/altavoxlabs/altavox-core/internal/config"
	_ "modernc.org/sqlite"
)

// Entry records the outcome of one synthesis request.
type Entry struct {
	ID         int64
	RequestID  string
	Transport  string // http or bus
	Voice      string
	Format     string
	Stream     bool
	Characters int
	Units      int
	Batches    int
	Status     string // ok or failed
	Error      string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Store keeps a SQLite-backed log of synthesis requests. In ephemeral mode
// every operation is a no-op.
type Store struct {
	db    *sql.DB
	cfg   config.AuditConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the audit store according to config.
func Open(ctx context.Context, cfg config.AuditConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
			log.Warn("audit store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("audit store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id TEXT NOT NULL,
    transport TEXT,
    voice TEXT,
    format TEXT,
    stream INTEGER NOT NULL DEFAULT 0,
    characters INTEGER,
    units INTEGER,
    batches INTEGER,
    status TEXT,
    error TEXT,
    duration_ms INTEGER,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_requests_created ON requests(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record writes one request entry.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests(request_id, transport, voice, format, stream, characters, units, batches, status, error, duration_ms, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RequestID, e.Transport, e.Voice, e.Format, boolToInt(e.Stream),
		e.Characters, e.Units, e.Batches, e.Status, e.Error,
		e.Duration.Milliseconds(), e.CreatedAt)
	return err
}

// ListRecent returns up to limit entries, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, transport, voice, format, stream, characters, units, batches, status, error, duration_ms, created_at
		 FROM requests ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var stream int
		var durationMS int64
		var created string
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Transport, &e.Voice, &e.Format, &stream,
			&e.Characters, &e.Units, &e.Batches, &e.Status, &e.Error, &durationMS, &created); err != nil {
			return nil, err
		}
		e.Stream = stream != 0
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune applies the configured retention.
func (s *Store) Prune(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRequests > 0 {
		_, err := s.db.ExecContext(ctx, `DELETE FROM requests WHERE id IN (
			SELECT id FROM requests ORDER BY created_at DESC, id DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRequests)
		if err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
