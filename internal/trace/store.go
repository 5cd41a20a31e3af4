// Package trace persists one row per dispatch to a local SQLite database
// so past decisions stay queryable. Like every other sink, it is
// best-effort: a failed write is logged and forgotten.
package trace

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/yonatangross/hookwarden/internal/dispatch"
)

const schema = `
CREATE TABLE IF NOT EXISTS dispatches (
	event_id     TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL DEFAULT '',
	tool         TEXT NOT NULL DEFAULT '',
	path         TEXT NOT NULL DEFAULT '',
	verdict      TEXT NOT NULL,
	reason_codes TEXT NOT NULL DEFAULT '',
	latency_ms   REAL NOT NULL DEFAULT 0,
	ts           TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_dispatches_session ON dispatches(session_id, ts);
`

// Store is the SQLite-backed dispatch trace.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open creates the database file (and its directory) if needed and ensures
// the schema exists.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // sqlite: single writer
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record implements dispatch.Tracer. Errors are swallowed after logging so
// trace persistence can never affect a verdict.
func (s *Store) Record(ctx context.Context, row dispatch.TraceRow) {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO dispatches
			(event_id, session_id, tool, path, verdict, reason_codes, latency_ms, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.EventID,
		row.SessionID,
		row.Tool,
		row.Path,
		row.Verdict,
		strings.Join(row.ReasonCodes, ","),
		row.LatencyMs,
		row.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Warn("trace write skipped", zap.Error(err))
	}
}

// Recent returns up to limit rows, newest first, optionally filtered by
// session.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]dispatch.TraceRow, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT event_id, session_id, tool, path, verdict, reason_codes, latency_ms, ts
		FROM dispatches`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dispatch.TraceRow
	for rows.Next() {
		var row dispatch.TraceRow
		var codes, ts string
		if err := rows.Scan(&row.EventID, &row.SessionID, &row.Tool, &row.Path,
			&row.Verdict, &codes, &row.LatencyMs, &ts); err != nil {
			return nil, err
		}
		if codes != "" {
			row.ReasonCodes = strings.Split(codes, ",")
		}
		row.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, row)
	}
	return out, rows.Err()
}
